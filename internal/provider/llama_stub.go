//go:build !llama

package provider

import "context"

// Llama is the placeholder compiled without the 'llama' build tag. It keeps
// default builds CGO-free and fails every generation with a clear error.
type Llama struct {
	ctxSize int
	threads int
}

func NewLlama(opts Options) *Llama {
	return &Llama{ctxSize: opts.ContextSize, threads: opts.Threads}
}

func (p *Llama) Stream(ctx context.Context, req Request, emit func(Event)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return ErrDependencyUnavailable("llama support not built (missing 'llama' build tag)")
}

func (p *Llama) Close() error { return nil }
