//go:build llama

package provider

import (
	"context"
	"errors"
	"strings"
	"sync"

	llama "github.com/go-skynet/go-llama.cpp"
)

// Llama runs GGUF models in-process through go-llama.cpp. The model path is
// taken from Model.ProviderModel. Loaded models are cached per path and
// serialized, since a llama context cannot serve two predictions at once.
type Llama struct {
	ctxSize int
	threads int

	mu     sync.Mutex
	models map[string]*llamaModel
}

type llamaModel struct {
	mu sync.Mutex
	m  *llama.LLama
}

func NewLlama(opts Options) *Llama {
	return &Llama{ctxSize: opts.ContextSize, threads: opts.Threads, models: make(map[string]*llamaModel)}
}

func (p *Llama) load(path string) (*llamaModel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if lm, ok := p.models[path]; ok {
		return lm, nil
	}
	mo := []llama.ModelOption{}
	if p.ctxSize > 0 {
		mo = append(mo, llama.SetContext(p.ctxSize))
	}
	m, err := llama.New(path, mo...)
	if err != nil {
		return nil, err
	}
	lm := &llamaModel{m: m}
	p.models[path] = lm
	return lm, nil
}

func (p *Llama) Stream(ctx context.Context, req Request, emit func(Event)) error {
	path := strings.TrimSpace(req.UpstreamModel())
	if path == "" {
		return errors.New("model path is empty")
	}
	lm, err := p.load(path)
	if err != nil {
		return err
	}
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	emit(Event{Kind: EventStart})
	lm.m.SetTokenCallback(func(tok string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		if tok != "" {
			emit(Event{Kind: EventDelta, Text: tok})
		}
		return true
	})
	_, err = lm.m.Predict(renderPrompt(req.Messages), predictOptions(paramsFrom(req.Config), p.threads)...)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return err
	}
	emit(Event{Kind: EventFinish, FinishReason: "stop"})
	return nil
}

// Close frees every loaded model.
func (p *Llama) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for path, lm := range p.models {
		lm.mu.Lock()
		lm.m.Free()
		lm.mu.Unlock()
		delete(p.models, path)
	}
	return nil
}

func predictOptions(sp samplingParams, threads int) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetThreads(maxInt(1, threads)),
		llama.SetTopP(orFloat(sp.TopP, llama.DefaultOptions.TopP)),
		llama.SetTopK(orInt(sp.TopK, llama.DefaultOptions.TopK)),
		llama.SetTemperature(llama.DefaultOptions.Temperature),
		llama.SetPenalty(orFloat(sp.RepeatPenalty, llama.DefaultOptions.Penalty)),
	}
	if sp.MaxTokens > 0 {
		po = append(po, llama.SetTokens(sp.MaxTokens))
	}
	if sp.HasTemperature {
		po = append(po, llama.SetTemperature(sp.Temperature))
	}
	if sp.Seed != nil {
		po = append(po, llama.SetSeed(*sp.Seed))
	}
	if len(sp.Stop) > 0 {
		po = append(po, llama.SetStopWords(sp.Stop...))
	}
	return po
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func orInt(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func orFloat(v, def float32) float32 {
	if v > 0 {
		return v
	}
	return def
}
