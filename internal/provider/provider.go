// Package provider defines the capability the engine needs from an LLM
// backend and ships the concrete backends: OpenAI-compatible APIs through
// go-openai, llama.cpp servers over raw SSE, and in-process llama.cpp.
//
// The contract is deliberately small: start a streaming generation for a
// model, a generation config and a message list; emit zero or more deltas and
// finish by returning. Cancellation is carried by the context.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"benchd/pkg/types"
)

// EventKind discriminates stream events.
type EventKind int

const (
	// EventStart acknowledges that the upstream stream is open.
	EventStart EventKind = iota
	// EventDelta carries incremental text and/or reasoning.
	EventDelta
	// EventFinish is the last event of a successful stream.
	EventFinish
	// EventActivity reports upstream bytes that carry no content, such as
	// SSE keep-alives or role-only chunks. It only extends the read deadline.
	EventActivity
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventDelta:
		return "delta"
	case EventFinish:
		return "finish"
	case EventActivity:
		return "activity"
	default:
		return "unknown"
	}
}

// Event is one signal of a streaming generation.
type Event struct {
	Kind         EventKind
	Text         string
	Reasoning    string
	Usage        *Usage
	FinishReason string
}

// Usage is token accounting reported by the upstream, when available.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Request is everything a backend needs to run one generation.
type Request struct {
	Model    types.Model
	Config   types.GenerationConfig
	Messages []types.Message
}

// UpstreamModel returns the provider-specific model id, falling back to the model id.
func (r Request) UpstreamModel() string {
	if s := strings.TrimSpace(r.Model.ProviderModel); s != "" {
		return s
	}
	return r.Model.ID
}

// LastUserPrompt returns the content of the final user message.
func (r Request) LastUserPrompt() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == types.RoleUser {
			return r.Messages[i].Content
		}
	}
	return ""
}

// Provider streams generations.
//
// Stream must call emit from a single goroutine, in order, and return after
// the last call. A nil return is a successful finish even without an
// EventFinish; a non-nil return is the stream's error outcome.
type Provider interface {
	Stream(ctx context.Context, req Request, emit func(Event)) error
}

// Image is one generated picture, by URL or inline base64 payload.
type Image struct {
	URL      string
	B64JSON  string
	MimeType string
}

// ImageGenerator is implemented by providers that can produce images.
type ImageGenerator interface {
	GenerateImages(ctx context.Context, req Request) ([]Image, error)
}

// ErrUnsupported is returned when a backend lacks a requested capability.
var ErrUnsupported = errors.New("operation not supported by provider")

// ParseError signals an upstream payload with an unexpected shape.
type ParseError struct {
	Payload string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Payload == "" {
		return "unexpected payload: " + e.Err.Error()
	}
	return fmt.Sprintf("unexpected payload %q: %v", e.Payload, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsParseError reports whether err is or wraps a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// dependencyUnavailableError signals a backend that is not built into this binary.
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing runtime dependency.
func IsDependencyUnavailable(err error) bool {
	var d dependencyUnavailableError
	return errors.As(err, &d)
}

// Registry maps provider names (as referenced by types.Model.Provider) to backends.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

func (r *Registry) Register(name string, p Provider) {
	r.mu.Lock()
	r.providers[name] = p
	r.mu.Unlock()
}

func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Names lists registered provider names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.providers))
	for n := range r.providers {
		out = append(out, n)
	}
	return out
}

// For resolves the backend serving a model.
func (r *Registry) For(m types.Model) (Provider, error) {
	p, ok := r.Get(m.Provider)
	if !ok {
		return nil, fmt.Errorf("no provider %q registered for model %s", m.Provider, m.ID)
	}
	return p, nil
}
