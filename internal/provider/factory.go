package provider

import (
	"fmt"
	"net/http"
	"strings"
)

// Backend kinds accepted in configuration.
const (
	KindOpenAI      = "openai"
	KindLlamaServer = "llama-server"
	KindLlama       = "llama"
)

// Options configure a backend instance.
type Options struct {
	BaseURL     string
	APIKey      string
	ContextSize int
	Threads     int
	HTTPClient  *http.Client
}

// ErrUnknownKind returns an error for an unsupported backend kind.
func ErrUnknownKind(kind string) error {
	return fmt.Errorf("unknown provider kind %q (want %s, %s or %s)", kind, KindOpenAI, KindLlamaServer, KindLlama)
}

// KnownKind reports whether kind names a backend this binary can build.
func KnownKind(kind string) bool {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindOpenAI, KindLlamaServer, KindLlama:
		return true
	}
	return false
}

// Build constructs the backend for kind.
func Build(kind string, opts Options) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindOpenAI:
		return NewOpenAI(opts), nil
	case KindLlamaServer:
		return NewLlamaServer(opts), nil
	case KindLlama:
		return NewLlama(opts), nil
	default:
		return nil, ErrUnknownKind(kind)
	}
}
