package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"

	"benchd/pkg/types"
)

// OpenAI talks to any OpenAI-compatible chat completions API.
// Clients are cached per (base URL, API key) so per-model overrides reuse
// their own connection pool.
type OpenAI struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	mu      sync.Mutex
	clients map[string]*openai.Client
}

func NewOpenAI(opts Options) *OpenAI {
	return &OpenAI{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		httpClient: opts.HTTPClient,
		clients:    make(map[string]*openai.Client),
	}
}

func (p *OpenAI) client(m types.Model) *openai.Client {
	key := p.apiKey
	if m.APIKey != "" {
		key = m.APIKey
	}
	base := p.baseURL
	if m.BaseURL != "" {
		base = strings.TrimRight(m.BaseURL, "/")
	}
	cacheKey := base + "\x00" + key
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.clients[cacheKey]; ok {
		return c
	}
	cfg := openai.DefaultConfig(key)
	if base != "" {
		cfg.BaseURL = base
	}
	cfg.HTTPClient = withActivityTransport(p.httpClient)
	c := openai.NewClientWithConfig(cfg)
	p.clients[cacheKey] = c
	return c
}

func chatRequest(req Request) openai.ChatCompletionRequest {
	sp := paramsFrom(req.Config)
	cr := openai.ChatCompletionRequest{
		Model:            req.UpstreamModel(),
		Stream:           true,
		StreamOptions:    &openai.StreamOptions{IncludeUsage: true},
		TopP:             sp.TopP,
		PresencePenalty:  sp.PresencePenalty,
		FrequencyPenalty: sp.FrequencyPenalty,
		Seed:             sp.Seed,
		Stop:             sp.Stop,
	}
	if sp.HasTemperature {
		cr.Temperature = sp.Temperature
	}
	if sp.MaxTokens > 0 {
		// Older OpenAI-compatible servers only understand max_tokens.
		cr.MaxTokens = sp.MaxTokens
	}
	cr.Messages = make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		cr.Messages = append(cr.Messages, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}
	return cr
}

func (p *OpenAI) Stream(ctx context.Context, req Request, emit func(Event)) error {
	// go-openai skips keep-alive lines internally; body reads still count.
	ctx = withActivity(ctx, func() { emit(Event{Kind: EventActivity}) })
	stream, err := p.client(req.Model).CreateChatCompletionStream(ctx, chatRequest(req))
	if err != nil {
		return classifyOpenAIError(err)
	}
	defer stream.Close()
	emit(Event{Kind: EventStart})

	var (
		usage  *Usage
		finish string
	)
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return classifyOpenAIError(err)
		}
		if resp.Usage != nil {
			usage = &Usage{
				PromptTokens:     resp.Usage.PromptTokens,
				CompletionTokens: resp.Usage.CompletionTokens,
				TotalTokens:      resp.Usage.TotalTokens,
			}
		}
		if len(resp.Choices) == 0 {
			continue
		}
		ch := resp.Choices[0]
		if ch.Delta.Content != "" || ch.Delta.ReasoningContent != "" {
			emit(Event{Kind: EventDelta, Text: ch.Delta.Content, Reasoning: ch.Delta.ReasoningContent})
		}
		if ch.FinishReason != "" {
			finish = string(ch.FinishReason)
		}
	}
	emit(Event{Kind: EventFinish, Usage: usage, FinishReason: finish})
	return nil
}

// GenerateImages issues one blocking image request for the last user prompt.
func (p *OpenAI) GenerateImages(ctx context.Context, req Request) ([]Image, error) {
	resp, err := p.client(req.Model).CreateImage(ctx, openai.ImageRequest{
		Prompt:         req.LastUserPrompt(),
		Model:          req.UpstreamModel(),
		N:              1,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return nil, classifyOpenAIError(err)
	}
	out := make([]Image, 0, len(resp.Data))
	for _, d := range resp.Data {
		if d.URL == "" && d.B64JSON == "" {
			continue
		}
		out = append(out, Image{URL: d.URL, B64JSON: d.B64JSON, MimeType: "image/png"})
	}
	if len(out) == 0 {
		return nil, &ParseError{Err: errors.New("image response carried no images")}
	}
	return out, nil
}

func classifyOpenAIError(err error) error {
	var (
		syn *json.SyntaxError
		typ *json.UnmarshalTypeError
		api *openai.APIError
		rq  *openai.RequestError
	)
	switch {
	case errors.As(err, &syn), errors.As(err, &typ):
		return &ParseError{Err: err}
	case errors.As(err, &api):
		return fmt.Errorf("openai api error (status %d): %s", api.HTTPStatusCode, api.Message)
	case errors.As(err, &rq):
		return fmt.Errorf("openai request failed (status %d): %w", rq.HTTPStatusCode, rq.Err)
	default:
		return err
	}
}

type activityKey struct{}

// withActivity attaches fn to ctx; response bodies read through the activity
// transport call it after every read that returned bytes.
func withActivity(ctx context.Context, fn func()) context.Context {
	return context.WithValue(ctx, activityKey{}, fn)
}

// activityTransport reports body reads of requests carrying an activity hook.
type activityTransport struct {
	base http.RoundTripper
}

func withActivityTransport(c *http.Client) *http.Client {
	out := &http.Client{}
	if c != nil {
		cp := *c
		out = &cp
	}
	base := out.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	out.Transport = activityTransport{base: base}
	return out
}

func (t activityTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(r)
	if err != nil {
		return resp, err
	}
	if fn, ok := r.Context().Value(activityKey{}).(func()); ok && fn != nil {
		resp.Body = &activityBody{ReadCloser: resp.Body, fn: fn}
	}
	return resp, nil
}

type activityBody struct {
	io.ReadCloser
	fn func()
}

func (b *activityBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if n > 0 {
		b.fn()
	}
	return n, err
}
