package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"benchd/pkg/types"
)

// LlamaServer talks to a running llama.cpp server (or any server speaking the
// same OpenAI-style SSE dialect) over plain HTTP. It sends the llama.cpp
// sampling extensions (top_k, repeat_penalty) that stock OpenAI clients drop
// and understands reasoning_content deltas.
type LlamaServer struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewLlamaServer(opts Options) *LlamaServer {
	cli := opts.HTTPClient
	if cli == nil {
		tr := &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		}
		// Timeout stays 0: connect and read deadlines are owned by the caller's context.
		cli = &http.Client{Transport: tr}
	}
	return &LlamaServer{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		httpClient: cli,
	}
}

type llamaChatRequest struct {
	Model            string          `json:"model,omitempty"`
	Messages         []types.Message `json:"messages"`
	Stream           bool            `json:"stream"`
	MaxTokens        int             `json:"max_tokens,omitempty"`
	Temperature      *float32        `json:"temperature,omitempty"`
	TopP             float32         `json:"top_p,omitempty"`
	TopK             int             `json:"top_k,omitempty"`
	PresencePenalty  float32         `json:"presence_penalty,omitempty"`
	FrequencyPenalty float32         `json:"frequency_penalty,omitempty"`
	RepeatPenalty    float32         `json:"repeat_penalty,omitempty"`
	Seed             *int            `json:"seed,omitempty"`
	Stop             []string        `json:"stop,omitempty"`
	StreamOptions    map[string]bool `json:"stream_options,omitempty"`
}

type llamaStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content          string `json:"content"`
			ReasoningContent string `json:"reasoning_content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (p *LlamaServer) endpoint(m types.Model) string {
	base := p.baseURL
	if m.BaseURL != "" {
		base = strings.TrimRight(m.BaseURL, "/")
	}
	return base + "/v1/chat/completions"
}

func (p *LlamaServer) Stream(ctx context.Context, req Request, emit func(Event)) error {
	sp := paramsFrom(req.Config)
	payload := llamaChatRequest{
		Model:            req.UpstreamModel(),
		Messages:         req.Messages,
		Stream:           true,
		MaxTokens:        sp.MaxTokens,
		TopP:             sp.TopP,
		TopK:             sp.TopK,
		PresencePenalty:  sp.PresencePenalty,
		FrequencyPenalty: sp.FrequencyPenalty,
		RepeatPenalty:    sp.RepeatPenalty,
		Seed:             sp.Seed,
		Stop:             sp.Stop,
		StreamOptions:    map[string]bool{"include_usage": true},
	}
	if sp.HasTemperature {
		t := sp.Temperature
		payload.Temperature = &t
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(req.Model), bytes.NewReader(body))
	if err != nil {
		return err
	}
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set("Accept", "text/event-stream")
	key := p.apiKey
	if req.Model.APIKey != "" {
		key = req.Model.APIKey
	}
	if key != "" {
		hreq.Header.Set("Authorization", "Bearer "+key)
	}
	resp, err := p.httpClient.Do(hreq)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("llama server request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("llama server http error: %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}
	emit(Event{Kind: EventStart})
	return readLlamaSSE(ctx, resp.Body, emit)
}

// readLlamaSSE parses "data:" lines until [DONE] or EOF. Blank lines and SSE
// comments are keep-alives; anything else that does not decode is a ParseError.
// Every line that yields no delta is reported as EventActivity.
func readLlamaSSE(ctx context.Context, body io.Reader, emit func(Event)) error {
	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	var (
		usage  *Usage
		finish string
	)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(strings.ToLower(line), "data:") {
			emit(Event{Kind: EventActivity})
			continue
		}
		data := strings.TrimSpace(line[len("data:"):])
		if data == "[DONE]" {
			break
		}
		var chunk llamaStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return &ParseError{Payload: truncate(data, 200), Err: err}
		}
		if chunk.Error != nil {
			return fmt.Errorf("llama server stream error: %s", chunk.Error.Message)
		}
		if chunk.Usage != nil {
			usage = &Usage{
				PromptTokens:     chunk.Usage.PromptTokens,
				CompletionTokens: chunk.Usage.CompletionTokens,
				TotalTokens:      chunk.Usage.TotalTokens,
			}
		}
		if len(chunk.Choices) == 0 {
			emit(Event{Kind: EventActivity})
			continue
		}
		ch := chunk.Choices[0]
		if ch.Delta.Content != "" || ch.Delta.ReasoningContent != "" {
			emit(Event{Kind: EventDelta, Text: ch.Delta.Content, Reasoning: ch.Delta.ReasoningContent})
		} else {
			emit(Event{Kind: EventActivity})
		}
		if ch.FinishReason != nil && *ch.FinishReason != "" {
			finish = *ch.FinishReason
		}
	}
	if err := sc.Err(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, bufio.ErrTooLong) {
			return &ParseError{Err: err}
		}
		return fmt.Errorf("llama server stream read: %w", err)
	}
	emit(Event{Kind: EventFinish, Usage: usage, FinishReason: finish})
	return nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
