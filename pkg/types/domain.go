package types

import "time"

// Model describes one configured LLM backend that prompts can be broadcast to.
type Model struct {
	// Stable identifier for the model.
	// example: gpt-4o
	ID string `json:"id" yaml:"id" toml:"id" example:"gpt-4o"`
	// Human-friendly name. Also the token matched by @mentions.
	// example: GPT4o
	Name string `json:"name" yaml:"name" toml:"name" example:"GPT4o"`
	// Name of the configured provider that serves this model.
	// example: openai
	Provider string `json:"provider" yaml:"provider" toml:"provider" example:"openai"`
	// Provider-specific model id sent upstream.
	// example: gpt-4o-mini
	ProviderModel string `json:"provider_model" yaml:"provider_model" toml:"provider_model" example:"gpt-4o-mini"`
	// Optional API key override for this model only.
	APIKey string `json:"-" yaml:"api_key,omitempty" toml:"api_key,omitempty"`
	// Optional base URL override for this model only.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" toml:"base_url,omitempty"`
	// Optional per-model generation overrides, merged field-by-field over the global config.
	Config *GenerationConfig `json:"config,omitempty" yaml:"config,omitempty" toml:"config,omitempty"`
	// Image marks models that generate images instead of streaming text.
	Image bool `json:"image,omitempty" yaml:"image,omitempty" toml:"image,omitempty"`
	// Enabled models form the active set targeted by broadcasts.
	Enabled bool `json:"enabled" yaml:"enabled" toml:"enabled"`
}

// Role of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn sent to a provider.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Metrics are derived from a generation; they are never user supplied.
type Metrics struct {
	// Time to first content delta, in milliseconds.
	TTFT float64 `json:"ttft"`
	// Tokens per second.
	TPS float64 `json:"tps"`
	// Request start to finish, in milliseconds.
	TotalDuration float64 `json:"totalDuration"`
	TokenCount    int     `json:"tokenCount"`
}

// BenchmarkResult is one model's answer to one prompt turn.
type BenchmarkResult struct {
	ID        string `json:"id"`
	SessionID string `json:"sessionId"`
	ModelID   string `json:"modelId"`
	// Prompt is the text sent upstream (mentions stripped).
	Prompt string `json:"prompt"`
	// DisplayPrompt is the text as the user typed it.
	DisplayPrompt string    `json:"displayPrompt,omitempty"`
	Response      string    `json:"response"`
	Reasoning     string    `json:"reasoning,omitempty"`
	Metrics       Metrics   `json:"metrics"`
	Timestamp     time.Time `json:"timestamp"`
	Error         string    `json:"error,omitempty"`
	Rating        int       `json:"rating,omitempty"`
	RatingSource  string    `json:"ratingSource,omitempty"`
}

// ChatSession hosts the results of consecutive broadcasts.
type ChatSession struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
	Results   []BenchmarkResult `json:"results"`
}

// StreamingPatch is the latest not-yet-authoritative state of an in-flight result.
// Nil fields are left untouched when merged.
type StreamingPatch struct {
	Response  *string  `json:"response,omitempty"`
	Reasoning *string  `json:"reasoning,omitempty"`
	Metrics   *Metrics `json:"metrics,omitempty"`
}

// Merge returns p with every non-nil field of next applied on top.
func (p StreamingPatch) Merge(next StreamingPatch) StreamingPatch {
	if next.Response != nil {
		p.Response = next.Response
	}
	if next.Reasoning != nil {
		p.Reasoning = next.Reasoning
	}
	if next.Metrics != nil {
		m := *next.Metrics
		p.Metrics = &m
	}
	return p
}

// Apply overlays the patch on a result copy.
func (p StreamingPatch) Apply(r BenchmarkResult) BenchmarkResult {
	if p.Response != nil {
		r.Response = *p.Response
	}
	if p.Reasoning != nil {
		r.Reasoning = *p.Reasoning
	}
	if p.Metrics != nil {
		r.Metrics = *p.Metrics
	}
	return r
}

// QueueItem is a prompt waiting for its turn to be broadcast.
type QueueItem struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	SessionID string    `json:"sessionId,omitempty"`
	Paused    bool      `json:"paused"`
	CreatedAt time.Time `json:"createdAt"`
}
