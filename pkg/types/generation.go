package types

import "time"

// Defaults applied when neither the global nor the per-model config sets a timeout.
const (
	DefaultConnectTimeoutMs = 15000
	DefaultReadTimeoutMs    = 30000
)

// GenerationConfig holds sampling parameters, timeouts and the system prompt.
// Nil fields are unset; Merge relies on that to apply per-model overrides.
type GenerationConfig struct {
	Temperature      *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty" toml:"temperature,omitempty"`
	TopP             *float64 `json:"top_p,omitempty" yaml:"top_p,omitempty" toml:"top_p,omitempty"`
	TopK             *int     `json:"top_k,omitempty" yaml:"top_k,omitempty" toml:"top_k,omitempty"`
	MaxTokens        *int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty" toml:"max_tokens,omitempty"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty" yaml:"presence_penalty,omitempty" toml:"presence_penalty,omitempty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty" yaml:"frequency_penalty,omitempty" toml:"frequency_penalty,omitempty"`
	// RepeatPenalty is a llama.cpp extension; OpenAI backends ignore it.
	RepeatPenalty    *float64 `json:"repeat_penalty,omitempty" yaml:"repeat_penalty,omitempty" toml:"repeat_penalty,omitempty"`
	Seed             *int     `json:"seed,omitempty" yaml:"seed,omitempty" toml:"seed,omitempty"`
	Stop             []string `json:"stop,omitempty" yaml:"stop,omitempty" toml:"stop,omitempty"`
	ConnectTimeoutMs *int     `json:"connect_timeout_ms,omitempty" yaml:"connect_timeout_ms,omitempty" toml:"connect_timeout_ms,omitempty"`
	ReadTimeoutMs    *int     `json:"read_timeout_ms,omitempty" yaml:"read_timeout_ms,omitempty" toml:"read_timeout_ms,omitempty"`
	SystemPrompt     *string  `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty" toml:"system_prompt,omitempty"`
}

// Merge returns a new config: c with every field set in override applied on top.
// The result shares no slices or pointers with either input.
func (c GenerationConfig) Merge(override *GenerationConfig) GenerationConfig {
	out := c.clone()
	if override == nil {
		return out
	}
	o := override.clone()
	if o.Temperature != nil {
		out.Temperature = o.Temperature
	}
	if o.TopP != nil {
		out.TopP = o.TopP
	}
	if o.TopK != nil {
		out.TopK = o.TopK
	}
	if o.MaxTokens != nil {
		out.MaxTokens = o.MaxTokens
	}
	if o.PresencePenalty != nil {
		out.PresencePenalty = o.PresencePenalty
	}
	if o.FrequencyPenalty != nil {
		out.FrequencyPenalty = o.FrequencyPenalty
	}
	if o.RepeatPenalty != nil {
		out.RepeatPenalty = o.RepeatPenalty
	}
	if o.Seed != nil {
		out.Seed = o.Seed
	}
	if o.Stop != nil {
		out.Stop = o.Stop
	}
	if o.ConnectTimeoutMs != nil {
		out.ConnectTimeoutMs = o.ConnectTimeoutMs
	}
	if o.ReadTimeoutMs != nil {
		out.ReadTimeoutMs = o.ReadTimeoutMs
	}
	if o.SystemPrompt != nil {
		out.SystemPrompt = o.SystemPrompt
	}
	return out
}

// ConnectTimeout is the time allowed until the first protocol signal.
func (c GenerationConfig) ConnectTimeout() time.Duration {
	return msOrDefault(c.ConnectTimeoutMs, DefaultConnectTimeoutMs)
}

// ReadTimeout is the sliding time allowed between two stream signals.
func (c GenerationConfig) ReadTimeout() time.Duration {
	return msOrDefault(c.ReadTimeoutMs, DefaultReadTimeoutMs)
}

// System returns the system prompt or "" when unset.
func (c GenerationConfig) System() string {
	if c.SystemPrompt == nil {
		return ""
	}
	return *c.SystemPrompt
}

func msOrDefault(v *int, def int) time.Duration {
	if v == nil || *v <= 0 {
		return time.Duration(def) * time.Millisecond
	}
	return time.Duration(*v) * time.Millisecond
}

func (c GenerationConfig) clone() GenerationConfig {
	out := GenerationConfig{
		Temperature:      clonePtr(c.Temperature),
		TopP:             clonePtr(c.TopP),
		TopK:             clonePtr(c.TopK),
		MaxTokens:        clonePtr(c.MaxTokens),
		PresencePenalty:  clonePtr(c.PresencePenalty),
		FrequencyPenalty: clonePtr(c.FrequencyPenalty),
		RepeatPenalty:    clonePtr(c.RepeatPenalty),
		Seed:             clonePtr(c.Seed),
		ConnectTimeoutMs: clonePtr(c.ConnectTimeoutMs),
		ReadTimeoutMs:    clonePtr(c.ReadTimeoutMs),
		SystemPrompt:     clonePtr(c.SystemPrompt),
	}
	if c.Stop != nil {
		out.Stop = append([]string{}, c.Stop...)
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Ptr returns a pointer to v. Handy for building configs in code and tests.
func Ptr[T any](v T) *T { return &v }
