package provider

import "benchd/pkg/types"

// samplingParams is the flattened view of a GenerationConfig that backends map
// onto their own request shapes. Zero means "let the backend decide".
type samplingParams struct {
	Temperature      float32
	HasTemperature   bool
	TopP             float32
	TopK             int
	MaxTokens        int
	PresencePenalty  float32
	FrequencyPenalty float32
	RepeatPenalty    float32
	Seed             *int
	Stop             []string
}

func paramsFrom(c types.GenerationConfig) samplingParams {
	var p samplingParams
	if c.Temperature != nil {
		p.Temperature = float32(*c.Temperature)
		p.HasTemperature = true
	}
	if c.TopP != nil {
		p.TopP = float32(*c.TopP)
	}
	if c.TopK != nil {
		p.TopK = *c.TopK
	}
	if c.MaxTokens != nil {
		p.MaxTokens = *c.MaxTokens
	}
	if c.PresencePenalty != nil {
		p.PresencePenalty = float32(*c.PresencePenalty)
	}
	if c.FrequencyPenalty != nil {
		p.FrequencyPenalty = float32(*c.FrequencyPenalty)
	}
	if c.RepeatPenalty != nil {
		p.RepeatPenalty = float32(*c.RepeatPenalty)
	}
	if c.Seed != nil {
		s := *c.Seed
		p.Seed = &s
	}
	if len(c.Stop) > 0 {
		p.Stop = append([]string(nil), c.Stop...)
	}
	return p
}
