package core

import "context"

type LLMInput struct {
	SessionKey string
	Text       string
}

type LLMOutput struct {
	Text  string
	Stats Stats
}

type Stats struct {
	InputTokenCount  int32 `json:"input_token_count,omitempty"`
	OutputTokenCount int32 `json:"output_token_count,omitempty"`
	TotalTokenCount  int32 `json:"total_token_count,omitempty"`
}

func (s Stats) Add(other Stats) Stats {
	return Stats{
		InputTokenCount:  s.InputTokenCount + other.InputTokenCount,
		OutputTokenCount: s.OutputTokenCount + other.OutputTokenCount,
		TotalTokenCount:  s.TotalTokenCount + other.TotalTokenCount,
	}
}

// LLM is a hosted chat model. Implementations must not retry on their own.
type LLM interface {
	Generate(ctx context.Context, systemContext string, input LLMInput) (LLMOutput, error)
	ModelName() string
}
