package groq

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"polycode/urban-nexus/core"
)

const (
	DefaultBaseURL   = "https://api.groq.com/openai/v1"
	DefaultModel     = "llama-3.2-3b-preview"
	defaultMaxTokens = 2048
)

type Config struct {
	APIKey      string
	ModelName   string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	HTTPClient  *http.Client
}

type chatCompletions interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Groq talks to Groq's OpenAI-compatible chat completions endpoint.
type Groq struct {
	ModelID     string
	temperature float64
	maxTokens   int
	completions chatCompletions
}

func NewGroq(cfg Config) (*Groq, error) {
	if cfg.APIKey == "" {
		return nil, core.NewConfigurationError("groq", core.ErrMissingCredential)
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	modelName := cfg.ModelName
	if modelName == "" {
		modelName = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	client := openai.NewClient(opts...)

	return &Groq{
		ModelID:     modelName,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
		completions: &client.Chat.Completions,
	}, nil
}

func (g *Groq) ModelName() string {
	return g.ModelID
}

func (g *Groq) Generate(ctx context.Context, systemContext string, input core.LLMInput) (core.LLMOutput, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if systemContext != "" {
		messages = append(messages, openai.SystemMessage(systemContext))
	}
	if input.Text != "" {
		messages = append(messages, openai.UserMessage(input.Text))
	}

	params := openai.ChatCompletionNewParams{
		Model:               shared.ChatModel(g.ModelID),
		Messages:            messages,
		Temperature:         openai.Float(g.temperature),
		MaxCompletionTokens: openai.Int(int64(g.maxTokens)),
	}
	if input.SessionKey != "" {
		params.User = openai.String(input.SessionKey)
	}

	completion, err := g.completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return core.LLMOutput{}, fmt.Errorf("groq: status %d: %w", apiErr.StatusCode, err)
		}
		return core.LLMOutput{}, fmt.Errorf("groq: %w", err)
	}
	if completion == nil || len(completion.Choices) == 0 {
		return core.LLMOutput{}, errors.New("groq: response has no choices")
	}

	return core.LLMOutput{
		Text: completion.Choices[0].Message.Content,
		Stats: core.Stats{
			InputTokenCount:  int32(completion.Usage.PromptTokens),
			OutputTokenCount: int32(completion.Usage.CompletionTokens),
			TotalTokenCount:  int32(completion.Usage.TotalTokens),
		},
	}, nil
}
