package gemini

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/genai"
	"polycode/urban-nexus/core"
)

const DefaultModel = "gemini-2.0-flash"

type Config struct {
	APIKey      string
	ModelName   string
	BaseURL     string
	Temperature float32
	HTTPClient  *http.Client
}

type Gemini struct {
	ModelID     string
	temperature float32
	client      *genai.Client
}

func NewGemini(ctx context.Context, cfg Config) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, core.NewConfigurationError("gemini", core.ErrMissingCredential)
	}
	modelName := cfg.ModelName
	if modelName == "" {
		modelName = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  cfg.HTTPClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, core.NewConfigurationError("create genai client", err)
	}

	return &Gemini{
		ModelID:     modelName,
		temperature: cfg.Temperature,
		client:      client,
	}, nil
}

func (g *Gemini) ModelName() string {
	return g.ModelID
}

func (g *Gemini) Generate(ctx context.Context, systemContext string, input core.LLMInput) (core.LLMOutput, error) {
	if input.Text == "" {
		return core.LLMOutput{}, errors.New("gemini: nothing to send")
	}
	contents := []*genai.Content{
		{Role: genai.RoleUser, Parts: []*genai.Part{{Text: input.Text}}},
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.temperature),
	}
	if systemContext != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: systemContext}}}
	}

	result, err := g.client.Models.GenerateContent(ctx,
		g.ModelID,
		contents,
		config,
	)
	if err != nil {
		return core.LLMOutput{}, err
	}

	var stats core.Stats
	if result.UsageMetadata != nil {
		stats = core.Stats{
			InputTokenCount:  result.UsageMetadata.PromptTokenCount,
			OutputTokenCount: result.UsageMetadata.CandidatesTokenCount,
			TotalTokenCount:  result.UsageMetadata.TotalTokenCount,
		}
	}

	return core.LLMOutput{Text: result.Text(), Stats: stats}, nil
}
