package translator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float32
}

type Gemini struct {
	client *genai.Client
	config GeminiConfig
}

func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("missing GOOGLE_AI_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Gemini{client: client, config: cfg}, nil
}

func (g *Gemini) Translate(ctx context.Context, content, source, target string) (string, error) {
	genConfig := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Role:  "system",
			Parts: []*genai.Part{{Text: systemPrompt}},
		},
		Temperature: &g.config.Temperature,
	}

	resp, err := g.client.Models.GenerateContent(ctx,
		g.config.Model,
		[]*genai.Content{
			{
				Role:  "user",
				Parts: []*genai.Part{{Text: createTranslationPrompt(content, source, target)}},
			},
		},
		genConfig,
	)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) && apiErr.Code == 429 {
			return "", fmt.Errorf("%w: %v", ErrRateLimitExceeded, err)
		}
		return "", fmt.Errorf("failed to generate translation: %w", err)
	}

	translation := strings.TrimSpace(resp.Text())
	if translation == "" {
		return "", ErrEmptyTranslation
	}

	return translation, nil
}
