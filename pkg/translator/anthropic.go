package translator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
)

type AnthropicConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	MaxRetries  int
}

type Anthropic struct {
	client *anthropic.Client
	config AnthropicConfig
}

func NewAnthropic(cfg AnthropicConfig) (*Anthropic, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("missing ANTHROPIC_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = anthropic.ModelClaude3Dot5Sonnet20240620
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1000
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}

	return &Anthropic{
		client: anthropic.NewClient(cfg.APIKey),
		config: cfg,
	}, nil
}

func (a *Anthropic) Translate(ctx context.Context, content, source, target string) (string, error) {
	resp, err := a.createMessageWithRetry(ctx, anthropic.MessagesRequest{
		Model:       a.config.Model,
		System:      systemPrompt,
		Messages:    []anthropic.Message{anthropic.NewUserTextMessage(createTranslationPrompt(content, source, target))},
		Temperature: &a.config.Temperature,
		MaxTokens:   a.config.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("createMessageWithRetry: %w", err)
	}

	if len(resp.Content) == 0 {
		return "", ErrEmptyTranslation
	}

	translation := strings.TrimSpace(resp.GetFirstContentText())
	if translation == "" {
		return "", ErrEmptyTranslation
	}

	return translation, nil
}

func (a *Anthropic) createMessageWithRetry(ctx context.Context, req anthropic.MessagesRequest) (*anthropic.MessagesResponse, error) {
	var resp anthropic.MessagesResponse
	var err error

	for retries := 0; retries < a.config.MaxRetries; retries++ {
		resp, err = a.client.CreateMessages(ctx, req)
		if err == nil {
			return &resp, nil
		}

		var apiErr *anthropic.APIError
		if errors.As(err, &apiErr) && apiErr.IsRateLimitErr() {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(retries+1) * time.Second):
				slog.Warn("retrying after rate limit error", "provider", "anthropic", "attempt", retries+1)
				continue
			}
		}

		return nil, err
	}

	return nil, fmt.Errorf("%w: max retries reached: %v", ErrRateLimitExceeded, err)
}
