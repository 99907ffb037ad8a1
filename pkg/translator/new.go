package translator

import (
	"context"
	"fmt"

	"github.com/nguyenvanduocit/transcache/pkg/config"
)

// New builds the configured provider wrapped in its circuit breaker and throttle.
func New(ctx context.Context, p config.Provider, b config.Breaker) (Translator, error) {
	var (
		t   Translator
		err error
	)

	switch p.Name {
	case config.ProviderOpenAI:
		t, err = NewOpenAI(OpenAIConfig{
			APIKey:      p.APIKey,
			BaseURL:     p.BaseURL,
			Model:       p.Model,
			Temperature: p.Temperature,
			MaxTokens:   p.MaxTokens,
		})
	case config.ProviderAnthropic:
		t, err = NewAnthropic(AnthropicConfig{
			APIKey:      p.APIKey,
			Model:       p.Model,
			Temperature: p.Temperature,
			MaxTokens:   p.MaxTokens,
		})
	case config.ProviderGemini:
		t, err = NewGemini(ctx, GeminiConfig{
			APIKey:      p.APIKey,
			Model:       p.Model,
			Temperature: p.Temperature,
		})
	default:
		return nil, fmt.Errorf("unsupported provider %q", p.Name)
	}
	if err != nil {
		return nil, err
	}

	return decorate(t, p, b), nil
}

// decorate wraps t in the circuit breaker and, when a rate is set, the
// throttle. The throttle sits outside the breaker so calls it refuses never
// count as provider failures.
func decorate(t Translator, p config.Provider, b config.Breaker) Translator {
	t = NewBreaker(p.Name, t, b.Failures, b.OpenTimeout)
	if p.RatePerMinute > 0 {
		t = NewThrottle(t, p.RatePerMinute)
	}
	return t
}
