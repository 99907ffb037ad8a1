package translator

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Throttle spaces out calls to the upstream provider.
type Throttle struct {
	next    Translator
	limiter *rate.Limiter
}

// NewThrottle allows perMinute calls per minute with a burst of one.
func NewThrottle(next Translator, perMinute int) *Throttle {
	return &Throttle{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

func (t *Throttle) Translate(ctx context.Context, content, source, target string) (string, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}
	return t.next.Translate(ctx, content, source, target)
}
