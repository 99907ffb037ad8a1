package translator

import (
	"context"
	"errors"
)

var (
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrEmptyTranslation  = errors.New("no translation received")
	ErrCircuitOpen       = errors.New("translation provider unavailable")
)

type Translator interface {
	Translate(ctx context.Context, content string, source string, target string) (string, error)
}
