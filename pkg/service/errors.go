package service

import (
	"context"
	"errors"

	"github.com/nguyenvanduocit/transcache/pkg/schema"
	"github.com/nguyenvanduocit/transcache/pkg/translator"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindExternalService
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindExternalService:
		return "external_service"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// Error carries the kind of failure and the operation that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf reports the kind of err. Errors not produced by this package are
// classified by the sentinels of the layers below.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	switch {
	case errors.Is(err, schema.ErrInvalidLanguage):
		return KindInvalidInput
	case errors.Is(err, translator.ErrRateLimitExceeded),
		errors.Is(err, translator.ErrEmptyTranslation),
		errors.Is(err, translator.ErrCircuitOpen),
		errors.Is(err, context.DeadlineExceeded):
		return KindExternalService
	default:
		return KindUnknown
	}
}
