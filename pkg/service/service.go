// Package service answers translation requests from storage when it can and
// from the external provider when it must, storing every fresh result.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"

	"github.com/nguyenvanduocit/transcache/pkg/schema"
	"github.com/nguyenvanduocit/transcache/pkg/store"
	"github.com/nguyenvanduocit/transcache/pkg/translator"
)

var (
	ErrEmptyText      = errors.New("Text cannot be empty")
	ErrEmptyLanguages = errors.New("Source and target languages must be specified")
)

// Store is the persistence the service reads from and writes to.
type Store interface {
	Find(ctx context.Context, text, source, target string) (*store.LanguageTranslation, error)
	Upsert(ctx context.Context, text, translated, source, target string) (*store.LanguageTranslation, error)
}

type Options struct {
	// Cache is consulted before the store. Nil disables it.
	Cache *HotCache
	// ProviderTimeout bounds a single call to the translator. Zero means no limit.
	ProviderTimeout time.Duration
	Logger          *slog.Logger
}

type Service struct {
	store      Store
	translator translator.Translator
	cache      *HotCache
	timeout    time.Duration
	logger     *slog.Logger

	inflight singleflight.Group
}

func New(s Store, t translator.Translator, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		store:      s,
		translator: t,
		cache:      opts.Cache,
		timeout:    opts.ProviderTimeout,
		logger:     logger,
	}
}

// Translate returns the translation of text from source to target. Stored
// translations are returned without calling the provider.
func (s *Service) Translate(ctx context.Context, text, source, target string) (string, error) {
	translation, err := s.translate(ctx, text, source, target)
	if err != nil {
		level := slog.LevelError
		if KindOf(err) == KindInvalidInput {
			level = slog.LevelWarn
		}
		s.logger.Log(ctx, level, "translation failed",
			"kind", KindOf(err).String(),
			"op", opOf(err),
			"source_lang", source,
			"target_lang", target,
			"error", err,
		)
		return "", err
	}
	return translation, nil
}

func (s *Service) translate(ctx context.Context, text, source, target string) (string, error) {
	if err := validate(text, source, target); err != nil {
		return "", err
	}

	key := generateCacheKey(text, source, target)
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			return cached, nil
		}
	}

	existing, err := s.store.Find(ctx, text, source, target)
	switch {
	case err == nil:
		s.remember(key, existing.TranslatedText)
		return existing.TranslatedText, nil
	case !errors.Is(err, store.ErrNotFound):
		return "", classifyStoreErr("find", err)
	}

	// Identical misses in flight share one provider call and one write.
	result, err, _ := s.inflight.Do(key, func() (interface{}, error) {
		return s.fetchAndStore(context.WithoutCancel(ctx), text, source, target)
	})
	if err != nil {
		return "", err
	}

	translation := result.(string)
	s.remember(key, translation)
	return translation, nil
}

func (s *Service) fetchAndStore(ctx context.Context, text, source, target string) (string, error) {
	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	started := time.Now()
	translation, err := s.translator.Translate(callCtx, text, source, target)
	if err != nil {
		return "", newError(KindExternalService, "translate", err)
	}
	s.logger.Debug("provider translated text",
		"source_lang", source,
		"target_lang", target,
		"duration", time.Since(started),
	)

	if _, err := s.store.Upsert(ctx, text, translation, source, target); err != nil {
		return "", classifyStoreErr("upsert", err)
	}

	return translation, nil
}

func (s *Service) remember(key, translation string) {
	if s.cache != nil {
		s.cache.Set(key, translation)
	}
}

func validate(text, source, target string) error {
	if text == "" {
		return newError(KindInvalidInput, "validate", ErrEmptyText)
	}
	if source == "" || target == "" {
		return newError(KindInvalidInput, "validate", ErrEmptyLanguages)
	}
	for _, lang := range []string{source, target} {
		if utf8.RuneCountInString(lang) > schema.MaxLanguageLength {
			return newError(KindInvalidInput, "validate",
				fmt.Errorf("%w: %q is longer than %d characters", schema.ErrInvalidLanguage, lang, schema.MaxLanguageLength))
		}
	}
	if _, err := schema.TableName(target); err != nil {
		return newError(KindInvalidInput, "validate", err)
	}
	return nil
}

func classifyStoreErr(op string, err error) error {
	if errors.Is(err, schema.ErrInvalidLanguage) {
		return newError(KindInvalidInput, op, err)
	}
	return newError(KindStorage, op, err)
}

func opOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	return ""
}
