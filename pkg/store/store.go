// Package store persists translations: one shared table of requests keyed by
// (original_text, source_lang, target_lang) and one table of translated texts
// per target language.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nguyenvanduocit/transcache/pkg/schema"
)

var ErrNotFound = errors.New("translation not found")

// TranslationRequest identifies a unique triple.
type TranslationRequest struct {
	ID           int64
	OriginalText string
	SourceLang   string
	TargetLang   string
}

// LanguageTranslation is a stored translation inside one language table.
type LanguageTranslation struct {
	ID             int64
	RequestID      int64
	TranslatedText string
}

type Store struct {
	db       *sql.DB
	registry *schema.Registry
}

func New(db *sql.DB, registry *schema.Registry) *Store {
	return &Store{db: db, registry: registry}
}

func (s *Store) Registry() *schema.Registry {
	return s.registry
}

func (s *Store) rebind(query string) string {
	return schema.Rebind(s.registry.Dialect(), query)
}

// Find returns the stored translation for the exact triple, or ErrNotFound.
// Matching is case-sensitive with no whitespace normalization.
func (s *Store) Find(ctx context.Context, text, source, target string) (*LanguageTranslation, error) {
	req, err := s.findRequest(ctx, s.db, text, source, target)
	if err != nil {
		return nil, err
	}

	table, err := s.registry.Ensure(ctx, target)
	if err != nil {
		return nil, err
	}

	return s.findTranslation(ctx, s.db, table, req.ID)
}

// Upsert stores translated as the translation of the triple, replacing any
// previous translation, and returns the persisted row.
func (s *Store) Upsert(ctx context.Context, text, translated, source, target string) (*LanguageTranslation, error) {
	table, err := s.registry.Ensure(ctx, target)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.rebind(`
INSERT INTO translation_requests (original_text, source_lang, target_lang)
VALUES (?, ?, ?)
ON CONFLICT (original_text, source_lang, target_lang) DO NOTHING`), text, source, target)
	if err != nil {
		return nil, fmt.Errorf("insert request: %w", err)
	}

	req, err := s.findRequest(ctx, tx, text, source, target)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, s.rebind(fmt.Sprintf(`
INSERT INTO %s (request_id, translated_text)
VALUES (?, ?)
ON CONFLICT (request_id) DO UPDATE SET translated_text = excluded.translated_text`, table.Name)), req.ID, translated)
	if err != nil {
		return nil, fmt.Errorf("upsert into %s: %w", table.Name, err)
	}

	translation, err := s.findTranslation(ctx, tx, table, req.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit upsert: %w", err)
	}

	return translation, nil
}

// CountRequests returns the number of distinct triples stored.
func (s *Store) CountRequests(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM translation_requests`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count requests: %w", err)
	}
	return n, nil
}

// CountTranslations returns the number of rows in table. The table must
// already exist; counting never creates one.
func (s *Store) CountTranslations(ctx context.Context, table schema.Table) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT count(*) FROM %s`, table.Name)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table.Name, err)
	}
	return n, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (s *Store) findRequest(ctx context.Context, q queryer, text, source, target string) (*TranslationRequest, error) {
	req := TranslationRequest{OriginalText: text, SourceLang: source, TargetLang: target}

	err := q.QueryRowContext(ctx, s.rebind(`
SELECT id FROM translation_requests
WHERE original_text = ? AND source_lang = ? AND target_lang = ?`), text, source, target).Scan(&req.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find request: %w", err)
	}

	return &req, nil
}

func (s *Store) findTranslation(ctx context.Context, q queryer, table schema.Table, requestID int64) (*LanguageTranslation, error) {
	var t LanguageTranslation

	err := q.QueryRowContext(ctx, s.rebind(fmt.Sprintf(`
SELECT id, request_id, translated_text FROM %s WHERE request_id = ?`, table.Name)), requestID).
		Scan(&t.ID, &t.RequestID, &t.TranslatedText)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find translation in %s: %w", table.Name, err)
	}

	return &t, nil
}
