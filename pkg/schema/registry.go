// Package schema maps target-language codes to their translation tables and
// creates those tables on first use.
package schema

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// MaxLanguageLength matches the width of the language columns in translation_requests.
const MaxLanguageLength = 10

// maxIdentifierLength is the Postgres limit on identifier length.
const maxIdentifierLength = 63

var ErrInvalidLanguage = errors.New("invalid language code")

var (
	separatorRegex  = regexp.MustCompile(`[\s-]+`)
	identifierRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
)

// Table is a handle on one language's translation table.
type Table struct {
	Lang string `json:"code"`
	Name string `json:"table"`
}

// Normalize lowercases a language code and folds separators into underscores.
func Normalize(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	return separatorRegex.ReplaceAllString(lang, "_")
}

// TableName derives the table identifier for lang, e.g. "fr" -> "fr_translations".
func TableName(lang string) (string, error) {
	norm := Normalize(lang)
	if norm == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidLanguage)
	}
	if len(norm) > MaxLanguageLength {
		return "", fmt.Errorf("%w: %q is longer than %d characters", ErrInvalidLanguage, lang, MaxLanguageLength)
	}
	if !identifierRegex.MatchString(norm) {
		return "", fmt.Errorf("%w: %q", ErrInvalidLanguage, lang)
	}

	name := norm + TableSuffix
	if len(name) > maxIdentifierLength {
		return "", fmt.Errorf("%w: %q", ErrInvalidLanguage, lang)
	}
	return name, nil
}

// Registry knows which language tables exist and creates missing ones.
// Known tables are remembered for the life of the process; this system
// never drops them.
type Registry struct {
	db      *sql.DB
	dialect Dialect

	known  sync.Map
	create singleflight.Group
}

func NewRegistry(db *sql.DB, dialect Dialect) *Registry {
	return &Registry{db: db, dialect: dialect}
}

func (r *Registry) Dialect() Dialect {
	return r.dialect
}

// Ensure returns the table for lang, creating it if it does not exist yet.
// Concurrent callers for the same unseen language share one creation.
func (r *Registry) Ensure(ctx context.Context, lang string) (Table, error) {
	name, err := TableName(lang)
	if err != nil {
		return Table{}, err
	}

	table := Table{Lang: Normalize(lang), Name: name}
	if _, ok := r.known.Load(name); ok {
		return table, nil
	}

	_, err, _ = r.create.Do(name, func() (interface{}, error) {
		if _, ok := r.known.Load(name); ok {
			return nil, nil
		}
		if err := r.createIfMissing(ctx, name); err != nil {
			return nil, err
		}
		r.known.Store(name, struct{}{})
		return nil, nil
	})
	if err != nil {
		return Table{}, err
	}

	return table, nil
}

func (r *Registry) createIfMissing(ctx context.Context, name string) error {
	exists, err := r.exists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create %s: %w", name, err)
	}
	defer tx.Rollback()

	for _, stmt := range r.dialect.TranslationDDL(name) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create table %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create %s: %w", name, err)
	}
	return nil
}

func (r *Registry) exists(ctx context.Context, name string) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, r.dialect.TableExistsQuery(), name).Scan(&exists); err != nil {
		return false, fmt.Errorf("check table %s: %w", name, err)
	}
	return exists, nil
}

// List returns every language table present in the database.
func (r *Registry) List(ctx context.Context) ([]Table, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.ListTablesQuery())
	if err != nil {
		return nil, fmt.Errorf("list language tables: %w", err)
	}
	defer rows.Close()

	tables := []Table{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		tables = append(tables, Table{
			Lang: strings.TrimSuffix(name, TableSuffix),
			Name: name,
		})
		r.known.Store(name, struct{}{})
	}

	return tables, rows.Err()
}
