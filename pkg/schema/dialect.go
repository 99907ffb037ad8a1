package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// RequestsTable is the shared table holding one row per distinct triple.
const RequestsTable = "translation_requests"

// TableSuffix is appended to a normalized language code to form its table name.
const TableSuffix = "_translations"

// Dialect renders the SQL that differs between storage backends.
type Dialect interface {
	Name() string
	// Placeholder returns the bind parameter for the n-th argument, starting at 1.
	Placeholder(n int) string
	TableExistsQuery() string
	ListTablesQuery() string
	RequestsDDL() []string
	TranslationDDL(table string) []string
}

// NewDialect returns the dialect for a database/sql driver name.
func NewDialect(driver string) (Dialect, error) {
	switch driver {
	case "postgres", "pgx":
		return Postgres{}, nil
	case "sqlite3":
		return SQLite{}, nil
	default:
		return nil, fmt.Errorf("no dialect for driver %q", driver)
	}
}

type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

func (Postgres) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (Postgres) TableExistsQuery() string {
	return `SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1)`
}

func (Postgres) ListTablesQuery() string {
	return `SELECT table_name FROM information_schema.tables WHERE table_schema = current_schema() AND table_name LIKE '%\_translations' ORDER BY table_name`
}

func (Postgres) RequestsDDL() []string {
	return []string{`
CREATE TABLE IF NOT EXISTS translation_requests (
    id            SERIAL PRIMARY KEY,
    original_text TEXT NOT NULL,
    source_lang   VARCHAR(10) NOT NULL,
    target_lang   VARCHAR(10) NOT NULL,
    CONSTRAINT uix_translation_request UNIQUE (original_text, source_lang, target_lang)
)`}
}

func (Postgres) TranslationDDL(table string) []string {
	return []string{
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
    id              SERIAL PRIMARY KEY,
    request_id      INTEGER NOT NULL REFERENCES translation_requests(id) ON DELETE CASCADE,
    translated_text TEXT NOT NULL,
    CONSTRAINT uix_%[1]s_request UNIQUE (request_id)
)`, table),
	}
}

type SQLite struct{}

func (SQLite) Name() string { return "sqlite3" }

func (SQLite) Placeholder(int) string { return "?" }

func (SQLite) TableExistsQuery() string {
	return `SELECT EXISTS (SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = ?)`
}

func (SQLite) ListTablesQuery() string {
	return `SELECT name FROM sqlite_master WHERE type = 'table' AND name LIKE '%\_translations' ESCAPE '\' ORDER BY name`
}

func (SQLite) RequestsDDL() []string {
	return []string{`
CREATE TABLE IF NOT EXISTS translation_requests (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    original_text TEXT NOT NULL,
    source_lang   VARCHAR(10) NOT NULL,
    target_lang   VARCHAR(10) NOT NULL,
    CONSTRAINT uix_translation_request UNIQUE (original_text, source_lang, target_lang)
)`}
}

func (SQLite) TranslationDDL(table string) []string {
	return []string{
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    request_id      INTEGER NOT NULL REFERENCES translation_requests(id) ON DELETE CASCADE,
    translated_text TEXT NOT NULL,
    CONSTRAINT uix_%[1]s_request UNIQUE (request_id)
)`, table),
	}
}

// Rebind rewrites "?" placeholders in query for the dialect.
func Rebind(d Dialect, query string) string {
	if d.Placeholder(1) == "?" {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(d.Placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
