package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/nguyenvanduocit/transcache/pkg/config"
	"github.com/nguyenvanduocit/transcache/pkg/schema"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	db, dialect, err := Open(ctx, config.Database{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "store.db"),
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := Migrate(ctx, db, dialect); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	return New(db, schema.NewRegistry(db, dialect))
}

func TestFindMissingRequest(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Find(context.Background(), "Hello", "en", "fr")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Find() error = %v, want ErrNotFound", err)
	}

	// An absent request must not provision the language table.
	tables, err := s.Registry().List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(tables) != 0 {
		t.Errorf("List() = %+v, want no tables", tables)
	}
}

func TestUpsertThenFind(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	saved, err := s.Upsert(ctx, "Hello", "Bonjour", "en", "fr")
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if saved.TranslatedText != "Bonjour" || saved.ID == 0 || saved.RequestID == 0 {
		t.Errorf("Upsert() = %+v", saved)
	}

	found, err := s.Find(ctx, "Hello", "en", "fr")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if *found != *saved {
		t.Errorf("Find() = %+v, want %+v", found, saved)
	}
}

func TestUpsertIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.Upsert(ctx, "Hello", "Bonjour", "en", "fr")
	if err != nil {
		t.Fatalf("first Upsert() error = %v", err)
	}
	second, err := s.Upsert(ctx, "Hello", "Bonjour", "en", "fr")
	if err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}
	if *first != *second {
		t.Errorf("second Upsert() = %+v, want %+v", second, first)
	}

	assertCount(t, s, "fr", 1, 1)
}

func TestUpsertOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.Upsert(ctx, "Hello", "Bonjour", "en", "fr")
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	second, err := s.Upsert(ctx, "Hello", "Salut", "en", "fr")
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if second.ID != first.ID || second.TranslatedText != "Salut" {
		t.Errorf("overwrite Upsert() = %+v, want id %d with Salut", second, first.ID)
	}

	found, err := s.Find(ctx, "Hello", "en", "fr")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if found.TranslatedText != "Salut" {
		t.Errorf("Find() text = %q, want Salut", found.TranslatedText)
	}
	assertCount(t, s, "fr", 1, 1)
}

func TestPerLanguageIsolation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Upsert(ctx, "Hello", "Bonjour", "en", "fr"); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if _, err := s.Find(ctx, "Hello", "en", "de"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Find(de) error = %v, want ErrNotFound", err)
	}

	if _, err := s.Upsert(ctx, "Hello", "Hallo", "en", "de"); err != nil {
		t.Fatalf("Upsert(de) error = %v", err)
	}

	fr, err := s.Find(ctx, "Hello", "en", "fr")
	if err != nil {
		t.Fatalf("Find(fr) error = %v", err)
	}
	de, err := s.Find(ctx, "Hello", "en", "de")
	if err != nil {
		t.Fatalf("Find(de) error = %v", err)
	}
	if fr.TranslatedText != "Bonjour" || de.TranslatedText != "Hallo" {
		t.Errorf("fr = %q, de = %q", fr.TranslatedText, de.TranslatedText)
	}
	if fr.RequestID == de.RequestID {
		t.Error("fr and de translations share a request row")
	}
}

func TestFindIsExactMatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Upsert(ctx, "Hello", "Bonjour", "en", "fr"); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	for _, text := range []string{"hello", "Hello ", " Hello"} {
		if _, err := s.Find(ctx, text, "en", "fr"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Find(%q) error = %v, want ErrNotFound", text, err)
		}
	}
	if _, err := s.Find(ctx, "Hello", "EN", "fr"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Find(EN) error = %v, want ErrNotFound", err)
	}
}

func TestUpsertConcurrentSameTriple(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Upsert(ctx, "Good night", "Bonne nuit", "en", "fr"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Upsert() error = %v", err)
	}
	assertCount(t, s, "fr", 1, 1)
}

func TestCascadeDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Upsert(ctx, "Hello", "Bonjour", "en", "fr"); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM translation_requests`); err != nil {
		t.Fatalf("delete requests: %v", err)
	}

	assertCount(t, s, "fr", 0, 0)
}

func assertCount(t *testing.T, s *Store, lang string, wantRequests, wantTranslations int64) {
	t.Helper()
	ctx := context.Background()

	requests, err := s.CountRequests(ctx)
	if err != nil {
		t.Fatalf("CountRequests() error = %v", err)
	}
	if requests != wantRequests {
		t.Errorf("CountRequests() = %d, want %d", requests, wantRequests)
	}

	name, err := schema.TableName(lang)
	if err != nil {
		t.Fatalf("TableName(%q) error = %v", lang, err)
	}
	translations, err := s.CountTranslations(ctx, schema.Table{Lang: lang, Name: name})
	if err != nil {
		t.Fatalf("CountTranslations(%q) error = %v", lang, err)
	}
	if translations != wantTranslations {
		t.Errorf("CountTranslations(%q) = %d, want %d", lang, translations, wantTranslations)
	}
}

func TestCounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, row := range [][4]string{
		{"Hello", "Bonjour", "en", "fr"},
		{"Bye", "Au revoir", "en", "fr"},
		{"Hello", "Hallo", "en", "de"},
	} {
		if _, err := s.Upsert(ctx, row[0], row[1], row[2], row[3]); err != nil {
			t.Fatalf("Upsert(%v) error = %v", row, err)
		}
	}

	requests, err := s.CountRequests(ctx)
	if err != nil {
		t.Fatalf("CountRequests() error = %v", err)
	}
	if requests != 3 {
		t.Errorf("CountRequests() = %d, want 3", requests)
	}

	tables, err := s.Registry().List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	want := map[string]int64{"de": 1, "fr": 2}
	if len(tables) != len(want) {
		t.Fatalf("List() = %v, want tables for %v", tables, want)
	}
	for _, table := range tables {
		t.Run(table.Lang, func(t *testing.T) {
			got, err := s.CountTranslations(ctx, table)
			if err != nil {
				t.Fatalf("CountTranslations(%v) error = %v", table, err)
			}
			if got != want[table.Lang] {
				t.Errorf("CountTranslations(%v) = %d, want %d", table, got, want[table.Lang])
			}
		})
	}
}

func TestCountTranslationsDoesNotCreateTable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	missing := schema.Table{Lang: "es", Name: "es_translations"}
	if _, err := s.CountTranslations(ctx, missing); err == nil {
		t.Error("CountTranslations() on a missing table should fail")
	}

	tables, err := s.Registry().List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(tables) != 0 {
		t.Errorf("List() = %v, counting created a table", tables)
	}
}

func TestCountTranslationsForExternalTable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// A table whose code is too long to come through the service.
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE legacylanguage_translations (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    request_id      INTEGER NOT NULL,
    translated_text TEXT NOT NULL
)`); err != nil {
		t.Fatalf("create table: %v", err)
	}

	tables, err := s.Registry().List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(tables) != 1 || tables[0].Name != "legacylanguage_translations" {
		t.Fatalf("List() = %v", tables)
	}

	n, err := s.CountTranslations(ctx, tables[0])
	if err != nil {
		t.Fatalf("CountTranslations() error = %v", err)
	}
	if n != 0 {
		t.Errorf("CountTranslations() = %d, want 0", n)
	}
}
