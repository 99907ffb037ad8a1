package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/nguyenvanduocit/transcache/pkg/config"
	"github.com/nguyenvanduocit/transcache/pkg/schema"
)

// sqlDriver maps configured driver names onto registered database/sql drivers.
var sqlDriver = map[string]string{
	config.DriverPostgres: "pgx",
	config.DriverSQLite:   "sqlite3",
}

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, cfg config.Database) (*sql.DB, schema.Dialect, error) {
	driver, ok := sqlDriver[cfg.Driver]
	if !ok {
		return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	dialect, err := schema.NewDialect(cfg.Driver)
	if err != nil {
		return nil, nil, err
	}

	db, err := sql.Open(driver, cfg.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}

	return db, dialect, nil
}

// Migrate creates the shared translation_requests table if it is missing.
func Migrate(ctx context.Context, db *sql.DB, dialect schema.Dialect) error {
	for _, stmt := range dialect.RequestsDDL() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", schema.RequestsTable, err)
		}
	}
	return nil
}
