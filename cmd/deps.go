package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/nguyenvanduocit/transcache/pkg/config"
	"github.com/nguyenvanduocit/transcache/pkg/schema"
	"github.com/nguyenvanduocit/transcache/pkg/service"
	"github.com/nguyenvanduocit/transcache/pkg/store"
	"github.com/nguyenvanduocit/transcache/pkg/translator"
)

// deps holds everything a command needs, built once at startup.
type deps struct {
	cfg      *config.Config
	db       *sql.DB
	registry *schema.Registry
	store    *store.Store
	cache    *service.HotCache
	service  *service.Service
}

func (d *deps) Close() {
	if d.cache != nil {
		d.cache.Close()
	}
	if d.db != nil {
		d.db.Close()
	}
}

// openStorage loads the configuration, connects to the database and makes
// sure the shared requests table exists.
func openStorage(ctx context.Context) (*deps, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	db, dialect, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx, db, dialect); err != nil {
		db.Close()
		return nil, err
	}

	registry := schema.NewRegistry(db, dialect)
	return &deps{
		cfg:      cfg,
		db:       db,
		registry: registry,
		store:    store.New(db, registry),
	}, nil
}

// openService extends openStorage with the provider and translation service.
func openService(ctx context.Context) (*deps, error) {
	d, err := openStorage(ctx)
	if err != nil {
		return nil, err
	}

	if err := d.cfg.Provider.RequireAPIKey(); err != nil {
		d.Close()
		return nil, err
	}

	t, err := translator.New(ctx, d.cfg.Provider, d.cfg.Breaker)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to create translator: %w", err)
	}

	if d.cfg.Cache.Enabled {
		d.cache, err = service.NewHotCache(d.cfg.Cache.MaxCost, d.cfg.Cache.TTL)
		if err != nil {
			d.Close()
			return nil, err
		}
	}

	d.service = service.New(d.store, t, service.Options{
		Cache:           d.cache,
		ProviderTimeout: d.cfg.Provider.Timeout,
		Logger:          slog.Default(),
	})

	slog.Debug("translation service ready",
		"db_driver", d.cfg.Database.Driver,
		"provider", d.cfg.Provider.Name,
		"model", d.cfg.Provider.Model,
		"hot_cache", d.cfg.Cache.Enabled,
	)
	return d, nil
}
