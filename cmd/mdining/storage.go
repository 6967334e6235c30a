package main

import (
	"context"
	"fmt"

	"mdining/internal/config"
	"mdining/internal/database"
	"mdining/internal/database/pg"
	"mdining/internal/repository"
	"mdining/internal/service"
)

// storage is the configured venue store. sqlite is the local database: the
// main store on the sqlite driver, the fallback mirror on postgres, or nil.
type storage struct {
	store  service.Store
	sqlite *database.DB
	ping   func(ctx context.Context) error
	close  func() error
}

func openStorage(ctx context.Context) (*storage, error) {
	if cfg.Database.Driver != config.DriverPostgres {
		db, err := database.NewDB(cfg.Database.Path, &logger)
		if err != nil {
			return nil, err
		}
		return &storage{store: db, sqlite: db, ping: db.PingContext, close: db.Close}, nil
	}

	remote, err := pg.Connect(ctx, cfg.Database.DSN, &logger)
	if err != nil {
		return nil, err
	}
	if cfg.Database.FallbackPath == "" {
		return &storage{store: remote, ping: remote.PingContext, close: remote.Close}, nil
	}

	mirror, err := database.NewDB(cfg.Database.FallbackPath, &logger)
	if err != nil {
		_ = remote.Close()
		return nil, fmt.Errorf("open fallback: %w", err)
	}
	return &storage{
		store:  repository.NewFailoverStore(remote, mirror, &logger),
		sqlite: mirror,
		ping: func(ctx context.Context) error {
			if err := remote.PingContext(ctx); err != nil {
				return mirror.PingContext(ctx)
			}
			return nil
		},
		close: func() error {
			_ = mirror.Close()
			return remote.Close()
		},
	}, nil
}

// syncVenues loads the venue catalog into the local database, if any.
func (s *storage) syncVenues(ctx context.Context) error {
	if s.sqlite == nil {
		return nil
	}
	venues, err := cfg.LoadVenues()
	if err != nil {
		return fmt.Errorf("load venues: %w", err)
	}
	return s.sqlite.SyncVenuesFromConfig(ctx, venues)
}
