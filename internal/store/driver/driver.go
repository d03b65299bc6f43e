// Package driver opens the storage backend named in the configuration.
// It lives outside internal/store so the backend packages can depend on
// the interface package without a cycle.
package driver

import (
	"context"
	"fmt"

	"github.com/bibliograph/bibliograph/internal/store"
	"github.com/bibliograph/bibliograph/internal/store/memory"
	pgstore "github.com/bibliograph/bibliograph/internal/store/postgres"
	litestore "github.com/bibliograph/bibliograph/internal/store/sqlite"
	"github.com/bibliograph/bibliograph/pkg/config"
	"github.com/bibliograph/bibliograph/pkg/postgres"
	"github.com/bibliograph/bibliograph/pkg/sqlite"
)

// Open connects the backend selected by cfg.Storage.Driver and ensures its
// schema exists. The caller owns the returned store and must Close it.
func Open(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Storage.Driver {
	case "postgres":
		client, err := postgres.New(cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("connecting postgres: %w", err)
		}
		st, err := pgstore.New(ctx, client)
		if err != nil {
			client.Close()
			return nil, err
		}
		return st, nil
	case "sqlite":
		client, err := sqlite.New(cfg.SQLite)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite: %w", err)
		}
		st, err := litestore.New(ctx, client)
		if err != nil {
			client.Close()
			return nil, err
		}
		return st, nil
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
