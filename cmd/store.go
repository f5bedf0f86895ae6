package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/vegindex-cli/internal/resilience"
	"github.com/sells-group/vegindex-cli/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "vegindex.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		backoff := resilience.Backoff{Attempts: cfg.Store.ConnectAttempts, Jitter: 0.2}
		pg, err := resilience.Do(ctx, backoff, "postgres connect", func(ctx context.Context) (*store.PostgresStore, error) {
			return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
				MaxConns: cfg.Store.MaxConns,
				MinConns: cfg.Store.MinConns,
			})
		})
		if err != nil {
			return nil, err
		}
		return pg, nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// openStore opens the configured store and applies migrations.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}
