package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/place-dedup/internal/review"
	"github.com/sells-group/place-dedup/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &cfg.Store.Pool)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initService opens and migrates the store and wraps it in a review
// service. The returned close function releases the store.
func initService(ctx context.Context) (*review.Service, func(), error) {
	if err := cfg.Validate("engine"); err != nil {
		return nil, nil, err
	}
	st, err := initStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, nil, err
	}
	return review.NewService(st, cfg), func() { _ = st.Close() }, nil
}
