package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/firmable/unify/internal/config"
	"github.com/firmable/unify/internal/review"
	"github.com/firmable/unify/internal/store"
	"github.com/firmable/unify/pkg/anthropic"
)

func initStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "unify.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &cfg.Store.Pool)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initReviewer builds the oracle reviewer, or nil when no API key is
// configured. A nil reviewer leaves ambiguous candidates unresolved.
func initReviewer(cfg *config.Config) *review.Reviewer {
	if cfg.Anthropic.Key == "" {
		zap.L().Warn("no anthropic key configured, ambiguous candidates will not be adjudicated")
		return nil
	}
	return review.New(anthropic.NewClient(cfg.Anthropic.Key), cfg.Review)
}
