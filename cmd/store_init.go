package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/vanderwall-lab/kinoplex/internal/store"
	"github.com/vanderwall-lab/kinoplex/pkg/uniprot"
)

// initStore opens the configured storage backend. The corpus is prebuilt,
// so failure here is fatal for the command.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "kinoplex.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initUniProt builds the annotation client from config.
func initUniProt() uniprot.Client {
	return uniprot.NewClient(
		uniprot.WithBaseURL(cfg.UniProt.BaseURL),
		uniprot.WithRateLimit(cfg.UniProt.RatePerSecond, cfg.UniProt.Burst),
	)
}
