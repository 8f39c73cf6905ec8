package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/odyssey-erp/partnerdesk/internal/app"
	"github.com/odyssey-erp/partnerdesk/internal/collection"
	"github.com/odyssey-erp/partnerdesk/internal/partners"
	"github.com/odyssey-erp/partnerdesk/internal/platform/db"
)

// repositories holds one Repository per kind and releases the shared
// connection on close.
type repositories struct {
	byKind map[partners.Kind]collection.Repository
	close  func()
}

func openRepositories(ctx context.Context, cfg *app.Config, logger *slog.Logger) (*repositories, error) {
	repos := &repositories{byKind: make(map[partners.Kind]collection.Repository), close: func() {}}

	switch cfg.StoreDriver {
	case app.StoreMemory:
		for _, schema := range partners.Schemas() {
			repos.byKind[schema.Kind] = collection.NewMemoryRepository()
		}
	case app.StorePostgres:
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			return nil, err
		}
		if err := collection.EnsurePostgresSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ensure postgres schema: %w", err)
		}
		for _, schema := range partners.Schemas() {
			repos.byKind[schema.Kind] = collection.NewPostgresRepository(pool, schema)
		}
		repos.close = pool.Close
	case app.StoreSQLite:
		conn, err := collection.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		for _, schema := range partners.Schemas() {
			repos.byKind[schema.Kind] = collection.NewSQLiteRepository(conn, schema)
		}
		repos.close = func() {
			if err := conn.Close(); err != nil {
				logger.Warn("sqlite close", slog.Any("error", err))
			}
		}
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	logger.Info("store ready", slog.String("driver", cfg.StoreDriver))
	return repos, nil
}
