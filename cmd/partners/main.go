package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/partnerdesk/internal/app"
	"github.com/odyssey-erp/partnerdesk/internal/console"
	"github.com/odyssey-erp/partnerdesk/internal/partners"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLoggerTo(os.Stderr, cfg)

	prompter := console.NewPrompter(os.Stdin, os.Stdout)
	var active atomic.Pointer[console.Session]
	onCleared := func(kind partners.Kind) {
		if s := active.Load(); s != nil {
			s.NotificationCleared(kind)
		}
	}
	managers, err := newManagers(cfg, logger, prompter, onCleared)
	if err != nil {
		logger.Error("init managers", slog.Any("error", err))
		os.Exit(1)
	}

	loadAll(ctx, managers, logger)

	session, err := console.New(console.Config{
		Prompter: prompter,
		Managers: managers,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("init console", slog.Any("error", err))
		os.Exit(1)
	}
	active.Store(session)
	if err := session.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("console", slog.Any("error", err))
		os.Exit(1)
	}
}

// newManagers builds one manager per kind. onCleared, when set, runs after a
// kind's notification expires or is dismissed.
func newManagers(cfg *app.Config, logger *slog.Logger, confirmer partners.Confirmer, onCleared func(partners.Kind)) ([]*partners.Manager, error) {
	client := &http.Client{Timeout: cfg.PartnersHTTPTimeout}
	managers := make([]*partners.Manager, 0, len(partners.Schemas()))
	for _, schema := range partners.Schemas() {
		kind := schema.Kind
		notifier := partners.NewNotifier(partners.NotifierConfig{
			TTL: cfg.NotificationTTL,
			OnChange: func(current *partners.Notification) {
				if current == nil && onCleared != nil {
					onCleared(kind)
				}
			},
		})
		m, err := partners.NewManager(partners.ManagerConfig{
			Schema:    schema,
			Gateway:   partners.NewHTTPGateway(cfg.PartnersAPIBase, schema, client),
			Confirmer: confirmer,
			Sync:      cfg.SyncMode(),
			Logger:    logger,
			Notifier:  notifier,
		})
		if err != nil {
			return nil, err
		}
		managers = append(managers, m)
	}
	return managers, nil
}

// loadAll fetches every collection concurrently. A failed load leaves an
// error notification on its manager and does not stop the others.
func loadAll(ctx context.Context, managers []*partners.Manager, logger *slog.Logger) {
	g, gctx := errgroup.WithContext(ctx)
	for _, m := range managers {
		g.Go(func() error {
			if err := m.Load(gctx); err != nil {
				logger.Warn("initial load", slog.String("kind", string(m.Schema().Kind)), slog.Any("error", err))
			}
			return nil
		})
	}
	_ = g.Wait()
}
