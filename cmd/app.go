package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/bookingsync/internal/config"
	"github.com/example/bookingsync/internal/hooks"
	"github.com/example/bookingsync/internal/importer"
	"github.com/example/bookingsync/internal/logging"
	"github.com/example/bookingsync/internal/mapping"
	"github.com/example/bookingsync/internal/notify"
	"github.com/example/bookingsync/internal/platform"
	"github.com/example/bookingsync/internal/reconcile"
	"github.com/example/bookingsync/internal/store"
	"github.com/example/bookingsync/internal/transport"
)

// app holds the wired pipeline shared by the server and the CLI commands.
type app struct {
	cfg       config.Config
	store     store.Store
	registry  *platform.Registry
	processor *reconcile.Processor
	importer  *importer.Importer

	closers []func()
}

func newApp(ctx context.Context, cfg config.Config, migrate bool) (*app, error) {
	st, closeStore, err := store.Open(ctx, cfg.DatabaseURL, store.Options{Migrate: migrate})
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, store: st, closers: []func(){closeStore}}

	var notifier reconcile.Notifier = notify.Log{Logger: logging.Component("notify")}
	if len(cfg.KafkaBrokers) > 0 {
		k, err := notify.NewKafka(cfg.KafkaBrokers, cfg.KafkaNotifyTopic)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("kafka: %w", err)
		}
		notifier = k
		a.closers = append(a.closers, func() { _ = k.Close() })
		slog.Info("publishing reservation events to kafka",
			slog.Any("brokers", cfg.KafkaBrokers), slog.String("topic", cfg.KafkaNotifyTopic))
	}

	h := &hooks.Hooks{}
	mapper := mapping.New(mapping.WithHooks(h))
	engine := reconcile.NewEngine(st, notifier, logging.Component("reconcile"))

	a.registry = platform.NewRegistry(cfg.Platforms)
	a.processor = reconcile.NewProcessor(engine, mapper, h)
	a.importer = importer.New(a.registry, transport.New(cfg.HTTPTimeout, nil, h), a.processor, st, logging.Component("importer"))
	a.importer.DefaultLimit = cfg.ImportLimit
	return a, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
