package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/bookingsync/internal/auth"
	"github.com/example/bookingsync/internal/config"
	"github.com/example/bookingsync/internal/logging"
	"github.com/example/bookingsync/internal/scheduler"
	"github.com/example/bookingsync/internal/web"
	"github.com/example/bookingsync/internal/webhook"
)

func newServerCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the webhook gateway, admin API and optional import poller",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if err := cfg.RequireCookieKeys(); err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(ctx, cfg, migrateUp)
			if err != nil {
				return err
			}
			defer a.Close()

			gw := webhook.New(cfg.WebhookSecret, cfg.WebhookRequireSecret, a.registry.Keys(), a.processor, logging.Component("webhook"))
			if gw.AuthMode() != webhook.AuthConfigured {
				slog.Warn("WEBHOOK_SECRET is not set", slog.String("webhook_auth", gw.AuthMode()))
			}

			// poller
			if cfg.PollInterval > 0 {
				s := &scheduler.Scheduler{
					Importer: a.importer,
					Interval: cfg.PollInterval,
					Limit:    cfg.ImportLimit,
					Lookback: cfg.PollLookback,
					Log:      logging.Component("scheduler"),
				}
				go func() { _ = s.Run(ctx) }()
			}

			tokens := auth.NewTokens(cfg.JWTSecret)
			ws := &web.Server{
				Auth:         auth.NewStore(a.store, cfg.CookieHashKey, cfg.CookieBlockKey).WithTokens(tokens),
				Tokens:       tokens,
				Reservations: a.store,
				Importer:     a.importer,
				Webhooks:     gw,
				Log:          logging.Component("web"),
			}
			return web.Start(ctx, cfg.ListenAddr, ws.Routes())
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")

	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	return cmd
}
