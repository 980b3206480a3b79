package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/bookingsync/internal/config"
	"github.com/example/bookingsync/internal/db"
	"github.com/example/bookingsync/internal/migrate"
	"github.com/example/bookingsync/internal/store"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			ctx := context.Background()
			out := cmd.OutOrStdout()

			if store.IsSQLite(cfg.DatabaseURL) {
				st, closeStore, err := store.Open(ctx, cfg.DatabaseURL, store.Options{})
				if err != nil {
					return err
				}
				defer closeStore()
				if err := st.Ping(ctx); err != nil {
					return err
				}
				fmt.Fprintln(out, "sqlite schema is up to date")
				return nil
			}

			d, err := db.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer d.Close()

			applied, err := migrate.Up(ctx, d)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(out, "no pending migrations")
			}
			for _, name := range applied {
				fmt.Fprintf(out, "applied %s\n", name)
			}
			return nil
		},
	}
}
