package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/bookingsync/internal/auth"
	"github.com/example/bookingsync/internal/config"
	"github.com/example/bookingsync/internal/store"
)

func newTokenCmd() *cobra.Command {
	var (
		username string
		ttl      time.Duration
	)

	c := &cobra.Command{
		Use:   "token",
		Short: "Issue an admin bearer token for scripted callers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			tokens := auth.NewTokens(cfg.JWTSecret)
			if !tokens.Enabled() {
				return fmt.Errorf("JWT_SECRET is required to issue tokens")
			}

			ctx := context.Background()
			st, closeStore, err := store.Open(ctx, cfg.DatabaseURL, store.Options{})
			if err != nil {
				return err
			}
			defer closeStore()

			u, err := st.UserByUsername(ctx, username)
			if err != nil {
				return fmt.Errorf("user %q: %w", username, err)
			}
			tok, err := tokens.Issue(u, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	c.Flags().StringVar(&username, "username", "", "admin user the token acts as")
	c.Flags().DurationVar(&ttl, "ttl", 30*24*time.Hour, "token lifetime")
	_ = c.MarkFlagRequired("username")
	return c
}
