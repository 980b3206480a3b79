package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/bookingsync/internal/auth"
	"github.com/example/bookingsync/internal/config"
	"github.com/example/bookingsync/internal/store"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage admin users",
	}
	cmd.AddCommand(newUserAddCmd())
	return cmd
}

func newUserAddCmd() *cobra.Command {
	var username, password string

	c := &cobra.Command{
		Use:   "add",
		Short: "Add an admin user (username/password)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}

			ctx := context.Background()
			st, closeStore, err := store.Open(ctx, cfg.DatabaseURL, store.Options{Migrate: true})
			if err != nil {
				return err
			}
			defer closeStore()

			id, err := auth.CreateUser(ctx, st, username, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %q (id %d)\n", username, id)
			return nil
		},
	}

	c.Flags().StringVar(&username, "username", "", "username")
	c.Flags().StringVar(&password, "password", "", "password")
	_ = c.MarkFlagRequired("username")
	_ = c.MarkFlagRequired("password")
	return c
}
