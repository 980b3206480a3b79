package cmd

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"
)

func newKeysCmd() *cobra.Command {
	var withJWT bool

	c := &cobra.Command{
		Use:   "keys",
		Short: "Generate COOKIE_HASH_KEY, COOKIE_BLOCK_KEY and optionally JWT_SECRET values (base64)",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			names := []string{"COOKIE_HASH_KEY", "COOKIE_BLOCK_KEY"}
			if withJWT {
				names = append(names, "JWT_SECRET")
			}
			for _, name := range names {
				b := make([]byte, 32)
				if _, err := rand.Read(b); err != nil {
					return err
				}
				fmt.Fprintf(out, "export %s=%s\n", name, base64.StdEncoding.EncodeToString(b))
			}
			return nil
		},
	}
	c.Flags().BoolVar(&withJWT, "jwt", false, "also print a JWT_SECRET")
	return c
}
