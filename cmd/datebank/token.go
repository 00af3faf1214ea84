package main

import (
	"errors"
	"fmt"

	"github.com/kojileo/datebank/pkg/jwtutil"
	"github.com/spf13/cobra"
)

// newTokenCommand mints identity tokens signed with the configured key, for
// local development against a server without a real identity provider.
func newTokenCommand() *cobra.Command {
	var name, picture string

	cmd := &cobra.Command{
		Use:   "token EMAIL",
		Short: "Issue a development identity token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := bootstrap()
			if err != nil {
				return err
			}
			if cfg.IsProduction() {
				return errors.New("refusing to mint tokens in production")
			}

			token, err := jwtutil.NewJWTUtil(&cfg.Identity).GenerateToken(args[0], name, picture)
			if err != nil {
				return fmt.Errorf("failed to generate token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name claim")
	cmd.Flags().StringVar(&picture, "picture", "", "profile image claim")
	return cmd
}
