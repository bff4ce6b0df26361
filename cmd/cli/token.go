package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Siddarth2230/qrlinks/internal/auth"
)

// newTokenCmd mints a bearer token signed with auth.jwt_secret, for
// scripting against the API.
func newTokenCmd(st *cliState) *cobra.Command {
	var id, role string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the API.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := auth.Role(role)
			if r != auth.RoleUser && r != auth.RoleAdmin {
				return fmt.Errorf("unknown role %q", role)
			}
			tokens := auth.NewTokenManager(st.cfg.Auth.JWTSecret, st.cfg.Auth.TokenTTL)
			tok, err := tokens.Issue(auth.Principal{ID: id, Role: r})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "principal id")
	cmd.Flags().StringVar(&role, "role", string(auth.RoleAdmin), "user or admin")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
