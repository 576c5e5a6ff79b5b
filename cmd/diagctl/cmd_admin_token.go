package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"tdm-diagnostic/internal/shared/auth"
)

func newAdminTokenCmd() *cobra.Command {
	var (
		secret  string
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "admin-token",
		Short: "Issue a bearer token for the /api/v1/admin routes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if secret == "" {
				secret = os.Getenv("ADMIN_TOKEN_SECRET")
			}
			v, err := auth.NewVerifier(secret)
			if err != nil {
				return fmt.Errorf("%w (use --secret or ADMIN_TOKEN_SECRET)", err)
			}
			token, err := v.Sign(subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&secret, "secret", "", "Signing secret (default: $ADMIN_TOKEN_SECRET)")
	f.StringVar(&subject, "subject", "", "Operator identity recorded in the token")
	f.DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
