package main

import (
	"fmt"
	"time"

	"github.com/dsjohal14/cinestack/internal/auth"
	"github.com/spf13/cobra"
)

const (
	defaultAdminEmail    = "admin@movieapp.com"
	defaultAdminPassword = "adminpassword123"
)

func newCreateAdminCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create the admin account if it does not exist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, repo, logger, err := openRepo(cmd.Context(), "admin")
			if err != nil {
				return err
			}
			defer func() { _ = repo.Close() }()

			// Tokens are never issued here, so the TTL is irrelevant
			svc := auth.NewService(repo, cfg.JWTSecret, time.Hour, logger)
			user, created, err := svc.EnsureAdmin(cmd.Context(), email, password)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !created {
				fmt.Fprintf(out, "admin %s already exists (role %s)\n", user.Email, user.Role)
				return nil
			}
			fmt.Fprintf(out, "created admin %s\n", user.Email)
			if password == defaultAdminPassword {
				fmt.Fprintln(out, "change the default password before going to production")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", defaultAdminEmail, "admin email")
	cmd.Flags().StringVar(&password, "password", defaultAdminPassword, "admin password")
	return cmd
}
