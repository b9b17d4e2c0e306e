// Package main implements the Cinestack CLI for seeding and inspecting the catalog.
package main

import (
	"context"
	"os"

	"github.com/dsjohal14/cinestack/internal/libs/config"
	"github.com/dsjohal14/cinestack/internal/libs/obs"
	"github.com/dsjohal14/cinestack/internal/scope/db"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "cinestack",
		Short:         "Cinestack CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newSeedCmd(), newCreateAdminCmd(), newStatusCmd())

	if err := root.Execute(); err != nil {
		obs.Failure("cli", "command failed", err)
		os.Exit(1)
	}
}

// openRepo loads configuration from the environment and connects the
// configured backend
func openRepo(ctx context.Context, component string) (*config.Config, db.Repository, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, zerolog.Nop(), err
	}

	obs.InitLogger(cfg.LogLevel, true)
	logger := obs.Logger(component)

	repo, err := db.Open(ctx, cfg, logger)
	if err != nil {
		return nil, nil, logger, err
	}
	return cfg, repo, logger, nil
}
