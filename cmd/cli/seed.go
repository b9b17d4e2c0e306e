package main

import (
	"context"
	"fmt"

	"github.com/dsjohal14/cinestack/internal/libs/accel"
	"github.com/dsjohal14/cinestack/internal/scope/db"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type seedOptions struct {
	force     bool
	reset     bool
	batchSize int
}

func newSeedCmd() *cobra.Command {
	var opts seedOptions

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the built-in top movies into the catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, repo, logger, err := openRepo(cmd.Context(), "seed")
			if err != nil {
				return err
			}
			defer func() { _ = repo.Close() }()

			inserted, err := seed(cmd.Context(), repo, opts, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d movies\n", inserted)
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.force, "force", false, "insert even when the catalog is not empty")
	cmd.Flags().BoolVar(&opts.reset, "reset", false, "delete every movie before seeding")
	cmd.Flags().IntVar(&opts.batchSize, "batch", accel.DefaultBatchSize, "movies per batch")
	return cmd
}

// seed inserts the starter catalog and returns how many movies were written
func seed(ctx context.Context, store db.MovieStore, opts seedOptions, logger zerolog.Logger) (int, error) {
	if opts.reset {
		deleted, err := store.ClearMovies(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to clear movies: %w", err)
		}
		logger.Info().Int64("deleted", deleted).Msg("cleared catalog")
	} else if !opts.force {
		count, err := store.CountMovies(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to count movies: %w", err)
		}
		if count > 0 {
			logger.Info().Int64("count", count).Msg("catalog not empty, skipping seed (use --force or --reset)")
			return 0, nil
		}
	}

	movies := db.SeedMovies()
	batch := accel.NewBatch(opts.batchSize)
	inserted := 0

	err := accel.Each(batch, movies, func(i int, chunk []db.Movie) error {
		for _, m := range chunk {
			if _, err := store.CreateMovie(ctx, m); err != nil {
				return fmt.Errorf("failed to insert %q: %w", m.Title, err)
			}
			inserted++
		}
		logger.Debug().Int("batch", i+1).Int("of", batch.Count(len(movies))).Msg("batch inserted")
		return nil
	})
	if err != nil {
		return inserted, err
	}

	logger.Info().Int("inserted", inserted).Msg("seed complete")
	return inserted, nil
}
