// Package main implements the bulk importer: it feeds a JSON array of movies
// through the lazy insertion queue in batches.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	apihttp "github.com/dsjohal14/cinestack/internal/http"
	"github.com/dsjohal14/cinestack/internal/libs/accel"
	"github.com/dsjohal14/cinestack/internal/libs/config"
	"github.com/dsjohal14/cinestack/internal/libs/jobs"
	"github.com/dsjohal14/cinestack/internal/libs/obs"
	"github.com/dsjohal14/cinestack/internal/scope/db"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type importOptions struct {
	file      string
	batchSize int
	pacing    string
	delay     time.Duration
}

// importResult counts finished jobs
type importResult struct {
	Submitted int
	Completed int64
	Failed    int64
	Took      time.Duration
}

func main() {
	var opts importOptions

	cmd := &cobra.Command{
		Use:           "cinestack-import --file movies.json",
		Short:         "Bulk import movies through the insertion queue",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "JSON array of movies")
	cmd.Flags().IntVar(&opts.batchSize, "batch", accel.DefaultBatchSize, "movies submitted before waiting for the queue")
	cmd.Flags().StringVar(&opts.pacing, "pacing", "", "queue pacing policy (defaults to QUEUE_PACING)")
	cmd.Flags().DurationVar(&opts.delay, "delay", 0, "fixed delay between inserts (defaults to QUEUE_DELAY)")
	_ = cmd.MarkFlagRequired("file")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		obs.Failure("worker", "import failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cobra.Command, opts importOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	obs.InitLogger(cfg.LogLevel, cfg.IsDev())
	logger := obs.Logger("worker")

	movies, err := readMovies(opts.file)
	if err != nil {
		return err
	}

	policy, delay := cfg.QueuePacing, cfg.QueueDelay
	if opts.pacing != "" {
		policy = opts.pacing
	}
	if opts.delay > 0 {
		delay = opts.delay
	}
	pacer, err := jobs.NewPacer(policy, delay, cfg.QueueRate, cfg.QueueBurst)
	if err != nil {
		return err
	}

	repo, err := db.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close store")
		}
	}()

	res, err := importMovies(ctx, repo, movies, opts.batchSize, pacer, logger)
	fmt.Fprintf(cmd.OutOrStdout(), "submitted %d, completed %d, failed %d in %s\n",
		res.Submitted, res.Completed, res.Failed, res.Took.Round(time.Millisecond))
	return err
}

// readMovies decodes the file using the same field format as POST /api/movies
func readMovies(path string) ([]db.Movie, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var reqs []apihttp.MovieRequest
	if err := json.Unmarshal(raw, &reqs); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	movies := make([]db.Movie, len(reqs))
	for i, r := range reqs {
		movies[i] = r.Movie()
	}
	return movies, nil
}

// importMovies submits movies one batch at a time and waits for each batch
// to drain before submitting the next
func importMovies(ctx context.Context, store db.MovieStore, movies []db.Movie, batchSize int, pacer jobs.Pacer, logger zerolog.Logger) (importResult, error) {
	var (
		res       importResult
		completed atomic.Int64
		failed    atomic.Int64
	)
	start := time.Now()

	queue := jobs.NewQueue[db.Movie](db.InsertFunc(store), logger,
		jobs.WithPacer[db.Movie](pacer),
		jobs.WithFailureHandler(func(job jobs.Job[db.Movie], err error) {
			logger.Warn().Err(err).Str("job_id", job.ID).Str("title", job.Payload.Title).Msg("movie rejected")
		}),
		jobs.WithOutcomeHook[db.Movie](func(o jobs.Outcome) {
			if o.Status == jobs.StatusCompleted {
				completed.Add(1)
			} else {
				failed.Add(1)
			}
		}),
	)

	batch := accel.NewBatch(batchSize)
	total := batch.Count(len(movies))

	err := accel.Each(batch, movies, func(i int, chunk []db.Movie) error {
		for _, m := range chunk {
			queue.Submit(m)
			res.Submitted++
		}
		if err := queue.Wait(ctx); err != nil {
			return err
		}
		logger.Info().
			Int("batch", i+1).
			Int("of", total).
			Int64("completed", completed.Load()).
			Int64("failed", failed.Load()).
			Msg("batch drained")
		return nil
	})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if serr := queue.Shutdown(shutdownCtx); serr != nil && err == nil {
		err = serr
	}

	res.Completed = completed.Load()
	res.Failed = failed.Load()
	res.Took = time.Since(start)
	return res, err
}
