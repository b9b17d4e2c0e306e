// Package main implements the HTTP API server for Cinestack.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dsjohal14/cinestack/internal/auth"
	"github.com/dsjohal14/cinestack/internal/deadletter"
	apihttp "github.com/dsjohal14/cinestack/internal/http"
	"github.com/dsjohal14/cinestack/internal/libs/config"
	"github.com/dsjohal14/cinestack/internal/libs/jobs"
	"github.com/dsjohal14/cinestack/internal/libs/obs"
	"github.com/dsjohal14/cinestack/internal/live"
	"github.com/dsjohal14/cinestack/internal/metrics"
	"github.com/dsjohal14/cinestack/internal/scope/db"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		obs.Failure("api", "api server failed", err)
		os.Exit(1)
	}
}

func run() error {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Init logger
	obs.InitLogger(cfg.LogLevel, cfg.IsDev())
	logger := obs.Logger("api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := db.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close store")
		}
	}()

	authSvc := auth.NewService(repo, cfg.JWTSecret, cfg.JWTTTL, obs.Logger("auth"))

	pacer, err := jobs.NewPacer(cfg.QueuePacing, cfg.QueueDelay, cfg.QueueRate, cfg.QueueBurst)
	if err != nil {
		return fmt.Errorf("invalid queue pacing: %w", err)
	}

	dead := jobs.NewDeadLetters[db.Movie](cfg.DeadLetterLimit)
	failures := []jobs.FailureHandler[db.Movie]{dead.Handle}

	redisClient, err := initRedis(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
		sink := deadletter.NewRedisSink[db.Movie](redisClient, cfg.DeadLetterKey, cfg.DeadLetterLimit, obs.Logger("deadletter"))
		failures = append(failures, sink.Handle)
	}

	// The queue is built before its observers, which only need Status
	var (
		queueMetrics *metrics.Metrics
		hub          *live.Hub
	)
	queue := jobs.NewQueue[db.Movie](db.InsertFunc(repo), obs.Logger("queue"),
		jobs.WithPacer[db.Movie](pacer),
		jobs.WithFailureHandler(jobs.ChainFailureHandlers(failures...)),
		jobs.WithOutcomeHook[db.Movie](func(o jobs.Outcome) { queueMetrics.ObserveOutcome(o) }),
		jobs.WithOutcomeHook[db.Movie](func(o jobs.Outcome) { hub.Publish(o) }),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	queueMetrics = metrics.New(reg, queue)
	hub = live.NewHub(queue, obs.Logger("live"))

	handler := apihttp.NewHandler(repo, queue, authSvc, dead, logger)
	handler.SetLive(hub)
	r := setupRouter(handler, reg, logger)

	addr := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{Addr: addr, Handler: r}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", addr).
			Str("backend", cfg.StoreBackend).
			Str("pacing", cfg.QueuePacing).
			Msg("starting API server")
		errCh <- srv.ListenAndServe()
	}()

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	}

	shutdown(srv, queue, hub, cfg, logger)
	return serveErr
}

func setupRouter(h *apihttp.Handler, reg *prometheus.Registry, logger zerolog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(obs.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	// Routes
	h.Routes(r)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	return r
}

// initRedis returns nil when no dead-letter redis is configured
func initRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		logger.Info().Msg("redis dead letters disabled")
		return nil, nil
	}
	client, err := deadletter.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("addr", cfg.RedisAddr).Str("key", cfg.DeadLetterKey).Msg("redis dead letters enabled")
	return client, nil
}

// shutdown stops HTTP first so no new jobs arrive, then drains the queue
func shutdown(srv *http.Server, queue *jobs.Queue[db.Movie], hub *live.Hub, cfg *config.Config, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}

	snap := queue.Status()
	if err := queue.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Int("pending", snap.PendingCount).Msg("queue did not drain before deadline")
	} else {
		logger.Info().Uint64("submitted", snap.Submitted).Msg("queue drained")
	}

	hub.Close()
}
