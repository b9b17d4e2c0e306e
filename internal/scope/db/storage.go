package db

import (
	"context"
	"fmt"
	"time"

	"github.com/dsjohal14/cinestack/internal/libs/config"
	"github.com/dsjohal14/cinestack/internal/scope/db/wal"
	"github.com/rs/zerolog"
)

// MovieStore is the catalog storage interface
type MovieStore interface {
	// CreateMovie validates and inserts a movie, assigning id and timestamps
	CreateMovie(ctx context.Context, m Movie) (Movie, error)

	// GetMovie returns ErrNotFound for unknown ids
	GetMovie(ctx context.Context, id string) (Movie, error)

	// UpdateMovie merges patch into the stored movie
	UpdateMovie(ctx context.Context, id string, patch MoviePatch) (Movie, error)

	// DeleteMovie removes a movie
	DeleteMovie(ctx context.Context, id string) error

	// ClearMovies removes every movie and returns how many were deleted
	ClearMovies(ctx context.Context) (int64, error)

	// ListMovies returns one sorted page
	ListMovies(ctx context.Context, opts ListOptions) (MoviePage, error)

	// SearchMovies matches title, description and director case-insensitively
	SearchMovies(ctx context.Context, query string, opts ListOptions) (MoviePage, error)

	// CountMovies returns the number of movies
	CountMovies(ctx context.Context) (int64, error)
}

// UserStore holds login accounts
type UserStore interface {
	// CreateUser returns ErrDuplicate when the email is taken
	CreateUser(ctx context.Context, u User) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
}

// Repository is everything the service needs from a backend
type Repository interface {
	MovieStore
	UserStore

	// Close flushes and releases the backend
	Close() error
}

// Ensure every backend implements Repository
var (
	_ Repository = (*MemStore)(nil)
	_ Repository = (*FileStore)(nil)
	_ Repository = (*WALStore)(nil)
	_ Repository = (*SQLiteStore)(nil)
	_ Repository = (*PostgresStore)(nil)
	_ Repository = (*MongoStore)(nil)
)

// Open connects the backend selected by cfg.StoreBackend
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (Repository, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	logger.Info().Str("backend", cfg.StoreBackend).Msg("opening store")

	switch cfg.StoreBackend {
	case config.BackendMemory:
		return NewMemStore(), nil
	case config.BackendFile:
		return NewFileStore(cfg.DataDir)
	case config.BackendWAL:
		walCfg := DefaultWALStoreConfig(cfg.DataDir)
		walCfg.Dir = cfg.WALDir
		walCfg.MaxSegmentSize = cfg.WALSegmentBytes
		walCfg.CheckpointEvery = cfg.WALCheckpointEvery
		if !cfg.WALSyncImmediate {
			walCfg.SyncPolicy = wal.DefaultSyncPolicy()
		}
		return NewWALStore(walCfg, logger.With().Str("store", "wal").Logger())
	case config.BackendSQLite:
		return NewSQLiteStore(ctx, cfg.SQLitePath)
	case config.BackendPostgres:
		return NewPostgresStore(ctx, cfg.DatabaseURL)
	case config.BackendMongo:
		return NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// InsertFunc adapts a MovieStore to the insertion queue's store signature
func InsertFunc(store MovieStore) func(ctx context.Context, m Movie) error {
	return func(ctx context.Context, m Movie) error {
		_, err := store.CreateMovie(ctx, m)
		return err
	}
}
