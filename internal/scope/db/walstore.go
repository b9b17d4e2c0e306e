package db

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/dsjohal14/cinestack/internal/scope/db/wal"
	"github.com/rs/zerolog"
)

// Journal record types
const (
	recMoviePut    wal.RecordType = 0x01
	recMovieDelete wal.RecordType = 0x02
	recMoviesClear wal.RecordType = 0x03
	recUserPut     wal.RecordType = 0x04
)

// DefaultCheckpointEvery is how many journal records trigger a checkpoint
const DefaultCheckpointEvery = 1000

// WALStore keeps the catalog in memory and records every mutation in an
// append-only journal. Opening the store replays the journal; checkpoints
// collapse it to one record per live movie and user.
type WALStore struct {
	*MemStore

	mu              sync.Mutex // orders journal appends with memory updates
	writer          *wal.Writer
	checkpointEvery int
	sinceCheckpoint int
	logger          zerolog.Logger
	closed          bool
}

// WALStoreConfig holds configuration for WALStore
type WALStoreConfig struct {
	// Dir holds the journal segments
	Dir string

	// SyncPolicy controls when to fsync
	SyncPolicy wal.SyncPolicy

	// MaxSegmentSize is the max segment size before rotation
	MaxSegmentSize int64

	// CheckpointEvery is the record count that triggers a checkpoint;
	// negative disables automatic checkpoints
	CheckpointEvery int
}

// DefaultWALStoreConfig returns a default configuration
func DefaultWALStoreConfig(dataDir string) WALStoreConfig {
	return WALStoreConfig{
		Dir:             filepath.Join(dataDir, "wal"),
		SyncPolicy:      wal.ImmediateSyncPolicy(),
		MaxSegmentSize:  wal.DefaultMaxSegmentSize,
		CheckpointEvery: DefaultCheckpointEvery,
	}
}

type deletePayload struct {
	ID string `json:"_id"`
}

// NewWALStore replays the journal in cfg.Dir and opens it for appending
func NewWALStore(cfg WALStoreConfig, logger zerolog.Logger) (*WALStore, error) {
	if cfg.CheckpointEvery == 0 {
		cfg.CheckpointEvery = DefaultCheckpointEvery
	}

	s := &WALStore{
		MemStore:        NewMemStore(),
		checkpointEvery: cfg.CheckpointEvery,
		logger:          logger,
	}

	stats, err := wal.Replay(cfg.Dir, s.apply)
	if err != nil {
		return nil, fmt.Errorf("failed to replay journal: %w", err)
	}
	if stats.TornTail {
		logger.Warn().Msg("journal ended in a torn record, discarding it")
	}

	writer, err := wal.NewWriter(cfg.Dir,
		wal.WithSyncPolicy(cfg.SyncPolicy),
		wal.WithMaxSegmentSize(cfg.MaxSegmentSize),
		wal.WithInitialLSN(stats.MaxLSN+1),
		wal.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	s.writer = writer
	s.sinceCheckpoint = stats.Records

	movies, _ := s.MemStore.CountMovies(context.Background())
	logger.Info().
		Int("segments", stats.Segments).
		Int("records", stats.Records).
		Int64("movies", movies).
		Uint64("next_lsn", writer.CurrentLSN()).
		Msg("journal replayed")

	return s, nil
}

// apply rebuilds memory state from one journal record
func (s *WALStore) apply(rec *wal.Record) error {
	switch rec.Type {
	case wal.RecordReset:
		s.MemStore.load(nil, nil)
	case recMoviePut:
		var m Movie
		if err := json.Unmarshal(rec.Payload, &m); err != nil {
			return err
		}
		s.MemStore.put(m)
	case recMovieDelete:
		var p deletePayload
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return err
		}
		s.MemStore.remove(p.ID)
	case recMoviesClear:
		_, _ = s.MemStore.ClearMovies(context.Background())
	case recUserPut:
		var ur userRecord
		if err := json.Unmarshal(rec.Payload, &ur); err != nil {
			return err
		}
		ur.User.PasswordHash = ur.PasswordHash
		s.MemStore.putUser(ur.User)
	default:
		return fmt.Errorf("unknown journal record type %v", rec.Type)
	}
	return nil
}

// append journals v; callers hold s.mu
func (s *WALStore) append(recType wal.RecordType, v any) error {
	if s.closed {
		return wal.ErrClosed
	}

	var payload []byte
	if v != nil {
		var err error
		if payload, err = json.Marshal(v); err != nil {
			return fmt.Errorf("failed to encode journal record: %w", err)
		}
	}
	if _, err := s.writer.Append(recType, payload); err != nil {
		return fmt.Errorf("failed to write journal: %w", err)
	}
	s.sinceCheckpoint++
	return nil
}

// maybeCheckpoint runs after a successful mutation; callers hold s.mu
func (s *WALStore) maybeCheckpoint() {
	if s.checkpointEvery < 0 || s.sinceCheckpoint < s.checkpointEvery {
		return
	}
	if err := s.checkpointLocked(); err != nil {
		s.logger.Error().Err(err).Msg("journal checkpoint failed")
	}
}

// CreateMovie validates, journals and stores a new movie
func (s *WALStore) CreateMovie(_ context.Context, m Movie) (Movie, error) {
	m, err := prepareNew(m, s.now())
	if err != nil {
		return Movie{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.MemStore.GetMovie(context.Background(), m.ID); err == nil {
		return Movie{}, ErrDuplicate
	}
	if err := s.append(recMoviePut, m); err != nil {
		return Movie{}, err
	}
	s.MemStore.put(m)
	s.maybeCheckpoint()
	return m, nil
}

// UpdateMovie merges patch, journals the result and stores it
func (s *WALStore) UpdateMovie(ctx context.Context, id string, patch MoviePatch) (Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.MemStore.GetMovie(ctx, id)
	if err != nil {
		return Movie{}, err
	}
	updated, err := applyPatch(existing, patch, s.now())
	if err != nil {
		return Movie{}, err
	}
	if err := s.append(recMoviePut, updated); err != nil {
		return Movie{}, err
	}
	s.MemStore.put(updated)
	s.maybeCheckpoint()
	return updated, nil
}

// DeleteMovie journals a tombstone and removes the movie
func (s *WALStore) DeleteMovie(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.MemStore.GetMovie(ctx, id); err != nil {
		return err
	}
	if err := s.append(recMovieDelete, deletePayload{ID: id}); err != nil {
		return err
	}
	s.MemStore.remove(id)
	s.maybeCheckpoint()
	return nil
}

// ClearMovies journals a clear and removes every movie
func (s *WALStore) ClearMovies(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.append(recMoviesClear, nil); err != nil {
		return 0, err
	}
	n, err := s.MemStore.ClearMovies(ctx)
	s.maybeCheckpoint()
	return n, err
}

// CreateUser journals and stores a new account
func (s *WALStore) CreateUser(ctx context.Context, u User) (User, error) {
	u, err := prepareUser(u, s.now())
	if err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.MemStore.GetUserByEmail(ctx, u.Email); err == nil {
		return User{}, ErrDuplicate
	}
	if err := s.append(recUserPut, userRecord{User: u, PasswordHash: u.PasswordHash}); err != nil {
		return User{}, err
	}
	s.MemStore.putUser(u)
	s.maybeCheckpoint()
	return u, nil
}

// Checkpoint rewrites the journal as the current catalog
func (s *WALStore) Checkpoint() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return wal.ErrClosed
	}
	return s.checkpointLocked()
}

func (s *WALStore) checkpointLocked() error {
	movies, users := s.MemStore.snapshot()

	_, err := s.writer.Checkpoint(func(emit func(wal.RecordType, []byte) error) error {
		for _, m := range movies {
			payload, err := json.Marshal(m)
			if err != nil {
				return err
			}
			if err := emit(recMoviePut, payload); err != nil {
				return err
			}
		}
		for _, u := range users {
			payload, err := json.Marshal(userRecord{User: u, PasswordHash: u.PasswordHash})
			if err != nil {
				return err
			}
			if err := emit(recUserPut, payload); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.sinceCheckpoint = 0
	return nil
}

// Flush syncs pending journal writes
func (s *WALStore) Flush() error {
	return s.writer.Sync()
}

// Close syncs and closes the journal
func (s *WALStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.writer.Close()
}
