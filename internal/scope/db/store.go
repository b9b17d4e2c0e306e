package db

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	moviesFile = "movies.jsonl"
	usersFile  = "users.jsonl"
)

// FileStore keeps the catalog in memory and persists it as JSONL files
// under dataDir. Every successful write rewrites the affected file.
type FileStore struct {
	*MemStore

	dataDir string
	mu      sync.Mutex // serializes writes to disk
}

// NewFileStore opens (or creates) a store in dataDir
func NewFileStore(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &FileStore{
		MemStore: NewMemStore(),
		dataDir:  dataDir,
	}

	if err := s.load(); err != nil {
		return nil, fmt.Errorf("failed to load store: %w", err)
	}

	return s, nil
}

// CreateMovie adds a movie and persists the catalog
func (s *FileStore) CreateMovie(ctx context.Context, m Movie) (Movie, error) {
	created, err := s.MemStore.CreateMovie(ctx, m)
	if err != nil {
		return Movie{}, err
	}
	return created, s.Flush()
}

// UpdateMovie merges patch into the stored movie and persists the catalog
func (s *FileStore) UpdateMovie(ctx context.Context, id string, patch MoviePatch) (Movie, error) {
	updated, err := s.MemStore.UpdateMovie(ctx, id, patch)
	if err != nil {
		return Movie{}, err
	}
	return updated, s.Flush()
}

// DeleteMovie removes a movie and persists the catalog
func (s *FileStore) DeleteMovie(ctx context.Context, id string) error {
	if err := s.MemStore.DeleteMovie(ctx, id); err != nil {
		return err
	}
	return s.Flush()
}

// ClearMovies removes all movies and persists the empty catalog
func (s *FileStore) ClearMovies(ctx context.Context) (int64, error) {
	n, err := s.MemStore.ClearMovies(ctx)
	if err != nil {
		return 0, err
	}
	return n, s.Flush()
}

// CreateUser adds an account and persists the user list
func (s *FileStore) CreateUser(ctx context.Context, u User) (User, error) {
	created, err := s.MemStore.CreateUser(ctx, u)
	if err != nil {
		return User{}, err
	}
	return created, s.Flush()
}

// Flush writes the store to disk
func (s *FileStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	movies, users := s.MemStore.snapshot()
	if err := writeJSONL(filepath.Join(s.dataDir, moviesFile), movies); err != nil {
		return err
	}
	return writeJSONL(filepath.Join(s.dataDir, usersFile), users)
}

// Close flushes the store
func (s *FileStore) Close() error {
	return s.Flush()
}

func (s *FileStore) load() error {
	movies, err := readJSONL[Movie](filepath.Join(s.dataDir, moviesFile))
	if err != nil {
		return err
	}
	users, err := readJSONL[User](filepath.Join(s.dataDir, usersFile))
	if err != nil {
		return err
	}
	s.MemStore.load(movies, users)
	return nil
}

// users.jsonl needs the password hash, which User hides from JSON
type userRecord struct {
	User
	PasswordHash string `json:"passwordHash"`
}

// writeJSONL replaces path atomically with one JSON record per line
func writeJSONL[T any](path string, records []T) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	w := bufio.NewWriter(tmp)
	encoder := json.NewEncoder(w)
	for i := range records {
		var rec any = records[i]
		if u, ok := rec.(User); ok {
			rec = userRecord{User: u, PasswordHash: u.PasswordHash}
		}
		if err := encoder.Encode(rec); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("failed to encode record %d: %w", i, err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// readJSONL loads every record in path; a missing file is empty
func readJSONL[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var out []T
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec T
		if u, ok := any(&rec).(*User); ok {
			var ur userRecord
			if err := json.Unmarshal(line, &ur); err != nil {
				return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
			}
			ur.User.PasswordHash = ur.PasswordHash
			*u = ur.User
		} else if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
		}
		out = append(out, rec)
	}
	return out, scanner.Err()
}
