package db

import (
	"context"
	"sync"
	"time"

	"github.com/dsjohal14/cinestack/internal/scope/search"
)

// MemStore is a thread-safe in-memory catalog
type MemStore struct {
	mu      sync.RWMutex
	movies  map[string]Movie
	users   map[string]User
	byEmail map[string]string
	engine  *search.MemoryEngine
	now     func() time.Time
}

// NewMemStore creates a new empty in-memory store
func NewMemStore() *MemStore {
	return &MemStore{
		movies:  make(map[string]Movie),
		users:   make(map[string]User),
		byEmail: make(map[string]string),
		engine:  search.NewMemoryEngine(),
		now:     time.Now,
	}
}

func (s *MemStore) index(m Movie) {
	_ = s.engine.Index(m.ID, m.Title, m.Description, m.Director)
}

// CreateMovie adds a movie to the store
func (s *MemStore) CreateMovie(_ context.Context, m Movie) (Movie, error) {
	m, err := prepareNew(m, s.now())
	if err != nil {
		return Movie{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.movies[m.ID]; exists {
		return Movie{}, ErrDuplicate
	}
	s.movies[m.ID] = m
	s.index(m)
	return m, nil
}

// GetMovie retrieves a movie by ID
func (s *MemStore) GetMovie(_ context.Context, id string) (Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.movies[id]
	if !ok {
		return Movie{}, ErrNotFound
	}
	return m, nil
}

// UpdateMovie merges patch into the stored movie
func (s *MemStore) UpdateMovie(_ context.Context, id string, patch MoviePatch) (Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.movies[id]
	if !ok {
		return Movie{}, ErrNotFound
	}
	updated, err := applyPatch(existing, patch, s.now())
	if err != nil {
		return Movie{}, err
	}
	s.movies[id] = updated
	s.index(updated)
	return updated, nil
}

// DeleteMovie removes a movie from the store
func (s *MemStore) DeleteMovie(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.movies[id]; !ok {
		return ErrNotFound
	}
	delete(s.movies, id)
	s.engine.Remove(id)
	return nil
}

// ClearMovies removes all movies
func (s *MemStore) ClearMovies(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int64(len(s.movies))
	s.movies = make(map[string]Movie)
	s.engine.Clear()
	return n, nil
}

// ListMovies returns one sorted page of movies
func (s *MemStore) ListMovies(_ context.Context, opts ListOptions) (MoviePage, error) {
	opts = opts.Normalize()

	s.mu.RLock()
	all := make([]Movie, 0, len(s.movies))
	for _, m := range s.movies {
		all = append(all, m)
	}
	s.mu.RUnlock()

	sortMovies(all, opts)
	return paginate(all, opts), nil
}

// SearchMovies matches title, description and director
func (s *MemStore) SearchMovies(_ context.Context, query string, opts ListOptions) (MoviePage, error) {
	opts = opts.Normalize()

	s.mu.RLock()
	ids, err := s.engine.Search(query)
	if err != nil {
		s.mu.RUnlock()
		return MoviePage{}, err
	}
	matches := make([]Movie, 0, len(ids))
	for _, id := range ids {
		if m, ok := s.movies[id]; ok {
			matches = append(matches, m)
		}
	}
	s.mu.RUnlock()

	sortByCreation(matches)
	return paginate(matches, opts), nil
}

// CountMovies returns the number of movies in the store
func (s *MemStore) CountMovies(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.movies)), nil
}

// CreateUser adds an account; emails are unique
func (s *MemStore) CreateUser(_ context.Context, u User) (User, error) {
	u, err := prepareUser(u, s.now())
	if err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[u.Email]; taken {
		return User{}, ErrDuplicate
	}
	s.users[u.ID] = u
	s.byEmail[u.Email] = u.ID
	return u, nil
}

// GetUser retrieves an account by ID
func (s *MemStore) GetUser(_ context.Context, id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

// GetUserByEmail retrieves an account by email
func (s *MemStore) GetUserByEmail(_ context.Context, email string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[NormalizeEmail(email)]
	if !ok {
		return User{}, ErrNotFound
	}
	return s.users[id], nil
}

// Close is a no-op for the in-memory store
func (s *MemStore) Close() error {
	return nil
}

// load replaces the contents of the store, used when restoring from disk
func (s *MemStore) load(movies []Movie, users []User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.movies = make(map[string]Movie, len(movies))
	s.engine.Clear()
	for _, m := range movies {
		s.movies[m.ID] = m
		s.index(m)
	}

	s.users = make(map[string]User, len(users))
	s.byEmail = make(map[string]string, len(users))
	for _, u := range users {
		s.users[u.ID] = u
		s.byEmail[u.Email] = u.ID
	}
}

// snapshot copies the store contents in creation order
func (s *MemStore) snapshot() ([]Movie, []User) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	movies := make([]Movie, 0, len(s.movies))
	for _, m := range s.movies {
		movies = append(movies, m)
	}
	sortByCreation(movies)

	users := make([]User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sortUsers(users)

	return movies, users
}

// put stores m as-is, replacing any movie with the same id
func (s *MemStore) put(m Movie) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.movies[m.ID] = m
	s.index(m)
}

// remove deletes a movie if present
func (s *MemStore) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.movies, id)
	s.engine.Remove(id)
}

// putUser stores u as-is
func (s *MemStore) putUser(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.users[u.ID]; ok {
		delete(s.byEmail, old.Email)
	}
	s.users[u.ID] = u
	s.byEmail[u.Email] = u.ID
}
