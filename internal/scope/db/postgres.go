package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Repository on a pgx connection pool
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgresStore connects to connString and creates the schema
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{pool: pool, now: time.Now}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS movies (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		rating DOUBLE PRECISION NOT NULL,
		release_date TIMESTAMPTZ NOT NULL,
		duration INTEGER NOT NULL,
		director TEXT NOT NULL,
		cast_members TEXT[] NOT NULL DEFAULT '{}',
		genres TEXT[] NOT NULL DEFAULT '{}',
		poster TEXT NOT NULL,
		imdb_rank INTEGER,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_movies_imdb_rank ON movies(imdb_rank);
	CREATE INDEX IF NOT EXISTS idx_movies_created_at ON movies(created_at);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);
	`)
	return err
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Pool returns the underlying connection pool
func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

func movieArgs(m Movie) []any {
	return []any{
		m.ID, m.Title, m.Description, m.Rating, m.ReleaseDate,
		m.Duration, m.Director, nonNil(m.Cast), nonNil(m.Genres), m.Poster, nullableRank(m.ImdbRank),
		m.CreatedAt, m.UpdatedAt,
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

// CreateMovie inserts a movie
func (s *PostgresStore) CreateMovie(ctx context.Context, m Movie) (Movie, error) {
	m, err := prepareNew(m, s.now())
	if err != nil {
		return Movie{}, err
	}

	_, err = s.pool.Exec(ctx, `INSERT INTO movies (`+movieColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`, movieArgs(m)...)
	if err != nil {
		if isUniqueViolation(err) {
			return Movie{}, ErrDuplicate
		}
		return Movie{}, fmt.Errorf("failed to insert movie: %w", err)
	}
	return m, nil
}

func scanPgMovie(row pgx.Row) (Movie, error) {
	var (
		m    Movie
		rank *int32
	)
	err := row.Scan(&m.ID, &m.Title, &m.Description, &m.Rating, &m.ReleaseDate, &m.Duration, &m.Director,
		&m.Cast, &m.Genres, &m.Poster, &rank, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return Movie{}, err
	}
	if rank != nil {
		m.ImdbRank = int(*rank)
	}
	m.ReleaseDate = m.ReleaseDate.UTC()
	m.CreatedAt = m.CreatedAt.UTC()
	m.UpdatedAt = m.UpdatedAt.UTC()
	return m, nil
}

// GetMovie retrieves a movie by ID
func (s *PostgresStore) GetMovie(ctx context.Context, id string) (Movie, error) {
	m, err := scanPgMovie(s.pool.QueryRow(ctx, `SELECT `+movieColumns+` FROM movies WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Movie{}, ErrNotFound
	}
	return m, err
}

// UpdateMovie locks the row, merges patch and writes it back
func (s *PostgresStore) UpdateMovie(ctx context.Context, id string, patch MoviePatch) (Movie, error) {
	var updated Movie
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		existing, err := scanPgMovie(tx.QueryRow(ctx,
			`SELECT `+movieColumns+` FROM movies WHERE id = $1 FOR UPDATE`, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		updated, err = applyPatch(existing, patch, s.now())
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `UPDATE movies SET id = $1, title = $2, description = $3, rating = $4,
			release_date = $5, duration = $6, director = $7, cast_members = $8, genres = $9,
			poster = $10, imdb_rank = $11, created_at = $12, updated_at = $13 WHERE id = $1`,
			movieArgs(updated)...)
		return err
	})
	if err != nil {
		return Movie{}, err
	}
	return updated, nil
}

// DeleteMovie removes a movie
func (s *PostgresStore) DeleteMovie(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM movies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete movie: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearMovies removes all movies
func (s *PostgresStore) ClearMovies(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM movies`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear movies: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListMovies returns one sorted page of movies
func (s *PostgresStore) ListMovies(ctx context.Context, opts ListOptions) (MoviePage, error) {
	opts = opts.Normalize()
	return s.queryPage(ctx, "", nil, orderClause(opts, `"C"`), opts)
}

// SearchMovies matches title, description and director as a literal substring
func (s *PostgresStore) SearchMovies(ctx context.Context, query string, opts ListOptions) (MoviePage, error) {
	opts = opts.Normalize()
	q := strings.ToLower(strings.TrimSpace(query))
	where := `WHERE strpos(lower(title), $1) > 0 OR strpos(lower(description), $1) > 0 OR strpos(lower(director), $1) > 0`
	return s.queryPage(ctx, where, []any{q}, "ORDER BY created_at ASC, id ASC", opts)
}

func (s *PostgresStore) queryPage(ctx context.Context, where string, args []any, order string, opts ListOptions) (MoviePage, error) {
	page := MoviePage{Movies: []Movie{}}

	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM movies `+where, args...).Scan(&page.Total); err != nil {
		return MoviePage{}, fmt.Errorf("failed to count movies: %w", err)
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM movies %s %s LIMIT $%d OFFSET $%d`, movieColumns, where, order, n+1, n+2)
	rows, err := s.pool.Query(ctx, query, append(args, opts.Limit, opts.Offset())...)
	if err != nil {
		return MoviePage{}, fmt.Errorf("failed to list movies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		m, err := scanPgMovie(rows)
		if err != nil {
			return MoviePage{}, err
		}
		page.Movies = append(page.Movies, m)
	}
	return page, rows.Err()
}

// CountMovies returns the number of movies
func (s *PostgresStore) CountMovies(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM movies`).Scan(&n)
	return n, err
}

// CreateUser inserts an account
func (s *PostgresStore) CreateUser(ctx context.Context, u User) (User, error) {
	u, err := prepareUser(u, s.now())
	if err != nil {
		return User{}, err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, role, created_at) VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Email, u.PasswordHash, string(u.Role), u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrDuplicate
		}
		return User{}, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

// GetUser retrieves an account by ID
func (s *PostgresStore) GetUser(ctx context.Context, id string) (User, error) {
	return s.getUser(ctx, `id = $1`, id)
}

// GetUserByEmail retrieves an account by email
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return s.getUser(ctx, `email = $1`, NormalizeEmail(email))
}

func (s *PostgresStore) getUser(ctx context.Context, where, arg string) (User, error) {
	var (
		u    User
		role string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, role, created_at FROM users WHERE `+where, arg).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	u.Role = Role(role)
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
