package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Repository on a single SQLite file
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens the database at path and creates the schema
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS movies (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		rating REAL NOT NULL,
		release_date INTEGER NOT NULL,
		duration INTEGER NOT NULL,
		director TEXT NOT NULL,
		cast_members TEXT NOT NULL DEFAULT '[]',
		genres TEXT NOT NULL DEFAULT '[]',
		poster TEXT NOT NULL,
		imdb_rank INTEGER,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_movies_imdb_rank ON movies(imdb_rank);
	CREATE INDEX IF NOT EXISTS idx_movies_created_at ON movies(created_at);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateMovie inserts a movie
func (s *SQLiteStore) CreateMovie(ctx context.Context, m Movie) (Movie, error) {
	m, err := prepareNew(m, s.now())
	if err != nil {
		return Movie{}, err
	}
	if err := s.writeMovie(ctx, s.db, m, true); err != nil {
		return Movie{}, err
	}
	return m, nil
}

type sqlExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLiteStore) writeMovie(ctx context.Context, ex sqlExecer, m Movie, insert bool) error {
	cast, err := json.Marshal(m.Cast)
	if err != nil {
		return err
	}
	genres, err := json.Marshal(m.Genres)
	if err != nil {
		return err
	}

	query := `INSERT INTO movies (` + movieColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if !insert {
		query = `UPDATE movies SET id = ?, title = ?, description = ?, rating = ?, release_date = ?,
			duration = ?, director = ?, cast_members = ?, genres = ?, poster = ?, imdb_rank = ?,
			created_at = ?, updated_at = ? WHERE id = ?`
	}
	args := []any{
		m.ID, m.Title, m.Description, m.Rating, m.ReleaseDate.UnixMilli(),
		m.Duration, m.Director, string(cast), string(genres), m.Poster, nullableRank(m.ImdbRank),
		m.CreatedAt.UnixMilli(), m.UpdatedAt.UnixMilli(),
	}
	if !insert {
		args = append(args, m.ID)
	}

	if _, err := ex.ExecContext(ctx, query, args...); err != nil {
		if isSQLiteConstraint(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to write movie: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteMovie(row rowScanner) (Movie, error) {
	var (
		m                         Movie
		release, created, updated int64
		cast, genres              string
		rank                      sql.NullInt64
	)
	err := row.Scan(&m.ID, &m.Title, &m.Description, &m.Rating, &release, &m.Duration, &m.Director,
		&cast, &genres, &m.Poster, &rank, &created, &updated)
	if err != nil {
		return Movie{}, err
	}
	if err := json.Unmarshal([]byte(cast), &m.Cast); err != nil {
		return Movie{}, fmt.Errorf("failed to decode cast: %w", err)
	}
	if err := json.Unmarshal([]byte(genres), &m.Genres); err != nil {
		return Movie{}, fmt.Errorf("failed to decode genres: %w", err)
	}
	if rank.Valid {
		m.ImdbRank = int(rank.Int64)
	}
	m.ReleaseDate = time.UnixMilli(release).UTC()
	m.CreatedAt = time.UnixMilli(created).UTC()
	m.UpdatedAt = time.UnixMilli(updated).UTC()
	return m, nil
}

// GetMovie retrieves a movie by ID
func (s *SQLiteStore) GetMovie(ctx context.Context, id string) (Movie, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+movieColumns+` FROM movies WHERE id = ?`, id)
	m, err := scanSQLiteMovie(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Movie{}, ErrNotFound
	}
	return m, err
}

// UpdateMovie merges patch into the stored movie inside one transaction
func (s *SQLiteStore) UpdateMovie(ctx context.Context, id string, patch MoviePatch) (Movie, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Movie{}, err
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := scanSQLiteMovie(tx.QueryRowContext(ctx, `SELECT `+movieColumns+` FROM movies WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Movie{}, ErrNotFound
	}
	if err != nil {
		return Movie{}, err
	}

	updated, err := applyPatch(existing, patch, s.now())
	if err != nil {
		return Movie{}, err
	}
	if err := s.writeMovie(ctx, tx, updated, false); err != nil {
		return Movie{}, err
	}
	return updated, tx.Commit()
}

// DeleteMovie removes a movie
func (s *SQLiteStore) DeleteMovie(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM movies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete movie: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearMovies removes all movies
func (s *SQLiteStore) ClearMovies(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM movies`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear movies: %w", err)
	}
	return res.RowsAffected()
}

// ListMovies returns one sorted page of movies
func (s *SQLiteStore) ListMovies(ctx context.Context, opts ListOptions) (MoviePage, error) {
	opts = opts.Normalize()
	return s.queryPage(ctx, "", nil, orderClause(opts, "BINARY"), opts)
}

// SearchMovies matches title, description and director. instr keeps the
// query literal, unlike LIKE.
func (s *SQLiteStore) SearchMovies(ctx context.Context, query string, opts ListOptions) (MoviePage, error) {
	opts = opts.Normalize()
	q := strings.ToLower(strings.TrimSpace(query))
	where := `WHERE instr(lower(title), ?) > 0 OR instr(lower(description), ?) > 0 OR instr(lower(director), ?) > 0`
	return s.queryPage(ctx, where, []any{q, q, q}, "ORDER BY created_at ASC, id ASC", opts)
}

func (s *SQLiteStore) queryPage(ctx context.Context, where string, args []any, order string, opts ListOptions) (MoviePage, error) {
	page := MoviePage{Movies: []Movie{}}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM movies `+where, args...).Scan(&page.Total); err != nil {
		return MoviePage{}, fmt.Errorf("failed to count movies: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM movies %s %s LIMIT ? OFFSET ?`, movieColumns, where, order)
	rows, err := s.db.QueryContext(ctx, query, append(args, opts.Limit, opts.Offset())...)
	if err != nil {
		return MoviePage{}, fmt.Errorf("failed to list movies: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		m, err := scanSQLiteMovie(rows)
		if err != nil {
			return MoviePage{}, err
		}
		page.Movies = append(page.Movies, m)
	}
	return page, rows.Err()
}

// CountMovies returns the number of movies
func (s *SQLiteStore) CountMovies(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM movies`).Scan(&n)
	return n, err
}

// CreateUser inserts an account
func (s *SQLiteStore) CreateUser(ctx context.Context, u User) (User, error) {
	u, err := prepareUser(u, s.now())
	if err != nil {
		return User{}, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, role, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, string(u.Role), u.CreatedAt.UnixMilli())
	if err != nil {
		if isSQLiteConstraint(err) {
			return User{}, ErrDuplicate
		}
		return User{}, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

// GetUser retrieves an account by ID
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (User, error) {
	return s.getUser(ctx, `id = ?`, id)
}

// GetUserByEmail retrieves an account by email
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return s.getUser(ctx, `email = ?`, NormalizeEmail(email))
}

func (s *SQLiteStore) getUser(ctx context.Context, where string, arg string) (User, error) {
	var (
		u       User
		role    string
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, role, created_at FROM users WHERE `+where, arg).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &role, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	u.Role = Role(role)
	u.CreatedAt = time.UnixMilli(created).UTC()
	return u, nil
}

func isSQLiteConstraint(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
