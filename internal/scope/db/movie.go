// Package db provides catalog storage for movies and users across the
// supported backends.
package db

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultPoster is used for movies created without a poster URL
const DefaultPoster = "https://via.placeholder.com/300x450?text=No+Poster"

// Paging defaults
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

var (
	// ErrNotFound is returned when a movie or user does not exist
	ErrNotFound = errors.New("db: not found")
	// ErrDuplicate is returned when a unique key is already taken
	ErrDuplicate = errors.New("db: duplicate key")
	// ErrInvalid wraps validation failures
	ErrInvalid = errors.New("db: invalid record")
)

// Movie is a catalog entry
type Movie struct {
	ID          string    `json:"_id" bson:"_id"`
	Title       string    `json:"title" bson:"title"`
	Description string    `json:"description" bson:"description"`
	Rating      float64   `json:"rating" bson:"rating"`
	ReleaseDate time.Time `json:"releaseDate" bson:"releaseDate"`
	Duration    int       `json:"duration" bson:"duration"` // minutes
	Director    string    `json:"director" bson:"director"`
	Cast        []string  `json:"cast" bson:"cast"`
	Genres      []string  `json:"genres" bson:"genres"`
	Poster      string    `json:"poster" bson:"poster"`
	ImdbRank    int       `json:"imdbRank,omitempty" bson:"imdbRank,omitempty"` // 0 means unranked
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

// FieldError describes one invalid field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every invalid field of a record
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return strings.Join(msgs, "; ")
}

// Unwrap lets errors.Is(err, ErrInvalid) match
func (e *ValidationError) Unwrap() error {
	return ErrInvalid
}

// Validate checks the catalog constraints
func (m *Movie) Validate() error {
	var fields []FieldError
	add := func(field, msg string) {
		fields = append(fields, FieldError{Field: field, Message: msg})
	}

	if strings.TrimSpace(m.Title) == "" {
		add("title", "Movie title is required")
	}
	if strings.TrimSpace(m.Description) == "" {
		add("description", "Movie description is required")
	}
	if m.Rating < 0 {
		add("rating", "Rating must be at least 0")
	}
	if m.Rating > 10 {
		add("rating", "Rating cannot exceed 10")
	}
	if m.ReleaseDate.IsZero() {
		add("releaseDate", "Release date is required")
	}
	if m.Duration < 1 {
		add("duration", "Duration must be at least 1 minute")
	}
	if strings.TrimSpace(m.Director) == "" {
		add("director", "Director name is required")
	}
	if m.ImdbRank < 0 {
		add("imdbRank", "IMDb rank must be at least 1")
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// normalize trims text fields and fills defaults
func (m *Movie) normalize() {
	m.Title = strings.TrimSpace(m.Title)
	m.Description = strings.TrimSpace(m.Description)
	m.Director = strings.TrimSpace(m.Director)
	m.Cast = trimAll(m.Cast)
	m.Genres = trimAll(m.Genres)
	if strings.TrimSpace(m.Poster) == "" {
		m.Poster = DefaultPoster
	}
	m.ReleaseDate = m.ReleaseDate.UTC()
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// prepareNew assigns an id and timestamps and validates a movie before insert
func prepareNew(m Movie, now time.Time) (Movie, error) {
	m.normalize()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	now = now.UTC().Truncate(time.Millisecond)
	m.CreatedAt = now
	m.UpdatedAt = now
	if err := m.Validate(); err != nil {
		return Movie{}, err
	}
	return m, nil
}

// MoviePatch carries the fields of a partial update; nil means unchanged
type MoviePatch struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Rating      *float64   `json:"rating,omitempty"`
	ReleaseDate *time.Time `json:"releaseDate,omitempty"`
	Duration    *int       `json:"duration,omitempty"`
	Director    *string    `json:"director,omitempty"`
	Cast        *[]string  `json:"cast,omitempty"`
	Genres      *[]string  `json:"genres,omitempty"`
	Poster      *string    `json:"poster,omitempty"`
	ImdbRank    *int       `json:"imdbRank,omitempty"`
}

// applyPatch merges patch into m and re-validates the result
func applyPatch(m Movie, p MoviePatch, now time.Time) (Movie, error) {
	if p.Title != nil {
		m.Title = *p.Title
	}
	if p.Description != nil {
		m.Description = *p.Description
	}
	if p.Rating != nil {
		m.Rating = *p.Rating
	}
	if p.ReleaseDate != nil {
		m.ReleaseDate = *p.ReleaseDate
	}
	if p.Duration != nil {
		m.Duration = *p.Duration
	}
	if p.Director != nil {
		m.Director = *p.Director
	}
	if p.Cast != nil {
		m.Cast = *p.Cast
	}
	if p.Genres != nil {
		m.Genres = *p.Genres
	}
	if p.Poster != nil {
		m.Poster = *p.Poster
	}
	if p.ImdbRank != nil {
		m.ImdbRank = *p.ImdbRank
	}

	m.normalize()
	m.UpdatedAt = now.UTC().Truncate(time.Millisecond)
	if err := m.Validate(); err != nil {
		return Movie{}, err
	}
	return m, nil
}

// SortField is a sortable movie attribute
type SortField string

const (
	SortTitle       SortField = "title"
	SortRating      SortField = "rating"
	SortReleaseDate SortField = "releaseDate"
	SortDuration    SortField = "duration"
	SortImdbRank    SortField = "imdbRank"
)

// ParseSortField maps user input to a sort field, defaulting to imdbRank
func ParseSortField(s string) SortField {
	switch f := SortField(s); f {
	case SortTitle, SortRating, SortReleaseDate, SortDuration, SortImdbRank:
		return f
	default:
		return SortImdbRank
	}
}

// SortOrder is asc or desc
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// ParseSortOrder returns desc only for "desc"
func ParseSortOrder(s string) SortOrder {
	if s == string(OrderDesc) {
		return OrderDesc
	}
	return OrderAsc
}

// ListOptions controls sorting and pagination
type ListOptions struct {
	Sort  SortField
	Order SortOrder
	Page  int
	Limit int
}

// Normalize fills defaults and clamps the page size
func (o ListOptions) Normalize() ListOptions {
	o.Sort = ParseSortField(string(o.Sort))
	o.Order = ParseSortOrder(string(o.Order))
	if o.Page < 1 {
		o.Page = 1
	}
	if o.Limit < 1 {
		o.Limit = DefaultPageSize
	}
	if o.Limit > MaxPageSize {
		o.Limit = MaxPageSize
	}
	return o
}

// Offset is the number of records skipped before the page
func (o ListOptions) Offset() int {
	return (o.Page - 1) * o.Limit
}

// MoviePage is one page of movies plus the total match count
type MoviePage struct {
	Movies []Movie
	Total  int64
}

// TotalPages returns the number of pages for limit-sized pages
func (p MoviePage) TotalPages(limit int) int {
	if limit < 1 || p.Total == 0 {
		return 0
	}
	return int((p.Total + int64(limit) - 1) / int64(limit))
}

// lessMovies orders a before b for the given options. Unranked movies sort
// after ranked ones in both directions; ties fall back to creation order.
func lessMovies(a, b *Movie, opts ListOptions) bool {
	desc := opts.Order == OrderDesc
	cmp := 0

	switch opts.Sort {
	case SortTitle:
		cmp = strings.Compare(a.Title, b.Title)
	case SortRating:
		cmp = compareFloat(a.Rating, b.Rating)
	case SortReleaseDate:
		cmp = a.ReleaseDate.Compare(b.ReleaseDate)
	case SortDuration:
		cmp = compareInt(a.Duration, b.Duration)
	default:
		aRanked, bRanked := a.ImdbRank > 0, b.ImdbRank > 0
		if aRanked != bRanked {
			return aRanked
		}
		cmp = compareInt(a.ImdbRank, b.ImdbRank)
	}

	if cmp != 0 {
		if desc {
			return cmp > 0
		}
		return cmp < 0
	}
	return lessCreated(a, b)
}

func lessCreated(a, b *Movie) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// sortMovies sorts in place
func sortMovies(movies []Movie, opts ListOptions) {
	sort.SliceStable(movies, func(i, j int) bool {
		return lessMovies(&movies[i], &movies[j], opts)
	})
}

// paginate slices an already-sorted list
func paginate(movies []Movie, opts ListOptions) MoviePage {
	page := MoviePage{Movies: []Movie{}, Total: int64(len(movies))}
	start := opts.Offset()
	if start >= len(movies) {
		return page
	}
	end := start + opts.Limit
	if end > len(movies) {
		end = len(movies)
	}
	page.Movies = append(page.Movies, movies[start:end]...)
	return page
}

// Role is a user's permission level
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is an account that can log in
type User struct {
	ID           string    `json:"_id" bson:"_id"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"passwordHash"`
	Role         Role      `json:"role" bson:"role"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}

// NormalizeEmail lowercases and trims an address for lookups
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func prepareUser(u User, now time.Time) (User, error) {
	u.Email = NormalizeEmail(u.Email)
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	u.CreatedAt = now.UTC().Truncate(time.Millisecond)

	var fields []FieldError
	if u.Email == "" || !strings.Contains(u.Email, "@") {
		fields = append(fields, FieldError{Field: "email", Message: "A valid email is required"})
	}
	if u.PasswordHash == "" {
		fields = append(fields, FieldError{Field: "password", Message: "Password is required"})
	}
	if u.Role != RoleUser && u.Role != RoleAdmin {
		fields = append(fields, FieldError{Field: "role", Message: fmt.Sprintf("Unknown role %q", u.Role)})
	}
	if len(fields) > 0 {
		return User{}, &ValidationError{Fields: fields}
	}
	return u, nil
}

// sortByCreation orders movies oldest first
func sortByCreation(movies []Movie) {
	sort.SliceStable(movies, func(i, j int) bool {
		return lessCreated(&movies[i], &movies[j])
	})
}

func sortUsers(users []User) {
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		return users[i].ID < users[j].ID
	})
}
