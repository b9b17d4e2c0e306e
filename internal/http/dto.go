// Package httpapi provides HTTP handlers and data transfer objects for the Cinestack API.
package httpapi

import (
	"time"

	"github.com/dsjohal14/cinestack/internal/libs/jobs"
	"github.com/dsjohal14/cinestack/internal/scope/db"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string        `json:"status"`
	MovieCount int64         `json:"movieCount"`
	Queue      jobs.Snapshot `json:"queue"`
}

// MovieRequest is the body of POST /api/movies
type MovieRequest struct {
	Title       string   `json:"title" validate:"required,notblank"`
	Description string   `json:"description" validate:"required,notblank"`
	Rating      *float64 `json:"rating" validate:"required,gte=0,lte=10"`
	ReleaseDate string   `json:"releaseDate" validate:"required,isodate"`
	Duration    *int     `json:"duration" validate:"required,gte=1"`
	Director    string   `json:"director" validate:"required,notblank"`
	Cast        []string `json:"cast"`
	Genres      []string `json:"genres"`
	Poster      string   `json:"poster"`
	ImdbRank    *int     `json:"imdbRank" validate:"omitempty,gte=1"`
}

// Movie converts a request into a catalog record. Missing numbers stay zero
// and are left for the store's validation to reject.
func (r MovieRequest) Movie() db.Movie {
	m := db.Movie{
		Title:       r.Title,
		Description: r.Description,
		Director:    r.Director,
		Cast:        r.Cast,
		Genres:      r.Genres,
		Poster:      r.Poster,
	}
	m.ReleaseDate, _ = parseDate(r.ReleaseDate)
	if r.Rating != nil {
		m.Rating = *r.Rating
	}
	if r.Duration != nil {
		m.Duration = *r.Duration
	}
	if r.ImdbRank != nil {
		m.ImdbRank = *r.ImdbRank
	}
	return m
}

// MovieUpdateRequest is the body of PUT /api/movies/{id}; absent fields are unchanged
type MovieUpdateRequest struct {
	Title       *string   `json:"title" validate:"omitempty,notblank"`
	Description *string   `json:"description" validate:"omitempty,notblank"`
	Rating      *float64  `json:"rating" validate:"omitempty,gte=0,lte=10"`
	ReleaseDate *string   `json:"releaseDate" validate:"omitempty,isodate"`
	Duration    *int      `json:"duration" validate:"omitempty,gte=1"`
	Director    *string   `json:"director" validate:"omitempty,notblank"`
	Cast        *[]string `json:"cast"`
	Genres      *[]string `json:"genres"`
	Poster      *string   `json:"poster"`
	ImdbRank    *int      `json:"imdbRank" validate:"omitempty,gte=1"`
}

// Patch converts a validated request into a store patch
func (r MovieUpdateRequest) Patch() db.MoviePatch {
	p := db.MoviePatch{
		Title:       r.Title,
		Description: r.Description,
		Rating:      r.Rating,
		Duration:    r.Duration,
		Director:    r.Director,
		Cast:        r.Cast,
		Genres:      r.Genres,
		Poster:      r.Poster,
		ImdbRank:    r.ImdbRank,
	}
	if r.ReleaseDate != nil {
		if t, err := parseDate(*r.ReleaseDate); err == nil {
			p.ReleaseDate = &t
		}
	}
	return p
}

// CreateMovieResponse acknowledges a queued insertion
type CreateMovieResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	JobID   string `json:"jobId"`
}

// MovieResponse wraps a single movie
type MovieResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Movie   db.Movie `json:"movie"`
}

// MovieListResponse is one page of movies
type MovieListResponse struct {
	Success     bool       `json:"success"`
	Count       int        `json:"count"`
	Total       int64      `json:"total"`
	TotalPages  int        `json:"totalPages"`
	CurrentPage int        `json:"currentPage"`
	SortedBy    string     `json:"sortedBy,omitempty"`
	Order       string     `json:"order,omitempty"`
	SearchQuery string     `json:"searchQuery,omitempty"`
	Movies      []db.Movie `json:"movies"`
}

// MessageResponse is a bare success acknowledgement
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// CredentialsRequest is the body of register and login
type CredentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse carries a token and its user
type AuthResponse struct {
	Success bool    `json:"success"`
	Token   string  `json:"token,omitempty"`
	User    db.User `json:"user"`
}

// QueueStatusResponse reports the insertion queue
type QueueStatusResponse struct {
	Success     bool          `json:"success"`
	Queue       jobs.Snapshot `json:"queue"`
	DeadLetters int           `json:"deadLetters"`
}

// DeadLettersResponse lists failed insertions, oldest first
type DeadLettersResponse struct {
	Success     bool                        `json:"success"`
	Count       int                         `json:"count"`
	Dropped     uint64                      `json:"dropped"`
	DeadLetters []jobs.DeadLetter[db.Movie] `json:"deadLetters"`
}

// ErrorResponse represents API error response
type ErrorResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code,omitempty"`
	Errors  []db.FieldError `json:"errors,omitempty"`
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// parseDate accepts ISO-8601 dates with or without a time part
func parseDate(s string) (time.Time, error) {
	var err error
	for _, layout := range dateLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, err
}
