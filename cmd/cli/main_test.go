package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dsjohal14/cinestack/internal/scope/db"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedEmptyCatalog(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemStore()

	n, err := seed(ctx, store, seedOptions{batchSize: 4}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, len(db.SeedMovies()), n)

	count, err := store.CountMovies(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(n), count)
}

func TestSeedSkipsNonEmptyCatalog(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemStore()
	_, err := seed(ctx, store, seedOptions{}, zerolog.Nop())
	require.NoError(t, err)

	n, err := seed(ctx, store, seedOptions{}, zerolog.Nop())
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = seed(ctx, store, seedOptions{reset: true}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, len(db.SeedMovies()), n)

	count, err := store.CountMovies(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(n), count, "reset should replace the catalog")

	n, err = seed(ctx, store, seedOptions{force: true}, zerolog.Nop())
	require.NoError(t, err)
	count, err = store.CountMovies(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2*n), count)
}

func TestFetchStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/queue/status", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"success":false,"message":"Access denied. Admin privileges required."}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"queue":{"queueDepth":2,"active":true}}`))
	}))
	defer srv.Close()

	body, err := fetchStatus(context.Background(), srv.Client(), srv.URL+"/", "good")
	require.NoError(t, err)
	assert.Contains(t, string(body), `"queueDepth": 2`)

	_, err = fetchStatus(context.Background(), srv.Client(), srv.URL, "bad")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "Access denied"))

	_, err = fetchStatus(context.Background(), srv.Client(), srv.URL, "")
	assert.Error(t, err)
}
