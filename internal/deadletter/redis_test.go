package deadletter

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/dsjohal14/cinestack/internal/libs/jobs"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Title string `json:"title"`
}

func newTestSink(t *testing.T, limit int) *RedisSink[payload] {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	client, err := NewRedisClient(context.Background(), addr, 0)
	require.NoError(t, err)

	key := "cinestack:test:dead-letters:" + uuid.NewString()
	t.Cleanup(func() {
		_ = client.Del(context.Background(), key).Err()
		_ = client.Close()
	})
	return NewRedisSink[payload](client, key, limit, zerolog.Nop())
}

func TestRedisSinkRecordsNewestFirst(t *testing.T) {
	sink := newTestSink(t, 10)
	ctx := context.Background()
	enqueued := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	sink.Handle(jobs.Job[payload]{ID: "job_1_1", Payload: payload{Title: "Heat"}, EnqueuedAt: enqueued}, errors.New("duplicate"))
	sink.Handle(jobs.Job[payload]{ID: "job_2_1", Payload: payload{Title: "Alien"}, EnqueuedAt: enqueued}, errors.New("timeout"))

	entries, err := sink.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "job_2_1", entries[0].JobID)
	assert.Equal(t, "Alien", entries[0].Payload.Title)
	assert.Equal(t, "timeout", entries[0].Error)
	assert.True(t, entries[0].EnqueuedAt.Equal(enqueued))
	assert.Equal(t, "job_1_1", entries[1].JobID)
}

func TestRedisSinkTrimsToLimit(t *testing.T) {
	sink := newTestSink(t, 3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		sink.Handle(jobs.Job[payload]{ID: uuid.NewString()}, errors.New("boom"))
	}

	n, err := sink.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	firstTwo, err := sink.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, firstTwo, 2)
}

func TestNewRedisClientUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := NewRedisClient(ctx, "127.0.0.1:1", 0)
	assert.Error(t, err)
}
