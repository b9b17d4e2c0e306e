// Package deadletter keeps failed insertion jobs in a capped Redis list so
// they survive restarts and can be inspected from any instance.
package deadletter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dsjohal14/cinestack/internal/libs/jobs"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const writeTimeout = 2 * time.Second

// NewRedisClient connects to addr and verifies the connection
func NewRedisClient(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis connect failed: %w", err)
	}
	return rdb, nil
}

// RedisSink records failed jobs newest first in a Redis list, trimmed to
// limit entries
type RedisSink[T any] struct {
	client *redis.Client
	key    string
	limit  int
	now    func() time.Time
	logger zerolog.Logger
}

// NewRedisSink creates a sink writing to key
func NewRedisSink[T any](client *redis.Client, key string, limit int, logger zerolog.Logger) *RedisSink[T] {
	if limit <= 0 {
		limit = jobs.DefaultDeadLetterLimit
	}
	return &RedisSink[T]{
		client: client,
		key:    key,
		limit:  limit,
		now:    time.Now,
		logger: logger,
	}
}

// Handle pushes a failed job; it satisfies jobs.FailureHandler. Redis errors
// are logged, never returned, since the drain loop has nowhere to send them.
func (s *RedisSink[T]) Handle(job jobs.Job[T], err error) {
	entry := jobs.DeadLetter[T]{
		JobID:      job.ID,
		Payload:    job.Payload,
		EnqueuedAt: job.EnqueuedAt,
		FailedAt:   s.now(),
	}
	if err != nil {
		entry.Error = err.Error()
	}

	data, mErr := json.Marshal(entry)
	if mErr != nil {
		s.logger.Error().Err(mErr).Str("job_id", job.ID).Msg("failed to encode dead letter")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	_, pErr := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, s.key, data)
		pipe.LTrim(ctx, s.key, 0, int64(s.limit-1))
		return nil
	})
	if pErr != nil {
		s.logger.Error().Err(pErr).Str("job_id", job.ID).Msg("failed to record dead letter in redis")
	}
}

// List returns up to n dead letters, newest first. n <= 0 means all.
func (s *RedisSink[T]) List(ctx context.Context, n int) ([]jobs.DeadLetter[T], error) {
	stop := int64(-1)
	if n > 0 {
		stop = int64(n - 1)
	}

	raw, err := s.client.LRange(ctx, s.key, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read dead letters: %w", err)
	}

	out := make([]jobs.DeadLetter[T], 0, len(raw))
	for _, item := range raw {
		var entry jobs.DeadLetter[T]
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, fmt.Errorf("failed to decode dead letter: %w", err)
		}
		out = append(out, entry)
	}
	return out, nil
}

// Len returns the number of stored dead letters
func (s *RedisSink[T]) Len(ctx context.Context) (int64, error) {
	return s.client.LLen(ctx, s.key).Result()
}
