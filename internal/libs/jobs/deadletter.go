package jobs

import (
	"sync"
	"time"
)

// DefaultDeadLetterLimit caps the in-memory dead letter list
const DefaultDeadLetterLimit = 100

// FailureHandler receives every job that ends up failed. It runs on the
// drain goroutine, so it should return quickly.
type FailureHandler[T any] func(job Job[T], err error)

// DeadLetter is a failed job kept for inspection
type DeadLetter[T any] struct {
	JobID      string    `json:"jobId"`
	Payload    T         `json:"payload"`
	Error      string    `json:"error"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
	FailedAt   time.Time `json:"failedAt"`
}

// DeadLetters is a bounded in-memory list of failed jobs, newest last.
// When full the oldest entry is evicted.
type DeadLetters[T any] struct {
	mu      sync.RWMutex
	limit   int
	entries []DeadLetter[T]
	dropped uint64
	now     func() time.Time
}

// NewDeadLetters creates a list holding at most limit entries
func NewDeadLetters[T any](limit int) *DeadLetters[T] {
	if limit <= 0 {
		limit = DefaultDeadLetterLimit
	}
	return &DeadLetters[T]{
		limit:   limit,
		entries: make([]DeadLetter[T], 0, limit),
		now:     time.Now,
	}
}

// Handle records a failed job; it satisfies FailureHandler
func (d *DeadLetters[T]) Handle(job Job[T], err error) {
	entry := DeadLetter[T]{
		JobID:      job.ID,
		Payload:    job.Payload,
		EnqueuedAt: job.EnqueuedAt,
		FailedAt:   d.now(),
	}
	if err != nil {
		entry.Error = err.Error()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.entries) == d.limit {
		copy(d.entries, d.entries[1:])
		d.entries = d.entries[:len(d.entries)-1]
		d.dropped++
	}
	d.entries = append(d.entries, entry)
}

// List returns a copy of the recorded failures, oldest first
func (d *DeadLetters[T]) List() []DeadLetter[T] {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]DeadLetter[T], len(d.entries))
	copy(out, d.entries)
	return out
}

// Len returns the number of recorded failures
func (d *DeadLetters[T]) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}

// Dropped returns how many entries were evicted to respect the limit
func (d *DeadLetters[T]) Dropped() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.dropped
}

// ChainFailureHandlers calls each non-nil handler in order
func ChainFailureHandlers[T any](handlers ...FailureHandler[T]) FailureHandler[T] {
	return func(job Job[T], err error) {
		for _, h := range handlers {
			if h != nil {
				h(job, err)
			}
		}
	}
}
