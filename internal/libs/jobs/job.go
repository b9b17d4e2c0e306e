// Package jobs provides the in-process lazy insertion queue: writes are
// acknowledged with a job id immediately and persisted later, in order, by a
// single background drain loop.
package jobs

import (
	"errors"
	"fmt"
	"time"
)

// ErrQueueClosed is reported for jobs submitted after Shutdown
var ErrQueueClosed = errors.New("jobs: queue is shut down")

// Status is the lifecycle state of a job
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// rank orders statuses; a job only ever moves to a higher rank
func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusProcessing:
		return 1
	case StatusCompleted, StatusFailed:
		return 2
	default:
		return -1
	}
}

// Terminal reports whether no further transition is possible
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is one unit of queued write work
type Job[T any] struct {
	ID         string
	Payload    T
	EnqueuedAt time.Time
	Status     Status
}

// advance moves the job forward and refuses regressions or moves out of a
// terminal state. Callers hold the queue lock.
func (j *Job[T]) advance(to Status) error {
	if j.Status.Terminal() || to.rank() <= j.Status.rank() {
		return fmt.Errorf("jobs: invalid transition %s -> %s for %s", j.Status, to, j.ID)
	}
	j.Status = to
	return nil
}

// jobID combines the pre-incremented counter with the creation time
func jobID(seq uint64, at time.Time) string {
	return fmt.Sprintf("job_%d_%d", seq, at.UnixMilli())
}

// Outcome describes a finished job. It is handed to outcome hooks after the
// job reaches a terminal status.
type Outcome struct {
	JobID      string        `json:"jobId"`
	Status     Status        `json:"status"`
	EnqueuedAt time.Time     `json:"enqueuedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
	Duration   time.Duration `json:"duration"`
	Err        error         `json:"-"`
	Error      string        `json:"error,omitempty"`
}

// Snapshot is a point-in-time view of the queue
type Snapshot struct {
	QueueDepth   int    `json:"queueDepth"`
	Active       bool   `json:"active"`
	PendingCount int    `json:"pendingCount"`
	InFlight     string `json:"inFlight,omitempty"`
	Submitted    uint64 `json:"submitted"`
}
