package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultAbandonGrace is how long Shutdown waits for the in-flight job after
// its deadline
const DefaultAbandonGrace = 5 * time.Second

// StoreFunc persists one payload. The queue only records whether it
// succeeded.
type StoreFunc[T any] func(ctx context.Context, payload T) error

// OutcomeHook observes every job that reaches a terminal status
type OutcomeHook func(Outcome)

// Option configures a Queue
type Option[T any] func(*Queue[T])

// WithPacer sets the pause policy between jobs (default FixedDelay(DefaultDelay))
func WithPacer[T any](p Pacer) Option[T] {
	return func(q *Queue[T]) {
		if p != nil {
			q.pacer = p
		}
	}
}

// WithFailureHandler sets the handler invoked for failed jobs
func WithFailureHandler[T any](h FailureHandler[T]) Option[T] {
	return func(q *Queue[T]) {
		q.onFail = h
	}
}

// WithOutcomeHook adds an observer for finished jobs; may be given more than once
func WithOutcomeHook[T any](h OutcomeHook) Option[T] {
	return func(q *Queue[T]) {
		if h != nil {
			q.hooks = append(q.hooks, h)
		}
	}
}

// WithAbandonGrace bounds how long Shutdown waits for the in-flight store
// call once its context has ended (default DefaultAbandonGrace)
func WithAbandonGrace[T any](d time.Duration) Option[T] {
	return func(q *Queue[T]) {
		if d >= 0 {
			q.abandonGrace = d
		}
	}
}

// WithClock overrides the time source used for ids and timestamps
func WithClock[T any](now func() time.Time) Option[T] {
	return func(q *Queue[T]) {
		if now != nil {
			q.now = now
		}
	}
}

// Queue is a FIFO lazy insertion queue drained by at most one goroutine.
//
// The queue is either idle or draining. Submit arms the drain loop when idle,
// and the loop returns to idle in the same critical section in which it finds
// the list empty, so a submission can never be stranded and two loops can
// never run at once.
type Queue[T any] struct {
	mu       sync.Mutex
	items    []*Job[T]
	active   bool
	counter  uint64
	inFlight string
	closed   bool
	idle     chan struct{} // closed when the current drain run ends

	store  StoreFunc[T]
	pacer  Pacer
	onFail FailureHandler[T]
	hooks  []OutcomeHook
	now    func() time.Time
	logger zerolog.Logger

	// storeCtx is handed to every store call and is never cancelled; a
	// dequeued job always runs to completion.
	storeCtx context.Context
	// pauseCtx interrupts pacing and stops the loop once Shutdown gives up.
	pauseCtx     context.Context
	abandon      context.CancelFunc
	abandonGrace time.Duration
}

// NewQueue creates an idle queue that persists payloads with store
func NewQueue[T any](store StoreFunc[T], logger zerolog.Logger, opts ...Option[T]) *Queue[T] {
	if store == nil {
		panic("jobs: NewQueue called with nil store")
	}

	pauseCtx, abandon := context.WithCancel(context.Background())
	q := &Queue[T]{
		items:    make([]*Job[T], 0),
		store:    store,
		pacer:    FixedDelay(DefaultDelay),
		now:      time.Now,
		logger:   logger,
		storeCtx: context.Background(),
		pauseCtx: pauseCtx,
		abandon:  abandon,

		abandonGrace: DefaultAbandonGrace,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Submit appends payload to the tail of the queue and returns its job id
// without waiting for it to be persisted. Persistence failures are never
// reported here; they reach the failure handler and outcome hooks.
func (q *Queue[T]) Submit(payload T) string {
	now := q.now()

	q.mu.Lock()
	q.counter++
	job := &Job[T]{
		ID:         jobID(q.counter, now),
		Payload:    payload,
		EnqueuedAt: now,
		Status:     StatusPending,
	}

	if q.closed {
		_ = job.advance(StatusFailed)
		q.mu.Unlock()
		q.logger.Warn().Str("job_id", job.ID).Msg("job rejected, queue is shut down")
		q.finish(job, now, ErrQueueClosed)
		return job.ID
	}

	q.items = append(q.items, job)
	depth := len(q.items)
	q.mu.Unlock()

	q.logger.Debug().Str("job_id", job.ID).Int("queue_size", depth).Msg("job queued")

	q.trigger()
	return job.ID
}

// trigger starts the drain loop if it is idle and there is work. Redundant
// calls are no-ops. It reports whether a loop was started.
func (q *Queue[T]) trigger() bool {
	q.mu.Lock()
	start := q.armLocked()
	q.mu.Unlock()

	if start {
		go q.drain()
	}
	return start
}

// armLocked performs the Idle -> Draining transition
func (q *Queue[T]) armLocked() bool {
	if q.active || len(q.items) == 0 || q.pauseCtx.Err() != nil {
		return false
	}
	q.active = true
	q.idle = make(chan struct{})
	return true
}

func (q *Queue[T]) drain() {
	q.logger.Info().Msg("queue processing started")

	for {
		job, ok := q.next()
		if !ok {
			return
		}

		q.process(job)

		if err := q.pacer.Pause(q.pauseCtx); err != nil && q.pauseCtx.Err() == nil {
			q.logger.Warn().Err(err).Msg("pacer returned error")
		}
	}
}

// next removes the head of the queue and marks it processing, or performs
// the Draining -> Idle transition when nothing is left.
func (q *Queue[T]) next() (*Job[T], bool) {
	q.mu.Lock()

	// Abandoned jobs are reported before going idle so Wait and Shutdown
	// see them. Submit rejects new work once closed, so items stays empty.
	if q.pauseCtx.Err() != nil && len(q.items) > 0 {
		dropped := q.items
		q.items = make([]*Job[T], 0)
		for _, job := range dropped {
			_ = job.advance(StatusFailed)
		}
		q.mu.Unlock()

		q.logger.Warn().Int("dropped", len(dropped)).Msg("queue abandoned with pending jobs")
		now := q.now()
		for _, job := range dropped {
			q.finish(job, now, ErrQueueClosed)
		}
		q.mu.Lock()
	}

	if len(q.items) == 0 {
		q.active = false
		q.inFlight = ""
		close(q.idle)
		q.mu.Unlock()

		q.logger.Info().Msg("queue processing completed")
		return nil, false
	}

	job := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	_ = job.advance(StatusProcessing)
	q.inFlight = job.ID
	q.mu.Unlock()

	return job, true
}

func (q *Queue[T]) process(job *Job[T]) {
	q.logger.Debug().Str("job_id", job.ID).Msg("processing job")

	started := q.now()
	err := q.invoke(job.Payload)

	q.mu.Lock()
	if err != nil {
		_ = job.advance(StatusFailed)
	} else {
		_ = job.advance(StatusCompleted)
	}
	q.inFlight = ""
	q.mu.Unlock()

	q.finish(job, started, err)
}

// invoke calls the store, turning a panic into a job failure
func (q *Queue[T]) invoke(payload T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("jobs: store panicked: %v", r)
		}
	}()
	return q.store(q.storeCtx, payload)
}

// finish reports a terminal job to the log, the failure handler and the hooks
func (q *Queue[T]) finish(job *Job[T], started time.Time, err error) {
	finished := q.now()
	outcome := Outcome{
		JobID:      job.ID,
		Status:     job.Status,
		EnqueuedAt: job.EnqueuedAt,
		FinishedAt: finished,
		Duration:   finished.Sub(started),
		Err:        err,
	}

	if err != nil {
		outcome.Error = err.Error()
		q.logger.Error().Err(err).Str("job_id", job.ID).Msg("job failed")
		if q.onFail != nil {
			q.guard(job.ID, "failure handler", func() { q.onFail(*job, err) })
		}
	} else {
		q.logger.Info().Str("job_id", job.ID).Dur("took", outcome.Duration).Msg("job completed")
	}

	for _, hook := range q.hooks {
		hook := hook
		q.guard(job.ID, "outcome hook", func() { hook(outcome) })
	}
}

// guard runs an observer, logging a panic instead of letting it take down
// the drain loop
func (q *Queue[T]) guard(jobID, what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error().
				Str("job_id", jobID).
				Interface("panic", r).
				Msg(what + " panicked")
		}
	}()
	fn()
}

// Status returns a snapshot of the queue
func (q *Queue[T]) Status() Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()

	pending := 0
	for _, job := range q.items {
		if job.Status == StatusPending {
			pending++
		}
	}

	return Snapshot{
		QueueDepth:   len(q.items),
		Active:       q.active,
		PendingCount: pending,
		InFlight:     q.inFlight,
		Submitted:    q.counter,
	}
}

// Wait blocks until the current drain run finishes or ctx is done. It
// returns immediately when the queue is idle.
func (q *Queue[T]) Wait(ctx context.Context) error {
	q.mu.Lock()
	if !q.active {
		q.mu.Unlock()
		return nil
	}
	idle := q.idle
	q.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for the backlog to drain. If ctx
// ends first the loop stops after its in-flight job, the remaining jobs
// fail with ErrQueueClosed, and ctx.Err() is returned. In that case Shutdown
// still waits up to the abandon grace for the in-flight store call, so the
// caller can close the store afterwards.
func (q *Queue[T]) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	active := q.active
	idle := q.idle
	depth := len(q.items)
	q.mu.Unlock()

	q.logger.Info().Int("queue_size", depth).Bool("active", active).Msg("queue shutting down")

	if !active {
		q.abandon()
		return nil
	}

	select {
	case <-idle:
		q.abandon()
		return nil
	case <-ctx.Done():
		q.abandon()
	}

	grace := time.NewTimer(q.abandonGrace)
	defer grace.Stop()
	select {
	case <-idle:
	case <-grace.C:
		q.logger.Warn().Dur("grace", q.abandonGrace).Msg("in-flight job still running after shutdown")
	}
	return ctx.Err()
}
