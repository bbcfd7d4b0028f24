// Package genqueue serializes calls to the rate-limited generation API.
// Jobs are processed strictly one at a time by a single background worker,
// with a minimum spacing between dispatches and exponential backoff on
// rate-limit responses.
package genqueue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"framd/server/internal/domain"
	"framd/server/internal/infra"
)

// State is a job's position in its lifecycle:
//
//	Pending -> InFlight -> Succeeded | Retrying | Failed
//	Retrying -> InFlight after a backoff delay
//
// Succeeded, Failed and Cancelled are terminal.
type State string

const (
	StatePending   State = "pending"
	StateInFlight  State = "in_flight"
	StateRetrying  State = "retrying"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Terminal reports whether the state admits no further transitions.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateCancelled
}

// Job is the queue's unit of work. Payload is opaque to the queue; the
// dispatcher interprets it.
type Job struct {
	ID            string
	Payload       json.RawMessage
	State         State
	Attempts      int
	EnqueuedAt    time.Time
	NextAttemptAt time.Time
	Error         string

	bo *backoff.ExponentialBackOff
}

// Snapshot is the caller-facing view of a job: state plus the position/ETA
// readout ("job X of Y, ~N remaining").
type Snapshot struct {
	ID       string
	State    State
	Position int
	Depth    int
	ETA      time.Duration
	Attempts int
	Error    string
}

// Dispatcher performs the external generation call for one job. It must
// return an error wrapping domain.ErrRateLimited when the provider applied
// rate limiting, so the queue can back off instead of failing the job.
type Dispatcher interface {
	Dispatch(ctx context.Context, job Job) error
}

const (
	defaultMinSpacing     = 2 * time.Second
	defaultBackoffInitial = 5 * time.Second
	defaultMaxRetries     = 3
	defaultJobDuration    = 30 * time.Second
)

// Option customizes queue behavior.
type Option func(*Queue)

// WithClock substitutes the wall clock, for tests.
func WithClock(c Clock) Option { return func(q *Queue) { q.clock = c } }

// WithMinSpacing sets the minimum interval between dispatch starts.
func WithMinSpacing(d time.Duration) Option { return func(q *Queue) { q.minSpacing = d } }

// WithMaxRetries sets the rate-limit retry budget per job.
func WithMaxRetries(n int) Option { return func(q *Queue) { q.maxRetries = n } }

// WithBackoffInitial sets the first retry delay; subsequent delays double.
func WithBackoffInitial(d time.Duration) Option { return func(q *Queue) { q.backoffInitial = d } }

// Queue is the in-memory generation queue. It survives for the lifetime of
// the process only; enqueued jobs do not outlive a restart.
type Queue struct {
	dispatcher     Dispatcher
	logger         infra.Logger
	clock          Clock
	minSpacing     time.Duration
	backoffInitial time.Duration
	maxRetries     int

	mu            sync.Mutex
	jobs          map[string]*Job
	pending       []*Job
	inFlight      *Job
	lastDispatch  time.Time
	hasDispatched bool
	totalDuration time.Duration
	completed     int

	wake chan struct{}
}

// New constructs a queue draining into dispatcher. Run must be started for
// jobs to make progress.
func New(dispatcher Dispatcher, logger infra.Logger, opts ...Option) *Queue {
	q := &Queue{
		dispatcher:     dispatcher,
		logger:         logger,
		clock:          SystemClock,
		minSpacing:     defaultMinSpacing,
		backoffInitial: defaultBackoffInitial,
		maxRetries:     defaultMaxRetries,
		jobs:           make(map[string]*Job),
		wake:           make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue appends a job and returns its initial snapshot.
func (q *Queue) Enqueue(payload json.RawMessage) Snapshot {
	q.mu.Lock()
	job := &Job{
		ID:         uuid.NewString(),
		Payload:    append(json.RawMessage(nil), payload...),
		State:      StatePending,
		EnqueuedAt: q.clock.Now(),
	}
	q.jobs[job.ID] = job
	q.pending = append(q.pending, job)
	snap := q.snapshotLocked(job)
	q.mu.Unlock()

	q.logger.Info().Str("job_id", snap.ID).Int("position", snap.Position).Msg("genqueue: enqueued")
	q.poke()
	return snap
}

// Status returns the current snapshot for a job.
func (q *Queue) Status(jobID string) (Snapshot, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[jobID]
	if !ok {
		return Snapshot{}, domain.ErrNotFound
	}
	return q.snapshotLocked(job), nil
}

// Cancel removes a job that has not started yet. Jobs that are in flight or
// retrying have already been dispatched once and cannot be cancelled.
func (q *Queue) Cancel(jobID string) error {
	defer q.poke()
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	if job.State != StatePending {
		return domain.ErrJobNotPending
	}
	for i, p := range q.pending {
		if p.ID == jobID {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			break
		}
	}
	job.State = StateCancelled
	q.logger.Info().Str("job_id", jobID).Msg("genqueue: cancelled")
	return nil
}

// Run drains the queue until ctx is cancelled. It must be called exactly
// once; the queue has no parallel workers.
func (q *Queue) Run(ctx context.Context) error {
	q.logger.Info().Msg("genqueue: worker started")
	for {
		job, wait := q.claim()
		if job == nil {
			var timer <-chan time.Time
			if wait > 0 {
				timer = q.clock.After(wait)
			}
			select {
			case <-ctx.Done():
				q.logger.Info().Msg("genqueue: worker stopped")
				return ctx.Err()
			case <-q.wake:
			case <-timer:
			}
			continue
		}
		q.dispatch(ctx, job)
	}
}

// claim pops the head job if it is eligible now, or reports how long the
// worker should wait. A nil job with zero wait means the queue is idle.
func (q *Queue) claim() (*Job, time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return nil, 0
	}
	head := q.pending[0]
	now := q.clock.Now()

	notBefore := head.NextAttemptAt
	if q.hasDispatched {
		if spaced := q.lastDispatch.Add(q.minSpacing); spaced.After(notBefore) {
			notBefore = spaced
		}
	}
	if now.Before(notBefore) {
		return nil, notBefore.Sub(now)
	}

	q.pending = q.pending[1:]
	head.State = StateInFlight
	head.Attempts++
	q.inFlight = head
	q.lastDispatch = now
	q.hasDispatched = true
	return head, 0
}

func (q *Queue) dispatch(ctx context.Context, job *Job) {
	start := q.clock.Now()
	err := q.dispatcher.Dispatch(ctx, *job)
	elapsed := q.clock.Now().Sub(start)

	q.mu.Lock()
	defer q.mu.Unlock()
	q.inFlight = nil

	switch {
	case err == nil:
		job.State = StateSucceeded
		job.Error = ""
		q.totalDuration += elapsed
		q.completed++
		q.logger.Info().
			Str("job_id", job.ID).
			Dur("duration", elapsed).
			Msg("genqueue: job succeeded")

	case errors.Is(err, domain.ErrRateLimited):
		if job.Attempts <= q.maxRetries {
			delay := job.nextBackoff(q.backoffInitial)
			job.State = StateRetrying
			job.NextAttemptAt = q.clock.Now().Add(delay)
			q.pending = append([]*Job{job}, q.pending...)
			q.logger.Warn().
				Str("job_id", job.ID).
				Int("attempt", job.Attempts).
				Dur("retry_in", delay).
				Msg("genqueue: rate limited, backing off")
		} else {
			job.State = StateFailed
			job.Error = "generation service stayed rate limited after retries"
			q.logger.Error().
				Str("job_id", job.ID).
				Int("attempts", job.Attempts).
				Msg("genqueue: retry budget exhausted")
		}

	default:
		job.State = StateFailed
		job.Error = err.Error()
		q.logger.Error().Err(err).Str("job_id", job.ID).Msg("genqueue: job failed")
	}
}

func (j *Job) nextBackoff(initial time.Duration) time.Duration {
	if j.bo == nil {
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = initial
		bo.RandomizationFactor = 0
		bo.Multiplier = 2
		bo.MaxInterval = time.Hour
		j.bo = bo
	}
	return j.bo.NextBackOff()
}

// snapshotLocked computes position and ETA. Callers must hold q.mu.
func (q *Queue) snapshotLocked(job *Job) Snapshot {
	snap := Snapshot{
		ID:       job.ID,
		State:    job.State,
		Attempts: job.Attempts,
		Error:    job.Error,
	}
	depth := len(q.pending)
	if q.inFlight != nil {
		depth++
	}
	snap.Depth = depth

	if job.State.Terminal() {
		return snap
	}

	switch job.State {
	case StateInFlight:
		snap.Position = 1
		snap.ETA = q.averageLocked()
	default:
		ahead := 0
		if q.inFlight != nil {
			ahead++
		}
		for i, p := range q.pending {
			if p.ID == job.ID {
				ahead += i
				break
			}
		}
		snap.Position = ahead + 1
		snap.ETA = time.Duration(snap.Position) * q.averageLocked()
	}
	return snap
}

// averageLocked is the observed mean per-job duration, floored at the
// dispatch spacing, with a fixed estimate before any job has completed.
func (q *Queue) averageLocked() time.Duration {
	if q.completed == 0 {
		return defaultJobDuration
	}
	avg := q.totalDuration / time.Duration(q.completed)
	if avg < q.minSpacing {
		avg = q.minSpacing
	}
	return avg
}

func (q *Queue) poke() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
