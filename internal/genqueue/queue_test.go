package genqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"framd/server/internal/domain"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// fakeClock drives the queue without wall-clock waits. After registers a
// waiter that Advance fires once enough simulated time has passed.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []clockWaiter
}

type clockWaiter struct {
	deadline time.Time
	ch       chan time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- c.now
		return ch
	}
	c.waiters = append(c.waiters, clockWaiter{deadline: c.now.Add(d), ch: ch})
	return ch
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	remaining := c.waiters[:0]
	for _, w := range c.waiters {
		if !w.deadline.After(c.now) {
			w.ch <- c.now
			continue
		}
		remaining = append(remaining, w)
	}
	c.waiters = remaining
}

// blockUntilWaiters waits until the queue worker has registered at least n
// pending timers, so Advance cannot race ahead of After.
func (c *fakeClock) blockUntilWaiters(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		count := len(c.waiters)
		c.mu.Unlock()
		if count >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d clock waiters", n)
}

type scriptedDispatcher struct {
	mu      sync.Mutex
	clock   *fakeClock
	results []error
	calls   int
	starts  []time.Time
	started chan struct{}
}

func newScriptedDispatcher(clock *fakeClock, results ...error) *scriptedDispatcher {
	return &scriptedDispatcher{
		clock:   clock,
		results: results,
		started: make(chan struct{}, 64),
	}
}

func (d *scriptedDispatcher) Dispatch(_ context.Context, _ Job) error {
	d.mu.Lock()
	d.starts = append(d.starts, d.clock.Now())
	var err error
	if d.calls < len(d.results) {
		err = d.results[d.calls]
	}
	d.calls++
	d.mu.Unlock()
	d.started <- struct{}{}
	return err
}

func (d *scriptedDispatcher) startTimes() []time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]time.Time(nil), d.starts...)
}

func waitDispatch(t *testing.T, d *scriptedDispatcher) {
	t.Helper()
	select {
	case <-d.started:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for a dispatch")
	}
}

func waitState(t *testing.T, q *Queue, jobID string, want State) Snapshot {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := q.Status(jobID)
		require.NoError(t, err)
		if snap.State == want {
			return snap
		}
		time.Sleep(time.Millisecond)
	}
	snap, _ := q.Status(jobID)
	t.Fatalf("job %s never reached %s, last state %s", jobID, want, snap.State)
	return Snapshot{}
}

func TestQueueEnforcesMinimumSpacing(t *testing.T) {
	clock := newFakeClock()
	dispatcher := newScriptedDispatcher(clock)
	q := New(dispatcher, testLogger(), WithClock(clock))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = q.Run(ctx) }()

	var ids []string
	for i := 0; i < 3; i++ {
		snap := q.Enqueue(json.RawMessage(fmt.Sprintf(`{"n":%d}`, i)))
		ids = append(ids, snap.ID)
	}

	waitDispatch(t, dispatcher)
	for i := 0; i < 2; i++ {
		clock.blockUntilWaiters(t, 1)
		clock.Advance(2 * time.Second)
		waitDispatch(t, dispatcher)
	}

	waitState(t, q, ids[2], StateSucceeded)

	starts := dispatcher.startTimes()
	require.Len(t, starts, 3)
	for i := 1; i < len(starts); i++ {
		gap := starts[i].Sub(starts[i-1])
		assert.GreaterOrEqual(t, gap, 2*time.Second,
			"dispatch %d started %s after the previous one", i, gap)
	}
}

func TestQueueBackoffScheduleOnRateLimit(t *testing.T) {
	clock := newFakeClock()
	rl := fmt.Errorf("generation api: %w", domain.ErrRateLimited)
	dispatcher := newScriptedDispatcher(clock, rl, rl, rl, rl)
	q := New(dispatcher, testLogger(), WithClock(clock))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = q.Run(ctx) }()

	snap := q.Enqueue(json.RawMessage(`{"prompt":"clip"}`))

	waitDispatch(t, dispatcher)

	// While the backoff timer runs the job reports Retrying.
	clock.blockUntilWaiters(t, 1)
	retrying, err := q.Status(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, StateRetrying, retrying.State)

	for _, delay := range []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second} {
		clock.blockUntilWaiters(t, 1)
		clock.Advance(delay)
		waitDispatch(t, dispatcher)
	}

	final := waitState(t, q, snap.ID, StateFailed)
	assert.Equal(t, 4, final.Attempts)
	assert.NotEmpty(t, final.Error)

	starts := dispatcher.startTimes()
	require.Len(t, starts, 4)
	want := []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second}
	for i, delay := range want {
		assert.Equal(t, delay, starts[i+1].Sub(starts[i]),
			"retry %d should come after %s", i+1, delay)
	}
}

func TestQueueNonRateLimitErrorFailsImmediately(t *testing.T) {
	clock := newFakeClock()
	dispatcher := newScriptedDispatcher(clock, fmt.Errorf("provider rejected payload"))
	q := New(dispatcher, testLogger(), WithClock(clock))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = q.Run(ctx) }()

	snap := q.Enqueue(json.RawMessage(`{}`))
	waitDispatch(t, dispatcher)

	final := waitState(t, q, snap.ID, StateFailed)
	assert.Equal(t, 1, final.Attempts)
	assert.Equal(t, "provider rejected payload", final.Error)
}

func TestQueuePositionsAndDefaultETA(t *testing.T) {
	// No worker: jobs stay pending so the readout is deterministic.
	q := New(newScriptedDispatcher(newFakeClock()), testLogger(), WithClock(newFakeClock()))

	first := q.Enqueue(json.RawMessage(`{}`))
	second := q.Enqueue(json.RawMessage(`{}`))
	third := q.Enqueue(json.RawMessage(`{}`))

	s1, err := q.Status(first.ID)
	require.NoError(t, err)
	s2, err := q.Status(second.ID)
	require.NoError(t, err)
	s3, err := q.Status(third.ID)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, []int{s1.Position, s2.Position, s3.Position})
	assert.Equal(t, 3, s3.Depth)
	assert.Equal(t, 3*defaultJobDuration, s3.ETA)

	// Cancelling a pending job shifts everything behind it forward.
	require.NoError(t, q.Cancel(second.ID))
	s3, err = q.Status(third.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, s3.Position)

	cancelled, err := q.Status(second.ID)
	require.NoError(t, err)
	assert.Equal(t, StateCancelled, cancelled.State)
	assert.Zero(t, cancelled.Position)
}

func TestQueueETAUsesObservedAverage(t *testing.T) {
	q := New(newScriptedDispatcher(newFakeClock()), testLogger(), WithClock(newFakeClock()))
	q.totalDuration = 8 * time.Second
	q.completed = 2

	q.Enqueue(json.RawMessage(`{}`))
	second := q.Enqueue(json.RawMessage(`{}`))

	snap, err := q.Status(second.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Position)
	assert.Equal(t, 8*time.Second, snap.ETA, "position 2 x 4s observed average")
}

func TestQueueCancelRules(t *testing.T) {
	clock := newFakeClock()
	started := make(chan string, 1)
	release := make(chan struct{})
	q := New(dispatcherFunc(func(_ context.Context, job Job) error {
		started <- job.ID
		<-release
		return nil
	}), testLogger(), WithClock(clock))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = q.Run(ctx) }()

	snap := q.Enqueue(json.RawMessage(`{}`))

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job never started")
	}

	// In flight: the external call has no cancellation mechanism.
	assert.ErrorIs(t, q.Cancel(snap.ID), domain.ErrJobNotPending)

	close(release)
	waitState(t, q, snap.ID, StateSucceeded)
	assert.ErrorIs(t, q.Cancel(snap.ID), domain.ErrJobNotPending)

	assert.ErrorIs(t, q.Cancel("missing"), domain.ErrNotFound)
}

type dispatcherFunc func(ctx context.Context, job Job) error

func (f dispatcherFunc) Dispatch(ctx context.Context, job Job) error { return f(ctx, job) }
