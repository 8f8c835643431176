package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stacman/stacman/internal/core"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type staticBackoff time.Duration

func (s staticBackoff) BackoffDuration() time.Duration { return time.Duration(s) }

type memoryThrottleStore struct {
	state *core.ThrottleState
}

func (m *memoryThrottleStore) LoadThrottleState(ctx context.Context) (*core.ThrottleState, error) {
	return m.state, nil
}

func (m *memoryThrottleStore) SaveThrottleState(ctx context.Context, state *core.ThrottleState) error {
	m.state = state
	return nil
}

func TestThrottlerWindowLimit(t *testing.T) {
	clock := newFakeClock()
	throttler := NewThrottler(WithClock(clock.Now))

	for i := 0; i < DefaultWindowLimit; i++ {
		require.Equal(t, Proceed, throttler.ShouldWait("questions"), "request %d", i+1)
	}

	clock.Advance(10 * time.Second)
	wait := throttler.ShouldWait("questions")
	require.Equal(t, 20*time.Second, wait)
	require.Equal(t, DefaultWindowLimit, throttler.Snapshot().RequestCount)
}

func TestThrottlerConcurrentCallersFillWindowExactly(t *testing.T) {
	clock := newFakeClock()
	throttler := NewThrottler(WithClock(clock.Now))

	var admitted atomic.Int64
	var wg sync.WaitGroup
	for range 200 {
		wg.Go(func() {
			if throttler.ShouldWait("questions") == Proceed {
				admitted.Add(1)
			}
		})
	}
	wg.Wait()

	require.Equal(t, int64(DefaultWindowLimit), admitted.Load())
	require.Equal(t, DefaultWindowLimit, throttler.Snapshot().RequestCount)
	require.Positive(t, throttler.ShouldWait("questions"))
}

func TestThrottlerConcurrentBackoffsAndAdmissions(t *testing.T) {
	clock := newFakeClock()
	throttler := NewThrottler(WithClock(clock.Now))

	var admitted atomic.Int64
	var wg sync.WaitGroup
	for range 100 {
		wg.Go(func() { throttler.RecordBackoff(staticBackoff(5*time.Second), "users") })
		wg.Go(func() {
			if throttler.ShouldWait("questions") == Proceed {
				admitted.Add(1)
			}
		})
		wg.Go(func() {
			if throttler.ShouldWait("users") == Proceed {
				admitted.Add(1)
			}
		})
	}
	wg.Wait()

	require.Equal(t, int64(DefaultWindowLimit), admitted.Load())
	require.Equal(t, DefaultWindowLimit, throttler.Snapshot().RequestCount)

	backoffs := throttler.Snapshot().Backoffs
	require.Len(t, backoffs, 1)
	require.Equal(t, "users", backoffs[0].Key)
	require.Equal(t, clock.Now().Add(5*time.Second), backoffs[0].NotBefore)
}

func TestThrottlerWindowWaitNeverBelowMillisecond(t *testing.T) {
	clock := newFakeClock()
	throttler := NewThrottler(WithClock(clock.Now), WithWindow(1, time.Second))

	require.Equal(t, Proceed, throttler.ShouldWait("users"))

	clock.Advance(time.Second)
	require.Equal(t, time.Millisecond, throttler.ShouldWait("users"))
}

func TestThrottlerWindowReset(t *testing.T) {
	clock := newFakeClock()
	throttler := NewThrottler(WithClock(clock.Now))

	for i := 0; i < DefaultWindowLimit; i++ {
		require.Equal(t, Proceed, throttler.ShouldWait("sites"))
	}
	require.Greater(t, throttler.ShouldWait("sites"), Proceed)

	clock.Advance(DefaultWindowDuration + time.Millisecond)
	require.Equal(t, Proceed, throttler.ShouldWait("sites"))

	snapshot := throttler.Snapshot()
	require.Equal(t, 1, snapshot.RequestCount)
	require.Equal(t, clock.Now(), snapshot.WindowStart)
}

func TestThrottlerBackoff(t *testing.T) {
	clock := newFakeClock()
	throttler := NewThrottler(WithClock(clock.Now))

	throttler.RecordBackoff(staticBackoff(time.Second), "questions")
	clock.Advance(500 * time.Millisecond)

	require.Equal(t, 500*time.Millisecond, throttler.ShouldWait("questions"))
	require.Equal(t, Proceed, throttler.ShouldWait("users"))

	clock.Advance(500 * time.Millisecond)
	require.Equal(t, Proceed, throttler.ShouldWait("questions"))
}

func TestThrottlerBackoffRoundsUp(t *testing.T) {
	clock := newFakeClock()
	throttler := NewThrottler(WithClock(clock.Now))

	throttler.RecordBackoff(staticBackoff(time.Second), "info")
	clock.Advance(999*time.Millisecond + 999*time.Microsecond)

	require.Equal(t, time.Millisecond, throttler.ShouldWait("info"))
}

func TestThrottlerBackoffDoesNotCountAgainstWindow(t *testing.T) {
	clock := newFakeClock()
	throttler := NewThrottler(WithClock(clock.Now))

	throttler.RecordBackoff(staticBackoff(5*time.Second), "questions")
	require.Greater(t, throttler.ShouldWait("questions"), Proceed)
	require.Equal(t, 0, throttler.Snapshot().RequestCount)
}

func TestThrottlerRecordBackoffIgnoresEmptySignals(t *testing.T) {
	clock := newFakeClock()
	throttler := NewThrottler(WithClock(clock.Now))

	throttler.RecordBackoff(staticBackoff(0), "questions")
	throttler.RecordBackoff(staticBackoff(-time.Second), "questions")
	throttler.RecordBackoff(nil, "questions")
	var envelope *core.Envelope[map[string]any]
	throttler.RecordBackoff(envelope, "questions")

	require.Equal(t, Proceed, throttler.ShouldWait("questions"))
	require.Empty(t, throttler.Snapshot().Backoffs)
}

func TestThrottlerRecordBackoffFromEnvelope(t *testing.T) {
	clock := newFakeClock()
	throttler := NewThrottler(WithClock(clock.Now))

	seconds := 5
	throttler.RecordBackoff(&core.Envelope[map[string]any]{Backoff: &seconds}, "users")

	snapshot := throttler.Snapshot()
	require.Len(t, snapshot.Backoffs, 1)
	require.Equal(t, "users", snapshot.Backoffs[0].Key)
	require.Equal(t, clock.Now().Add(5*time.Second), snapshot.Backoffs[0].NotBefore)
}

func TestThrottlerDisabled(t *testing.T) {
	clock := newFakeClock()
	throttler := NewThrottler(WithClock(clock.Now), WithWindow(1, time.Minute))
	throttler.RecordBackoff(staticBackoff(time.Hour), "questions")
	throttler.SetEnabled(false)

	for i := 0; i < 100; i++ {
		require.Equal(t, Proceed, throttler.ShouldWait("questions"))
	}
	require.False(t, throttler.Enabled())

	throttler.SetEnabled(true)
	require.Greater(t, throttler.ShouldWait("questions"), Proceed)
}

func TestThrottlerSafetyMargin(t *testing.T) {
	throttler := NewThrottler(WithSafetyMargin(0.9))
	require.Equal(t, 27, throttler.Limit())

	throttler = NewThrottler(WithWindow(1, time.Second), WithSafetyMargin(0.1))
	require.Equal(t, 1, throttler.Limit())

	throttler = NewThrottler(WithSafetyMargin(1.5))
	require.Equal(t, DefaultWindowLimit, throttler.Limit())
}

func TestThrottlerClearBackoffs(t *testing.T) {
	clock := newFakeClock()
	throttler := NewThrottler(WithClock(clock.Now))
	throttler.RecordBackoff(staticBackoff(time.Minute), "questions")
	throttler.RecordBackoff(staticBackoff(time.Minute), "questions/answers")
	throttler.RecordBackoff(staticBackoff(time.Minute), "users")

	require.Equal(t, 2, throttler.ClearBackoffs("questions"))
	require.Equal(t, Proceed, throttler.ShouldWait("questions/answers"))
	require.Greater(t, throttler.ShouldWait("users"), Proceed)

	require.Equal(t, 1, throttler.ClearBackoffs(""))
	require.Empty(t, throttler.Snapshot().Backoffs)
}

func TestThrottlerFlushAndRestore(t *testing.T) {
	clock := newFakeClock()
	store := &memoryThrottleStore{}
	first := NewThrottler(WithClock(clock.Now), WithThrottleStore(store))

	for i := 0; i < 5; i++ {
		require.Equal(t, Proceed, first.ShouldWait("questions"))
	}
	first.RecordBackoff(staticBackoff(10*time.Second), "users")
	first.RecordBackoff(staticBackoff(time.Second), "sites")
	clock.Advance(2 * time.Second)
	require.NoError(t, first.Flush(context.Background()))

	require.NotNil(t, store.state)
	require.Equal(t, 5, store.state.RequestCount)
	require.Len(t, store.state.Backoffs, 1)

	second := NewThrottler(WithClock(clock.Now), WithThrottleStore(store))
	require.NoError(t, second.Restore(context.Background()))
	require.Equal(t, 5, second.Snapshot().RequestCount)
	require.Equal(t, 8*time.Second, second.ShouldWait("users"))
}

func TestThrottlerRestoreWithoutStore(t *testing.T) {
	throttler := NewThrottler()
	require.NoError(t, throttler.Restore(context.Background()))
	require.NoError(t, throttler.Flush(context.Background()))
}
