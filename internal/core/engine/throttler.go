package engine

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/stacman/stacman/internal/core"
)

// Proceed is the ShouldWait answer that admits a request immediately.
const Proceed time.Duration = 0

// Default global budget: 30 requests per rolling 30 second window.
const (
	DefaultWindowLimit    = 30
	DefaultWindowDuration = 30 * time.Second
)

// Logger is the structured logging surface used by the engine. Both
// *zap.Logger and the gofulmen CLI/server loggers satisfy it.
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
}

// ThrottleStore persists throttle state between processes.
type ThrottleStore interface {
	LoadThrottleState(ctx context.Context) (*core.ThrottleState, error)
	SaveThrottleState(ctx context.Context, state *core.ThrottleState) error
}

// BackoffSignal is anything that can carry a server backoff instruction.
type BackoffSignal interface {
	BackoffDuration() time.Duration
}

// Throttler decides whether a request may go out now. It combines a global
// rolling window with per-key backoff deadlines issued by the server.
type Throttler struct {
	mu       sync.Mutex
	window   rateWindow
	backoffs *backoffRegistry

	limit    int
	margin   float64
	duration time.Duration
	enabled  atomic.Bool

	clock  func() time.Time
	store  ThrottleStore
	logger Logger
}

// ThrottlerOption configures a Throttler.
type ThrottlerOption func(*Throttler)

// WithClock overrides the time source.
func WithClock(clock func() time.Time) ThrottlerOption {
	return func(t *Throttler) {
		if clock != nil {
			t.clock = clock
		}
	}
}

// WithWindow overrides the global budget. Non-positive values keep defaults.
func WithWindow(limit int, duration time.Duration) ThrottlerOption {
	return func(t *Throttler) {
		if limit > 0 {
			t.limit = limit
		}
		if duration > 0 {
			t.duration = duration
		}
	}
}

// WithSafetyMargin scales the window limit by a ratio in (0, 1]. The
// adjusted limit never drops below one request.
func WithSafetyMargin(margin float64) ThrottlerOption {
	return func(t *Throttler) {
		if margin <= 0 || margin > 1 {
			return
		}
		t.margin = margin
	}
}

// WithThrottleStore enables Restore and Flush.
func WithThrottleStore(store ThrottleStore) ThrottlerOption {
	return func(t *Throttler) {
		t.store = store
	}
}

// WithThrottleLogger sets the logger.
func WithThrottleLogger(logger Logger) ThrottlerOption {
	return func(t *Throttler) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewThrottler returns an enabled throttler with the default budget.
func NewThrottler(opts ...ThrottlerOption) *Throttler {
	t := &Throttler{
		backoffs: newBackoffRegistry(),
		limit:    DefaultWindowLimit,
		duration: DefaultWindowDuration,
		clock:    func() time.Time { return time.Now().UTC() },
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}

	t.enabled.Store(true)
	t.window.start = t.now()
	return t
}

// ShouldWait returns Proceed when the request is admitted, counting it
// against the window, or a positive duration to sleep before asking again.
func (t *Throttler) ShouldWait(backoffKey string) time.Duration {
	if !t.Enabled() {
		return Proceed
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.window.expire(now, t.duration)

	if t.window.count >= t.effectiveLimit() {
		wait := t.duration - now.Sub(t.window.start)
		if wait > t.duration {
			wait = t.duration
		}
		return atLeastMillisecond(wait)
	}

	if wait := t.backoffs.remaining(backoffKey, now); wait > 0 {
		return atLeastMillisecond(ceilMillisecond(wait))
	}

	t.window.count++
	return Proceed
}

// RecordBackoff stores the cool-down carried by a parsed response for the
// given key. Absent, zero or negative backoffs leave the registry untouched.
func (t *Throttler) RecordBackoff(signal BackoffSignal, backoffKey string) {
	if signal == nil {
		return
	}

	backoff := signal.BackoffDuration()
	if backoff <= 0 {
		return
	}

	notBefore := t.now().Add(backoff)
	t.backoffs.set(backoffKey, notBefore)

	t.logger.Info("Server requested backoff",
		zap.String("backoff_key", backoffKey),
		zap.Duration("backoff", backoff),
		zap.Time("not_before", notBefore))
}

// SetEnabled toggles enforcement. When disabled ShouldWait always proceeds.
func (t *Throttler) SetEnabled(enabled bool) {
	t.enabled.Store(enabled)
}

// Enabled reports whether enforcement is on.
func (t *Throttler) Enabled() bool {
	return t.enabled.Load()
}

// Restore loads persisted state. It is a no-op without a store or when the
// store has nothing saved.
func (t *Throttler) Restore(ctx context.Context) error {
	if t.store == nil {
		return nil
	}

	state, err := t.store.LoadThrottleState(ctx)
	if err != nil {
		return err
	}
	if state == nil {
		return nil
	}

	t.mu.Lock()
	if !state.WindowStart.IsZero() {
		t.window = rateWindow{start: state.WindowStart, count: state.RequestCount}
	}
	t.mu.Unlock()

	t.backoffs.load(state.Backoffs)

	t.logger.Debug("Restored throttle state",
		zap.Int("request_count", state.RequestCount),
		zap.Time("window_start", state.WindowStart),
		zap.Int("backoffs", len(state.Backoffs)))
	return nil
}

// Flush saves the current window and the backoffs that still apply.
func (t *Throttler) Flush(ctx context.Context) error {
	if t.store == nil {
		return nil
	}

	t.mu.Lock()
	now := t.now()
	state := &core.ThrottleState{
		RequestCount: t.window.count,
		WindowStart:  t.window.start,
		Backoffs:     t.backoffs.active(now),
	}
	t.mu.Unlock()

	return t.store.SaveThrottleState(ctx, state)
}

// Limit returns the effective window limit after the safety margin.
func (t *Throttler) Limit() int {
	return t.effectiveLimit()
}

// WindowDuration returns the window length.
func (t *Throttler) WindowDuration() time.Duration {
	return t.duration
}

// Snapshot returns the current window and the backoffs that still apply.
func (t *Throttler) Snapshot() core.ThrottleState {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.window.expire(now, t.duration)
	return core.ThrottleState{
		RequestCount: t.window.count,
		WindowStart:  t.window.start,
		Backoffs:     t.backoffs.active(now),
	}
}

// ClearBackoffs drops in-memory backoffs whose key starts with prefix. An
// empty prefix clears everything. It returns the number removed.
func (t *Throttler) ClearBackoffs(prefix string) int {
	return t.backoffs.clear(prefix)
}

func (t *Throttler) effectiveLimit() int {
	if t.margin <= 0 || t.margin >= 1 {
		return t.limit
	}
	adjusted := int(math.Floor(float64(t.limit) * t.margin))
	if adjusted < 1 {
		adjusted = 1
	}
	return adjusted
}

func (t *Throttler) now() time.Time {
	if t != nil && t.clock != nil {
		return t.clock()
	}
	return time.Now().UTC()
}

// rateWindow counts admissions in a fixed window that resets wholesale.
type rateWindow struct {
	start time.Time
	count int
}

func (w *rateWindow) expire(now time.Time, duration time.Duration) {
	if now.Sub(w.start) > duration {
		w.count = 0
		w.start = now
	}
}

// backoffRegistry maps backoff keys to "not before" deadlines. Entries are
// overwritten, never removed; stale ones simply stop applying.
type backoffRegistry struct {
	mu        sync.Mutex
	notBefore map[string]time.Time
}

func newBackoffRegistry() *backoffRegistry {
	return &backoffRegistry{notBefore: make(map[string]time.Time)}
}

func (r *backoffRegistry) remaining(key string, now time.Time) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	until, ok := r.notBefore[key]
	if !ok || !until.After(now) {
		return 0
	}
	return until.Sub(now)
}

func (r *backoffRegistry) set(key string, notBefore time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notBefore[key] = notBefore
}

func (r *backoffRegistry) load(entries []core.BackoffEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range entries {
		if entry.Key == "" {
			continue
		}
		if current, ok := r.notBefore[entry.Key]; ok && current.After(entry.NotBefore) {
			continue
		}
		r.notBefore[entry.Key] = entry.NotBefore
	}
}

func (r *backoffRegistry) active(now time.Time) []core.BackoffEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := make([]core.BackoffEntry, 0, len(r.notBefore))
	for key, until := range r.notBefore {
		if until.After(now) {
			entries = append(entries, core.BackoffEntry{Key: key, NotBefore: until})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}

func (r *backoffRegistry) clear(prefix string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for key := range r.notBefore {
		if strings.HasPrefix(key, prefix) {
			delete(r.notBefore, key)
			removed++
		}
	}
	return removed
}

func atLeastMillisecond(d time.Duration) time.Duration {
	if d < time.Millisecond {
		return time.Millisecond
	}
	return d
}

func ceilMillisecond(d time.Duration) time.Duration {
	if rem := d % time.Millisecond; rem != 0 {
		return d - rem + time.Millisecond
	}
	return d
}
