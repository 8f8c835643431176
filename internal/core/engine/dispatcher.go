package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stacman/stacman/internal/core"
	"github.com/stacman/stacman/internal/core/response"
	"github.com/stacman/stacman/internal/metrics"
)

// Dispatcher defaults.
const (
	DefaultMaxConcurrent  = 10
	DefaultRequestTimeout = 5 * time.Second
)

// ErrDispatcherClosed is the failure of tasks submitted after Close.
var ErrDispatcherClosed = errors.New("dispatcher is closed")

// Fetcher performs the network call for a task.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Dispatcher runs fetch tasks on a bounded pool of worker goroutines.
// Submitting never blocks; tasks beyond the pool size wait in an unbounded
// FIFO queue.
type Dispatcher struct {
	throttler *Throttler
	fetcher   Fetcher
	logger    Logger
	sleep     func(time.Duration)
	clock     func() time.Time

	maxConcurrent atomic.Int64
	timeout       atomic.Int64
	inFlight      atomic.Int64

	mu      sync.Mutex
	queue   []func()
	workers int
	closed  bool
	wg      sync.WaitGroup
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithMaxConcurrent sets the worker pool size.
func WithMaxConcurrent(n int) DispatcherOption {
	return func(d *Dispatcher) {
		d.SetMaxConcurrent(n)
	}
}

// WithRequestTimeout bounds each fetch.
func WithRequestTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.SetRequestTimeout(timeout)
	}
}

// WithSleep replaces time.Sleep in the throttle wait loop.
func WithSleep(sleep func(time.Duration)) DispatcherOption {
	return func(d *Dispatcher) {
		if sleep != nil {
			d.sleep = sleep
		}
	}
}

// WithDispatcherLogger sets the logger.
func WithDispatcherLogger(logger Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithDispatcherClock overrides the time source used for task timings.
func WithDispatcherClock(clock func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		if clock != nil {
			d.clock = clock
		}
	}
}

// NewDispatcher wires a throttler and fetcher into a worker pool.
func NewDispatcher(throttler *Throttler, fetcher Fetcher, opts ...DispatcherOption) *Dispatcher {
	if throttler == nil {
		throttler = NewThrottler()
	}

	d := &Dispatcher{
		throttler: throttler,
		fetcher:   fetcher,
		logger:    zap.NewNop(),
		sleep:     time.Sleep,
		clock:     func() time.Time { return time.Now().UTC() },
	}
	d.maxConcurrent.Store(DefaultMaxConcurrent)
	d.timeout.Store(int64(DefaultRequestTimeout))

	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Submit queues a task and returns a future for its result. The payload
// shape is T.
func Submit[T any](d *Dispatcher, task core.FetchTask) *Future[T] {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}

	future := newFuture[T](task.ID)
	if d == nil {
		future.resolve(core.Failure[T](errors.New("dispatcher is not configured")))
		return future
	}

	accepted := d.enqueue(func() {
		future.resolve(execute[T](d, task))
	})
	if !accepted {
		future.resolve(core.Failure[T](ErrDispatcherClosed))
	}
	return future
}

// SetMaxConcurrent changes the pool size. Values below one are ignored.
// Running workers above the new size retire after their current task; a
// larger size starts workers for tasks already queued.
func (d *Dispatcher) SetMaxConcurrent(n int) {
	if n < 1 {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.maxConcurrent.Store(int64(n))
	if d.closed {
		return
	}
	for range min(n-d.workers, len(d.queue)) {
		d.startWorker()
	}
}

// MaxConcurrent returns the pool size.
func (d *Dispatcher) MaxConcurrent() int {
	return int(d.maxConcurrent.Load())
}

// SetRequestTimeout changes the per-fetch timeout for tasks that have not
// started fetching yet. Non-positive values are ignored.
func (d *Dispatcher) SetRequestTimeout(timeout time.Duration) {
	if timeout <= 0 {
		return
	}
	d.timeout.Store(int64(timeout))
}

// RequestTimeout returns the per-fetch timeout.
func (d *Dispatcher) RequestTimeout() time.Duration {
	return time.Duration(d.timeout.Load())
}

// SetRespectBackoffs toggles rate and backoff enforcement.
func (d *Dispatcher) SetRespectBackoffs(enabled bool) {
	d.throttler.SetEnabled(enabled)
}

// RespectBackoffs reports whether enforcement is on.
func (d *Dispatcher) RespectBackoffs() bool {
	return d.throttler.Enabled()
}

// Throttler exposes the shared throttler.
func (d *Dispatcher) Throttler() *Throttler {
	return d.throttler
}

// InFlight returns the number of admitted tasks that have not finished.
func (d *Dispatcher) InFlight() int {
	return int(d.inFlight.Load())
}

// Queued returns the number of tasks waiting for a worker.
func (d *Dispatcher) Queued() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Close stops accepting tasks and waits for queued ones to finish or for
// ctx to expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("dispatcher close: %w", ctx.Err())
	}
}

func (d *Dispatcher) enqueue(job func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return false
	}

	d.queue = append(d.queue, job)
	if d.workers < d.MaxConcurrent() {
		d.startWorker()
	}
	return true
}

// startWorker must be called with d.mu held.
func (d *Dispatcher) startWorker() {
	d.workers++
	d.wg.Add(1)
	go d.work()
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for {
		job, ok := d.next()
		if !ok {
			return
		}
		job()
	}
}

// next pops the oldest job. A worker retires when the queue is empty or the
// pool has been shrunk below the current worker count.
func (d *Dispatcher) next() (func(), bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.queue) == 0 || d.workers > d.MaxConcurrent() {
		d.workers--
		return nil, false
	}

	job := d.queue[0]
	d.queue[0] = nil
	d.queue = d.queue[1:]
	return job, true
}

// execute runs the throttle/fetch/parse/record sequence for one task.
// Failures of any kind, including panics, become a failed Result.
func execute[T any](d *Dispatcher, task core.FetchTask) (result core.Result[T]) {
	startedAt := d.clock()
	defer func() {
		if recovered := recover(); recovered != nil {
			d.logger.Error("Task panicked",
				zap.String("task_id", task.ID),
				zap.String("backoff_key", task.BackoffKey),
				zap.Any("panic", recovered))
			result = core.Failure[T](&core.InternalError{Panic: recovered})
		}
		metrics.RecordDispatch(task.BackoffKey, outcome(result.Err()), d.clock().Sub(startedAt))
	}()

	d.awaitAdmission(task)

	d.inFlight.Add(1)
	metrics.SetInFlight(d.inFlight.Load())
	defer func() {
		metrics.SetInFlight(d.inFlight.Add(-1))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.RequestTimeout())
	defer cancel()

	body, err := d.fetcher.Fetch(ctx, task.URL)
	if err != nil {
		var transportErr *core.TransportError
		if !errors.As(err, &transportErr) {
			err = &core.TransportError{Stage: core.StageRequest, URL: task.URL, Err: err}
		}
		d.logger.Warn("Fetch failed",
			zap.String("task_id", task.ID),
			zap.String("backoff_key", task.BackoffKey),
			zap.Error(err))
		return core.Failure[T](err)
	}

	envelope, err := response.Parse[T](body)
	if err != nil {
		d.logger.Warn("Response could not be parsed",
			zap.String("task_id", task.ID),
			zap.String("backoff_key", task.BackoffKey),
			zap.Error(err))
		return core.Failure[T](err)
	}

	d.throttler.RecordBackoff(envelope, task.BackoffKey)

	if envelope.IsError() {
		d.logger.Debug("API reported an error",
			zap.String("task_id", task.ID),
			zap.Error(envelope.APIError()))
	}
	return core.Success(envelope)
}

// awaitAdmission re-asks the throttler after every sleep because the
// required wait can change while sleeping.
func (d *Dispatcher) awaitAdmission(task core.FetchTask) {
	for {
		wait := d.throttler.ShouldWait(task.BackoffKey)
		if wait <= Proceed {
			return
		}
		d.logger.Debug("Throttled",
			zap.String("task_id", task.ID),
			zap.String("backoff_key", task.BackoffKey),
			zap.Duration("wait", wait))
		metrics.RecordThrottleWait(task.BackoffKey, wait)
		d.sleep(wait)
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, core.ErrTransport):
		return metrics.OutcomeTransport
	case errors.Is(err, core.ErrMalformedResponse):
		return metrics.OutcomeMalformed
	default:
		return metrics.OutcomeInternal
	}
}
