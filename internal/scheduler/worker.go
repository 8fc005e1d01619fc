// internal/scheduler/worker.go
package scheduler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// HandlerFunc executes one fired deadline. key is the scheduler key
// the deadline was armed under. Handlers must tolerate operating on an
// already-finished game: a deadline can race a move or a concurrent
// finish, and the loser of that race is a no-op.
type HandlerFunc func(ctx context.Context, key string) error

// Worker is one claim-and-handle loop over a DeadlineStore. Several
// workers (across processes) may run against the same store; the
// conditional remove in the store guarantees each member is handled
// exactly once.
type Worker struct {
	store        DeadlineStore
	handler      HandlerFunc
	pollInterval time.Duration
	backoff      time.Duration
	now          func() int64
	log          *logrus.Entry
}

// WorkerOption customizes a Worker.
type WorkerOption func(*Worker)

// WithPollInterval overrides the bounded wait between polls.
func WithPollInterval(d time.Duration) WorkerOption {
	return func(w *Worker) { w.pollInterval = d }
}

// WithClock overrides the time source; tests use this.
func WithClock(now func() int64) WorkerOption {
	return func(w *Worker) { w.now = now }
}

// NewWorker builds a worker over store; name labels log output.
func NewWorker(store DeadlineStore, name string, handler HandlerFunc, opts ...WorkerOption) *Worker {
	w := &Worker{
		store:        store,
		handler:      handler,
		pollInterval: time.Second,
		backoff:      5 * time.Second,
		now:          func() int64 { return time.Now().UnixMilli() },
		log:          logrus.WithField("worker", name),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls until ctx is done. A store outage is a retryable fault:
// the worker logs, backs off and keeps going. A due game simply does
// not time out until the store recovers.
func (w *Worker) Run(ctx context.Context) {
	wake, stop, err := w.store.Subscribe(ctx)
	if err != nil {
		w.log.WithError(err).Warn("wake subscription unavailable, relying on polling")
		wake = nil
	} else {
		defer stop()
	}

	timer := time.NewTimer(w.pollInterval)
	defer timer.Stop()

	for {
		if err := w.Sweep(ctx); err != nil {
			w.log.WithError(err).Warn("sweep failed, backing off")
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.backoff):
			}
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(w.pollInterval)

		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		case <-wake:
		}
	}
}

// Sweep handles every deadline due now: list, claim each by
// conditional remove, and run the handler only for claims this worker
// won. Handler errors are logged per member and do not stop the sweep.
func (w *Worker) Sweep(ctx context.Context) error {
	due, err := w.store.DueBefore(ctx, w.now())
	if err != nil {
		return err
	}
	for _, member := range due {
		claimed, err := w.store.RemoveIfPresent(ctx, member)
		if err != nil {
			return err
		}
		if !claimed {
			continue // another worker got there first
		}
		key := memberKey(member)
		if err := w.handler(ctx, key); err != nil {
			w.log.WithError(err).WithField("key", key).Error("deadline handler failed")
		}
	}
	return nil
}
