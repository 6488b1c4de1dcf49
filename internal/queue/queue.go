// Package queue implements RequestQueue: a bounded FIFO admission queue
// in front of BrowserPool (§4.2). Grounded on the teacher's
// internal/crawlers/url_queue.go (channel/mutex queue shape, idempotent
// Close) generalized from URL strings to generic tasks with completion
// futures and two independent deadlines.
package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/0xtamizh/scrapebase/internal/model"
	"github.com/0xtamizh/scrapebase/internal/scrapeerrors"
)

// Task is a unit of work submitted to a Queue; it must respect ctx's
// deadline and cancellation.
type Task[T any] func(ctx context.Context) (T, error)

type result[T any] struct {
	value T
	err   error
}

type queueItem[T any] struct {
	id         string
	enqueuedAt time.Time
	ctx        context.Context
	cancel     context.CancelFunc
	task       Task[T]
	done       chan result[T]
}

type metrics struct {
	admitted  atomic.Int64
	rejected  atomic.Int64
	timedOut  atomic.Int64
	cancelled atomic.Int64
	completed atomic.Int64
}

// Queue is the RequestQueue component. The zero value is not usable;
// construct with New.
type Queue[T any] struct {
	mu      sync.Mutex
	pending []*queueItem[T]
	inFlight int
	closed  bool

	maxConcurrent  int
	requestTimeout time.Duration
	queueTimeout   time.Duration

	m metrics
}

// New constructs a Queue from the §4.2/§6 configuration.
func New[T any](cfg model.RequestQueueConfig) *Queue[T] {
	return &Queue[T]{
		maxConcurrent:  cfg.MaxConcurrent,
		requestTimeout: cfg.RequestTimeout,
		queueTimeout:   cfg.QueueTimeout,
	}
}

// Enqueue admits id/task per §4.2: dispatched immediately if under
// maxConcurrent, otherwise appended to the FIFO tail. It blocks until
// the task completes, the queue-wait deadline expires, the execution
// deadline expires, or parent is cancelled. id defaults to a fresh UUID
// when empty.
func (q *Queue[T]) Enqueue(parent context.Context, id string, task Task[T]) (T, error) {
	var zero T

	if id == "" {
		id = uuid.New().String()
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.m.rejected.Add(1)
		return zero, scrapeerrors.New(scrapeerrors.KindInternal, "queue is closed")
	}

	ctx, cancel := context.WithCancel(parent)
	it := &queueItem[T]{
		id:         id,
		enqueuedAt: time.Now(),
		ctx:        ctx,
		cancel:     cancel,
		task:       task,
		done:       make(chan result[T], 1),
	}

	dispatchNow := q.inFlight < q.maxConcurrent
	if dispatchNow {
		q.inFlight++
	} else {
		q.pending = append(q.pending, it)
	}
	q.mu.Unlock()

	if dispatchNow {
		q.m.admitted.Add(1)
		go q.run(it)
	}

	queueTimer := time.NewTimer(q.queueTimeout)
	defer queueTimer.Stop()

	for {
		select {
		case res := <-it.done:
			return res.value, res.err

		case <-queueTimer.C:
			if q.removeIfPending(it) {
				cancel()
				q.m.timedOut.Add(1)
				return zero, scrapeerrors.New(scrapeerrors.KindQueueTimeout, "timed out waiting in queue")
			}
			// already dispatched: the requestTimeout inside run() now
			// governs completion, so keep waiting on done.
			continue

		case <-parent.Done():
			if q.removeIfPending(it) {
				cancel()
				q.m.cancelled.Add(1)
				return zero, scrapeerrors.New(scrapeerrors.KindCancelled, "request cancelled while queued")
			}
			continue
		}
	}
}

// run dispatches it's task under the per-request execution deadline and
// resolves its completion slot. It always runs completeAndAdvance on
// exit, per §4.2's "always decrement in-flight and pull next" rule.
func (q *Queue[T]) run(it *queueItem[T]) {
	defer q.completeAndAdvance()

	if it.ctx.Err() != nil {
		q.m.cancelled.Add(1)
		it.done <- result[T]{err: scrapeerrors.New(scrapeerrors.KindCancelled, "cancelled before dispatch")}
		return
	}

	runCtx, cancel := context.WithTimeout(it.ctx, q.requestTimeout)
	defer cancel()

	value, err := it.task(runCtx)
	switch {
	case err != nil && runCtx.Err() == context.DeadlineExceeded:
		q.m.timedOut.Add(1)
		err = scrapeerrors.New(scrapeerrors.KindTimeout, "execution deadline exceeded")
	case err != nil && runCtx.Err() == context.Canceled:
		q.m.cancelled.Add(1)
		err = scrapeerrors.New(scrapeerrors.KindCancelled, "cancelled during execution")
	case err == nil:
		q.m.completed.Add(1)
	}
	it.done <- result[T]{value: value, err: err}
}

// completeAndAdvance decrements in-flight and dispatches the next
// eligible queued item, skipping (and failing with Cancelled) any
// pending items whose cancellation fired while they waited.
func (q *Queue[T]) completeAndAdvance() {
	for {
		q.mu.Lock()
		q.inFlight--

		var next *queueItem[T]
		for len(q.pending) > 0 {
			next = q.pending[0]
			q.pending = q.pending[1:]
			if next.ctx.Err() != nil {
				q.mu.Unlock()
				q.m.cancelled.Add(1)
				next.done <- result[T]{err: scrapeerrors.New(scrapeerrors.KindCancelled, "cancelled while queued")}
				next = nil
				q.mu.Lock()
				continue
			}
			break
		}
		if next != nil {
			q.inFlight++
		}
		q.mu.Unlock()

		if next == nil {
			return
		}
		go q.run(next)
		return
	}
}

// removeIfPending removes target from the pending FIFO if it is still
// there, returning true if found (i.e. it had not yet been dispatched).
func (q *Queue[T]) removeIfPending(target *queueItem[T]) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, it := range q.pending {
		if it == target {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return true
		}
	}
	return false
}

// Close marks the queue closed; subsequent Enqueue calls are rejected
// immediately. Already-queued and in-flight items are unaffected.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

// Status reports the current in-flight and pending counts, for the
// Health() operation's queue block.
func (q *Queue[T]) Status() (active, pending int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.inFlight, len(q.pending)
}

// Metrics returns the queue's lifecycle counters.
func (q *Queue[T]) Metrics() model.QueueMetrics {
	return model.QueueMetrics{
		Admitted:  q.m.admitted.Load(),
		Rejected:  q.m.rejected.Load(),
		TimedOut:  q.m.timedOut.Load(),
		Cancelled: q.m.cancelled.Load(),
		Completed: q.m.completed.Load(),
	}
}
