package queue

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/0xtamizh/scrapebase/internal/model"
	"github.com/0xtamizh/scrapebase/internal/scrapeerrors"
)

// TestQueueAdmission is scenario 1 from §8: maxConcurrent=2,
// queueTimeout=200ms, five tasks each sleeping 1s. Two should succeed,
// three should fail with QueueTimeout.
func TestQueueAdmission(t *testing.T) {
	q := New[int](model.RequestQueueConfig{
		MaxConcurrent:  2,
		RequestTimeout: 5 * time.Second,
		QueueTimeout:   200 * time.Millisecond,
	})

	type outcome struct {
		err error
	}
	results := make(chan outcome, 5)

	for i := 0; i < 5; i++ {
		go func(n int) {
			_, err := q.Enqueue(context.Background(), "", func(ctx context.Context) (int, error) {
				select {
				case <-time.After(time.Second):
					return n, nil
				case <-ctx.Done():
					return 0, ctx.Err()
				}
			})
			results <- outcome{err: err}
		}(i)
	}

	var succeeded, timedOut int
	for i := 0; i < 5; i++ {
		res := <-results
		if res.err == nil {
			succeeded++
		} else if scrapeerrors.KindOf(res.err) == scrapeerrors.KindQueueTimeout {
			timedOut++
		} else {
			t.Fatalf("unexpected error kind: %v", res.err)
		}
	}

	if succeeded != 2 {
		t.Errorf("expected 2 successes, got %d", succeeded)
	}
	if timedOut != 3 {
		t.Errorf("expected 3 queue timeouts, got %d", timedOut)
	}
}

// TestQueueFIFOOrdering is the §4.2 ordering guarantee: tasks queued
// behind a running task (maxConcurrent=1) start in the order they were
// enqueued.
func TestQueueFIFOOrdering(t *testing.T) {
	q := New[int](model.RequestQueueConfig{
		MaxConcurrent:  1,
		RequestTimeout: 5 * time.Second,
		QueueTimeout:   5 * time.Second,
	})

	var startOrder []int
	started := make(chan int, 3)

	release := make(chan struct{})
	go func() {
		_, _ = q.Enqueue(context.Background(), "t1", func(ctx context.Context) (int, error) {
			started <- 1
			<-release
			return 1, nil
		})
	}()

	time.Sleep(20 * time.Millisecond) // ensure t1 is dispatched and running first

	go func() {
		_, _ = q.Enqueue(context.Background(), "t2", func(ctx context.Context) (int, error) {
			started <- 2
			return 2, nil
		})
	}()

	time.Sleep(20 * time.Millisecond) // ensure t2 is queued before t3

	go func() {
		_, _ = q.Enqueue(context.Background(), "t3", func(ctx context.Context) (int, error) {
			started <- 3
			return 3, nil
		})
	}()

	time.Sleep(20 * time.Millisecond)
	close(release)

	for i := 0; i < 3; i++ {
		startOrder = append(startOrder, <-started)
	}

	if startOrder[0] != 1 {
		t.Fatalf("expected t1 to start first, got order %v", startOrder)
	}
	if startOrder[1] != 2 || startOrder[2] != 3 {
		t.Errorf("expected FIFO order [1 2 3], got %v", startOrder)
	}
}

// TestCancelledBeforeDispatchNeverRunsTask is the §8 cancellation
// invariant: a queued item whose cancellation fires before dispatch
// never invokes task.
func TestCancelledBeforeDispatchNeverRunsTask(t *testing.T) {
	q := New[int](model.RequestQueueConfig{
		MaxConcurrent:  1,
		RequestTimeout: 5 * time.Second,
		QueueTimeout:   5 * time.Second,
	})

	block := make(chan struct{})
	go func() {
		_, _ = q.Enqueue(context.Background(), "blocker", func(ctx context.Context) (int, error) {
			<-block
			return 0, nil
		})
	}()
	time.Sleep(20 * time.Millisecond)

	var invoked atomic.Bool
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.Enqueue(ctx, "cancelled", func(ctx context.Context) (int, error) {
		invoked.Store(true)
		return 0, nil
	})
	close(block)

	if invoked.Load() {
		t.Fatal("task was invoked despite pre-cancellation")
	}
	if scrapeerrors.KindOf(err) != scrapeerrors.KindCancelled {
		t.Fatalf("expected Cancelled, got %v", err)
	}
}

func TestQueueMetrics(t *testing.T) {
	q := New[int](model.RequestQueueConfig{
		MaxConcurrent:  5,
		RequestTimeout: time.Second,
		QueueTimeout:   time.Second,
	})

	_, err := q.Enqueue(context.Background(), "", func(ctx context.Context) (int, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m := q.Metrics()
	if m.Admitted != 1 || m.Completed != 1 {
		t.Errorf("expected admitted=1 completed=1, got %+v", m)
	}
}
