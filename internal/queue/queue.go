// Package queue implements a bounded-concurrency priority scheduler with a
// sliding-window cap on task starts.
//
// A Queue admits a task when both gates are open: fewer than Concurrency tasks
// are running, and fewer than Limit tasks started within the last Window.
// Among admissible tasks the highest priority goes first; equal priorities run
// in submission order. Each task is attempted exactly once.
package queue

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	DefaultConcurrency = 3
	DefaultLimit       = 10
	DefaultWindow      = time.Second
)

var (
	// ErrClosed is returned by futures submitted after Close.
	ErrClosed = errors.New("queue closed")

	// ErrPanic wraps a panic recovered from a task.
	ErrPanic = errors.New("task panicked")
)

// TaskFunc is the unit of work. ctx is the queue's lifecycle context.
type TaskFunc[T any] func(ctx context.Context) (T, error)

// Hooks observe task lifecycle; both are optional and must not block.
type Hooks struct {
	Started  func(priority int, startedAt time.Time, waited time.Duration)
	Finished func(priority int, ran time.Duration, err error)
}

// Options configures admission control. Zero values take the defaults.
type Options struct {
	Concurrency int
	Limit       int
	Window      time.Duration
	Hooks       Hooks
}

// Stats is a point-in-time snapshot for observability.
type Stats struct {
	Queued       int `json:"size"`
	InFlight     int `json:"pending"`
	WindowStarts int `json:"window_starts"`
}

type task[T any] struct {
	run        TaskFunc[T]
	priority   int
	seq        uint64
	enqueuedAt time.Time
	fut        *Future[T]
}

// Queue is safe for concurrent use. Create with New.
type Queue[T any] struct {
	opts Options
	ctx  context.Context

	mu          sync.Mutex
	pending     taskHeap[T]
	seq         uint64
	inFlight    int
	starts      []time.Time // admission times inside the current window, ascending
	timerArmed  bool
	closed      bool
	drained     chan struct{}
	drainedOnce sync.Once
}

// New creates a queue whose tasks run with ctx.
func New[T any](ctx context.Context, opts Options) *Queue[T] {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	return &Queue[T]{
		opts:    opts,
		ctx:     ctx,
		drained: make(chan struct{}),
	}
}

// Submit enqueues fn and returns its future. It never blocks on admission.
func (q *Queue[T]) Submit(fn TaskFunc[T], priority int) *Future[T] {
	fut := newFuture[T]()

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		var zero T
		fut.resolve(zero, ErrClosed)
		return fut
	}

	q.seq++
	heap.Push(&q.pending, &task[T]{
		run:        fn,
		priority:   priority,
		seq:        q.seq,
		enqueuedAt: time.Now(),
		fut:        fut,
	})
	q.pumpLocked()
	return fut
}

// Stats returns the current queued, in-flight and in-window start counts.
func (q *Queue[T]) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pruneLocked(time.Now())
	return Stats{
		Queued:       q.pending.Len(),
		InFlight:     q.inFlight,
		WindowStarts: len(q.starts),
	}
}

// Close rejects further submissions and waits until every queued and running
// task has finished, or ctx is done.
func (q *Queue[T]) Close(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.signalDrainedLocked()
	q.mu.Unlock()

	select {
	case <-q.drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// pumpLocked starts as many tasks as both gates allow. Caller holds q.mu.
func (q *Queue[T]) pumpLocked() {
	for q.pending.Len() > 0 && q.inFlight < q.opts.Concurrency {
		now := time.Now()
		q.pruneLocked(now)
		if len(q.starts) >= q.opts.Limit {
			q.armTimerLocked(q.starts[0].Add(q.opts.Window).Sub(now))
			return
		}

		t := heap.Pop(&q.pending).(*task[T])
		q.inFlight++
		q.starts = append(q.starts, now)
		go q.run(t, now)
	}
}

// pruneLocked drops admission times that fell out of the rolling window.
func (q *Queue[T]) pruneLocked(now time.Time) {
	i := 0
	for i < len(q.starts) && now.Sub(q.starts[i]) >= q.opts.Window {
		i++
	}
	if i > 0 {
		q.starts = append(q.starts[:0], q.starts[i:]...)
	}
}

func (q *Queue[T]) armTimerLocked(d time.Duration) {
	if q.timerArmed {
		return
	}
	if d <= 0 {
		d = time.Millisecond
	}
	q.timerArmed = true
	time.AfterFunc(d, func() {
		q.mu.Lock()
		q.timerArmed = false
		q.pumpLocked()
		q.mu.Unlock()
	})
}

func (q *Queue[T]) signalDrainedLocked() {
	if q.closed && q.pending.Len() == 0 && q.inFlight == 0 {
		q.drainedOnce.Do(func() { close(q.drained) })
	}
}

func (q *Queue[T]) run(t *task[T], startedAt time.Time) {
	if h := q.opts.Hooks.Started; h != nil {
		h(t.priority, startedAt, startedAt.Sub(t.enqueuedAt))
	}

	val, err := q.execute(t)
	ran := time.Since(startedAt)

	q.mu.Lock()
	q.inFlight--
	q.pumpLocked()
	q.signalDrainedLocked()
	q.mu.Unlock()

	t.fut.resolve(val, err)

	if h := q.opts.Hooks.Finished; h != nil {
		h(t.priority, ran, err)
	}
}

func (q *Queue[T]) execute(t *task[T]) (val T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return t.run(q.ctx)
}

// taskHeap orders by priority descending, then submission sequence ascending.
type taskHeap[T any] []*task[T]

func (h taskHeap[T]) Len() int { return len(h) }

func (h taskHeap[T]) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h taskHeap[T]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap[T]) Push(x any) { *h = append(*h, x.(*task[T])) }

func (h *taskHeap[T]) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}
