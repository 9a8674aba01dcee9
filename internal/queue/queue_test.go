package queue

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitAll[T any](t *testing.T, futs []*Future[T]) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for i, f := range futs {
		_, err := f.Wait(ctx)
		require.NoError(t, err, "task %d", i)
	}
}

func TestConcurrencyCap(t *testing.T) {
	q := New[int](context.Background(), Options{Concurrency: 3, Limit: 100, Window: time.Second})

	var running, peak int32
	futs := make([]*Future[int], 12)
	for i := range futs {
		futs[i] = q.Submit(func(context.Context) (int, error) {
			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			return 0, nil
		}, 0)
	}
	waitAll(t, futs)

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
	assert.Equal(t, int32(3), atomic.LoadInt32(&peak), "cap should be reached with enough work")
}

func TestWindowCap(t *testing.T) {
	const (
		limit  = 4
		window = 200 * time.Millisecond
	)

	var mu sync.Mutex
	var starts []time.Time
	q := New[int](context.Background(), Options{
		Concurrency: 10,
		Limit:       limit,
		Window:      window,
		Hooks: Hooks{Started: func(_ int, at time.Time, _ time.Duration) {
			mu.Lock()
			starts = append(starts, at)
			mu.Unlock()
		}},
	})

	futs := make([]*Future[int], 10)
	for i := range futs {
		futs[i] = q.Submit(func(context.Context) (int, error) { return 0, nil }, 0)
	}
	waitAll(t, futs)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, starts, 10)
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })
	// Any limit+1 consecutive admissions must span at least one window.
	for i := 0; i+limit < len(starts); i++ {
		assert.GreaterOrEqual(t, starts[i+limit].Sub(starts[i]), window,
			"starts %d..%d inside one window", i, i+limit)
	}
}

func TestPriorityAndFIFO(t *testing.T) {
	q := New[string](context.Background(), Options{Concurrency: 1, Limit: 100, Window: time.Second})

	// Hold the single slot so the rest queue up behind it.
	release := make(chan struct{})
	blocker := q.Submit(func(context.Context) (string, error) {
		<-release
		return "blocker", nil
	}, 0)

	var mu sync.Mutex
	var order []string
	record := func(name string) TaskFunc[string] {
		return func(context.Context) (string, error) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return name, nil
		}
	}

	futs := []*Future[string]{
		q.Submit(record("comment-1"), 5),
		q.Submit(record("message-1"), 10),
		q.Submit(record("comment-2"), 5),
		q.Submit(record("message-2"), 10),
	}
	close(release)
	waitAll(t, append([]*Future[string]{blocker}, futs...))

	assert.Equal(t, []string{"message-1", "message-2", "comment-1", "comment-2"}, order)
}

func TestFailuresAreIsolated(t *testing.T) {
	q := New[int](context.Background(), Options{Concurrency: 2})
	boom := errors.New("boom")

	failed := q.Submit(func(context.Context) (int, error) { return 0, boom }, 0)
	panicked := q.Submit(func(context.Context) (int, error) { panic("kaboom") }, 0)
	ok := q.Submit(func(context.Context) (int, error) { return 42, nil }, 0)

	ctx := context.Background()
	_, err := failed.Wait(ctx)
	assert.ErrorIs(t, err, boom)

	_, err = panicked.Wait(ctx)
	assert.ErrorIs(t, err, ErrPanic)
	assert.Contains(t, err.Error(), "kaboom")

	v, err := ok.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestEachTaskRunsOnce(t *testing.T) {
	q := New[int](context.Background(), Options{})

	var calls int32
	f := q.Submit(func(context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 0, errors.New("transient")
	}, 0)
	_, err := f.Wait(context.Background())
	require.Error(t, err)

	require.NoError(t, q.Close(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestStats(t *testing.T) {
	q := New[int](context.Background(), Options{Concurrency: 1, Limit: 100, Window: time.Second})

	release := make(chan struct{})
	started := make(chan struct{})
	first := q.Submit(func(context.Context) (int, error) {
		close(started)
		<-release
		return 0, nil
	}, 0)
	<-started
	second := q.Submit(func(context.Context) (int, error) { return 0, nil }, 0)

	s := q.Stats()
	assert.Equal(t, 1, s.InFlight)
	assert.Equal(t, 1, s.Queued)
	assert.Equal(t, 1, s.WindowStarts)

	close(release)
	waitAll(t, []*Future[int]{first, second})

	s = q.Stats()
	assert.Equal(t, 0, s.Queued)
	assert.Equal(t, 0, s.InFlight)
}

func TestCloseDrainsAndRejects(t *testing.T) {
	q := New[int](context.Background(), Options{Concurrency: 1})

	var done int32
	for i := 0; i < 3; i++ {
		q.Submit(func(context.Context) (int, error) {
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&done, 1)
			return 0, nil
		}, 0)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, q.Close(ctx))
	assert.Equal(t, int32(3), atomic.LoadInt32(&done))

	_, err := q.Submit(func(context.Context) (int, error) { return 1, nil }, 0).Wait(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCloseHonorsContext(t *testing.T) {
	q := New[int](context.Background(), Options{})
	release := make(chan struct{})
	defer close(release)
	q.Submit(func(context.Context) (int, error) {
		<-release
		return 0, nil
	}, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Close(ctx), context.DeadlineExceeded)
}
