package sensor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_ProcessesEverySubmittedItem(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		seen []int
		wg   sync.WaitGroup
	)
	p := NewPool(4, 0, func(_ context.Context, n int) {
		mu.Lock()
		seen = append(seen, n)
		mu.Unlock()
		wg.Done()
	}, nil)
	require.NoError(t, p.Start(context.Background()))
	defer p.Shutdown()

	wg.Add(100)
	for i := range 100 {
		require.NoError(t, p.Submit(i))
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, 100)
	assert.ElementsMatch(t, func() []int {
		out := make([]int, 100)
		for i := range out {
			out[i] = i
		}
		return out
	}(), seen)

	assert.Eventually(t, func() bool { return p.Stats().Completed == 100 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(100), p.Stats().Submitted)
}

func TestPool_QueueIsUnboundedByDefault(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	p := NewPool(1, 0, func(_ context.Context, _ int) { <-block }, nil)
	require.NoError(t, p.Start(context.Background()))
	defer p.Shutdown()
	defer close(block)

	for i := range 1000 {
		require.NoError(t, p.Submit(i))
	}
	assert.Eventually(t, func() bool {
		s := p.Stats()
		return s.Active == 1 && s.Queued == 999
	}, time.Second, 5*time.Millisecond)
}

func TestPool_BoundedQueueRejects(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	started := make(chan struct{}, 1)
	p := NewPool(1, 2, func(_ context.Context, _ int) {
		started <- struct{}{}
		<-block
	}, nil)
	require.NoError(t, p.Start(context.Background()))
	defer p.Shutdown()
	defer close(block)

	require.NoError(t, p.Submit(0))
	<-started

	require.NoError(t, p.Submit(1))
	require.NoError(t, p.Submit(2))
	assert.ErrorIs(t, p.Submit(3), ErrQueueFull)
	assert.Equal(t, int64(1), p.Stats().Rejected)
}

func TestPool_ShutdownReleasesQueuedItems(t *testing.T) {
	t.Parallel()

	var released atomic.Int32
	started := make(chan struct{}, 1)
	p := NewPool(1, 0, func(ctx context.Context, _ int) {
		started <- struct{}{}
		<-ctx.Done()
	}, func(int) { released.Add(1) })
	require.NoError(t, p.Start(context.Background()))

	require.NoError(t, p.Submit(0))
	<-started
	for i := 1; i <= 5; i++ {
		require.NoError(t, p.Submit(i))
	}

	p.Shutdown()

	assert.Equal(t, int32(5), released.Load())
	assert.Equal(t, 0, p.Stats().Queued)
	assert.Equal(t, 0, p.Stats().Active)
	assert.ErrorIs(t, p.Submit(6), ErrPoolStopped)

	// Idempotent.
	p.Shutdown()
}

func TestPool_LifecycleErrors(t *testing.T) {
	t.Parallel()

	p := NewPool(1, 0, func(context.Context, int) {}, nil)
	assert.ErrorIs(t, p.Submit(1), ErrPoolNotStarted)

	// Shutdown before Start does nothing.
	p.Shutdown()

	require.NoError(t, p.Start(context.Background()))
	assert.ErrorIs(t, p.Start(context.Background()), ErrPoolAlreadyStarted)
	p.Shutdown()
}

func TestPool_ParentCancelStopsWorkers(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	p := NewPool(2, 0, func(context.Context, int) {}, nil)
	require.NoError(t, p.Start(ctx))

	cancel()
	assert.Eventually(t, func() bool {
		return errors.Is(p.Submit(1), ErrPoolStopped)
	}, time.Second, 5*time.Millisecond)
	p.Shutdown()
}

func TestNewPool_Defaults(t *testing.T) {
	t.Parallel()

	p := NewPool(0, -3, func(context.Context, string) {}, nil)
	assert.Equal(t, 1, p.Stats().Workers)
	assert.Panics(t, func() { NewPool[int](1, 0, nil, nil) })
}
