package memory

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/jobsensor/internal/domain/events"
	"github.com/ahrav/jobsensor/internal/domain/monitoring"
)

func TestPublishAndSubscribe(t *testing.T) {
	t.Parallel()

	broker := NewBroker()
	ctx := context.Background()
	var wg sync.WaitGroup
	wg.Add(1)

	evt := &monitoring.MonitoringEvent{ID: "job1", ReceiverID: "alice"}

	err := broker.Subscribe(ctx, []events.EventType{monitoring.EventTypeJobStatusChanged},
		func(_ context.Context, got events.EventEnvelope) error {
			defer wg.Done()
			assert.Equal(t, "job1", got.Key)
			assert.Equal(t, evt, got.Payload)
			assert.Equal(t, map[string]string{"h": "v"}, got.Headers)
			return nil
		})
	assert.NoError(t, err)

	err = broker.Publish(ctx, events.EventEnvelope{Type: monitoring.EventTypeJobStatusChanged, Payload: evt},
		events.WithKey("job1"), events.WithHeaders(map[string]string{"h": "v"}))
	assert.NoError(t, err)

	wg.Wait()
}

func TestSubscribe_FiltersByEventType(t *testing.T) {
	t.Parallel()

	broker := NewBroker()
	ctx := context.Background()

	var typed, all int
	require.NoError(t, broker.Subscribe(ctx, []events.EventType{"A"}, func(context.Context, events.EventEnvelope) error {
		typed++
		return nil
	}))
	require.NoError(t, broker.Subscribe(ctx, nil, func(context.Context, events.EventEnvelope) error {
		all++
		return nil
	}))

	require.NoError(t, broker.Publish(ctx, events.EventEnvelope{Type: "A"}))
	require.NoError(t, broker.Publish(ctx, events.EventEnvelope{Type: "B"}))

	assert.Equal(t, 1, typed)
	assert.Equal(t, 2, all)
}

func TestMultipleSubscribers(t *testing.T) {
	t.Parallel()

	broker := NewBroker()
	ctx := context.Background()
	var wg sync.WaitGroup
	subscriberCount := 3
	wg.Add(subscriberCount)

	for i := 0; i < subscriberCount; i++ {
		err := broker.Subscribe(ctx, nil, func(_ context.Context, got events.EventEnvelope) error {
			defer wg.Done()
			assert.Equal(t, events.EventType("A"), got.Type)
			return nil
		})
		assert.NoError(t, err)
	}

	err := broker.Publish(ctx, events.EventEnvelope{Type: "A"})
	assert.NoError(t, err)

	wg.Wait()
}

func TestHandlerError(t *testing.T) {
	t.Parallel()

	broker := NewBroker()
	ctx := context.Background()
	expectedErr := errors.New("handler error")

	err := broker.Subscribe(ctx, nil, func(context.Context, events.EventEnvelope) error {
		return expectedErr
	})
	assert.NoError(t, err)

	err = broker.Publish(ctx, events.EventEnvelope{Type: "A"})
	assert.ErrorIs(t, err, expectedErr)
}

func TestSubscribe_NilHandler(t *testing.T) {
	t.Parallel()

	assert.Error(t, NewBroker().Subscribe(context.Background(), nil, nil))
}

func TestUnsubscribeOnContextCancel(t *testing.T) {
	t.Parallel()

	broker := NewBroker()
	ctx, cancel := context.WithCancel(context.Background())

	var calls int
	var mu sync.Mutex
	require.NoError(t, broker.Subscribe(ctx, nil, func(context.Context, events.EventEnvelope) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return nil
	}))
	require.NoError(t, broker.Publish(context.Background(), events.EventEnvelope{Type: "A"}))

	cancel()
	assert.Eventually(t, func() bool {
		broker.mu.RLock()
		defer broker.mu.RUnlock()
		return len(broker.handlers) == 0
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, broker.Publish(context.Background(), events.EventEnvelope{Type: "A"}))
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}

// Not parallel: it compares goroutine counts.
func TestSubscribeWithBackgroundContextStartsNoGoroutine(t *testing.T) {
	broker := NewBroker()
	before := runtime.NumGoroutine()

	for range 50 {
		require.NoError(t, broker.Subscribe(context.Background(), nil,
			func(context.Context, events.EventEnvelope) error { return nil }))
	}

	assert.Less(t, runtime.NumGoroutine(), before+10)
	require.NoError(t, broker.Close())
}

func TestClose(t *testing.T) {
	t.Parallel()

	broker := NewBroker()
	require.NoError(t, broker.Close())

	assert.ErrorIs(t, broker.Publish(context.Background(), events.EventEnvelope{Type: "A"}), ErrClosed)
	assert.ErrorIs(t, broker.Subscribe(context.Background(), nil, func(context.Context, events.EventEnvelope) error { return nil }), ErrClosed)
}

func TestConcurrentPublishSubscribe(t *testing.T) {
	t.Parallel()

	broker := NewBroker()
	ctx := context.Background()
	var wg sync.WaitGroup
	eventCount := 100
	subscriberCount := 5
	wg.Add(eventCount * subscriberCount)

	for i := 0; i < subscriberCount; i++ {
		err := broker.Subscribe(ctx, nil, func(context.Context, events.EventEnvelope) error {
			defer wg.Done()
			return nil
		})
		assert.NoError(t, err)
	}

	for i := 0; i < eventCount; i++ {
		go func(id int) {
			err := broker.Publish(ctx, events.EventEnvelope{Type: "A"}, events.WithKey(fmt.Sprintf("job-%d", id)))
			assert.NoError(t, err)
		}(i)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		// Success.
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for concurrent deliveries")
	}
}
