package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ahrav/jobsensor/internal/domain/events"
)

// MockEventBus is a manual mock implementation of events.EventBus.
type MockEventBus struct {
	publishFunc func(ctx context.Context, event events.EventEnvelope, opts ...events.PublishOption) error
}

func (m *MockEventBus) Publish(ctx context.Context, event events.EventEnvelope, opts ...events.PublishOption) error {
	return m.publishFunc(ctx, event, opts...)
}

func (m *MockEventBus) Close() error { return nil }

// MockDomainEvent is a manual mock implementation of events.DomainEvent.
type MockDomainEvent struct {
	eventType  events.EventType
	occurredAt time.Time
}

func (m *MockDomainEvent) EventType() events.EventType { return m.eventType }

func (m *MockDomainEvent) OccurredAt() time.Time { return m.occurredAt }

func TestDomainEventPublisher_PublishDomainEvent_Success(t *testing.T) {
	ctx := context.Background()
	event := &MockDomainEvent{
		eventType:  "test-event",
		occurredAt: time.Now(),
	}

	mockEventBus := &MockEventBus{
		publishFunc: func(ctx context.Context, evt events.EventEnvelope, opts ...events.PublishOption) error {
			assert.Equal(t, event.EventType(), evt.Type)
			assert.Equal(t, event.OccurredAt(), evt.Timestamp)
			assert.Equal(t, event, evt.Payload)
			return nil
		},
	}

	publisher := NewDomainEventPublisher(mockEventBus)
	err := publisher.PublishDomainEvent(ctx, event)
	assert.NoError(t, err)
}

func TestDomainEventPublisher_PublishDomainEvent_Error(t *testing.T) {
	ctx := context.Background()
	event := &MockDomainEvent{eventType: "test-event", occurredAt: time.Now()}

	mockEventBus := &MockEventBus{
		publishFunc: func(ctx context.Context, evt events.EventEnvelope, opts ...events.PublishOption) error {
			return errors.New("publish failed")
		},
	}

	publisher := NewDomainEventPublisher(mockEventBus)
	err := publisher.PublishDomainEvent(ctx, event)
	assert.Error(t, err)
	assert.Equal(t, "publish failed", err.Error())
}

func TestDomainEventPublisher_PublishDomainEvent_OptionsConversion(t *testing.T) {
	ctx := context.Background()
	event := &MockDomainEvent{eventType: "test-event", occurredAt: time.Now()}

	var receivedOpts []events.PublishOption
	mockEventBus := &MockEventBus{
		publishFunc: func(ctx context.Context, evt events.EventEnvelope, opts ...events.PublishOption) error {
			receivedOpts = opts
			return nil
		},
	}

	publisher := NewDomainEventPublisher(mockEventBus)
	err := publisher.PublishDomainEvent(ctx, event, events.WithKey("test-key"), events.WithHeaders(nil))
	assert.NoError(t, err)

	// Empty headers are dropped; only the key survives conversion.
	assert.Len(t, receivedOpts, 1)
	params := events.ApplyOptions(receivedOpts)
	assert.Equal(t, "test-key", params.Key)
	assert.Nil(t, params.Headers)
}
