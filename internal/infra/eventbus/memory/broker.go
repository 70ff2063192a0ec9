// Package memory provides an in-memory implementation of the event bus.
// It offers a lightweight, non-persistent message broker suitable for testing
// and development environments where durability is not required.
package memory

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/ahrav/jobsensor/internal/domain/events"
)

type handlerList[T any] []*subscription[T]

type subscription[T any] struct {
	eventTypes []events.EventType
	handler    func(context.Context, T) error
	stop       func() bool
}

func (s *subscription[T]) wants(t events.EventType) bool {
	return len(s.eventTypes) == 0 || slices.Contains(s.eventTypes, t)
}

var (
	_ events.EventBus   = (*Broker)(nil)
	_ events.Subscriber = (*Broker)(nil)
)

// Broker is an in-process EventBus. Published envelopes are delivered
// synchronously to every subscriber whose event types match, which makes it
// useful for tests and for running the sensor without Kafka.
type Broker struct {
	mu       sync.RWMutex
	closed   bool
	handlers handlerList[events.EventEnvelope]
}

// NewBroker creates and initializes a new in-memory message broker.
func NewBroker() *Broker {
	return &Broker{handlers: make(handlerList[events.EventEnvelope], 0)}
}

// ErrClosed is returned by Publish and Subscribe after Close.
var ErrClosed = errors.New("memory broker closed")

// subscribe is a generic helper function for handling all subscription types.
func subscribe[T any](ctx context.Context, mu *sync.RWMutex, handlers *handlerList[T], sub *subscription[T]) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if sub.handler == nil {
		return errors.New("handler cannot be nil")
	}

	mu.Lock()
	defer mu.Unlock()
	*handlers = append(*handlers, sub)

	// A context that can never be cancelled registers nothing here.
	sub.stop = context.AfterFunc(ctx, func() {
		mu.Lock()
		defer mu.Unlock()
		// Remove by identity; indexes shift as other subscriptions leave.
		*handlers = slices.DeleteFunc(*handlers, func(s *subscription[T]) bool { return s == sub })
	})

	return nil
}

// publish is a generic helper function for handling all publish types.
func publish[T any](ctx context.Context, mu *sync.RWMutex, handlers *handlerList[T], eventType events.EventType, msg T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	mu.RLock()
	// Create a copy of handlers to avoid holding the lock while executing them.
	handlersCopy := make(handlerList[T], len(*handlers))
	copy(handlersCopy, *handlers)
	mu.RUnlock()

	for _, sub := range handlersCopy {
		if !sub.wants(eventType) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := sub.handler(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

// Publish delivers event to all matching subscribers, stopping at the first error.
func (b *Broker) Publish(ctx context.Context, event events.EventEnvelope, opts ...events.PublishOption) error {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	params := events.ApplyOptions(opts)
	if params.Key != "" {
		event.Key = params.Key
	}
	if len(params.Headers) > 0 {
		event.Headers = params.Headers
	}

	return publish(ctx, &b.mu, &b.handlers, event.Type, event)
}

// Subscribe registers handler for eventTypes; an empty list matches every type.
// The subscription is removed when ctx is cancelled.
func (b *Broker) Subscribe(ctx context.Context, eventTypes []events.EventType, handler events.HandlerFunc) error {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	sub := &subscription[events.EventEnvelope]{eventTypes: slices.Clone(eventTypes), handler: handler}
	return subscribe(ctx, &b.mu, &b.handlers, sub)
}

// Close drops all subscribers. Further calls to Publish fail.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for _, sub := range b.handlers {
		sub.stop()
	}
	b.handlers = nil
	return nil
}
