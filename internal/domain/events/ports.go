// Package events provides domain event handling capabilities for communicating state changes
// and important activities across system boundaries in a decoupled way.
package events

import "context"

// DomainEventPublisher publishes domain events to notify other parts of the system about
// important domain changes. It provides a technology-agnostic interface to decouple event
// producers from the underlying messaging infrastructure.
//
// Implementations must be safe for concurrent use: every connection worker
// publishes independently.
type DomainEventPublisher interface {
	// PublishDomainEvent sends a domain event to interested subscribers. The provided context
	// controls cancellation and deadlines. Optional PublishOptions configure routing behavior.
	// Returns an error if publishing fails.
	PublishDomainEvent(ctx context.Context, event DomainEvent, opts ...PublishOption) error
}

// EventBus enables publishing events across system boundaries. It abstracts
// messaging infrastructure details (like Kafka) to keep domain logic focused
// on business concerns rather than transport mechanisms.
type EventBus interface {
	// Publish sends an event envelope to the bus. Optional PublishOptions
	// configure delivery behavior.
	Publish(ctx context.Context, event EventEnvelope, opts ...PublishOption) error

	// Close gracefully shuts down the event bus and releases associated resources.
	Close() error
}

// Subscriber is implemented by buses that can deliver events back in-process.
type Subscriber interface {
	// Subscribe registers handler for the given event types. The
	// subscription ends when ctx is cancelled.
	Subscribe(ctx context.Context, eventTypes []EventType, handler HandlerFunc) error
}
