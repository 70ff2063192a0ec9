package kafka

import (
	"context"

	"github.com/ahrav/jobsensor/internal/domain/events"
)

var _ events.DomainEventPublisher = (*DomainEventPublisher)(nil)

// DomainEventPublisher implements the events.DomainEventPublisher interface on top
// of an event bus. It adapts domain-level events to the envelope the bus routes.
type DomainEventPublisher struct {
	eventBus events.EventBus
}

// NewDomainEventPublisher creates a new publisher that will distribute domain
// events through the provided event bus.
func NewDomainEventPublisher(bus events.EventBus) *DomainEventPublisher {
	return &DomainEventPublisher{eventBus: bus}
}

// PublishDomainEvent sends a domain event through the event bus. It stamps the
// envelope with the event's occurrence time and converts domain-level publishing
// options to event bus options.
func (pub *DomainEventPublisher) PublishDomainEvent(
	ctx context.Context,
	event events.DomainEvent,
	domainOpts ...events.PublishOption,
) error {
	evt := events.EventEnvelope{
		Type:      event.EventType(),
		Timestamp: event.OccurredAt(),
		Payload:   event,
	}

	opts := events.ConvertDomainOptions(domainOpts)

	return pub.eventBus.Publish(ctx, evt, opts...)
}
