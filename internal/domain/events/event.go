package events

import "time"

// DomainEvent is anything that happened in the domain and is worth telling
// other parts of the system about.
type DomainEvent interface {
	EventType() EventType
	OccurredAt() time.Time
}

// EventEnvelope encapsulates all event data flowing through the bus,
// providing a standardized format for routing and delivery.
type EventEnvelope struct {
	// Type identifies the category of this event for routing and handling.
	Type EventType

	// Key enables consistent event routing, typically containing a business
	// identifier like a job ID that events can be partitioned by.
	Key string

	// Headers contain metadata key-value pairs attached to the event.
	Headers map[string]string

	// Timestamp records when this event was created.
	Timestamp time.Time

	// Payload contains the actual event data. The concrete type depends on
	// the EventType.
	Payload any
}
