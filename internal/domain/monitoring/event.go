// Package monitoring turns decoded job-status records into time-bounded
// monitoring events and renders them through pluggable output formats.
package monitoring

import (
	"time"

	"github.com/ahrav/jobsensor/internal/domain/events"
)

// EventTypeJobStatusChanged is emitted once per decoded record that yields
// an event.
const EventTypeJobStatusChanged events.EventType = "JobStatusChanged"

// ParamJobStatus is the Parameters key under which the rendered payload list
// is stored.
const ParamJobStatus = "jobStatus"

// Parameters is the keyed container handed to output formats.
type Parameters map[string]any

var _ events.DomainEvent = (*MonitoringEvent)(nil)

// MonitoringEvent is the unit of output handed to the publish interface.
// Once published it belongs to the consumer and must not be mutated.
type MonitoringEvent struct {
	// ID is the job identifier.
	ID string
	// ReceiverID is the owning user. Never empty on a built event.
	ReceiverID string
	// ReceiverGroup is the job's virtual organization.
	ReceiverGroup string

	CreatedAt time.Time
	ExpiresAt time.Time

	// Parameters holds the payload list under ParamJobStatus.
	Parameters Parameters

	// Format names the output format applied by ApplyFormat and Messages
	// holds its result.
	Format   string
	Messages []string
}

func (e *MonitoringEvent) EventType() events.EventType { return EventTypeJobStatusChanged }
func (e *MonitoringEvent) OccurredAt() time.Time       { return e.CreatedAt }

// Payload returns the rendered status records, or nil if the parameter is
// missing.
func (e *MonitoringEvent) Payload() []string {
	payload, _ := e.Parameters[ParamJobStatus].([]string)
	return payload
}

// TTL is the length of the event's validity window.
func (e *MonitoringEvent) TTL() time.Duration { return e.ExpiresAt.Sub(e.CreatedAt) }

// ApplyFormat renders the event through f and records the result.
func (e *MonitoringEvent) ApplyFormat(f Format) error {
	msgs, err := f.Apply(e.Parameters)
	if err != nil {
		return err
	}
	e.Format = f.Name()
	e.Messages = msgs
	return nil
}
