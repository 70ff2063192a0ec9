// Package jobstatus models the job-status records streamed by job-management
// agents: a job's identity plus its full status history as of one message.
package jobstatus

import (
	"fmt"
	"strings"
	"time"
)

// ExitCodeWaiting marks a snapshot whose exit code is not yet final. Such
// snapshots are never reported.
const ExitCodeWaiting = "W"

// StatusType enumerates the states an agent reports. The numeric values are
// part of the wire format.
type StatusType int

const (
	StatusRegistered StatusType = iota
	StatusPending
	StatusIdle
	StatusRunning
	StatusReallyRunning
	StatusCancelled
	StatusHeld
	StatusDoneOK
	StatusDoneFailed
	// StatusPurged is terminal: the job's monitoring record is being removed.
	StatusPurged
	StatusAborted
)

var statusNames = [...]string{
	StatusRegistered:    "REGISTERED",
	StatusPending:       "PENDING",
	StatusIdle:          "IDLE",
	StatusRunning:       "RUNNING",
	StatusReallyRunning: "REALLY-RUNNING",
	StatusCancelled:     "CANCELLED",
	StatusHeld:          "HELD",
	StatusDoneOK:        "DONE-OK",
	StatusDoneFailed:    "DONE-FAILED",
	StatusPurged:        "PURGED",
	StatusAborted:       "ABORTED",
}

func (t StatusType) String() string {
	if t >= 0 && int(t) < len(statusNames) {
		return statusNames[t]
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(t))
}

// ParseStatusType resolves a status by its wire name, case-insensitively.
func ParseStatusType(name string) (StatusType, error) {
	for i, n := range statusNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return StatusType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown job status %q", name)
}

// IsTerminal reports whether the status ends the job's monitoring lifetime.
func (t StatusType) IsTerminal() bool { return t == StatusPurged }

// JobStatusSnapshot is one point in a job's history. Optional fields are
// pointers: a nil pointer means the agent did not send the field, which is
// distinct from sending an empty string.
type JobStatusSnapshot struct {
	Name          string     `cbor:"name"`
	Type          StatusType `cbor:"type"`
	Timestamp     time.Time  `cbor:"timestamp"`
	ExitCode      *string    `cbor:"exitCode,omitempty"`
	FailureReason *string    `cbor:"failureReason,omitempty"`
	Description   *string    `cbor:"description,omitempty"`
}

// IsWaiting reports whether the snapshot carries the "waiting" exit code.
func (s *JobStatusSnapshot) IsWaiting() bool {
	return s.ExitCode != nil && *s.ExitCode == ExitCodeWaiting
}

// JobRecord identifies one job and carries its ordered status history.
// Insertion order is chronological order.
type JobRecord struct {
	ID                  string               `cbor:"id"`
	UserID              string               `cbor:"userId"`
	VirtualOrganization string               `cbor:"virtualOrganization"`
	ServiceURL          string               `cbor:"serviceUrl"`
	WorkerNode          *string              `cbor:"workerNode,omitempty"`
	CorrelationID       *string              `cbor:"correlationId,omitempty"`
	StatusHistory       []*JobStatusSnapshot `cbor:"statusHistory"`
}

// LastStatus returns the most recent snapshot, or nil when the history is
// empty.
func (r *JobRecord) LastStatus() *JobStatusSnapshot {
	if len(r.StatusHistory) == 0 {
		return nil
	}
	return r.StatusHistory[len(r.StatusHistory)-1]
}

// StringPtr is a convenience for building optional fields.
func StringPtr(s string) *string { return &s }
