package monitoring

import (
	"errors"
	"time"

	"github.com/ahrav/jobsensor/internal/domain/jobstatus"
	"github.com/ahrav/jobsensor/internal/domain/shared"
	"github.com/ahrav/jobsensor/pkg/common/timeutil"
)

const (
	// DefaultExpiration is the validity window of a non-terminal event.
	DefaultExpiration = 60 * time.Minute
	// PurgedExpiration is the validity window once a job has been purged.
	PurgedExpiration = 5 * time.Minute
)

var (
	// ErrEmptyReceiver is wrapped in the DataError returned for records
	// without a user id.
	ErrEmptyReceiver = errors.New("receiver identity is empty")
	// ErrEmptyHistory is wrapped in the DataError returned for records
	// without status history.
	ErrEmptyHistory = errors.New("status history is empty")
)

// Builder transforms a JobRecord into at most one MonitoringEvent. It holds
// no per-record state and is safe for concurrent use.
type Builder struct {
	expiration time.Duration
	clock      timeutil.Provider
	formats    *Registry
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithClock overrides the time source used for the validity window.
func WithClock(p timeutil.Provider) BuilderOption {
	return func(b *Builder) { b.clock = p }
}

// WithFormats overrides the output format registry.
func WithFormats(r *Registry) BuilderOption {
	return func(b *Builder) { b.formats = r }
}

// NewBuilder creates a Builder whose non-terminal events live for
// expiration. Values below one minute fall back to DefaultExpiration and
// sub-minute remainders are truncated.
func NewBuilder(expiration time.Duration, opts ...BuilderOption) *Builder {
	expiration = expiration.Truncate(time.Minute)
	if expiration < time.Minute {
		expiration = DefaultExpiration
	}

	b := &Builder{
		expiration: expiration,
		clock:      timeutil.Default(),
		formats:    DefaultRegistry(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Expiration returns the configured validity window for non-terminal events.
func (b *Builder) Expiration() time.Duration { return b.expiration }

// Build produces the event for rec. Records without a receiver or history
// yield a DataError and no event; that is routine, not a failure of the
// connection. An event whose snapshots were all filtered out is still
// produced, with an empty payload list.
func (b *Builder) Build(rec *jobstatus.JobRecord) (*MonitoringEvent, error) {
	if rec == nil {
		return nil, shared.NewDataError("build event", errors.New("record is nil"))
	}
	if rec.UserID == "" {
		return nil, shared.NewDataError("build event "+rec.ID, ErrEmptyReceiver)
	}
	if len(rec.StatusHistory) == 0 {
		return nil, shared.NewDataError("build event "+rec.ID, ErrEmptyHistory)
	}

	payload := make([]string, 0, len(rec.StatusHistory))
	for _, snapshot := range rec.StatusHistory {
		if snapshot == nil || snapshot.IsWaiting() {
			continue
		}
		payload = append(payload, renderClassAd(rec, snapshot))
	}

	createdAt := b.clock.Now()
	window := b.expiration
	if last := rec.LastStatus(); last != nil && last.Type.IsTerminal() {
		window = PurgedExpiration
	}

	evt := &MonitoringEvent{
		ID:            rec.ID,
		ReceiverID:    rec.UserID,
		ReceiverGroup: rec.VirtualOrganization,
		CreatedAt:     createdAt,
		ExpiresAt:     createdAt.Add(window),
		Parameters:    Parameters{ParamJobStatus: payload},
	}

	format := b.formats.Default()
	if format == nil {
		return nil, shared.NewConfigurationError("build event", errors.New("no default output format"))
	}
	if err := evt.ApplyFormat(format); err != nil {
		return nil, err
	}

	return evt, nil
}
