package sensor

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ahrav/jobsensor/internal/infra/eventbus/kafka"
)

// SensorMetrics defines metrics operations needed by the sensor.
type SensorMetrics interface {
	// Messaging metrics
	kafka.EventBusMetrics

	// Listener metrics
	IncConnectionsAccepted(ctx context.Context)
	IncConnectionsRejected(ctx context.Context)
	IncAcceptErrors(ctx context.Context)

	// Connection metrics
	AddActiveConnections(ctx context.Context, delta int64)
	ObserveConnectionDuration(ctx context.Context, d time.Duration)
	IncProtocolErrors(ctx context.Context)

	// Record metrics
	IncRecordsDecoded(ctx context.Context)
	IncRecordsSkipped(ctx context.Context, reason string)
	IncEventsPublished(ctx context.Context)
	IncPublishFailures(ctx context.Context)

	// TrackPool makes the gauges report stats from fn; nil stops reporting.
	TrackPool(fn func() PoolStats)
}

// sensorMetrics implements SensorMetrics
type sensorMetrics struct {
	// Messaging metrics
	messagesPublished metric.Int64Counter
	publishErrors     metric.Int64Counter

	// Listener metrics
	connectionsAccepted metric.Int64Counter
	connectionsRejected metric.Int64Counter
	acceptErrors        metric.Int64Counter

	// Connection metrics
	activeConnections  metric.Int64UpDownCounter
	connectionDuration metric.Float64Histogram
	protocolErrors     metric.Int64Counter

	// Record metrics
	recordsDecoded  metric.Int64Counter
	recordsSkipped  metric.Int64Counter
	eventsPublished metric.Int64Counter
	publishFailures metric.Int64Counter

	// Pool gauges
	poolQueued metric.Int64ObservableGauge
	poolActive metric.Int64ObservableGauge

	poolMu    sync.RWMutex
	poolStats func() PoolStats
}

const namespace = "jobsensor"

// NewSensorMetrics creates a new sensor metrics instance.
func NewSensorMetrics(mp metric.MeterProvider) (*sensorMetrics, error) {
	meter := mp.Meter(namespace, metric.WithInstrumentationVersion("v0.1.0"))

	s := new(sensorMetrics)
	var err error

	// Initialize messaging metrics
	if s.messagesPublished, err = meter.Int64Counter(
		"messages_published_total",
		metric.WithDescription("Total number of messages published to the broker"),
	); err != nil {
		return nil, err
	}

	if s.publishErrors, err = meter.Int64Counter(
		"publish_errors_total",
		metric.WithDescription("Total number of broker publish errors"),
	); err != nil {
		return nil, err
	}

	// Initialize listener metrics
	if s.connectionsAccepted, err = meter.Int64Counter(
		"connections_accepted_total",
		metric.WithDescription("Total number of accepted agent connections"),
	); err != nil {
		return nil, err
	}

	if s.connectionsRejected, err = meter.Int64Counter(
		"connections_rejected_total",
		metric.WithDescription("Total number of connections closed because the pending queue was full"),
	); err != nil {
		return nil, err
	}

	if s.acceptErrors, err = meter.Int64Counter(
		"accept_errors_total",
		metric.WithDescription("Total number of accept failures other than timeouts"),
	); err != nil {
		return nil, err
	}

	// Initialize connection metrics
	if s.activeConnections, err = meter.Int64UpDownCounter(
		"active_connections",
		metric.WithDescription("Number of connections currently being served"),
	); err != nil {
		return nil, err
	}

	if s.connectionDuration, err = meter.Float64Histogram(
		"connection_duration_seconds",
		metric.WithDescription("Lifetime of served connections"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if s.protocolErrors, err = meter.Int64Counter(
		"protocol_errors_total",
		metric.WithDescription("Total number of connections ended by malformed input"),
	); err != nil {
		return nil, err
	}

	// Initialize record metrics
	if s.recordsDecoded, err = meter.Int64Counter(
		"records_decoded_total",
		metric.WithDescription("Total number of job records decoded"),
	); err != nil {
		return nil, err
	}

	if s.recordsSkipped, err = meter.Int64Counter(
		"records_skipped_total",
		metric.WithDescription("Total number of records that produced no event"),
	); err != nil {
		return nil, err
	}

	if s.eventsPublished, err = meter.Int64Counter(
		"events_published_total",
		metric.WithDescription("Total number of monitoring events published"),
	); err != nil {
		return nil, err
	}

	if s.publishFailures, err = meter.Int64Counter(
		"event_publish_failures_total",
		metric.WithDescription("Total number of monitoring events the publisher rejected"),
	); err != nil {
		return nil, err
	}

	// Initialize pool gauges
	if s.poolQueued, err = meter.Int64ObservableGauge(
		"pool_queued_connections",
		metric.WithDescription("Accepted connections waiting for a worker"),
	); err != nil {
		return nil, err
	}

	if s.poolActive, err = meter.Int64ObservableGauge(
		"pool_active_workers",
		metric.WithDescription("Workers currently serving a connection"),
	); err != nil {
		return nil, err
	}

	if _, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s.poolMu.RLock()
		fn := s.poolStats
		s.poolMu.RUnlock()
		if fn == nil {
			return nil
		}
		stats := fn()
		o.ObserveInt64(s.poolQueued, int64(stats.Queued))
		o.ObserveInt64(s.poolActive, int64(stats.Active))
		return nil
	}, s.poolQueued, s.poolActive); err != nil {
		return nil, err
	}

	return s, nil
}

func (m *sensorMetrics) IncMessagePublished(ctx context.Context, topic string) {
	m.messagesPublished.Add(ctx, 1, metric.WithAttributes(attribute.String("topic", topic)))
}

func (m *sensorMetrics) IncPublishError(ctx context.Context, topic string) {
	m.publishErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("topic", topic)))
}

func (m *sensorMetrics) IncConnectionsAccepted(ctx context.Context) {
	m.connectionsAccepted.Add(ctx, 1)
}

func (m *sensorMetrics) IncConnectionsRejected(ctx context.Context) {
	m.connectionsRejected.Add(ctx, 1)
}

func (m *sensorMetrics) IncAcceptErrors(ctx context.Context) { m.acceptErrors.Add(ctx, 1) }

func (m *sensorMetrics) AddActiveConnections(ctx context.Context, delta int64) {
	m.activeConnections.Add(ctx, delta)
}

func (m *sensorMetrics) ObserveConnectionDuration(ctx context.Context, d time.Duration) {
	m.connectionDuration.Record(ctx, d.Seconds())
}

func (m *sensorMetrics) IncProtocolErrors(ctx context.Context) { m.protocolErrors.Add(ctx, 1) }

func (m *sensorMetrics) IncRecordsDecoded(ctx context.Context) { m.recordsDecoded.Add(ctx, 1) }

func (m *sensorMetrics) IncRecordsSkipped(ctx context.Context, reason string) {
	m.recordsSkipped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *sensorMetrics) IncEventsPublished(ctx context.Context) { m.eventsPublished.Add(ctx, 1) }

func (m *sensorMetrics) IncPublishFailures(ctx context.Context) { m.publishFailures.Add(ctx, 1) }

func (m *sensorMetrics) TrackPool(fn func() PoolStats) {
	m.poolMu.Lock()
	defer m.poolMu.Unlock()
	m.poolStats = fn
}
