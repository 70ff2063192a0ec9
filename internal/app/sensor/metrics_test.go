package sensor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestNewSensorMetrics(t *testing.T) {
	t.Parallel()

	m, err := NewSensorMetrics(noop.NewMeterProvider())
	require.NoError(t, err)

	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.IncConnectionsAccepted(ctx)
		m.IncConnectionsRejected(ctx)
		m.IncAcceptErrors(ctx)
		m.AddActiveConnections(ctx, 1)
		m.ObserveConnectionDuration(ctx, time.Second)
		m.IncProtocolErrors(ctx)
		m.IncRecordsDecoded(ctx)
		m.IncRecordsSkipped(ctx, "empty_receiver")
		m.IncEventsPublished(ctx)
		m.IncPublishFailures(ctx)
		m.IncMessagePublished(ctx, "job-status")
		m.IncPublishError(ctx, "job-status")
		m.TrackPool(func() PoolStats { return PoolStats{Queued: 1} })
		m.TrackPool(nil)
	})

	var _ SensorMetrics = m
}
