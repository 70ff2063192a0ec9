package sensor

import (
	"context"
	"time"
)

// nopMetrics discards everything. It is the default when no meter is wired.
type nopMetrics struct{}

func (nopMetrics) IncMessagePublished(context.Context, string)            {}
func (nopMetrics) IncPublishError(context.Context, string)                {}
func (nopMetrics) IncConnectionsAccepted(context.Context)                 {}
func (nopMetrics) IncConnectionsRejected(context.Context)                 {}
func (nopMetrics) IncAcceptErrors(context.Context)                        {}
func (nopMetrics) AddActiveConnections(context.Context, int64)            {}
func (nopMetrics) ObserveConnectionDuration(context.Context, time.Duration) {}
func (nopMetrics) IncProtocolErrors(context.Context)                      {}
func (nopMetrics) IncRecordsDecoded(context.Context)                      {}
func (nopMetrics) IncRecordsSkipped(context.Context, string)              {}
func (nopMetrics) IncEventsPublished(context.Context)                     {}
func (nopMetrics) IncPublishFailures(context.Context)                     {}
func (nopMetrics) TrackPool(func() PoolStats)                             {}
