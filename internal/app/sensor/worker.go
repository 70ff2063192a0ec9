package sensor

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/jobsensor/internal/domain/events"
	"github.com/ahrav/jobsensor/internal/domain/jobstatus"
	"github.com/ahrav/jobsensor/internal/domain/monitoring"
	"github.com/ahrav/jobsensor/internal/domain/shared"
	"github.com/ahrav/jobsensor/internal/infra/codec"
	"github.com/ahrav/jobsensor/pkg/common/logger"
)

// lease is a worker's exclusive hold on one connection. Releasing it closes
// the socket, which also ends any read blocked in the decoder.
type lease struct {
	conn net.Conn
	once sync.Once
	err  error
}

func (l *lease) release() {
	l.once.Do(func() { l.err = l.conn.Close() })
}

// connectionWorker turns one agent connection into published events.
type connectionWorker struct {
	builder   *monitoring.Builder
	publisher events.DomainEventPublisher
	limits    codec.Limits

	logger  *logger.Logger
	tracer  trace.Tracer
	metrics SensorMetrics
}

// serve owns conn until it returns. It never returns an error: everything a
// connection can do wrong is contained here and logged.
func (w *connectionWorker) serve(ctx context.Context, conn net.Conn) {
	l := &lease{conn: conn}
	defer l.release()
	stopHook := context.AfterFunc(ctx, l.release)
	defer stopHook()

	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetKeepAlive(false)
	}

	log := logger.NewLoggerContext(w.logger.With("remote_addr", conn.RemoteAddr().String()))
	sessionID := uuid.NewString()
	log.Add("session_id", sessionID)

	ctx, span := w.tracer.Start(ctx, "sensor.connection",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("session_id", sessionID),
			attribute.String("net.peer.addr", conn.RemoteAddr().String()),
		))
	defer span.End()

	started := time.Now()
	w.metrics.AddActiveConnections(ctx, 1)
	defer func() {
		w.metrics.AddActiveConnections(ctx, -1)
		w.metrics.ObserveConnectionDuration(ctx, time.Since(started))
	}()

	log.Debug(ctx, "Serving connection")

	dec, err := codec.NewDecoder(conn, w.limits)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decoder setup failed")
		log.Error(ctx, "Failed to create decoder", "error", err)
		return
	}

	for {
		rec, err := dec.Next()
		if err != nil {
			w.finish(ctx, log.Logger, span, dec, err)
			return
		}
		w.metrics.IncRecordsDecoded(ctx)
		w.handleRecord(ctx, log.Logger, sessionID, rec)
	}
}

func (w *connectionWorker) handleRecord(ctx context.Context, log *logger.Logger, sessionID string, rec *jobstatus.JobRecord) {
	evt, err := w.builder.Build(rec)
	if err != nil {
		reason := "invalid"
		switch {
		case errors.Is(err, monitoring.ErrEmptyReceiver):
			reason = "empty_receiver"
		case errors.Is(err, monitoring.ErrEmptyHistory):
			reason = "empty_history"
		}
		w.metrics.IncRecordsSkipped(ctx, reason)

		if shared.ClassOf(err) == shared.ClassData {
			log.Debug(ctx, "Skipping record", "job_id", rec.ID, "reason", reason)
		} else {
			log.Error(ctx, "Failed to build event", "job_id", rec.ID, "error", err)
		}
		return
	}

	if err := w.publisher.PublishDomainEvent(ctx, evt,
		events.WithKey(evt.ID),
		events.WithHeaders(map[string]string{
			"session_id":     sessionID,
			"receiver_id":    evt.ReceiverID,
			"receiver_group": evt.ReceiverGroup,
		}),
	); err != nil {
		w.metrics.IncPublishFailures(ctx)
		log.Error(ctx, "Failed to publish event", "job_id", evt.ID, "error", err)
		return
	}

	w.metrics.IncEventsPublished(ctx)
	log.Debug(ctx, "Published event",
		"job_id", evt.ID,
		"receiver_id", evt.ReceiverID,
		"payload_size", len(evt.Payload()),
		"expires_at", evt.ExpiresAt,
	)
}

func (w *connectionWorker) finish(ctx context.Context, log *logger.Logger, span trace.Span, dec *codec.Decoder, err error) {
	span.SetAttributes(
		attribute.Int("records", dec.Decoded()),
		attribute.Int("bytes", dec.NumBytesRead()),
	)

	switch {
	case errors.Is(err, codec.ErrEndOfStream):
		log.Debug(ctx, "Connection closed by peer", "records", dec.Decoded())
	case ctx.Err() != nil:
		log.Debug(ctx, "Connection released on shutdown", "records", dec.Decoded())
	case shared.ClassOf(err) == shared.ClassProtocol:
		w.metrics.IncProtocolErrors(ctx)
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed record stream")
		log.Warn(ctx, "Dropping connection with malformed input",
			"error", err,
			"records", dec.Decoded(),
			"offset", dec.NumBytesRead(),
		)
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "connection read failed")
		log.Warn(ctx, "Connection read failed", "error", err, "records", dec.Decoded())
	}
}
