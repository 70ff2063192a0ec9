package sensor

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"time"

	"github.com/ahrav/jobsensor/internal/domain/shared"
	"github.com/ahrav/jobsensor/pkg/common"
	"github.com/ahrav/jobsensor/pkg/common/logger"
)

// Backlog is the listen queue length requested from the OS.
const Backlog = 10

// Accept errors other than timeouts are retried at most acceptErrorRate times
// a second and logged at most once per acceptErrorLogInterval.
const (
	acceptErrorRate        = 10
	acceptErrorBurst       = 1
	acceptErrorLogInterval = time.Second
)

type deadliner interface {
	SetDeadline(t time.Time) error
}

// Dispatcher accepts connections and hands them to the pool. It owns the
// listening socket.
type Dispatcher struct {
	ln            net.Listener
	pool          *Pool[net.Conn]
	acceptTimeout time.Duration
	limiter       *common.RateLimiter
	logLimiter    *common.RateLimiter
	suppressed    int

	logger  *logger.Logger
	metrics SensorMetrics

	stopped atomic.Bool
}

// NewDispatcher creates a Dispatcher over ln. The pool must already be
// started.
func NewDispatcher(
	ln net.Listener,
	pool *Pool[net.Conn],
	acceptTimeout time.Duration,
	log *logger.Logger,
	metrics SensorMetrics,
) *Dispatcher {
	return &Dispatcher{
		ln:            ln,
		pool:          pool,
		acceptTimeout: acceptTimeout,
		limiter:       common.NewRateLimiter(acceptErrorRate, acceptErrorBurst),
		logLimiter:    common.NewRateLimiterEvery(acceptErrorLogInterval),
		logger:        log.With("component", "dispatcher", "addr", ln.Addr().String()),
		metrics:       metrics,
	}
}

// Addr returns the bound address.
func (d *Dispatcher) Addr() net.Addr { return d.ln.Addr() }

// Serve runs the accept loop until Stop is called or ctx ends. It returns nil
// on a requested stop and a TransportError if the listener goes away on its
// own.
func (d *Dispatcher) Serve(ctx context.Context) error {
	d.logger.Info(ctx, "Accepting connections", "accept_timeout", d.acceptTimeout.String())

	for {
		if d.stopped.Load() || ctx.Err() != nil {
			return nil
		}

		if dl, ok := d.ln.(deadliner); ok && d.acceptTimeout > 0 {
			_ = dl.SetDeadline(time.Now().Add(d.acceptTimeout))
		}

		conn, err := d.ln.Accept()
		if err != nil {
			if d.stopped.Load() || ctx.Err() != nil {
				return nil
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return shared.NewTransportError("accept", err)
			}

			d.metrics.IncAcceptErrors(ctx)
			d.logAcceptError(ctx, err)
			if werr := d.limiter.Wait(ctx); werr != nil {
				return nil
			}
			continue
		}

		d.metrics.IncConnectionsAccepted(ctx)
		if err := d.pool.Submit(conn); err != nil {
			if errors.Is(err, ErrQueueFull) {
				d.metrics.IncConnectionsRejected(ctx)
			}
			d.logger.Warn(ctx, "Rejecting connection",
				"remote_addr", conn.RemoteAddr().String(),
				"error", err,
			)
			_ = conn.Close()
		}
	}
}

// Stop closes the listener, which unblocks Accept, then shuts the pool down.
// Queued connections are closed without being served.
func (d *Dispatcher) Stop() {
	if d.stopped.CompareAndSwap(false, true) {
		if err := d.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			d.logger.Warn(context.Background(), "Closing listener failed", "error", err)
		}
	}
	d.pool.Shutdown()
}

// logAcceptError reports accept failures without flooding the log when the
// listener fails on every call.
func (d *Dispatcher) logAcceptError(ctx context.Context, err error) {
	if !d.logLimiter.Allow() {
		d.suppressed++
		return
	}
	d.logger.Error(ctx, "Accept failed", "error", err, "suppressed", d.suppressed)
	d.suppressed = 0
}
