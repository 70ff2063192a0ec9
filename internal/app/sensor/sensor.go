// Package sensor implements the job-status sensor: a TCP listener that
// streams job-status records from agents, turns them into monitoring events,
// and publishes them. Its lifecycle is driven by a host through the Lifecycle
// capability set.
package sensor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ahrav/jobsensor/internal/config"
	"github.com/ahrav/jobsensor/internal/domain/events"
	"github.com/ahrav/jobsensor/internal/domain/monitoring"
	"github.com/ahrav/jobsensor/internal/domain/shared"
	"github.com/ahrav/jobsensor/internal/infra/codec"
	"github.com/ahrav/jobsensor/pkg/common/logger"
	"github.com/ahrav/jobsensor/pkg/common/timeutil"
)

// State is a lifecycle state.
type State int32

const (
	StateCreated State = iota
	StateInitialized
	StateRunning
	StateSuspended
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	case StateSuspended:
		return "suspended"
	case StateDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// ErrInvalidTransition is returned when a lifecycle call is not allowed in
// the current state.
var ErrInvalidTransition = errors.New("invalid lifecycle transition")

// Lifecycle is the capability set a host drives.
type Lifecycle interface {
	Init(ctx context.Context, props config.Properties) error
	Start(ctx context.Context) error
	Suspend(ctx context.Context) error
	Resume(ctx context.Context) error
	Destroy(ctx context.Context) error
}

// Descriptor identifies the sensor to its host.
type Descriptor struct {
	Name           string
	Type           string
	Scope          string
	EventOverwrite bool
}

// DefaultDescriptor describes the CREAM job sensor.
var DefaultDescriptor = Descriptor{
	Name:           "CREAM Job Sensor",
	Type:           "CREAM_JOBS",
	Scope:          "LOW",
	EventOverwrite: true,
}

var _ Lifecycle = (*Sensor)(nil)

// ListenFunc binds a listening socket on addr with the given backlog.
type ListenFunc func(addr string, backlog int) (net.Listener, error)

// run is everything that exists only while the sensor is Running.
type run struct {
	dispatcher *Dispatcher
	pool       *Pool[net.Conn]
	cancel     context.CancelFunc
	done       chan error
	// failed is set when the accept loop ends without being asked to.
	failed atomic.Bool
}

// Sensor is the lifecycle state machine around the dispatcher. All methods
// are safe for concurrent use; lifecycle calls are serialized.
type Sensor struct {
	mu       sync.Mutex
	state    State
	props    config.Properties
	cfg      config.SensorConfig
	listener net.Listener
	run      *run

	descriptor Descriptor
	publisher  events.DomainEventPublisher
	formats    *monitoring.Registry
	clock      timeutil.Provider
	limits     codec.Limits
	listen     ListenFunc

	logger  *logger.Logger
	tracer  trace.Tracer
	metrics SensorMetrics
}

// Option configures a Sensor.
type Option func(*Sensor)

// WithProperties sets the properties Start uses when the host never called Init.
func WithProperties(p config.Properties) Option {
	return func(s *Sensor) { s.props = p.Clone() }
}

// WithClock overrides the clock used to stamp events.
func WithClock(c timeutil.Provider) Option { return func(s *Sensor) { s.clock = c } }

// WithFormats overrides the output format registry.
func WithFormats(r *monitoring.Registry) Option { return func(s *Sensor) { s.formats = r } }

// WithDecodeLimits overrides the per-record decode limits.
func WithDecodeLimits(l codec.Limits) Option { return func(s *Sensor) { s.limits = l } }

// WithListenFunc overrides how the listening socket is bound.
func WithListenFunc(fn ListenFunc) Option { return func(s *Sensor) { s.listen = fn } }

// WithTracer sets the tracer for connection spans.
func WithTracer(t trace.Tracer) Option { return func(s *Sensor) { s.tracer = t } }

// WithMetrics sets the metrics sink.
func WithMetrics(m SensorMetrics) Option { return func(s *Sensor) { s.metrics = m } }

// WithDescriptor overrides the descriptor reported to the host.
func WithDescriptor(d Descriptor) Option { return func(s *Sensor) { s.descriptor = d } }

// New creates a Sensor in the Created state.
func New(publisher events.DomainEventPublisher, log *logger.Logger, opts ...Option) *Sensor {
	s := &Sensor{
		state:      StateCreated,
		props:      config.DefaultProperties(),
		cfg:        config.DefaultSensorConfig(),
		descriptor: DefaultDescriptor,
		publisher:  publisher,
		formats:    monitoring.DefaultRegistry(),
		clock:      timeutil.Default(),
		limits:     codec.DefaultLimits,
		listen:     listenTCP,
		logger:     log.With("component", "sensor"),
		tracer:     noop.NewTracerProvider().Tracer("sensor"),
		metrics:    nopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init parses props and binds the listener. It may be repeated before Start
// to rebind with new properties. An invalid property leaves the sensor as it
// was. A bind failure on a re-Init that had to release the old socket moves
// the sensor back to Created, so the next Start runs Init again.
func (s *Sensor) Init(ctx context.Context, props config.Properties) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateCreated && s.state != StateInitialized {
		return s.invalid("init")
	}
	return s.initLocked(ctx, props)
}

func (s *Sensor) initLocked(ctx context.Context, props config.Properties) error {
	cfg, err := config.ParseSensorConfig(ctx, props, s.cfg, s.logger)
	if err != nil {
		s.logger.Error(ctx, "Sensor configuration rejected", "error", err)
		return err
	}

	ln, err := s.listen(cfg.ListenAddr(), Backlog)
	if err != nil && s.listener != nil {
		// The current socket may hold the port being rebound. Once it is
		// released the sensor has nothing bound and must go through Init again.
		_ = s.listener.Close()
		s.listener = nil
		s.state = StateCreated
		ln, err = s.listen(cfg.ListenAddr(), Backlog)
	}
	if err != nil {
		return shared.NewConfigurationError("bind "+cfg.ListenAddr(), err)
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}

	s.props = props.Clone()
	s.cfg = cfg
	s.listener = ln
	s.state = StateInitialized

	s.logger.Info(ctx, "Sensor initialized",
		"addr", ln.Addr().String(),
		"workers", cfg.WorkerCount,
		"expiration_minutes", cfg.ExpirationMinutes,
		"max_pending", cfg.MaxPendingConnections,
	)
	return nil
}

// Start begins accepting connections. On a sensor that was never
// initialized it runs Init with the properties given to New first.
func (s *Sensor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateCreated:
		if err := s.initLocked(ctx, s.props); err != nil {
			return err
		}
	case StateInitialized:
	default:
		return s.invalid("start")
	}
	return s.startLocked(ctx)
}

// Suspend stops accepting, closes the listening socket and every open
// connection. Properties are kept for Resume.
func (s *Sensor) Suspend(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning {
		return s.invalid("suspend")
	}
	s.stopLocked()
	s.state = StateSuspended
	s.logger.Info(ctx, "Sensor suspended")
	return nil
}

// Resume rebinds the listener and starts accepting again. If the port can
// no longer be bound the sensor stays Suspended.
func (s *Sensor) Resume(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateSuspended {
		return s.invalid("resume")
	}

	ln, err := s.listen(s.cfg.ListenAddr(), Backlog)
	if err != nil {
		return shared.NewConfigurationError("bind "+s.cfg.ListenAddr(), err)
	}
	s.listener = ln

	if err := s.startLocked(ctx); err != nil {
		return err
	}
	s.logger.Info(ctx, "Sensor resumed")
	return nil
}

// Destroy releases everything. Destroying a destroyed sensor is a no-op.
func (s *Sensor) Destroy(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateDestroyed {
		return nil
	}
	if s.run != nil {
		s.stopLocked()
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
	s.state = StateDestroyed
	s.logger.Info(ctx, "Sensor destroyed")
	return nil
}

// startLocked builds a fresh pool and dispatcher over the bound listener.
func (s *Sensor) startLocked(ctx context.Context) error {
	worker := &connectionWorker{
		builder: monitoring.NewBuilder(s.cfg.Expiration(),
			monitoring.WithClock(s.clock),
			monitoring.WithFormats(s.formats),
		),
		publisher: s.publisher,
		limits:    s.limits,
		logger:    s.logger.With("component", "connection_worker"),
		tracer:    s.tracer,
		metrics:   s.metrics,
	}

	// Lifecycle calls may come from short-lived request contexts; the run
	// lives until the next transition out of Running.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	pool := NewPool(s.cfg.WorkerCount, s.cfg.MaxPendingConnections, worker.serve, closeConn)
	if err := pool.Start(runCtx); err != nil {
		cancel()
		return err
	}

	d := NewDispatcher(s.listener, pool, s.cfg.AcceptTimeout(), s.logger, s.metrics)
	r := &run{dispatcher: d, pool: pool, cancel: cancel, done: make(chan error, 1)}
	go func() {
		err := d.Serve(runCtx)
		if err != nil {
			r.failed.Store(true)
			s.logger.Error(runCtx, "Accept loop stopped, no new connections until Suspend and Resume", "error", err)
		}
		r.done <- err
	}()

	s.run = r
	s.metrics.TrackPool(pool.Stats)
	s.state = StateRunning

	s.logger.Info(ctx, "Sensor running", "addr", d.Addr().String())
	return nil
}

// stopLocked tears the run down and waits for the accept loop and every
// worker to exit. The listener is closed by the dispatcher.
func (s *Sensor) stopLocked() {
	r := s.run
	s.run = nil
	s.listener = nil
	s.metrics.TrackPool(nil)

	r.dispatcher.Stop()
	r.cancel()
	<-r.done
}

func (s *Sensor) invalid(op string) error {
	return fmt.Errorf("%s from %s: %w", op, s.state, ErrInvalidTransition)
}

func closeConn(c net.Conn) { _ = c.Close() }

// State returns the current lifecycle state.
func (s *Sensor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Accepting reports whether the sensor is Running with a live accept loop.
func (s *Sensor) Accepting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateRunning && s.run != nil && !s.run.failed.Load()
}

// Addr returns the bound listening address, or nil when nothing is bound.
func (s *Sensor) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stats returns pool statistics for the current run, or the zero value when
// not running.
func (s *Sensor) Stats() PoolStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run == nil {
		return PoolStats{}
	}
	return s.run.pool.Stats()
}

// Config returns the effective configuration.
func (s *Sensor) Config() config.SensorConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Properties returns a copy of the properties in effect.
func (s *Sensor) Properties() config.Properties {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.props.Clone()
}

// Descriptor returns the sensor's identity.
func (s *Sensor) Descriptor() Descriptor { return s.descriptor }

// ExecutionDelay is passed through to the host untouched.
func (s *Sensor) ExecutionDelay() string { return s.Config().ExecutionDelay }

// PushMode is passed through to the host untouched.
func (s *Sensor) PushMode() string { return s.Config().PushMode }
