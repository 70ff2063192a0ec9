package config

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/jobsensor/internal/domain/shared"
	"github.com/ahrav/jobsensor/pkg/common/logger"
)

const (
	DefaultExpirationMinutes   = 60
	DefaultWorkerCount         = 20
	DefaultAcceptTimeoutMillis = 60000
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// SensorConfig is the validated form of the sensor's properties.
type SensorConfig struct {
	// ListenerPort is the TCP port to bind. Zero asks the OS for a free port.
	ListenerPort int `validate:"min=0,max=65535"`
	// ExpirationMinutes is the validity window of non-terminal events.
	ExpirationMinutes int `validate:"min=1"`
	// WorkerCount is the number of connections served concurrently.
	WorkerCount int `validate:"min=1,max=10000"`
	// AcceptTimeoutMillis bounds each wait for a new connection.
	AcceptTimeoutMillis int `validate:"min=1"`
	// MaxPendingConnections bounds the queue of accepted connections waiting
	// for a worker. Zero means unbounded.
	MaxPendingConnections int `validate:"min=0"`

	// Passed through to the host untouched.
	ExecutionDelay string
	PushMode       string
}

// DefaultSensorConfig holds every default. It has no port.
func DefaultSensorConfig() SensorConfig {
	return SensorConfig{
		ExpirationMinutes:   DefaultExpirationMinutes,
		WorkerCount:         DefaultWorkerCount,
		AcceptTimeoutMillis: DefaultAcceptTimeoutMillis,
		ExecutionDelay:      "60000",
		PushMode:            "false",
	}
}

// Expiration returns the event validity window.
func (c SensorConfig) Expiration() time.Duration {
	return time.Duration(c.ExpirationMinutes) * time.Minute
}

// AcceptTimeout returns the per-accept deadline.
func (c SensorConfig) AcceptTimeout() time.Duration {
	return time.Duration(c.AcceptTimeoutMillis) * time.Millisecond
}

// ListenAddr returns the address to bind on all interfaces.
func (c SensorConfig) ListenAddr() string { return ":" + strconv.Itoa(c.ListenerPort) }

var errMissingPort = fmt.Errorf("%s is not set", PropListenerPort)

// ParseSensorConfig converts props into a SensorConfig. A missing or
// non-integer port, or an invalid optional setting, is a ConfigurationError.
// An invalid expiration is not fatal: prior's value is kept and a warning is
// logged.
func ParseSensorConfig(ctx context.Context, props Properties, prior SensorConfig, log *logger.Logger) (SensorConfig, error) {
	cfg := prior
	if cfg.ExpirationMinutes < 1 {
		cfg.ExpirationMinutes = DefaultExpirationMinutes
	}

	rawPort, ok := props.Get(PropListenerPort)
	if !ok || strings.TrimSpace(rawPort) == "" {
		return SensorConfig{}, shared.NewConfigurationError("parse "+PropListenerPort, errMissingPort)
	}
	port, err := strconv.Atoi(strings.TrimSpace(rawPort))
	if err != nil {
		return SensorConfig{}, shared.NewConfigurationError("parse "+PropListenerPort, err)
	}
	cfg.ListenerPort = port

	if raw, ok := props.Get(PropExpiration); ok {
		minutes, err := strconv.Atoi(strings.TrimSpace(raw))
		switch {
		case err != nil:
			log.Warn(ctx, "Ignoring invalid expiration", "value", raw, "error", err, "keeping_minutes", cfg.ExpirationMinutes)
		case minutes < 1:
			log.Warn(ctx, "Ignoring non-positive expiration", "value", raw, "keeping_minutes", cfg.ExpirationMinutes)
		default:
			cfg.ExpirationMinutes = minutes
		}
	}

	for _, opt := range []struct {
		name string
		dst  *int
		def  int
	}{
		{PropWorkerCount, &cfg.WorkerCount, DefaultWorkerCount},
		{PropAcceptTimeout, &cfg.AcceptTimeoutMillis, DefaultAcceptTimeoutMillis},
		{PropMaxPendingConnections, &cfg.MaxPendingConnections, 0},
	} {
		raw, ok := props.Get(opt.name)
		if !ok {
			if *opt.dst == 0 {
				*opt.dst = opt.def
			}
			continue
		}
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return SensorConfig{}, shared.NewConfigurationError("parse "+opt.name, err)
		}
		*opt.dst = v
	}

	if v, ok := props.Get(PropExecutionDelay); ok {
		cfg.ExecutionDelay = v
	}
	if v, ok := props.Get(PropPushMode); ok {
		cfg.PushMode = v
	}

	if err := validate.Struct(cfg); err != nil {
		return SensorConfig{}, shared.NewConfigurationError("validate sensor config", describe(err))
	}
	return cfg, nil
}

func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s=%v fails %s=%s", fe.Field(), fe.Value(), fe.Tag(), fe.Param()))
	}
	return errors.New(strings.Join(msgs, "; "))
}
