package kafka

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/jobsensor/internal/domain/events"
	"github.com/ahrav/jobsensor/pkg/common/logger"
)

// ConnectWithRetry attempts to establish a connection to Kafka with exponential backoff.
// It will retry failed connection attempts for up to 5 minutes, starting with 5 second intervals.
// This helps handle temporary network issues or Kafka cluster unavailability during startup.
func ConnectWithRetry(cfg *Config, log *logger.Logger, metrics EventBusMetrics, tracer trace.Tracer) (events.EventBus, error) {
	var bus events.EventBus

	attempt := 0
	operation := func() error {
		attempt++
		b, err := NewEventBusFromConfig(cfg, log, metrics, tracer)
		if err != nil {
			log.Warn(context.Background(), "Failed to connect to Kafka, will retry",
				"attempt", attempt,
				"brokers", cfg.Brokers,
				"error", err,
			)
			return err
		}
		bus = b
		return nil
	}

	if err := backoff.Retry(operation, newConnectBackoff()); err != nil {
		return nil, fmt.Errorf("failed to connect to Kafka after retries: %w", err)
	}

	return bus, nil
}
