package kafka

import (
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/cenkalti/backoff"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/jobsensor/internal/domain/events"
	"github.com/ahrav/jobsensor/pkg/common/logger"
)

// NewClient creates a Kafka client with the service-wide producer settings.
func NewClient(cfg *Config) (sarama.Client, error) {
	return sarama.NewClient(cfg.Brokers, NewProducerConfig(cfg.ClientID))
}

// ConnectEventBus creates an EventBus instance using the provided Kafka client.
// It retries producer creation so that a broker that is still starting does not
// fail the sensor.
func ConnectEventBus(
	cfg *Config,
	client sarama.Client,
	logger *logger.Logger,
	metrics EventBusMetrics,
	tracer trace.Tracer,
) (events.EventBus, error) {
	var eventBus events.EventBus

	operation := func() error {
		producer, err := sarama.NewSyncProducerFromClient(client)
		if err != nil {
			return fmt.Errorf("creating producer: %w", err)
		}

		bus, err := NewEventBus(producer, cfg, logger, metrics, tracer)
		if err != nil {
			producer.Close()
			return backoff.Permanent(fmt.Errorf("creating event bus: %w", err))
		}
		eventBus = bus
		return nil
	}

	if err := backoff.Retry(operation, newConnectBackoff()); err != nil {
		return nil, fmt.Errorf("failed to connect event bus after retries: %w", err)
	}

	return eventBus, nil
}

func newConnectBackoff() *backoff.ExponentialBackOff {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.MaxElapsedTime = 5 * time.Minute
	expBackoff.InitialInterval = 5 * time.Second
	return expBackoff
}
