// Package kafka provides a Kafka-based implementation of the event bus for asynchronous messaging.
package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/jobsensor/internal/domain/events"
	"github.com/ahrav/jobsensor/internal/domain/monitoring"
	"github.com/ahrav/jobsensor/internal/infra/eventbus/kafka/tracing"
	"github.com/ahrav/jobsensor/internal/infra/eventbus/serialization"
	"github.com/ahrav/jobsensor/pkg/common/logger"
)

// EventBusMetrics defines metrics operations needed to monitor Kafka message handling.
type EventBusMetrics interface {
	IncMessagePublished(ctx context.Context, topic string)
	IncPublishError(ctx context.Context, topic string)
}

// Config contains settings for connecting to and publishing to Kafka brokers.
type Config struct {
	// Brokers is a list of Kafka broker addresses to connect to.
	Brokers []string

	// JobStatusTopic receives one message per monitoring event.
	JobStatusTopic string

	// ClientID uniquely identifies this client to the Kafka cluster.
	ClientID string

	// ServiceType identifies the type of service (e.g., "sensor").
	ServiceType string
}

var _ events.EventBus = (*EventBus)(nil)

// EventBus implements the EventBus interface using Kafka as the underlying message broker.
// The sensor only produces, so the bus holds a single SyncProducer, which is safe for
// concurrent use by every connection worker.
type EventBus struct {
	producer sarama.SyncProducer

	// Maps domain event types to their Kafka topics
	topicMap map[events.EventType]string

	logger  *logger.Logger
	tracer  trace.Tracer
	metrics EventBusMetrics
}

// NewProducerConfig returns the sarama settings every producer in this service uses.
func NewProducerConfig(clientID string) *sarama.Config {
	config := sarama.NewConfig()
	config.ClientID = clientID
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Return.Successes = true
	config.Producer.Partitioner = sarama.NewHashPartitioner
	// Version should be consistent across all components
	config.Version = sarama.V3_6_0_0
	return config
}

// NewEventBus wraps an existing producer. Ownership of the producer passes to the bus.
func NewEventBus(
	producer sarama.SyncProducer,
	cfg *Config,
	logger *logger.Logger,
	metrics EventBusMetrics,
	tracer trace.Tracer,
) (*EventBus, error) {
	if producer == nil {
		return nil, errors.New("producer is required for kafka event bus")
	}
	if metrics == nil {
		return nil, fmt.Errorf("metrics are required for kafka event bus")
	}
	if cfg.JobStatusTopic == "" {
		return nil, fmt.Errorf("job status topic is required for kafka event bus")
	}

	logger = logger.With(
		"component", "kafka_event_bus",
		"client_id", cfg.ClientID,
		"service_type", cfg.ServiceType,
	)

	// Map domain events to their corresponding Kafka topics.
	topicMap := map[events.EventType]string{
		monitoring.EventTypeJobStatusChanged: cfg.JobStatusTopic, // sensor -> monitoring consumers
	}

	return &EventBus{
		producer: producer,
		topicMap: topicMap,
		logger:   logger,
		metrics:  metrics,
		tracer:   tracer,
	}, nil
}

// NewEventBusFromConfig creates a new Kafka-based event bus from the provided configuration,
// establishing the producer connection to the brokers.
func NewEventBusFromConfig(
	cfg *Config,
	logger *logger.Logger,
	metrics EventBusMetrics,
	tracer trace.Tracer,
) (*EventBus, error) {
	producer, err := sarama.NewSyncProducer(cfg.Brokers, NewProducerConfig(cfg.ClientID))
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	bus, err := NewEventBus(producer, cfg, logger, metrics, tracer)
	if err != nil {
		producer.Close()
		return nil, err
	}
	return bus, nil
}

// Publish sends a domain event to the Kafka topic configured for its type.
// It handles serialization, routing based on event type, and includes
// observability instrumentation for tracing and metrics.
// TODO: Retry transient broker errors (e.g. LEADER_NOT_AVAILABLE) before
// reporting the event as lost.
func (b *EventBus) Publish(ctx context.Context, event events.EventEnvelope, opts ...events.PublishOption) error {
	topic, ok := b.topicMap[event.Type]
	if !ok {
		return fmt.Errorf("unknown event type '%s', no topic mapped", event.Type)
	}

	ctx, span := tracing.StartProducerSpan(ctx, topic, b.tracer)
	defer span.End()

	pParams := events.ApplyOptions(opts)
	if pParams.Key != "" {
		event.Key = pParams.Key
		span.SetAttributes(attribute.String("event.key", event.Key))
	}
	if len(pParams.Headers) > 0 {
		event.Headers = pParams.Headers
	}

	msgBytes, err := serialization.SerializeEventEnvelope(event.Type, event.Payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to serialize payload")
		b.metrics.IncPublishError(ctx, topic)
		return fmt.Errorf("failed to serialize payload for event %s: %w", event.Type, err)
	}

	if err := b.publishToTopic(ctx, topic, event, msgBytes); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to publish message")
		return err
	}

	return nil
}

// publishToTopic handles the actual publishing of a message to a single Kafka topic
func (b *EventBus) publishToTopic(ctx context.Context, topic string, event events.EventEnvelope, msgBytes []byte) error {
	kafkaMsg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(event.Key),
		Value: sarama.ByteEncoder(msgBytes),
	}
	if !event.Timestamp.IsZero() {
		kafkaMsg.Timestamp = event.Timestamp
	}
	for k, v := range event.Headers {
		kafkaMsg.Headers = append(kafkaMsg.Headers, sarama.RecordHeader{Key: []byte(k), Value: []byte(v)})
	}

	tracing.InjectTraceContext(ctx, kafkaMsg)

	partition, offset, err := b.producer.SendMessage(kafkaMsg)
	if err != nil {
		b.metrics.IncPublishError(ctx, topic)
		return fmt.Errorf("failed to send message to kafka topic %s: %w", topic, err)
	}

	b.metrics.IncMessagePublished(ctx, topic)

	b.logger.Debug(ctx, "Published message to Kafka",
		"topic", topic,
		"partition", partition,
		"offset", offset,
		"key", event.Key,
	)

	return nil
}

// Close gracefully shuts down the event bus by closing the producer.
func (b *EventBus) Close() error {
	logger := b.logger.With("operation", "close")
	ctx, span := b.tracer.Start(context.Background(), "kafka_event_bus.close")
	defer span.End()

	if err := b.producer.Close(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to close producer")
		logger.Error(ctx, "Failed to close producer", "error", err)
		return err
	}

	span.AddEvent("closed_event_bus")
	span.SetStatus(codes.Ok, "closed event bus")
	logger.Info(ctx, "Closed event bus")

	return nil
}
