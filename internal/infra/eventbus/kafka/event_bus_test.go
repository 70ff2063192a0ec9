package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ahrav/jobsensor/internal/domain/events"
	"github.com/ahrav/jobsensor/internal/domain/monitoring"
	"github.com/ahrav/jobsensor/internal/infra/eventbus/serialization"
	"github.com/ahrav/jobsensor/pkg/common/logger"
)

type countingMetrics struct {
	mu        sync.Mutex
	published map[string]int
	errors    map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{published: map[string]int{}, errors: map[string]int{}}
}

func (m *countingMetrics) IncMessagePublished(_ context.Context, topic string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published[topic]++
}

func (m *countingMetrics) IncPublishError(_ context.Context, topic string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[topic]++
}

// recordingProducer captures sent messages. Only SendMessage and Close are used
// by the bus.
type recordingProducer struct {
	sarama.SyncProducer
	mu   sync.Mutex
	sent []*sarama.ProducerMessage
}

func (p *recordingProducer) SendMessage(msg *sarama.ProducerMessage) (int32, int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, msg)
	return 0, int64(len(p.sent) - 1), nil
}

func (p *recordingProducer) Close() error { return nil }

const testTopic = "job-status"

func testEvent() *monitoring.MonitoringEvent {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &monitoring.MonitoringEvent{
		ID:         "job1",
		ReceiverID: "alice",
		CreatedAt:  now,
		ExpiresAt:  now.Add(time.Hour),
		Format:     "CLASSAD",
		Parameters: monitoring.Parameters{monitoring.ParamJobStatus: []string{"[x]"}},
		Messages:   []string{"[x]"},
	}
}

func newTestBus(t *testing.T, producer sarama.SyncProducer, metrics EventBusMetrics) *EventBus {
	t.Helper()
	bus, err := NewEventBus(
		producer,
		&Config{JobStatusTopic: testTopic, ClientID: "test", ServiceType: "sensor"},
		logger.Noop(),
		metrics,
		noop.NewTracerProvider().Tracer("test"),
	)
	require.NoError(t, err)
	return bus
}

func TestEventBus_Publish(t *testing.T) {
	t.Parallel()

	producer := &recordingProducer{}
	metrics := newCountingMetrics()
	bus := newTestBus(t, producer, metrics)

	evt := testEvent()
	err := bus.Publish(context.Background(), events.EventEnvelope{
		Type:      monitoring.EventTypeJobStatusChanged,
		Timestamp: evt.CreatedAt,
		Payload:   evt,
	}, events.WithKey("job1"), events.WithHeaders(map[string]string{"session_id": "s-1"}))
	require.NoError(t, err)

	require.Len(t, producer.sent, 1)
	msg := producer.sent[0]
	assert.Equal(t, testTopic, msg.Topic)
	assert.Equal(t, sarama.StringEncoder("job1"), msg.Key)
	assert.Equal(t, evt.CreatedAt, msg.Timestamp)
	assert.Contains(t, msg.Headers, sarama.RecordHeader{Key: []byte("session_id"), Value: []byte("s-1")})

	value, err := msg.Value.Encode()
	require.NoError(t, err)
	evtType, payload, err := serialization.DeserializeEventEnvelope(value)
	require.NoError(t, err)
	assert.Equal(t, monitoring.EventTypeJobStatusChanged, evtType)
	assert.Equal(t, "job1", payload.(*monitoring.MonitoringEvent).ID)

	assert.Equal(t, 1, metrics.published[testTopic])
	assert.Zero(t, metrics.errors[testTopic])
}

func TestEventBus_Publish_WithSyncProducerMock(t *testing.T) {
	t.Parallel()

	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		evtType, _, err := serialization.UnmarshalUniversalEnvelope(val)
		if err != nil {
			return err
		}
		if evtType != monitoring.EventTypeJobStatusChanged {
			return errors.New("unexpected event type " + string(evtType))
		}
		return nil
	})
	producer.ExpectSendMessageAndFail(sarama.ErrLeaderNotAvailable)

	metrics := newCountingMetrics()
	bus := newTestBus(t, producer, metrics)
	envelope := events.EventEnvelope{Type: monitoring.EventTypeJobStatusChanged, Payload: testEvent()}

	require.NoError(t, bus.Publish(context.Background(), envelope))

	err := bus.Publish(context.Background(), envelope)
	assert.ErrorIs(t, err, sarama.ErrLeaderNotAvailable)

	assert.Equal(t, 1, metrics.published[testTopic])
	assert.Equal(t, 1, metrics.errors[testTopic])
	require.NoError(t, bus.Close())
}

func TestEventBus_Publish_UnknownType(t *testing.T) {
	t.Parallel()

	bus := newTestBus(t, &recordingProducer{}, newCountingMetrics())
	err := bus.Publish(context.Background(), events.EventEnvelope{Type: "Other"})
	assert.Error(t, err)
}

func TestEventBus_Publish_SerializationFailure(t *testing.T) {
	t.Parallel()

	producer := &recordingProducer{}
	metrics := newCountingMetrics()
	bus := newTestBus(t, producer, metrics)

	err := bus.Publish(context.Background(), events.EventEnvelope{
		Type:    monitoring.EventTypeJobStatusChanged,
		Payload: "not an event",
	})
	assert.Error(t, err)
	assert.Empty(t, producer.sent)
	assert.Equal(t, 1, metrics.errors[testTopic])
}

func TestNewEventBus_Validation(t *testing.T) {
	t.Parallel()

	tracer := noop.NewTracerProvider().Tracer("test")
	cfg := &Config{JobStatusTopic: testTopic}

	_, err := NewEventBus(nil, cfg, logger.Noop(), newCountingMetrics(), tracer)
	assert.Error(t, err)

	_, err = NewEventBus(&recordingProducer{}, cfg, logger.Noop(), nil, tracer)
	assert.Error(t, err)

	_, err = NewEventBus(&recordingProducer{}, &Config{}, logger.Noop(), newCountingMetrics(), tracer)
	assert.Error(t, err)
}
