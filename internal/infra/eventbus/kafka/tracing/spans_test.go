package tracing

import (
	"context"
	"testing"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestProducerHeaderCarrier(t *testing.T) {
	t.Parallel()

	msg := &sarama.ProducerMessage{Topic: "t"}
	c := producerHeaderCarrier{msg: msg}

	c.Set("a", "1")
	c.Set("b", "2")
	c.Set("a", "3")

	assert.Equal(t, "3", c.Get("a"))
	assert.Equal(t, "2", c.Get("b"))
	assert.Equal(t, "", c.Get("missing"))
	assert.ElementsMatch(t, []string{"a", "b"}, c.Keys())
}

func TestTraceContextPropagatesThroughHeaders(t *testing.T) {
	t.Parallel()

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	msg := &sarama.ProducerMessage{Topic: "t"}
	propagation.TraceContext{}.Inject(ctx, producerHeaderCarrier{msg: msg})

	assert.Contains(t, producerHeaderCarrier{msg: msg}.Get("traceparent"), traceID.String())

	extracted := propagation.TraceContext{}.Extract(context.Background(), producerHeaderCarrier{msg: msg})
	assert.Equal(t, traceID, trace.SpanContextFromContext(extracted).TraceID())
}
