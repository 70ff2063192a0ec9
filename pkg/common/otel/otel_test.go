package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestEndpointExcluder(t *testing.T) {
	t.Parallel()

	sampler := newEndpointExcluder(map[string]struct{}{"/health": {}}, 1.0)
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")

	excluded := sampler.ShouldSample(sdktrace.SamplingParameters{
		TraceID:    traceID,
		Attributes: []attribute.KeyValue{attribute.String("url.path", "/health")},
	})
	assert.Equal(t, sdktrace.Drop, excluded.Decision)

	kept := sampler.ShouldSample(sdktrace.SamplingParameters{
		TraceID:    traceID,
		Attributes: []attribute.KeyValue{attribute.String("url.path", "/sensor/suspend")},
	})
	assert.Equal(t, sdktrace.RecordAndSample, kept.Decision)

	none := newEndpointExcluder(nil, 0).ShouldSample(sdktrace.SamplingParameters{TraceID: traceID})
	assert.Equal(t, sdktrace.Drop, none.Decision)
}

func TestGetTraceID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "00000000000000000000000000000000", GetTraceID(context.Background()))

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))
	assert.Equal(t, traceID.String(), GetTraceID(ctx))
}

func TestNewResource(t *testing.T) {
	t.Parallel()

	res := NewResource("jobsensor", map[string]string{"deployment": "test"})
	set := res.Set()

	v, ok := set.Value("service.name")
	assert.True(t, ok)
	assert.Equal(t, "jobsensor", v.AsString())

	v, ok = set.Value("deployment")
	assert.True(t, ok)
	assert.Equal(t, "test", v.AsString())
}
