package otel

import (
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

// NewResource creates a new OpenTelemetry resource with the service name and
// any extra attributes.
func NewResource(serviceName string, extra map[string]string) *resource.Resource {
	attrs := append(attributesFromMap(extra), semconv.ServiceNameKey.String(serviceName))
	return resource.NewWithAttributes(semconv.SchemaURL, attrs...)
}
