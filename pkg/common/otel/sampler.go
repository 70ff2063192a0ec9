package otel

import (
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// endpointExcluder drops spans for excluded HTTP routes such as health probes
// and samples everything else by ratio.
type endpointExcluder struct {
	endpoints   map[string]struct{}
	probability float64
	ratio       sdktrace.Sampler
}

func newEndpointExcluder(endpoints map[string]struct{}, probability float64) endpointExcluder {
	return endpointExcluder{
		endpoints:   endpoints,
		probability: probability,
		ratio:       sdktrace.TraceIDRatioBased(probability),
	}
}

// ShouldSample implements the sampler interface. It prevents the specified
// endpoints from being added to the trace.
func (ee endpointExcluder) ShouldSample(parameters sdktrace.SamplingParameters) sdktrace.SamplingResult {
	for _, attr := range parameters.Attributes {
		switch attr.Key {
		case "http.target", "url.path", "http.route":
			if _, exists := ee.endpoints[attr.Value.AsString()]; exists {
				return sdktrace.SamplingResult{Decision: sdktrace.Drop}
			}
		}
	}

	return ee.ratio.ShouldSample(parameters)
}

// Description implements the sampler interface.
func (ee endpointExcluder) Description() string {
	return "customSampler"
}
