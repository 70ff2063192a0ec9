// Package config turns the host-supplied property list into a validated
// SensorConfig. Properties may come from a YAML file, the environment, or
// both layered together.
package config

import (
	"maps"
	"slices"
)

// Property names understood by the sensor. LISTENER_PORT keeps the host's
// historical spelling.
const (
	PropListenerPort          = "LISTENER_PORT"
	PropExpiration            = "expiration"
	PropExecutionDelay        = "executionDelay"
	PropPushMode              = "pushMode"
	PropWorkerCount           = "workerCount"
	PropAcceptTimeout         = "acceptTimeout"
	PropMaxPendingConnections = "maxPendingConnections"
)

// KnownProperties lists every property the sensor reads, in a stable order.
var KnownProperties = []string{
	PropListenerPort,
	PropExpiration,
	PropExecutionDelay,
	PropPushMode,
	PropWorkerCount,
	PropAcceptTimeout,
	PropMaxPendingConnections,
}

// Properties is the flat name/value container the host hands to the sensor.
type Properties map[string]string

// DefaultProperties returns the values a sensor starts with before any
// loader runs.
func DefaultProperties() Properties {
	return Properties{
		PropExecutionDelay: "60000",
		PropPushMode:       "false",
		PropExpiration:     "60",
	}
}

// Get returns the value of name and whether it was set.
func (p Properties) Get(name string) (string, bool) {
	v, ok := p[name]
	return v, ok
}

// Set assigns name. It is a no-op on a nil Properties.
func (p Properties) Set(name, value string) {
	if p != nil {
		p[name] = value
	}
}

// Clone returns an independent copy.
func (p Properties) Clone() Properties {
	if p == nil {
		return Properties{}
	}
	return maps.Clone(p)
}

// Merge returns a copy of p overlaid with other; values in other win.
func (p Properties) Merge(other Properties) Properties {
	out := p.Clone()
	maps.Copy(out, other)
	return out
}

// Names returns the property names in sorted order.
func (p Properties) Names() []string {
	return slices.Sorted(maps.Keys(p))
}
