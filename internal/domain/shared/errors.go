// Package shared holds domain types used across the sensor, chiefly the error
// taxonomy that decides how each failure is contained.
package shared

import (
	"errors"
	"fmt"
)

// ErrorClass groups failures by how the sensor reacts to them.
type ErrorClass int

const (
	// ClassUnknown is returned by ClassOf for errors outside the taxonomy.
	ClassUnknown ErrorClass = iota
	// ClassConfiguration errors abort initialization and are surfaced to the host.
	ClassConfiguration
	// ClassTransport errors come from accept/read/close on sockets.
	ClassTransport
	// ClassProtocol errors mean a client sent a malformed status-record stream.
	ClassProtocol
	// ClassData errors mean a well-formed record cannot produce an event.
	ClassData
)

func (c ErrorClass) String() string {
	switch c {
	case ClassConfiguration:
		return "configuration"
	case ClassTransport:
		return "transport"
	case ClassProtocol:
		return "protocol"
	case ClassData:
		return "data"
	default:
		return "unknown"
	}
}

// ConfigurationError reports a missing or invalid setting. It is fatal to
// the component that raised it.
type ConfigurationError struct {
	Op  string
	Err error
}

func (e *ConfigurationError) Error() string { return fmt.Sprintf("configuration: %s: %v", e.Op, e.Err) }
func (e *ConfigurationError) Unwrap() error { return e.Err }

// TransportError wraps a socket-level failure.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("transport: %s: %v", e.Op, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError reports a malformed or truncated status-record stream.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string { return fmt.Sprintf("protocol: %s: %v", e.Op, e.Err) }
func (e *ProtocolError) Unwrap() error { return e.Err }

// DataError reports a record that is well-formed but cannot yield an event,
// such as one without a receiver. It is never escalated.
type DataError struct {
	Op  string
	Err error
}

func (e *DataError) Error() string { return fmt.Sprintf("data: %s: %v", e.Op, e.Err) }
func (e *DataError) Unwrap() error { return e.Err }

// NewConfigurationError builds a ConfigurationError.
func NewConfigurationError(op string, err error) error { return &ConfigurationError{Op: op, Err: err} }

// NewTransportError builds a TransportError.
func NewTransportError(op string, err error) error { return &TransportError{Op: op, Err: err} }

// NewProtocolError builds a ProtocolError.
func NewProtocolError(op string, err error) error { return &ProtocolError{Op: op, Err: err} }

// NewDataError builds a DataError.
func NewDataError(op string, err error) error { return &DataError{Op: op, Err: err} }

// ClassOf reports the taxonomy class of err, looking through wrapping.
func ClassOf(err error) ErrorClass {
	var (
		cfgErr       *ConfigurationError
		transportErr *TransportError
		protocolErr  *ProtocolError
		dataErr      *DataError
	)
	switch {
	case err == nil:
		return ClassUnknown
	case errors.As(err, &cfgErr):
		return ClassConfiguration
	case errors.As(err, &protocolErr):
		return ClassProtocol
	case errors.As(err, &transportErr):
		return ClassTransport
	case errors.As(err, &dataErr):
		return ClassData
	default:
		return ClassUnknown
	}
}
