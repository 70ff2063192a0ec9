package serializationerrors

import "fmt"

// ErrNilEvent indicates that a nil event was provided for serialization/deserialization
type ErrNilEvent struct{ EventType string }

func (e ErrNilEvent) Error() string { return fmt.Sprintf("nil %s event", e.EventType) }

// ErrUnexpectedPayload indicates that a payload was not of the type registered
// for its event type.
type ErrUnexpectedPayload struct {
	EventType string
	Got       any
}

func (e ErrUnexpectedPayload) Error() string {
	return fmt.Sprintf("unexpected payload %T for %s", e.Got, e.EventType)
}

// ErrInvalidField indicates that a wire field is missing or could not be parsed.
type ErrInvalidField struct {
	Field string
	Err   error
}

func (e ErrInvalidField) Error() string { return fmt.Sprintf("invalid %s: %v", e.Field, e.Err) }

func (e ErrInvalidField) Unwrap() error { return e.Err }
