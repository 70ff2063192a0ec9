// Package serialization provides a registry-based system for serializing and deserializing
// domain events in the event bus infrastructure. It acts as a translation layer between
// domain objects and their protobuf wire format representations.
//
// Serialization functions are registered per event type. Every message on the wire is a
// universal envelope, a google.protobuf.Struct carrying the event type and the
// type-specific payload, so a consumer can dispatch without out-of-band schema.
package serialization

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ahrav/jobsensor/internal/domain/events"
	"github.com/ahrav/jobsensor/internal/domain/monitoring"
	serializationerrors "github.com/ahrav/jobsensor/internal/infra/eventbus/serialization/errors"
	pbmonitoring "github.com/ahrav/jobsensor/internal/infra/eventbus/serialization/protobuf/monitoring"
)

// SerializeFunc converts a domain object into its protobuf payload.
type SerializeFunc func(payload any) (*structpb.Struct, error)

// DeserializeFunc converts a protobuf payload back into a domain object.
type DeserializeFunc func(payload *structpb.Struct) (any, error)

// Global registries map event types to their serialization functions.
// Registration happens during package initialization only.
var (
	serializerRegistry   = map[events.EventType]SerializeFunc{}
	deserializerRegistry = map[events.EventType]DeserializeFunc{}
)

const (
	envelopeFieldType    = "eventType"
	envelopeFieldPayload = "payload"
)

// RegisterSerializeFunc registers a serialization function for a given event type.
func RegisterSerializeFunc(eventType events.EventType, fn SerializeFunc) {
	serializerRegistry[eventType] = fn
}

// RegisterDeserializeFunc registers a deserialization function for a given event type.
func RegisterDeserializeFunc(eventType events.EventType, fn DeserializeFunc) {
	deserializerRegistry[eventType] = fn
}

// SerializePayload converts a domain object using the registered serializer for its event type.
func SerializePayload(eventType events.EventType, payload any) (*structpb.Struct, error) {
	fn, ok := serializerRegistry[eventType]
	if !ok {
		return nil, fmt.Errorf("no serializer registered for eventType=%s", eventType)
	}
	return fn(payload)
}

// DeserializePayload converts a payload back into a domain object using the registered
// deserializer for its event type.
func DeserializePayload(eventType events.EventType, payload *structpb.Struct) (any, error) {
	fn, ok := deserializerRegistry[eventType]
	if !ok {
		return nil, fmt.Errorf("no deserializer registered for eventType=%s", eventType)
	}
	return fn(payload)
}

// SerializeEventEnvelope serializes payload and wraps it in the universal envelope.
func SerializeEventEnvelope(eventType events.EventType, payload any) ([]byte, error) {
	body, err := SerializePayload(eventType, payload)
	if err != nil {
		return nil, err
	}

	envelope := &structpb.Struct{Fields: map[string]*structpb.Value{
		envelopeFieldType:    structpb.NewStringValue(string(eventType)),
		envelopeFieldPayload: structpb.NewStructValue(body),
	}}
	return proto.Marshal(envelope)
}

// UnmarshalUniversalEnvelope unwraps an envelope without interpreting its payload.
func UnmarshalUniversalEnvelope(data []byte) (events.EventType, *structpb.Struct, error) {
	var envelope structpb.Struct
	if err := proto.Unmarshal(data, &envelope); err != nil {
		return "", nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	evtType := envelope.GetFields()[envelopeFieldType].GetStringValue()
	if evtType == "" {
		return "", nil, fmt.Errorf("envelope has no event type")
	}
	return events.EventType(evtType), envelope.GetFields()[envelopeFieldPayload].GetStructValue(), nil
}

// DeserializeEventEnvelope unwraps an envelope and decodes its payload.
func DeserializeEventEnvelope(data []byte) (events.EventType, any, error) {
	evtType, body, err := UnmarshalUniversalEnvelope(data)
	if err != nil {
		return "", nil, err
	}
	payload, err := DeserializePayload(evtType, body)
	if err != nil {
		return "", nil, err
	}
	return evtType, payload, nil
}

func init() {
	RegisterEventSerializers()
}

// RegisterEventSerializers registers handlers for all supported event types.
func RegisterEventSerializers() {
	RegisterSerializeFunc(monitoring.EventTypeJobStatusChanged, serializeJobStatusChanged)
	RegisterDeserializeFunc(monitoring.EventTypeJobStatusChanged, deserializeJobStatusChanged)
}

func serializeJobStatusChanged(payload any) (*structpb.Struct, error) {
	evt, ok := payload.(*monitoring.MonitoringEvent)
	if !ok {
		return nil, serializationerrors.ErrUnexpectedPayload{
			EventType: string(monitoring.EventTypeJobStatusChanged),
			Got:       payload,
		}
	}
	return pbmonitoring.MonitoringEventToProto(evt)
}

func deserializeJobStatusChanged(payload *structpb.Struct) (any, error) {
	return pbmonitoring.ProtoToMonitoringEvent(payload)
}
