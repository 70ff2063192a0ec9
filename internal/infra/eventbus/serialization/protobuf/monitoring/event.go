// Package monitoring converts monitoring events to and from their protobuf
// wire representation, a google.protobuf.Struct.
package monitoring

import (
	"errors"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ahrav/jobsensor/internal/domain/monitoring"
	serializationerrors "github.com/ahrav/jobsensor/internal/infra/eventbus/serialization/errors"
)

const (
	fieldID            = "id"
	fieldReceiverID    = "receiverId"
	fieldReceiverGroup = "receiverGroup"
	fieldCreatedAt     = "createdAt"
	fieldExpiresAt     = "expiresAt"
	fieldFormat        = "format"
	fieldParameters    = "parameters"
	fieldMessages      = "messages"
)

// MonitoringEventToProto converts a domain MonitoringEvent to a Struct.
func MonitoringEventToProto(evt *monitoring.MonitoringEvent) (*structpb.Struct, error) {
	if evt == nil {
		return nil, serializationerrors.ErrNilEvent{EventType: string(monitoring.EventTypeJobStatusChanged)}
	}

	params := make(map[string]any, len(evt.Parameters))
	for k, v := range evt.Parameters {
		if list, ok := v.([]string); ok {
			params[k] = stringsToAny(list)
			continue
		}
		params[k] = v
	}

	return structpb.NewStruct(map[string]any{
		fieldID:            evt.ID,
		fieldReceiverID:    evt.ReceiverID,
		fieldReceiverGroup: evt.ReceiverGroup,
		fieldCreatedAt:     evt.CreatedAt.UTC().Format(time.RFC3339Nano),
		fieldExpiresAt:     evt.ExpiresAt.UTC().Format(time.RFC3339Nano),
		fieldFormat:        evt.Format,
		fieldParameters:    params,
		fieldMessages:      stringsToAny(evt.Messages),
	})
}

// ProtoToMonitoringEvent converts a Struct back into a MonitoringEvent.
func ProtoToMonitoringEvent(s *structpb.Struct) (*monitoring.MonitoringEvent, error) {
	if s == nil {
		return nil, serializationerrors.ErrNilEvent{EventType: string(monitoring.EventTypeJobStatusChanged)}
	}
	fields := s.GetFields()

	createdAt, err := parseTime(fields, fieldCreatedAt)
	if err != nil {
		return nil, err
	}
	expiresAt, err := parseTime(fields, fieldExpiresAt)
	if err != nil {
		return nil, err
	}

	params := monitoring.Parameters{}
	for k, v := range fields[fieldParameters].GetStructValue().GetFields() {
		if k == monitoring.ParamJobStatus {
			params[k] = listToStrings(v.GetListValue())
			continue
		}
		params[k] = v.AsInterface()
	}

	return &monitoring.MonitoringEvent{
		ID:            fields[fieldID].GetStringValue(),
		ReceiverID:    fields[fieldReceiverID].GetStringValue(),
		ReceiverGroup: fields[fieldReceiverGroup].GetStringValue(),
		CreatedAt:     createdAt,
		ExpiresAt:     expiresAt,
		Format:        fields[fieldFormat].GetStringValue(),
		Parameters:    params,
		Messages:      listToStrings(fields[fieldMessages].GetListValue()),
	}, nil
}

func parseTime(fields map[string]*structpb.Value, name string) (time.Time, error) {
	raw := fields[name].GetStringValue()
	if raw == "" {
		return time.Time{}, serializationerrors.ErrInvalidField{Field: name, Err: errors.New("missing")}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, serializationerrors.ErrInvalidField{Field: name, Err: err}
	}
	return t, nil
}

func stringsToAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

func listToStrings(l *structpb.ListValue) []string {
	out := make([]string, 0, len(l.GetValues()))
	for _, v := range l.GetValues() {
		out = append(out, v.GetStringValue())
	}
	return out
}
