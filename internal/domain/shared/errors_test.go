package shared

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassOf(t *testing.T) {
	t.Parallel()

	base := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"nil", nil, ClassUnknown},
		{"plain", base, ClassUnknown},
		{"configuration", NewConfigurationError("parse LISTENER_PORT", base), ClassConfiguration},
		{"transport", NewTransportError("accept", base), ClassTransport},
		{"protocol", NewProtocolError("decode", io.ErrUnexpectedEOF), ClassProtocol},
		{"data", NewDataError("build", base), ClassData},
		{"wrapped", fmt.Errorf("starting sensor: %w", NewConfigurationError("bind :9909", base)), ClassConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ClassOf(tt.err))
			assert.Equal(t, tt.want.String(), ClassOf(tt.err).String())
		})
	}
}

func TestErrors_UnwrapAndMessage(t *testing.T) {
	t.Parallel()

	err := NewProtocolError("decode record", io.ErrUnexpectedEOF)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, "protocol: decode record: unexpected EOF", err.Error())

	var pe *ProtocolError
	assert.ErrorAs(t, err, &pe)
	assert.Equal(t, "decode record", pe.Op)
}
