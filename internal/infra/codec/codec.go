// Package codec reads and writes the job-status record stream. Each record
// is one self-delimiting CBOR data item, so a connection carries a CBOR
// sequence (RFC 8742) that can be decoded record by record without framing.
package codec

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// Limits bound what a single record may allocate while decoding. A client
// cannot make the sensor allocate past them.
type Limits struct {
	MaxNestedLevels  int
	MaxArrayElements int
	MaxMapPairs      int
}

// DefaultLimits comfortably fits a job with a long status history.
var DefaultLimits = Limits{
	MaxNestedLevels:  16,
	MaxArrayElements: 65536,
	MaxMapPairs:      1024,
}

var encMode cbor.EncMode

func init() {
	opts := cbor.CoreDetEncOptions()
	// Snapshots are compared at millisecond precision; RFC 3339 with nanos
	// keeps timestamps exact where float epoch time would not.
	opts.Time = cbor.TimeRFC3339Nano
	opts.TimeTag = cbor.EncTagRequired

	var err error
	encMode, err = opts.EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}
}

func decMode(l Limits) (cbor.DecMode, error) {
	mode, err := cbor.DecOptions{
		MaxNestedLevels:  l.MaxNestedLevels,
		MaxArrayElements: l.MaxArrayElements,
		MaxMapPairs:      l.MaxMapPairs,
		DupMapKey:        cbor.DupMapKeyEnforcedAPF,
		IndefLength:      cbor.IndefLengthAllowed,
		DefaultMapType:   reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("codec: invalid decoder limits: %w", err)
	}
	return mode, nil
}

// Marshal encodes v using deterministic encoding.
func Marshal(v any) ([]byte, error) { return encMode.Marshal(v) }
