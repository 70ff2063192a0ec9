package codec

import (
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/ahrav/jobsensor/internal/domain/jobstatus"
)

// Encoder writes JobRecords as a CBOR sequence. Agents and test feeds use it
// to produce the stream a Decoder consumes.
type Encoder struct {
	enc *cbor.Encoder
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder { return &Encoder{enc: encMode.NewEncoder(w)} }

// Encode writes rec as one data item.
func (e *Encoder) Encode(rec *jobstatus.JobRecord) error { return e.enc.Encode(rec) }
