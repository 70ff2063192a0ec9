package codec

import (
	"errors"
	"io"
	"net"
	"os"
	"syscall"

	"github.com/fxamacker/cbor/v2"

	"github.com/ahrav/jobsensor/internal/domain/jobstatus"
	"github.com/ahrav/jobsensor/internal/domain/shared"
)

// ErrEndOfStream is returned by Decoder.Next when the peer closed the
// stream cleanly on a record boundary.
var ErrEndOfStream = errors.New("end of record stream")

// Decoder pulls JobRecords off a byte stream one at a time.
// A Decoder is not safe for concurrent use.
type Decoder struct {
	dec     *cbor.Decoder
	decoded int
}

// NewDecoder returns a Decoder reading from r. A failed Decoder is not
// reusable; callers must discard the stream.
func NewDecoder(r io.Reader, limits Limits) (*Decoder, error) {
	mode, err := decMode(limits)
	if err != nil {
		return nil, shared.NewConfigurationError("new decoder", err)
	}
	return &Decoder{dec: mode.NewDecoder(r)}, nil
}

// Next blocks until one full record has arrived and returns it. It returns
// ErrEndOfStream on a clean close between records, a ProtocolError for
// malformed or truncated input and a TransportError when the underlying
// read fails. A record is never returned alongside an error.
func (d *Decoder) Next() (*jobstatus.JobRecord, error) {
	var rec jobstatus.JobRecord
	if err := d.dec.Decode(&rec); err != nil {
		return nil, classify(err)
	}
	d.decoded++
	return &rec, nil
}

// Decoded reports how many records Next has returned.
func (d *Decoder) Decoded() int { return d.decoded }

// NumBytesRead reports how many bytes have been consumed from the stream.
func (d *Decoder) NumBytesRead() int { return d.dec.NumBytesRead() }

func classify(err error) error {
	switch {
	case errors.Is(err, io.EOF):
		return ErrEndOfStream
	case errors.Is(err, io.ErrUnexpectedEOF):
		return shared.NewProtocolError("decode record", err)
	case isTransport(err):
		return shared.NewTransportError("read record", err)
	default:
		return shared.NewProtocolError("decode record", err)
	}
}

func isTransport(err error) bool {
	var (
		netErr  net.Error
		errno   syscall.Errno
		opErr   *net.OpError
		sysCall *os.SyscallError
	)
	return errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, os.ErrDeadlineExceeded) ||
		errors.As(err, &opErr) ||
		errors.As(err, &netErr) ||
		errors.As(err, &sysCall) ||
		errors.As(err, &errno)
}
