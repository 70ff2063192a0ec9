package sensor

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ahrav/jobsensor/internal/domain/events"
	"github.com/ahrav/jobsensor/internal/domain/jobstatus"
	"github.com/ahrav/jobsensor/internal/domain/monitoring"
	"github.com/ahrav/jobsensor/internal/infra/codec"
)

const eventWait = 5 * time.Second

// capturePublisher records every event it is asked to publish.
type capturePublisher struct {
	events chan *monitoring.MonitoringEvent
	fail   atomic.Int32 // number of upcoming calls to reject

	mu      sync.Mutex
	headers []map[string]string
	keys    []string
}

func newCapturePublisher() *capturePublisher {
	return &capturePublisher{events: make(chan *monitoring.MonitoringEvent, 128)}
}

var errPublishRejected = errors.New("publish rejected")

func (p *capturePublisher) PublishDomainEvent(_ context.Context, evt events.DomainEvent, opts ...events.PublishOption) error {
	if p.fail.Load() > 0 {
		p.fail.Add(-1)
		return errPublishRejected
	}
	params := events.ApplyOptions(opts)

	p.mu.Lock()
	p.headers = append(p.headers, params.Headers)
	p.keys = append(p.keys, params.Key)
	p.mu.Unlock()

	p.events <- evt.(*monitoring.MonitoringEvent)
	return nil
}

func (p *capturePublisher) next(t *testing.T) *monitoring.MonitoringEvent {
	t.Helper()
	select {
	case evt := <-p.events:
		return evt
	case <-time.After(eventWait):
		t.Fatal("timed out waiting for a published event")
		return nil
	}
}

func (p *capturePublisher) expectNone(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case evt := <-p.events:
		t.Fatalf("unexpected event for job %s", evt.ID)
	case <-time.After(d):
	}
}

// countingMetrics counts the calls the tests care about.
type countingMetrics struct {
	nopMetrics
	accepted, rejected, protocolErrors atomic.Int64
	decoded, skipped, published        atomic.Int64
	publishFailures, acceptErrors      atomic.Int64
}

func (m *countingMetrics) IncConnectionsAccepted(context.Context)  { m.accepted.Add(1) }
func (m *countingMetrics) IncConnectionsRejected(context.Context)  { m.rejected.Add(1) }
func (m *countingMetrics) IncProtocolErrors(context.Context)       { m.protocolErrors.Add(1) }
func (m *countingMetrics) IncRecordsDecoded(context.Context)       { m.decoded.Add(1) }
func (m *countingMetrics) IncRecordsSkipped(context.Context, string) { m.skipped.Add(1) }
func (m *countingMetrics) IncEventsPublished(context.Context)      { m.published.Add(1) }
func (m *countingMetrics) IncPublishFailures(context.Context)      { m.publishFailures.Add(1) }
func (m *countingMetrics) IncAcceptErrors(context.Context)         { m.acceptErrors.Add(1) }

func record(id, user string, statuses ...jobstatus.StatusType) *jobstatus.JobRecord {
	rec := &jobstatus.JobRecord{
		ID:                  id,
		UserID:              user,
		VirtualOrganization: "vo1",
		ServiceURL:          "https://ce.example.org:8443",
	}
	for i, st := range statuses {
		rec.StatusHistory = append(rec.StatusHistory, &jobstatus.JobStatusSnapshot{
			Name:      st.String(),
			Type:      st,
			Timestamp: time.UnixMilli(1709294400000 + int64(i)),
		})
	}
	return rec
}

// sendRecords dials addr, streams recs and leaves the connection open.
func sendRecords(t *testing.T, addr net.Addr, recs ...*jobstatus.JobRecord) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", loopback(addr), eventWait)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	enc := codec.NewEncoder(conn)
	for _, rec := range recs {
		require.NoError(t, enc.Encode(rec))
	}
	return conn
}

// loopback rewrites a wildcard listen address to 127.0.0.1.
func loopback(addr net.Addr) string {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok {
		return addr.String()
	}
	return net.JoinHostPort("127.0.0.1", strconv.Itoa(tcp.Port))
}
