package monitoring

import (
	"strconv"
	"strings"

	"github.com/ahrav/jobsensor/internal/domain/jobstatus"
)

// ClassAd attribute names. Consumers match on these, so they are part of
// the output contract.
const (
	attrJobID         = "CREAM_JOB_ID"
	attrServiceURL    = "CREAM_URL"
	attrJobStatus     = "JOB_STATUS"
	attrTimestamp     = "TIMESTAMP"
	attrExitCode      = "EXIT_CODE"
	attrCorrelationID = "ICE_ID"
	attrWorkerNode    = "WORKER_NODE"
	attrFailureReason = "FAILURE_REASON"
	attrDescription   = "DESCRIPTION"
)

var classAdEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// renderClassAd renders one snapshot of rec as a ClassAd record. Optional
// attributes appear only when present, always in the same order.
func renderClassAd(rec *jobstatus.JobRecord, s *jobstatus.JobStatusSnapshot) string {
	var b strings.Builder
	b.Grow(256)

	b.WriteString("[\n")
	writeQuoted(&b, attrJobID, rec.ID)
	b.WriteString(";\n")
	writeQuoted(&b, attrServiceURL, rec.ServiceURL)
	b.WriteString(";\n")
	writeQuoted(&b, attrJobStatus, s.Name)
	b.WriteString(";\n")
	writeQuoted(&b, attrTimestamp, strconv.FormatInt(s.Timestamp.UnixMilli(), 10))

	if s.ExitCode != nil {
		b.WriteString(";\n")
		writeExitCode(&b, *s.ExitCode)
	}
	if rec.CorrelationID != nil {
		b.WriteString(";\n")
		writeQuoted(&b, attrCorrelationID, *rec.CorrelationID)
	}
	if rec.WorkerNode != nil {
		b.WriteString(";\n")
		writeQuoted(&b, attrWorkerNode, *rec.WorkerNode)
	}
	if s.FailureReason != nil {
		b.WriteString(";\n")
		writeQuoted(&b, attrFailureReason, *s.FailureReason)
	}
	if s.Description != nil {
		b.WriteString(";\n")
		writeQuoted(&b, attrDescription, *s.Description)
	}

	b.WriteString("\n]")
	return b.String()
}

func writeQuoted(b *strings.Builder, attr, value string) {
	b.WriteByte('\t')
	b.WriteString(attr)
	b.WriteString(` = "`)
	classAdEscaper.WriteString(b, value)
	b.WriteByte('"')
}

// Exit codes are integers in ClassAd; anything else is quoted so a client
// cannot inject attributes through it.
func writeExitCode(b *strings.Builder, code string) {
	if _, err := strconv.Atoi(code); err != nil {
		writeQuoted(b, attrExitCode, code)
		return
	}
	b.WriteByte('\t')
	b.WriteString(attrExitCode)
	b.WriteString(" = ")
	b.WriteString(code)
}
