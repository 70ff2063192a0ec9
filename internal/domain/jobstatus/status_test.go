package jobstatus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusType_StringAndParse(t *testing.T) {
	t.Parallel()

	for st := StatusRegistered; st <= StatusAborted; st++ {
		got, err := ParseStatusType(st.String())
		require.NoError(t, err)
		assert.Equal(t, st, got)
	}

	got, err := ParseStatusType(" really-running ")
	require.NoError(t, err)
	assert.Equal(t, StatusReallyRunning, got)

	_, err = ParseStatusType("FINISHED")
	assert.Error(t, err)
	assert.Equal(t, "UNKNOWN(99)", StatusType(99).String())
}

func TestStatusType_IsTerminal(t *testing.T) {
	t.Parallel()

	for st := StatusRegistered; st <= StatusAborted; st++ {
		assert.Equal(t, st == StatusPurged, st.IsTerminal(), st.String())
	}
}

func TestJobStatusSnapshot_IsWaiting(t *testing.T) {
	t.Parallel()

	assert.False(t, (&JobStatusSnapshot{}).IsWaiting())
	assert.False(t, (&JobStatusSnapshot{ExitCode: StringPtr("0")}).IsWaiting())
	assert.True(t, (&JobStatusSnapshot{ExitCode: StringPtr(ExitCodeWaiting)}).IsWaiting())
}

func TestJobRecord_LastStatus(t *testing.T) {
	t.Parallel()

	rec := &JobRecord{ID: "job1"}
	assert.Nil(t, rec.LastStatus())

	now := time.Now()
	rec.StatusHistory = []*JobStatusSnapshot{
		{Type: StatusRunning, Timestamp: now},
		{Type: StatusDoneOK, Timestamp: now.Add(time.Minute)},
	}
	assert.Equal(t, StatusDoneOK, rec.LastStatus().Type)
}
