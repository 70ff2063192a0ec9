package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMock(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewMock(start)
	assert.Equal(t, start, m.Now())

	m.Advance(90 * time.Second)
	assert.Equal(t, start.Add(90*time.Second), m.Now())
	assert.Equal(t, 90*time.Second, m.Since(start))

	later := start.Add(time.Hour)
	m.Set(later)
	assert.Equal(t, later, m.Now())
}

func TestDefault(t *testing.T) {
	t.Parallel()

	before := time.Now()
	now := Default().Now()
	assert.False(t, now.Before(before))
	assert.GreaterOrEqual(t, Default().Since(before), time.Duration(0))
}
