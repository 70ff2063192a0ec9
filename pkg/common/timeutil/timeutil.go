// Package timeutil provides an injectable source of time so that code which
// stamps or compares times can be tested deterministically.
package timeutil

import (
	"sync"
	"time"
)

// Provider supplies the current time.
type Provider interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

type realProvider struct{}

func (realProvider) Now() time.Time                  { return time.Now() }
func (realProvider) Since(t time.Time) time.Duration { return time.Since(t) }

// Default returns the wall-clock Provider.
func Default() Provider { return realProvider{} }

// Mock is a Provider whose time only moves when told to.
type Mock struct {
	mu          sync.Mutex
	CurrentTime time.Time
}

// NewMock returns a Mock frozen at t.
func NewMock(t time.Time) *Mock { return &Mock{CurrentTime: t} }

// Now returns the mock's current time.
func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CurrentTime
}

// Since returns the time elapsed between t and the mock's current time.
func (m *Mock) Since(t time.Time) time.Duration { return m.Now().Sub(t) }

// Advance moves the mock's clock forward by d.
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CurrentTime = m.CurrentTime.Add(d)
}

// Set pins the mock's clock to t.
func (m *Mock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CurrentTime = t
}
