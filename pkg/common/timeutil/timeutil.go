// Package timeutil provides an injectable source of wall-clock time.
package timeutil

import "time"

// Provider abstracts access to the current time.
type Provider interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

type realProvider struct{}

// Default returns a Provider backed by the system clock.
func Default() Provider { return realProvider{} }

func (realProvider) Now() time.Time                  { return time.Now() }
func (realProvider) Since(t time.Time) time.Duration { return time.Since(t) }

// Mock is a Provider that always reports CurrentTime.
type Mock struct {
	CurrentTime time.Time
}

// Now returns the mocked current time.
func (m *Mock) Now() time.Time { return m.CurrentTime }

// Since returns the duration between t and the mocked current time.
func (m *Mock) Since(t time.Time) time.Duration { return m.CurrentTime.Sub(t) }

// Advance moves the mocked clock forward by d.
func (m *Mock) Advance(d time.Duration) { m.CurrentTime = m.CurrentTime.Add(d) }
