package clock

import "time"

// Clock abstracts time for components that record or compare timestamps,
// so tests can advance time deterministically.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock.
type RealClock struct{}

func (c RealClock) Now() time.Time {
	return time.Now()
}

// MockClock is a manually-advanced clock for tests.
type MockClock struct {
	currentTime time.Time
}

// NewMockClock returns a MockClock pinned to the given instant.
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{currentTime: t}
}

func (c *MockClock) Now() time.Time {
	return c.currentTime
}

// Advance moves the mock clock forward by d.
func (c *MockClock) Advance(d time.Duration) {
	c.currentTime = c.currentTime.Add(d)
}
