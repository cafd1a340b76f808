// Package clock abstracts time for components that stamp records, so tests
// can pin timestamps.
package clock

import "time"

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// System is the real clock.
type System struct{}

// Now returns the current UTC time.
func (System) Now() time.Time {
	return time.Now().UTC()
}

// Fixed is a clock pinned to a single instant. Intended for tests.
type Fixed struct {
	At time.Time
}

// Now returns the pinned instant.
func (f Fixed) Now() time.Time {
	return f.At
}
