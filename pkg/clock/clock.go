// Package clock provides an injectable time source so that pricing
// evaluation never reads the wall clock directly.
package clock

import "time"

// Clock supplies the current instant. Domain code receives the instant as a
// parameter; Clock lives only at the orchestration boundary.
type Clock interface {
	Now() time.Time
}

// System is a Clock backed by time.Now.
type System struct{}

// Now returns the current wall-clock time.
func (System) Now() time.Time { return time.Now() }

// Fixed is a Clock frozen at a single instant, for deterministic tests.
type Fixed struct {
	Instant time.Time
}

// At returns a Fixed clock frozen at t.
func At(t time.Time) Fixed { return Fixed{Instant: t} }

// Now returns the frozen instant.
func (f Fixed) Now() time.Time { return f.Instant }
