// Package sim implements the cooperative task engine and typed event bus
// that drive a co-simulation: a discrete-event scheduler over a virtual
// clock, suspendable tasks, and one-shot fan-out event delivery.
package sim

// TimePoint is a monotonic virtual-time instant, counted in milliseconds
// from an arbitrary epoch. The scheduler is the only thing allowed to
// advance it; it never decreases.
type TimePoint int64

// Duration is a signed span of virtual time in milliseconds.
type Duration int64

// Milliseconds returns d as a plain int64 count of milliseconds.
func (d Duration) Milliseconds() int64 { return int64(d) }

// Add returns t advanced by d. Callers that would move time backward are
// the scheduler's responsibility to reject; Add itself is pure arithmetic.
func (t TimePoint) Add(d Duration) TimePoint { return t + TimePoint(d) }

// Sub returns the duration between two time points.
func (t TimePoint) Sub(other TimePoint) Duration { return Duration(t - other) }
