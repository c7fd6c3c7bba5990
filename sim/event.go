package sim

import "math"

// VTimeInSec defines the time in the simulated space in the unit of second
type VTimeInSec float64

// Forever is a duration that never elapses.
var Forever = VTimeInSec(math.Inf(1))

// IsFinite returns true if the time is neither infinite nor NaN.
func (t VTimeInSec) IsFinite() bool {
	return !math.IsInf(float64(t), 0) && !math.IsNaN(float64(t))
}

// An Event is a callback that is going to happen in the future.
//
// Events are created by Simulator.Schedule and are ordered by their time
// first and by their sequence number second. Two events scheduled for the same
// instant therefore run in the order they were scheduled.
type Event struct {
	time VTimeInSec
	seq  uint64
	what string
	fn   func()

	cancelled bool
	executed  bool
}

// Time returns the time that the event is going to happen.
func (e *Event) Time() VTimeInSec {
	return e.time
}

// ID returns the sequence number of the event. IDs are unique within a
// simulator and strictly increase in scheduling order.
func (e *Event) ID() uint64 {
	return e.seq
}

// What describes what the event does, for example "start process-1".
func (e *Event) What() string {
	return e.what
}

// Cancel prevents the callback from running. Cancelling an event that has
// already executed has no effect.
func (e *Event) Cancel() {
	if e.executed {
		return
	}

	e.cancelled = true
}

// IsCancelled tells if the event has been cancelled.
func (e *Event) IsCancelled() bool {
	return e.cancelled
}

// IsExecuted tells if the callback of the event has run.
func (e *Event) IsExecuted() bool {
	return e.executed
}

// execute runs the callback unless the event is cancelled.
func (e *Event) execute() {
	if e.cancelled || e.executed {
		return
	}

	e.executed = true
	e.fn()
}

func (e *Event) before(other *Event) bool {
	if e.time != other.time {
		return e.time < other.time
	}

	return e.seq < other.seq
}
