package queueing

import (
	"fmt"
	"math"

	"github.com/sarchlab/procsim/sim"
)

// SignalBuilder can build signals.
type SignalBuilder struct {
	orderFunc OrderFunc
	on        bool
}

// WithOrderFunc sets the order in which waiting processes are released.
func (b SignalBuilder) WithOrderFunc(f OrderFunc) SignalBuilder {
	b.orderFunc = f
	return b
}

// WithInitiallyOn builds a signal that starts in the on state.
func (b SignalBuilder) WithInitiallyOn() SignalBuilder {
	b.on = true
	return b
}

// Build creates a new Signal. A signal is off unless configured otherwise.
func (b SignalBuilder) Build(name string) *Signal {
	return &Signal{
		name: name,
		on:   b.on,
		waiters: QueueBuilder{}.
			WithOrderFunc(b.orderFunc).
			Build(name),
	}
}

// A Signal is a boolean flag that processes can wait on. Waiting on a signal
// that is on returns at once. Turning a signal on releases every waiter.
type Signal struct {
	name    string
	on      bool
	waiters *Queue
}

// Name returns the name of the signal.
func (s *Signal) Name() string {
	return s.name
}

// IsOn tells if the signal is on.
func (s *Signal) IsOn() bool {
	return s.on
}

// NumWaiting returns the number of processes waiting for the signal.
func (s *Signal) NumWaiting() int {
	return s.waiters.Len()
}

// TurnOn sets the signal and resumes every waiting process on the next tick.
func (s *Signal) TurnOn() {
	s.on = true
	for s.waiters.Pop() != nil {
	}
}

// TurnOff clears the signal. It does not affect processes that are already
// released.
func (s *Signal) TurnOff() {
	s.on = false
}

// Wait blocks p until the signal is on. A woken process checks the signal
// again and keeps waiting if it was turned off in the meantime.
func (s *Signal) Wait(p *sim.Process) error {
	return s.wait(p, sim.Forever)
}

// WaitTimeout is Wait with a deadline. The timeout covers the whole wait, not
// each round of it. When the deadline passes, WaitTimeout returns a
// sim.ErrTimeout interrupt.
func (s *Signal) WaitTimeout(p *sim.Process, timeout sim.VTimeInSec) error {
	if math.IsNaN(float64(timeout)) || timeout < 0 {
		return fmt.Errorf("%w: timeout %v must not be negative",
			sim.ErrInvalidArgument, float64(timeout))
	}

	return s.wait(p, timeout)
}

func (s *Signal) wait(p *sim.Process, timeout sim.VTimeInSec) error {
	deadline := sim.Forever
	if timeout.IsFinite() {
		deadline = p.Simulator().Now() + timeout
	}

	for !s.on {
		var err error
		if deadline.IsFinite() {
			remaining := max(deadline-p.Simulator().Now(), 0)
			err = s.waiters.JoinTimeout(p, remaining)
		} else {
			err = s.waiters.Join(p)
		}

		if err != nil {
			return err
		}
	}

	return nil
}
