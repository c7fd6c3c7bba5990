package sim

import (
	"fmt"
	"sync/atomic"
)

// active is the simulator that is currently dispatching events. The free
// functions in this file act on it.
var active atomic.Pointer[Simulator]

func (s *Simulator) activate() (restore func()) {
	prev := active.Swap(s)
	return func() { active.Store(prev) }
}

// CurrentSimulator returns the simulator that is dispatching events.
func CurrentSimulator() (*Simulator, error) {
	s := active.Load()
	if s == nil {
		return nil, fmt.Errorf("%w: no simulator is running", ErrProgramming)
	}

	return s, nil
}

// Current returns the process that is executing.
//
// Current and the free functions that suspend or schedule return
// ErrProgramming when called outside a simulator. Now is the exception: it
// has no error to return a time alongside, so it panics with ErrProgramming.
// Use CurrentSimulator to check first.
func Current() (*Process, error) {
	s := active.Load()
	if s == nil || s.current == nil {
		return nil, fmt.Errorf("%w: not called from a process", ErrProgramming)
	}

	return s.current, nil
}

// CurrentExists tells if the caller runs inside a process.
func CurrentExists() bool {
	_, err := Current()
	return err == nil
}

// Now returns the time of the simulator that is dispatching events. It panics
// with an error wrapping ErrProgramming when no simulator is running.
func Now() VTimeInSec {
	s, err := CurrentSimulator()
	if err != nil {
		panic(err)
	}

	return s.Now()
}

// Advance suspends the current process for delay.
func Advance(delay VTimeInSec) error {
	p, err := Current()
	if err != nil {
		return err
	}

	return p.Advance(delay)
}

// Pause suspends the current process until it is resumed.
func Pause() error {
	p, err := Current()
	if err != nil {
		return err
	}

	return p.Pause()
}

// Add creates a process on the running simulator.
func Add(body func(p *Process) error) (*Process, error) {
	s, err := CurrentSimulator()
	if err != nil {
		return nil, err
	}

	return s.Add(body), nil
}

// AddIn creates a process on the running simulator that starts after delay.
func AddIn(delay VTimeInSec, body func(p *Process) error) (*Process, error) {
	s, err := CurrentSimulator()
	if err != nil {
		return nil, err
	}

	return s.AddIn(delay, body)
}

// AddAt creates a process on the running simulator that starts at t.
func AddAt(t VTimeInSec, body func(p *Process) error) (*Process, error) {
	s, err := CurrentSimulator()
	if err != nil {
		return nil, err
	}

	return s.AddAt(t, body)
}

// Stop stops the running simulator after the current event.
func Stop() error {
	s, err := CurrentSimulator()
	if err != nil {
		return err
	}

	s.Stop()

	return nil
}
