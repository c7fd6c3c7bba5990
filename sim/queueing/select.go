package queueing

import (
	"fmt"
	"math"

	"github.com/sarchlab/procsim/sim"
)

// Select blocks p until at least one of the signals is on. It returns the
// signals that are on when p resumes.
func Select(p *sim.Process, signals ...*Signal) ([]*Signal, error) {
	return selectSignals(p, sim.Forever, signals)
}

// SelectTimeout is Select with a limit. When the timeout expires first, it
// returns no signals and a sim.ErrTimeout interrupt.
func SelectTimeout(
	p *sim.Process,
	timeout sim.VTimeInSec,
	signals ...*Signal,
) ([]*Signal, error) {
	if math.IsNaN(float64(timeout)) || timeout < 0 {
		return nil, fmt.Errorf("%w: timeout %v must not be negative",
			sim.ErrInvalidArgument, float64(timeout))
	}

	return selectSignals(p, timeout, signals)
}

func selectSignals(
	p *sim.Process,
	timeout sim.VTimeInSec,
	signals []*Signal,
) ([]*Signal, error) {
	if len(signals) == 0 {
		return nil, fmt.Errorf("%w: select needs at least one signal",
			sim.ErrInvalidArgument)
	}

	if !p.IsRunning() {
		return nil, fmt.Errorf("%w: %s cannot select, it is not running",
			sim.ErrProgramming, p.Name())
	}

	first := SignalBuilder{}.Build(p.Name() + "/select")

	watchers := make([]*sim.Process, 0, len(signals))
	for _, s := range signals {
		watchers = append(watchers, watch(p, s, first))
	}

	var err error
	if timeout.IsFinite() {
		err = first.WaitTimeout(p, timeout)
	} else {
		err = first.Wait(p)
	}

	for _, w := range watchers {
		w.Interrupt(nil)
	}

	if err != nil {
		return nil, err
	}

	fired := make([]*Signal, 0, len(signals))
	for _, s := range signals {
		if s.IsOn() {
			fired = append(fired, s)
		}
	}

	return fired, nil
}

// watch adds a process that turns on first once s is on.
func watch(p *sim.Process, s *Signal, first *Signal) *sim.Process {
	w := p.Simulator().Add(func(w *sim.Process) error {
		if err := s.Wait(w); err != nil {
			return err
		}

		first.TurnOn()

		return nil
	})
	w.SetName(p.Name() + "/select/" + s.Name())

	return w
}
