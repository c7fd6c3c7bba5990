// Package gate models visitors at a door that opens on a schedule. Visitors
// wait until the door opens or the alarm goes off, and give up when they run
// out of patience.
package gate

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"

	"github.com/sarchlab/procsim/models"
	"github.com/sarchlab/procsim/sim"
	"github.com/sarchlab/procsim/sim/queueing"
)

// Name is the name the model registers under.
const Name = "gate"

// Names of the signals.
const (
	DoorName  = "door"
	AlarmName = "alarm"
)

func init() {
	models.Register(Name,
		"visitors select between a scheduled door and an alarm",
		func(seed int64, decode models.Decoder) (models.Model, error) {
			cfg := DefaultConfig()
			if err := decode(&cfg); err != nil {
				return nil, err
			}

			return New(cfg, seed)
		})
}

// A Gate is the model of one door.
type Gate struct {
	cfg   Config
	door  *queueing.Signal
	alarm *queueing.Signal

	interArrival func() sim.VTimeInSec

	built     bool
	arrived   int
	passed    int
	fled      int
	gaveUp    int
	totalWait sim.VTimeInSec
}

// New creates a gate. Runs with the same config and seed are the same.
func New(cfg Config, seed int64) (*Gate, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(seed))
	g := &Gate{
		cfg:   cfg,
		door:  queueing.SignalBuilder{}.Build(DoorName),
		alarm: queueing.SignalBuilder{}.Build(AlarmName),
		interArrival: func() sim.VTimeInSec {
			return sim.VTimeInSec(rng.ExpFloat64() * cfg.MeanArrival)
		},
	}

	return g, nil
}

// Door returns the signal that is on while the door is open.
func (g *Gate) Door() *queueing.Signal {
	return g.door
}

// Alarm returns the signal that is on once the alarm went off.
func (g *Gate) Alarm() *queueing.Signal {
	return g.alarm
}

// Build adds the doorman, the alarm, and the arrivals to the simulator.
func (g *Gate) Build(s *sim.Simulator) error {
	if g.built {
		return fmt.Errorf("%w: gate is already built", sim.ErrProgramming)
	}

	g.built = true
	s.Add(g.doorman).SetName("doorman")
	s.Add(g.arrivals).SetName("arrivals")

	if g.cfg.AlarmAt > 0 {
		p, err := s.AddAt(sim.VTimeInSec(g.cfg.AlarmAt), g.ringAlarm)
		if err != nil {
			return err
		}

		p.SetName("alarm")
	}

	return nil
}

// Lines returns the door and the alarm.
func (g *Gate) Lines() []models.Line {
	return []models.Line{g.door, g.alarm}
}

// Report counts the visitors by how their wait ended.
func (g *Gate) Report() []models.Stat {
	meanWait := 0.0
	if g.passed > 0 {
		meanWait = float64(g.totalWait) / float64(g.passed)
	}

	return []models.Stat{
		{Name: "arrived", Value: float64(g.arrived)},
		{Name: "passed", Value: float64(g.passed)},
		{Name: "fled", Value: float64(g.fled)},
		{Name: "gave_up", Value: float64(g.gaveUp)},
		{Name: "mean_wait", Value: meanWait},
	}
}

func (g *Gate) doorman(p *sim.Process) error {
	for {
		if err := p.Advance(sim.VTimeInSec(g.cfg.ClosedFor)); err != nil {
			return err
		}

		g.door.TurnOn()

		if err := p.Advance(sim.VTimeInSec(g.cfg.OpenFor)); err != nil {
			return err
		}

		g.door.TurnOff()
	}
}

func (g *Gate) ringAlarm(_ *sim.Process) error {
	g.alarm.TurnOn()
	return nil
}

func (g *Gate) arrivals(p *sim.Process) error {
	s := p.Simulator()

	for i := 0; g.cfg.Visitors == 0 || i < g.cfg.Visitors; i++ {
		if g.alarm.IsOn() {
			return nil
		}

		s.Add(g.visitor).SetName(fmt.Sprintf("visitor-%d", i))

		if g.cfg.Visitors != 0 && i == g.cfg.Visitors-1 {
			break
		}

		if err := p.Advance(g.interArrival()); err != nil {
			return err
		}
	}

	return nil
}

func (g *Gate) visitor(p *sim.Process) error {
	arrival := p.Simulator().Now()
	deadline := arrival + sim.VTimeInSec(g.cfg.Patience)
	g.arrived++

	for {
		remaining := max(deadline-p.Simulator().Now(), 0)

		fired, err := queueing.SelectTimeout(p, remaining, g.door, g.alarm)
		switch {
		case errors.Is(err, sim.ErrTimeout):
			g.gaveUp++
			return nil
		case err != nil:
			return err
		case slices.Contains(fired, g.alarm):
			g.fled++
			return nil
		case slices.Contains(fired, g.door):
			g.passed++
			g.totalWait += p.Simulator().Now() - arrival

			return nil
		}

		// The door closed again before this visitor got to it.
	}
}
