// Package bank models a bank branch where customers line up for counters and
// leave when they have waited longer than their patience.
package bank

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/sarchlab/procsim/models"
	"github.com/sarchlab/procsim/sim"
	"github.com/sarchlab/procsim/sim/queueing"
)

// Name is the name the model registers under.
const Name = "bank"

// CounterName names the resource customers wait for.
const CounterName = "counter"

func init() {
	models.Register(Name,
		"customers wait for counters and renege when they run out of patience",
		func(seed int64, decode models.Decoder) (models.Model, error) {
			cfg := DefaultConfig()
			if err := decode(&cfg); err != nil {
				return nil, err
			}

			return New(cfg, seed)
		})
}

// A Bank is the model of one branch.
type Bank struct {
	cfg      Config
	counters *queueing.Resource

	interArrival func() sim.VTimeInSec
	serviceTime  func() sim.VTimeInSec
	patience     func() sim.VTimeInSec

	built     bool
	arrived   int
	served    int
	reneged   int
	totalWait sim.VTimeInSec
	maxWait   sim.VTimeInSec
}

// New creates a bank. Runs with the same config and seed are the same.
func New(cfg Config, seed int64) (*Bank, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(seed))
	b := &Bank{
		cfg: cfg,
		counters: queueing.MakeResourceBuilder().
			WithNumInstances(cfg.Counters).
			Build(CounterName),
		interArrival: func() sim.VTimeInSec {
			return sim.VTimeInSec(rng.ExpFloat64() * cfg.MeanArrival)
		},
		serviceTime: func() sim.VTimeInSec {
			return sim.VTimeInSec(rng.ExpFloat64() * cfg.MeanService)
		},
		patience: func() sim.VTimeInSec {
			span := cfg.MaxPatience - cfg.MinPatience
			return sim.VTimeInSec(cfg.MinPatience + rng.Float64()*span)
		},
	}

	return b, nil
}

// Counters returns the resource that stands for the counters.
func (b *Bank) Counters() *queueing.Resource {
	return b.counters
}

// Build adds the arrival process to the simulator.
func (b *Bank) Build(s *sim.Simulator) error {
	if b.built {
		return fmt.Errorf("%w: bank is already built", sim.ErrProgramming)
	}

	b.built = true
	s.Add(b.arrivals).SetName("arrivals")

	return nil
}

// Lines returns the counters.
func (b *Bank) Lines() []models.Line {
	return []models.Line{b.counters}
}

// Report counts the customers and how long the served ones waited.
func (b *Bank) Report() []models.Stat {
	meanWait := 0.0
	if b.served > 0 {
		meanWait = float64(b.totalWait) / float64(b.served)
	}

	return []models.Stat{
		{Name: "arrived", Value: float64(b.arrived)},
		{Name: "served", Value: float64(b.served)},
		{Name: "reneged", Value: float64(b.reneged)},
		{Name: "waiting", Value: float64(b.arrived - b.served - b.reneged)},
		{Name: "mean_wait", Value: meanWait},
		{Name: "max_wait", Value: float64(b.maxWait)},
	}
}

func (b *Bank) arrivals(p *sim.Process) error {
	s := p.Simulator()

	for i := 0; b.cfg.Customers == 0 || i < b.cfg.Customers; i++ {
		c := s.Add(b.customer).SetName(fmt.Sprintf("customer-%d", i))
		c.Local()["patience"] = b.patience()

		if b.cfg.Customers != 0 && i == b.cfg.Customers-1 {
			break
		}

		if err := p.Advance(b.interArrival()); err != nil {
			return err
		}
	}

	return nil
}

func (b *Bank) customer(p *sim.Process) error {
	arrival := p.Simulator().Now()
	patience := p.Local()["patience"].(sim.VTimeInSec)
	b.arrived++

	err := b.counters.UsingTimeout(p, 1, patience, func() error {
		b.recordWait(p.Simulator().Now() - arrival)
		b.served++

		return p.Advance(b.serviceTime())
	})

	if errors.Is(err, sim.ErrTimeout) {
		b.reneged++
		p.Local()["reneged"] = true

		return nil
	}

	return err
}

func (b *Bank) recordWait(wait sim.VTimeInSec) {
	b.totalWait += wait
	b.maxWait = max(b.maxWait, wait)
}
