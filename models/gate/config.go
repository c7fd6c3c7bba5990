package gate

import (
	"fmt"

	"github.com/sarchlab/procsim/sim"
)

// Config holds the parameters of the gate. Times are in simulated minutes.
type Config struct {
	// Visitors is how many visitors arrive. Zero means no limit.
	Visitors int `yaml:"visitors"`

	// MeanArrival is the mean time between two arrivals.
	MeanArrival float64 `yaml:"mean_arrival"`

	// ClosedFor and OpenFor are how long the door stays closed and open in
	// each cycle. The door starts closed.
	ClosedFor float64 `yaml:"closed_for"`
	OpenFor   float64 `yaml:"open_for"`

	// Patience is how long a visitor waits for the door.
	Patience float64 `yaml:"patience"`

	// AlarmAt is when the alarm goes off. Zero means never.
	AlarmAt float64 `yaml:"alarm_at"`
}

// DefaultConfig returns a door that opens for 2 minutes every 10 minutes.
func DefaultConfig() Config {
	return Config{
		MeanArrival: 2,
		ClosedFor:   8,
		OpenFor:     2,
		Patience:    6,
	}
}

// Validate checks that the parameters describe a gate that can run.
func (c Config) Validate() error {
	switch {
	case c.Visitors < 0:
		return fmt.Errorf("%w: visitors %d must not be negative",
			sim.ErrInvalidArgument, c.Visitors)
	case c.MeanArrival <= 0:
		return fmt.Errorf("%w: mean_arrival %v must be positive",
			sim.ErrInvalidArgument, c.MeanArrival)
	case c.ClosedFor <= 0 || c.OpenFor <= 0:
		return fmt.Errorf("%w: closed_for %v and open_for %v must be positive",
			sim.ErrInvalidArgument, c.ClosedFor, c.OpenFor)
	case c.Patience < 0:
		return fmt.Errorf("%w: patience %v must not be negative",
			sim.ErrInvalidArgument, c.Patience)
	case c.AlarmAt < 0:
		return fmt.Errorf("%w: alarm_at %v must not be negative",
			sim.ErrInvalidArgument, c.AlarmAt)
	}

	return nil
}
