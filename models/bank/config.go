package bank

import (
	"fmt"

	"github.com/sarchlab/procsim/sim"
)

// Config holds the parameters of the bank. Times are in simulated minutes.
type Config struct {
	// Customers is how many customers arrive. Zero means no limit.
	Customers int `yaml:"customers"`

	// Counters is how many customers are served at the same time.
	Counters int `yaml:"counters"`

	// MeanArrival is the mean time between two arrivals.
	MeanArrival float64 `yaml:"mean_arrival"`

	// MeanService is the mean time a customer spends at a counter.
	MeanService float64 `yaml:"mean_service"`

	// MinPatience and MaxPatience bound how long a customer waits for a
	// counter before leaving.
	MinPatience float64 `yaml:"min_patience"`
	MaxPatience float64 `yaml:"max_patience"`
}

// DefaultConfig returns a small branch with one counter.
func DefaultConfig() Config {
	return Config{
		Customers:   0,
		Counters:    1,
		MeanArrival: 10,
		MeanService: 12,
		MinPatience: 1,
		MaxPatience: 3,
	}
}

// Validate checks that the parameters describe a bank that can run.
func (c Config) Validate() error {
	switch {
	case c.Customers < 0:
		return fmt.Errorf("%w: customers %d must not be negative",
			sim.ErrInvalidArgument, c.Customers)
	case c.Counters < 1:
		return fmt.Errorf("%w: counters %d must be at least 1",
			sim.ErrInvalidArgument, c.Counters)
	case c.MeanArrival <= 0:
		return fmt.Errorf("%w: mean_arrival %v must be positive",
			sim.ErrInvalidArgument, c.MeanArrival)
	case c.MeanService <= 0:
		return fmt.Errorf("%w: mean_service %v must be positive",
			sim.ErrInvalidArgument, c.MeanService)
	case c.MinPatience < 0 || c.MaxPatience < c.MinPatience:
		return fmt.Errorf("%w: patience range [%v, %v] is not valid",
			sim.ErrInvalidArgument, c.MinPatience, c.MaxPatience)
	}

	return nil
}
