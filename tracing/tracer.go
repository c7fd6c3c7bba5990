package tracing

import "github.com/sarchlab/procsim/sim"

// A Tracer can collect task traces
type Tracer interface {
	StartTask(task Task)
	StepTask(task Task)
	EndTask(task Task)
}

// A TimeTeller tells the current simulated time. *sim.Simulator is one.
type TimeTeller interface {
	Now() sim.VTimeInSec
}
