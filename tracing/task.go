package tracing

import "github.com/sarchlab/procsim/sim"

// Kinds of tasks reported by the trace hook.
const (
	KindProcess = "process"
	KindWait    = "wait"
)

// A TaskStep represents a milestone in the processing of task
type TaskStep struct {
	Time sim.VTimeInSec `json:"time"`
	What string         `json:"what"`
}

// A Task is a span of simulated time spent by a process. A process task covers
// the whole life of a process. A wait task covers one stay of a process in a
// queue, and its parent is the task of the process.
type Task struct {
	ID        string         `json:"id"`
	ParentID  string         `json:"parent_id"`
	Kind      string         `json:"kind"`
	What      string         `json:"what"`
	Where     string         `json:"where"`
	StartTime sim.VTimeInSec `json:"start_time"`
	EndTime   sim.VTimeInSec `json:"end_time"`
	Steps     []TaskStep     `json:"steps"`
	Detail    any            `json:"-"`
}

// TaskFilter is a function that can filter interesting tasks. If this function
// returns true, the task is considered useful.
type TaskFilter func(t Task) bool

// KindIs returns a filter that accepts tasks of the given kind.
func KindIs(kind string) TaskFilter {
	return func(t Task) bool {
		return t.Kind == kind
	}
}

// WaitsIn returns a filter that accepts waits in the named queue, signal, or
// resource.
func WaitsIn(name string) TaskFilter {
	return func(t Task) bool {
		return t.Kind == KindWait && t.What == name
	}
}
