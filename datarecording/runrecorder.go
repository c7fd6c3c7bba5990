package datarecording

import (
	"os"
	"strings"
	"time"
)

// RunInfoTable is the table that RunRecorder writes to.
const RunInfoTable = "run_info"

// RunInfo is one property of a simulation run.
type RunInfo struct {
	Property string
	Value    string
}

// RunRecorder records how a simulation run was launched and when it ended.
type RunRecorder struct {
	recorder DataRecorder
	entries  []RunInfo
}

// NewRunRecorder creates a RunRecorder and the table it writes to.
func NewRunRecorder(recorder DataRecorder) *RunRecorder {
	recorder.CreateTable(RunInfoTable, RunInfo{})

	return &RunRecorder{
		recorder: recorder,
	}
}

// Start records the wall-clock start time, the command line, and the working
// directory.
func (e *RunRecorder) Start() {
	e.Set("Start Time", timestamp(time.Now()))
	e.Set("Command", strings.Join(os.Args, " "))

	if cwd, err := os.Getwd(); err == nil {
		e.Set("Working Directory", cwd)
	}
}

// Set records a custom property, such as the model or the seed.
func (e *RunRecorder) Set(property, value string) {
	e.entries = append(e.entries, RunInfo{property, value})
}

// End writes all properties along with the wall-clock end time.
func (e *RunRecorder) End() {
	e.Set("End Time", timestamp(time.Now()))

	for _, entry := range e.entries {
		e.recorder.InsertData(RunInfoTable, entry)
	}

	e.entries = nil

	e.recorder.Flush()
}

func timestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05.000000000")
}
