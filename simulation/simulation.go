// Package simulation bundles a simulator with the services that observe it: a
// trace recorded into SQLite and a monitoring server.
package simulation

import (
	"errors"

	"github.com/sarchlab/procsim/datarecording"
	"github.com/sarchlab/procsim/monitoring"
	"github.com/sarchlab/procsim/sim"
	"github.com/sarchlab/procsim/tracing"
)

// A Simulation holds a simulator and the services that watch it.
type Simulation struct {
	id        string
	simulator *sim.Simulator

	outputFileName string
	dataRecorder   datarecording.DataRecorder
	runRecorder    *datarecording.RunRecorder
	visTracer      *tracing.DBTracer

	monitor    *monitoring.Monitor
	monitorURL string

	lines         []monitoring.WaitingLine
	lineNameIndex map[string]int

	terminated bool
}

// ID returns the ID of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// Simulator returns the simulator that runs the processes.
func (s *Simulation) Simulator() *sim.Simulator {
	return s.simulator
}

// OutputFileName returns the data recorder file, without the .sqlite3
// extension. It is empty if the simulation does not record.
func (s *Simulation) OutputFileName() string {
	return s.outputFileName
}

// GetDataRecorder returns the data recorder used in the simulation, or nil.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// GetMonitor returns the monitor used in the simulation, or nil.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

// MonitorURL returns where the monitor is served.
func (s *Simulation) MonitorURL() string {
	return s.monitorURL
}

// GetVisTracer returns the tracer that writes into the data recorder, or nil.
func (s *Simulation) GetVisTracer() *tracing.DBTracer {
	return s.visTracer
}

// SetRunInfo records a property of the run, such as the model or the seed.
func (s *Simulation) SetRunInfo(property, value string) {
	if s.runRecorder != nil {
		s.runRecorder.Set(property, value)
	}
}

// RegisterLine registers a queue, signal, or resource with the simulation.
// The monitor, if any, starts to follow it.
func (s *Simulation) RegisterLine(l monitoring.WaitingLine) {
	name := l.Name()
	if _, found := s.lineNameIndex[name]; found {
		panic("line " + name + " already registered")
	}

	s.lines = append(s.lines, l)
	s.lineNameIndex[name] = len(s.lines) - 1

	if s.monitor != nil {
		s.monitor.RegisterLine(l)
	}
}

// GetLineByName returns the line with the given name, or nil.
func (s *Simulation) GetLineByName(name string) monitoring.WaitingLine {
	i, found := s.lineNameIndex[name]
	if !found {
		return nil
	}

	return s.lines[i]
}

// Lines returns all registered lines in registration order.
func (s *Simulation) Lines() []monitoring.WaitingLine {
	lines := make([]monitoring.WaitingLine, len(s.lines))
	copy(lines, s.lines)

	return lines
}

// Terminate flushes the trace and the run information, then tears down the
// processes. Calling it again does nothing.
func (s *Simulation) Terminate() error {
	if s.terminated {
		return nil
	}

	s.terminated = true

	var errs []error
	if s.visTracer != nil {
		s.visTracer.Terminate()
	}

	errs = append(errs, s.closeRecording())
	errs = append(errs, s.simulator.Close())

	return errors.Join(errs...)
}

func (s *Simulation) closeRecording() error {
	if s.dataRecorder == nil {
		return nil
	}

	s.runRecorder.End()

	return s.dataRecorder.Close()
}
