package simulation

import (
	"fmt"
	"os"

	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/sarchlab/procsim/datarecording"
	"github.com/sarchlab/procsim/monitoring"
	"github.com/sarchlab/procsim/sim"
	"github.com/sarchlab/procsim/tracing"
)

// Builder can be used to build a simulation.
type Builder struct {
	logger         zerolog.Logger
	idGenerator    sim.IDGenerator
	monitorOn      bool
	monitorPort    int
	openBrowser    bool
	recordingOn    bool
	outputFileName string
}

// MakeBuilder creates a new builder. By default, the simulation records a
// trace and serves a monitor.
func MakeBuilder() Builder {
	return Builder{
		logger:      zerolog.Nop(),
		monitorOn:   true,
		recordingOn: true,
	}
}

// WithLogger sets the logger of the simulator and the monitor.
func (b Builder) WithLogger(logger zerolog.Logger) Builder {
	b.logger = logger
	return b
}

// WithIDGenerator sets how the simulator names its processes.
func (b Builder) WithIDGenerator(g sim.IDGenerator) Builder {
	b.idGenerator = g
	return b
}

// WithoutMonitoring sets the simulation to not use monitoring.
func (b Builder) WithoutMonitoring() Builder {
	b.monitorOn = false
	return b
}

// WithoutRecording sets the simulation to not record a trace.
func (b Builder) WithoutRecording() Builder {
	b.recordingOn = false
	return b
}

// WithOutputFileName sets the custom output file name for the data recorder.
// The recorder adds the .sqlite3 extension.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithOpenBrowser opens the monitor in a browser once it is served.
func (b Builder) WithOpenBrowser() Builder {
	b.openBrowser = true
	return b
}

func (b Builder) parametersMustBeValid() {
	if !b.monitorOn && (b.monitorPort != 0 || b.openBrowser) {
		panic("monitor options cannot be set when monitoring is disabled")
	}

	if !b.recordingOn && b.outputFileName != "" {
		panic("output file cannot be set when recording is disabled")
	}
}

// Build builds the simulation. It fails if the output file already exists or
// if the monitor cannot be served.
func (b Builder) Build() (*Simulation, error) {
	b.parametersMustBeValid()

	s := &Simulation{
		id:            xid.New().String(),
		lineNameIndex: make(map[string]int),
	}

	simBuilder := sim.MakeBuilder().WithLogger(b.logger)
	if b.idGenerator != nil {
		simBuilder = simBuilder.WithIDGenerator(b.idGenerator)
	}

	s.simulator = simBuilder.Build()

	if b.recordingOn {
		if err := b.startRecording(s); err != nil {
			return nil, err
		}
	}

	if b.monitorOn {
		if err := b.startMonitor(s); err != nil {
			s.closeRecording()
			return nil, err
		}
	}

	return s, nil
}

func (b Builder) startRecording(s *Simulation) error {
	outputPath := b.outputFileName
	if outputPath == "" {
		outputPath = "procsim_sim_" + s.id
	}

	if _, err := os.Stat(outputPath + ".sqlite3"); err == nil {
		return fmt.Errorf("output file %s.sqlite3 already exists", outputPath)
	}

	s.outputFileName = outputPath
	s.dataRecorder = datarecording.New(outputPath)

	s.runRecorder = datarecording.NewRunRecorder(s.dataRecorder)
	s.runRecorder.Start()

	s.visTracer = tracing.NewDBTracer(s.simulator, s.dataRecorder)
	tracing.CollectTrace(s.simulator, s.visTracer)

	return nil
}

func (b Builder) startMonitor(s *Simulation) error {
	s.monitor = monitoring.NewMonitor().
		WithLogger(b.logger).
		WithPortNumber(b.monitorPort).
		WithOpenBrowser(b.openBrowser)
	s.monitor.RegisterSimulator(s.simulator)

	url, err := s.monitor.StartServer()
	if err != nil {
		return err
	}

	s.monitorURL = url

	return nil
}
