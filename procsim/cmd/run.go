package cmd

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sarchlab/procsim/datarecording"
	"github.com/sarchlab/procsim/models"
	"github.com/sarchlab/procsim/sim"
	"github.com/sarchlab/procsim/simulation"
	"github.com/sarchlab/procsim/tracing"
)

// ReportTable is the table that holds the model report in a trace database.
const ReportTable = "report"

// ReportEntry is one row of ReportTable.
type ReportEntry struct {
	Name  string
	Value float64
}

// RunOptions holds the flags of the run command.
type RunOptions struct {
	Model       string
	Duration    float64
	Seed        int64
	Config      string
	LogLevel    string
	LogFormat   string
	TraceDB     string
	Monitor     bool
	MonitorPort int
	Open        bool
}

// NewRunCommand creates the command that runs a model.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a model for some simulated time",
		Long: `Run a model for some simulated time and print its report.

Example:
  procsim run --model bank --duration 480 --config bank.yaml
  procsim run --model gate --trace-db gate_trace --monitor --open`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runModel(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.Model, "model", "bank", "model to run")
	flags.Float64Var(&opts.Duration, "duration", 480, "simulated time to run for")
	flags.Int64Var(&opts.Seed, "seed", 1, "random seed")
	flags.StringVar(&opts.Config, "config", "", "YAML file with the model parameters")
	flags.StringVar(&opts.LogLevel, "log-level", "info", "trace, debug, info, warn, or error")
	flags.StringVar(&opts.LogFormat, "log-format", "console", "console or json")
	flags.StringVar(&opts.TraceDB, "trace-db", "", "record a trace into this SQLite database")
	flags.BoolVar(&opts.Monitor, "monitor", false, "serve the monitor while running")
	flags.IntVar(&opts.MonitorPort, "monitor-port", 0, "monitor port, random if 0")
	flags.BoolVar(&opts.Open, "open", false, "open the monitor in a browser")

	return cmd
}

func runModel(cmd *cobra.Command, opts *RunOptions) error {
	if math.IsNaN(opts.Duration) || opts.Duration <= 0 {
		return fmt.Errorf("%w: duration %v must be positive",
			sim.ErrInvalidArgument, opts.Duration)
	}

	logger, err := newLogger(cmd.ErrOrStderr(), opts.LogLevel, opts.LogFormat)
	if err != nil {
		return err
	}

	decode, err := yamlConfig(opts.Config)
	if err != nil {
		return err
	}

	model, err := models.New(opts.Model, opts.Seed, decode)
	if err != nil {
		return err
	}

	sm, err := buildSimulation(logger, opts)
	if err != nil {
		return err
	}

	defer func() {
		if termErr := sm.Terminate(); termErr != nil {
			logger.Error().Err(termErr).Msg("cannot terminate the simulation")
		}
	}()

	s := sm.Simulator()
	if logger.GetLevel() <= zerolog.TraceLevel {
		s.AcceptHook(sim.NewEventLogger(logger))
	}

	if err := model.Build(s); err != nil {
		return err
	}

	for _, l := range model.Lines() {
		sm.RegisterLine(l)
	}

	if m := sm.GetMonitor(); m != nil {
		m.TrackSimulatedTime(sim.VTimeInSec(opts.Duration))
		logger.Info().Str("url", sm.MonitorURL()).Msg("monitor started")
	}

	sm.SetRunInfo("Model", opts.Model)
	sm.SetRunInfo("Seed", strconv.FormatInt(opts.Seed, 10))
	sm.SetRunInfo("Duration",
		strconv.FormatFloat(opts.Duration, 'g', -1, 64))
	sm.SetRunInfo("Config", opts.Config)

	lifetimes := tracing.NewTimeTracer(s, tracing.KindIs(tracing.KindProcess))
	steps := tracing.NewStepCountTracer(tracing.KindIs(tracing.KindProcess))
	tracing.CollectTrace(s, lifetimes)
	tracing.CollectTrace(s, steps)

	logger.Info().
		Str("model", opts.Model).
		Int64("seed", opts.Seed).
		Float64("duration", opts.Duration).
		Msg("run started")

	if err := s.RunFor(sim.VTimeInSec(opts.Duration)); err != nil {
		return fmt.Errorf("model %s failed: %w", opts.Model, err)
	}

	now := s.Now()
	report := append(model.Report(),
		models.Stat{Name: "processes_ended", Value: float64(lifetimes.TaskCount())},
		models.Stat{Name: "mean_lifetime", Value: float64(lifetimes.AverageTime())},
		models.Stat{Name: "timeouts", Value: float64(steps.StepCount("timeout"))},
		models.Stat{Name: "interrupts", Value: float64(steps.StepCount("interrupt"))},
	)

	logger.Info().
		Float64("now", float64(now)).
		Int("live", s.NumLiveProcesses()).
		Msg("run finished")

	recordReport(sm.GetDataRecorder(), report)

	if err := sm.Terminate(); err != nil {
		return err
	}

	return writeReport(cmd.OutOrStdout(), opts, now, report)
}

func buildSimulation(
	logger zerolog.Logger,
	opts *RunOptions,
) (*simulation.Simulation, error) {
	b := simulation.MakeBuilder().WithLogger(logger)

	if opts.TraceDB == "" {
		b = b.WithoutRecording()
	} else {
		b = b.WithOutputFileName(opts.TraceDB)
	}

	if !opts.Monitor {
		return b.WithoutMonitoring().Build()
	}

	b = b.WithMonitorPort(opts.MonitorPort)
	if opts.Open {
		b = b.WithOpenBrowser()
	}

	return b.Build()
}

// recordReport stores the report next to the trace.
func recordReport(recorder datarecording.DataRecorder, report []models.Stat) {
	if recorder == nil {
		return
	}

	recorder.CreateTable(ReportTable, ReportEntry{})
	for _, stat := range report {
		recorder.InsertData(ReportTable, ReportEntry{
			Name:  stat.Name,
			Value: stat.Value,
		})
	}
}

func writeReport(
	out io.Writer,
	opts *RunOptions,
	now sim.VTimeInSec,
	report []models.Stat,
) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintf(w, "model\t%s\n", opts.Model)
	fmt.Fprintf(w, "seed\t%d\n", opts.Seed)
	fmt.Fprintf(w, "now\t%g\n", float64(now))

	for _, stat := range report {
		fmt.Fprintf(w, "%s\t%g\n", stat.Name, stat.Value)
	}

	return w.Flush()
}
