// Package monitoring serves the state of a running simulation over HTTP and
// lets users pause and continue it.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/procsim/sim"
)

// A WaitingLine is anything processes wait in, such as a queue, a signal, or
// a resource.
type WaitingLine interface {
	Name() string
	NumWaiting() int
}

// An InstancePool is a waiting line with a number of free instances.
type InstancePool interface {
	WaitingLine
	NumInstancesFree() int
	NumInstancesTotal() int
}

type processInfo struct {
	Name       string  `json:"name"`
	State      string  `json:"state"`
	StartTime  float64 `json:"start_time"`
	Interrupts int     `json:"interrupts"`
}

type lineInfo struct {
	Name    string `json:"name"`
	Waiting int    `json:"waiting"`
	Free    *int   `json:"free,omitempty"`
	Total   *int   `json:"total,omitempty"`
}

// Monitor can turn a simulation into a server and allows external monitoring
// controlling of the simulation.
type Monitor struct {
	portNumber  int
	openBrowser bool
	log         zerolog.Logger

	simulator *sim.Simulator
	gate      *Gate

	lock      sync.Mutex
	now       sim.VTimeInSec
	numEvents uint64
	processes map[*sim.Process]*processInfo
	lines     []WaitingLine
	lineState []lineInfo

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
	timeBar          *ProgressBar

	registry *prometheus.Registry
	metrics  *metrics
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	registry := prometheus.NewRegistry()

	return &Monitor{
		log:       zerolog.Nop(),
		gate:      NewGate(),
		processes: make(map[*sim.Process]*processInfo),
		registry:  registry,
		metrics:   newMetrics(registry),
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		m.log.Warn().
			Int("port", portNumber).
			Msg("port number below 1000 is not allowed, using a random port")

		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithLogger sets the logger of the monitor.
func (m *Monitor) WithLogger(logger zerolog.Logger) *Monitor {
	m.log = logger
	return m
}

// WithOpenBrowser makes StartServer open the monitor in a web browser.
func (m *Monitor) WithOpenBrowser(open bool) *Monitor {
	m.openBrowser = open
	return m
}

// RegisterSimulator lets the monitor observe and pause the simulator.
func (m *Monitor) RegisterSimulator(s *sim.Simulator) {
	m.simulator = s
	s.AcceptHook(m.gate)
	s.AcceptHook(m)
}

// RegisterLine adds a queue, signal, or resource to the monitored lines.
func (m *Monitor) RegisterLine(l WaitingLine) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.lines = append(m.lines, l)
	m.lineState = append(m.lineState, lineInfo{Name: l.Name()})
}

// Gate returns the gate that pauses the simulator.
func (m *Monitor) Gate() *Gate {
	return m.gate
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        xid.New().String(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// TrackSimulatedTime shows a progress bar that follows the simulated clock up
// to the given time, in whole seconds.
func (m *Monitor) TrackSimulatedTime(until sim.VTimeInSec) *ProgressBar {
	bar := m.CreateProgressBar("Simulated time", uint64(until))

	m.lock.Lock()
	m.timeBar = bar
	m.lock.Unlock()

	return bar
}

// Func records the state of the simulator. It runs on the goroutine that
// drives the simulator, so it is the only place that reads model state.
func (m *Monitor) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case sim.HookPosAfterEvent:
		m.afterEvent(ctx)
	case sim.HookPosProcessStart:
		m.processStarted(ctx)
	case sim.HookPosProcessInterrupt:
		m.processInterrupted(ctx)
	case sim.HookPosProcessEnd:
		m.processEnded(ctx)
	}
}

func (m *Monitor) afterEvent(ctx sim.HookCtx) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.now = ctx.Now
	m.numEvents++

	for i, l := range m.lines {
		info := lineInfo{Name: l.Name(), Waiting: l.NumWaiting()}
		m.metrics.waiting.WithLabelValues(info.Name).Set(float64(info.Waiting))

		if pool, ok := l.(InstancePool); ok {
			free, total := pool.NumInstancesFree(), pool.NumInstancesTotal()
			info.Free, info.Total = &free, &total
			m.metrics.free.WithLabelValues(info.Name).Set(float64(free))
		}

		m.lineState[i] = info
	}

	for p, info := range m.processes {
		info.State = p.State().String()
	}

	m.metrics.now.Set(float64(ctx.Now))
	m.metrics.events.Inc()

	if m.timeBar != nil {
		m.timeBar.SetFinished(uint64(ctx.Now))
	}
}

func (m *Monitor) processStarted(ctx sim.HookCtx) {
	p := ctx.Item.(*sim.Process)

	m.lock.Lock()
	defer m.lock.Unlock()

	m.processes[p] = &processInfo{
		Name:      p.Name(),
		State:     p.State().String(),
		StartTime: float64(ctx.Now),
	}

	m.metrics.started.Inc()
	m.metrics.live.Set(float64(len(m.processes)))
}

func (m *Monitor) processInterrupted(ctx sim.HookCtx) {
	p := ctx.Item.(*sim.Process)
	intr := ctx.Detail.(*sim.Interrupt)

	m.lock.Lock()
	defer m.lock.Unlock()

	if info, ok := m.processes[p]; ok {
		info.Interrupts++
	}

	m.metrics.interrupts.WithLabelValues(intr.Kind.String()).Inc()
}

func (m *Monitor) processEnded(ctx sim.HookCtx) {
	p := ctx.Item.(*sim.Process)

	m.lock.Lock()
	defer m.lock.Unlock()

	delete(m.processes, p)
	m.metrics.live.Set(float64(len(m.processes)))
}

// Handler returns the HTTP handler that serves the monitor API.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/pause", m.pause)
	r.HandleFunc("/api/continue", m.continueSim)
	r.HandleFunc("/api/now", m.nowHandler)
	r.HandleFunc("/api/processes", m.listProcesses)
	r.HandleFunc("/api/process/{name}", m.processDetails)
	r.HandleFunc("/api/lines", m.listLines)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))

	return r
}

// StartServer starts the monitor as a web server and returns its URL.
func (m *Monitor) StartServer() (string, error) {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return "", fmt.Errorf("monitor cannot listen on %s: %w", actualPort, err)
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	go func() {
		err := http.Serve(listener, m.Handler())
		if err != nil {
			m.log.Error().Err(err).Msg("monitor server stopped")
		}
	}()

	if m.openBrowser {
		if err := browser.OpenURL(url); err != nil {
			m.log.Warn().Err(err).Str("url", url).Msg("cannot open browser")
		}
	}

	return url, nil
}

func (m *Monitor) pause(w http.ResponseWriter, _ *http.Request) {
	m.gate.Pause()
	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) continueSim(w http.ResponseWriter, _ *http.Request) {
	m.gate.Continue()
	w.WriteHeader(http.StatusOK)
}

type nowRsp struct {
	Now     float64 `json:"now"`
	Events  uint64  `json:"events"`
	Live    int     `json:"live_processes"`
	Paused  bool    `json:"paused"`
	Holding bool    `json:"holding"`
}

func (m *Monitor) nowHandler(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	rsp := nowRsp{
		Now:    float64(m.now),
		Events: m.numEvents,
		Live:   len(m.processes),
	}
	m.lock.Unlock()

	rsp.Paused = m.gate.IsPaused()
	rsp.Holding = m.gate.IsHolding()

	m.writeJSON(w, rsp)
}

func (m *Monitor) snapshotProcesses() []processInfo {
	m.lock.Lock()
	defer m.lock.Unlock()

	list := make([]processInfo, 0, len(m.processes))
	for _, info := range m.processes {
		list = append(list, *info)
	}

	sort.Slice(list, func(i, j int) bool {
		if list[i].StartTime != list[j].StartTime {
			return list[i].StartTime < list[j].StartTime
		}

		return list[i].Name < list[j].Name
	})

	return list
}

func (m *Monitor) listProcesses(w http.ResponseWriter, _ *http.Request) {
	m.writeJSON(w, m.snapshotProcesses())
}

func (m *Monitor) processDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	for _, info := range m.snapshotProcesses() {
		if info.Name != name {
			continue
		}

		serializer := goseth.NewSerializer()
		serializer.SetRoot(&info)
		serializer.SetMaxDepth(1)

		if err := serializer.Serialize(w); err != nil {
			m.log.Error().Err(err).Str("process", name).
				Msg("cannot serialize process")
		}

		return
	}

	w.WriteHeader(http.StatusNotFound)
	fmt.Fprint(w, "Process not found")
}

func (m *Monitor) listLines(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	lines := make([]lineInfo, len(m.lineState))
	copy(lines, m.lineState)
	m.lock.Unlock()

	m.writeJSON(w, lines)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]progressRsp, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.snapshot())
	}
	m.progressBarsLock.Unlock()

	m.writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		m.internalError(w, err)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		m.internalError(w, err)
		return
	}

	memory, err := proc.MemoryInfo()
	if err != nil {
		m.internalError(w, err)
		return
	}

	m.writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memory.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	if err := pprof.StartCPUProfile(buf); err != nil {
		m.internalError(w, err)
		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		m.internalError(w, err)
		return
	}

	m.writeJSON(w, prof)
}

func (m *Monitor) writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		m.internalError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if _, err := w.Write(data); err != nil {
		m.log.Debug().Err(err).Msg("cannot write response")
	}
}

func (m *Monitor) internalError(w http.ResponseWriter, err error) {
	m.log.Error().Err(err).Msg("monitor request failed")
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
