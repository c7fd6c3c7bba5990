package sim

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/rs/zerolog"
)

// Builder can build simulators.
type Builder struct {
	logger      zerolog.Logger
	idGenerator IDGenerator
}

// MakeBuilder creates a builder with a no-op logger and sequential process
// IDs.
func MakeBuilder() Builder {
	return Builder{
		logger: zerolog.Nop(),
	}
}

// WithLogger sets the logger that the simulator reports process lifecycles to.
func (b Builder) WithLogger(logger zerolog.Logger) Builder {
	b.logger = logger
	return b
}

// WithIDGenerator sets the generator used to name processes.
func (b Builder) WithIDGenerator(g IDGenerator) Builder {
	b.idGenerator = g
	return b
}

// Build creates a new simulator with the clock at 0.
func (b Builder) Build() *Simulator {
	idGen := b.idGenerator
	if idGen == nil {
		idGen = NewSequentialIDGenerator()
	}

	return &Simulator{
		HookableBase: NewHookableBase(),
		log:          b.logger,
		idGenerator:  idGen,
		queue:        newEventQueue(),
		live:         make(map[*Process]uint64),
		yield:        make(chan struct{}),
	}
}

// NewSimulator creates a simulator with the default configuration.
func NewSimulator() *Simulator {
	return MakeBuilder().Build()
}

// A Simulator owns a simulated clock and a timeline of events, and executes
// the events one after another. Processes added to the simulator run only
// while the simulator dispatches them, so at most one piece of model code runs
// at any time.
type Simulator struct {
	*HookableBase

	log         zerolog.Logger
	idGenerator IDGenerator

	now     VTimeInSec
	nextSeq uint64
	queue   *eventQueue
	running bool

	current *Process
	live    map[*Process]uint64 // start order
	started uint64
	yield   chan struct{}

	failure error
}

// Now returns the current simulated time.
func (s *Simulator) Now() VTimeInSec {
	return s.now
}

// IsRunning tells if Run or RunFor is dispatching events.
func (s *Simulator) IsRunning() bool {
	return s.running
}

// Logger returns the logger of the simulator.
func (s *Simulator) Logger() zerolog.Logger {
	return s.log
}

// Events returns the pending events in the order they are going to run.
// Cancelled events are not included.
func (s *Simulator) Events() []*Event {
	return s.queue.Pending()
}

// Schedule registers fn to be called after delay. The delay must not be
// negative.
func (s *Simulator) Schedule(delay VTimeInSec, fn func()) (*Event, error) {
	if err := checkDelay(delay); err != nil {
		return nil, err
	}

	return s.scheduleAt(s.now+delay, "callback", fn), nil
}

// Cancel prevents a pending event from running. It is equivalent to
// evt.Cancel().
func (s *Simulator) Cancel(evt *Event) {
	evt.Cancel()
}

func (s *Simulator) scheduleAt(t VTimeInSec, what string, fn func()) *Event {
	s.nextSeq++

	evt := &Event{
		time: t,
		seq:  s.nextSeq,
		what: what,
		fn:   fn,
	}
	s.queue.Push(evt)

	return evt
}

func checkDelay(delay VTimeInSec) error {
	if math.IsNaN(float64(delay)) || delay < 0 {
		return fmt.Errorf("%w: delay %v must not be negative",
			ErrInvalidArgument, float64(delay))
	}

	return nil
}

// Run executes events until the timeline is empty or Stop is called.
func (s *Simulator) Run() error {
	return s.RunFor(Forever)
}

// RunFor executes events until the timeline is empty, Stop is called, or the
// given amount of simulated time has elapsed.
//
// A non-nil error means a process body failed; the simulator stops at the
// event that surfaced the failure.
func (s *Simulator) RunFor(duration VTimeInSec) error {
	if s.running || s.current != nil {
		return fmt.Errorf("%w: simulator is already running", ErrProgramming)
	}

	if err := checkDelay(duration); err != nil {
		return err
	}

	var stopEvt *Event
	if duration.IsFinite() {
		stopEvt = s.scheduleAt(s.now+duration, "stop", s.Stop)
	}

	restore := s.activate()
	defer func() {
		s.running = false

		// A stop event that did not fire must not stop a later run.
		if stopEvt != nil {
			stopEvt.Cancel()
		}

		restore()
	}()

	s.running = true
	for s.running {
		evt := s.nextEvent()
		if evt == nil {
			return nil
		}

		if err := s.execute(evt); err != nil {
			return err
		}
	}

	return nil
}

// Step executes exactly one event. It returns ErrNoEvent if nothing is
// pending.
func (s *Simulator) Step() error {
	if s.running || s.current != nil {
		return fmt.Errorf("%w: cannot step a running simulator", ErrProgramming)
	}

	evt := s.nextEvent()
	if evt == nil {
		return ErrNoEvent
	}

	restore := s.activate()
	defer restore()

	return s.execute(evt)
}

// Stop makes Run return after the current event finishes.
func (s *Simulator) Stop() {
	s.running = false
}

func (s *Simulator) nextEvent() *Event {
	s.queue.DropCancelled()
	return s.queue.Pop()
}

func (s *Simulator) execute(evt *Event) error {
	if evt.time < s.now {
		panic(fmt.Sprintf(
			"sim: cannot run event in the past, evt %s @ %.10f, now %.10f",
			evt.what, evt.time, s.now,
		))
	}

	s.now = evt.time

	hookCtx := HookCtx{
		Domain: s,
		Now:    s.now,
		Pos:    HookPosBeforeEvent,
		Item:   evt,
	}
	s.InvokeHook(hookCtx)

	evt.execute()

	hookCtx.Pos = HookPosAfterEvent
	s.InvokeHook(hookCtx)

	err := s.failure
	s.failure = nil

	return err
}

// Close tears down all the processes that have started and not finished,
// drops all pending events, and resets the clock to 0. Deferred functions in
// the torn-down bodies run; any suspending call they make fails with
// ErrTerminated.
func (s *Simulator) Close() error {
	if s.running || s.current != nil {
		return fmt.Errorf("%w: cannot close a running simulator", ErrProgramming)
	}

	restore := s.activate()
	defer restore()

	for _, p := range s.liveInStartOrder() {
		p.kill()
	}

	s.queue.Clear()
	s.now = 0
	s.failure = nil

	return nil
}

// Add creates a process that starts at the current time.
func (s *Simulator) Add(body func(p *Process) error) *Process {
	p := s.newProcess(body)
	s.scheduleAt(s.now, "start "+p.name, p.start)

	return p
}

// AddIn creates a process that starts after delay.
func (s *Simulator) AddIn(
	delay VTimeInSec,
	body func(p *Process) error,
) (*Process, error) {
	if err := checkDelay(delay); err != nil {
		return nil, err
	}

	p := s.newProcess(body)
	s.scheduleAt(s.now+delay, "start "+p.name, p.start)

	return p, nil
}

// AddAt creates a process that starts at an absolute time, which must not be
// in the past.
func (s *Simulator) AddAt(
	t VTimeInSec,
	body func(p *Process) error,
) (*Process, error) {
	if math.IsNaN(float64(t)) || t < s.now {
		return nil, fmt.Errorf("%w: cannot start a process at %v, now is %v",
			ErrInvalidArgument, float64(t), float64(s.now))
	}

	p := s.newProcess(body)
	s.scheduleAt(t, "start "+p.name, p.start)

	return p, nil
}

func (s *Simulator) newProcess(body func(p *Process) error) *Process {
	return &Process{
		sim:   s,
		name:  "process-" + s.idGenerator.Generate(),
		body:  body,
		state: ProcessNotStarted,
		wake:  make(chan wakeup),
	}
}

func (s *Simulator) liveInStartOrder() []*Process {
	procs := make([]*Process, 0, len(s.live))
	for p := range s.live {
		procs = append(procs, p)
	}

	slices.SortFunc(procs, func(a, b *Process) int {
		return cmp.Compare(s.live[a], s.live[b])
	})

	return procs
}

// NumLiveProcesses returns the number of processes that have started and are
// not dead.
func (s *Simulator) NumLiveProcesses() int {
	return len(s.live)
}
