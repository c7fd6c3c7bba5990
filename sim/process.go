package sim

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// ProcessState is the lifecycle stage of a process.
type ProcessState int

// The states of a process.
const (
	ProcessNotStarted ProcessState = iota
	ProcessRunning
	ProcessSuspended
	ProcessDead
)

func (s ProcessState) String() string {
	switch s {
	case ProcessNotStarted:
		return "not-started"
	case ProcessRunning:
		return "running"
	case ProcessSuspended:
		return "suspended"
	case ProcessDead:
		return "dead"
	default:
		return fmt.Sprintf("ProcessState(%d)", int(s))
	}
}

type wakeup struct {
	interrupt *Interrupt
	kill      bool
}

// A Process is a logical thread of control that runs a body function.
//
// Bodies run on their own goroutine, but a process only executes while its
// simulator hands control to it, and it gives control back whenever it
// suspends (Advance, Pause, or any waiting primitive built on them). The
// simulated world therefore sees one process at a time.
type Process struct {
	sim   *Simulator
	name  string
	body  func(p *Process) error
	state ProcessState
	local map[string]any

	wake   chan wakeup
	gen    uint64
	timer  *Event
	killed bool

	err        error
	panicked   bool
	panicValue any
	panicStack []byte
}

// Name returns the name of the process.
func (p *Process) Name() string {
	return p.name
}

// SetName renames the process.
func (p *Process) SetName(name string) *Process {
	p.name = name
	return p
}

// Simulator returns the simulator that runs the process.
func (p *Process) Simulator() *Simulator {
	return p.sim
}

// State returns the lifecycle stage of the process.
func (p *Process) State() ProcessState {
	return p.state
}

// IsRunning tells if the process is the one executing right now. Only the
// running process may suspend itself.
func (p *Process) IsRunning() bool {
	return p.sim.current == p && p.state == ProcessRunning
}

// Err returns what the body returned. It is only meaningful once the process
// is dead.
func (p *Process) Err() error {
	return p.err
}

// Local returns the private scratch store of the process.
func (p *Process) Local() map[string]any {
	if p.local == nil {
		p.local = make(map[string]any)
	}

	return p.local
}

// Advance suspends the process for delay units of simulated time. It returns
// early with the interrupt if the process is interrupted in the meantime.
//
// Advance can only be called by the process itself.
func (p *Process) Advance(delay VTimeInSec) error {
	if err := p.mustBeRunning(); err != nil {
		return err
	}

	if err := checkDelay(delay); err != nil {
		return err
	}

	if p.killed {
		return ErrTerminated
	}

	gen := p.gen + 1
	p.timer = p.sim.scheduleAt(p.sim.now+delay, "wake "+p.name, func() {
		p.wakeUp(gen, wakeup{})
	})

	return p.suspend()
}

// Pause suspends the process until some other party calls Resume on it. It
// returns the interrupt if the process is interrupted instead.
//
// Pause can only be called by the process itself.
func (p *Process) Pause() error {
	if err := p.mustBeRunning(); err != nil {
		return err
	}

	return p.suspend()
}

// Resume schedules the process to continue from its current suspension on
// the next tick. Resuming a process that is dead or has not started does
// nothing. A resume issued while the process runs wakes its next suspension.
func (p *Process) Resume() {
	gen := p.gen

	switch p.state {
	case ProcessDead, ProcessNotStarted:
		return
	case ProcessRunning:
		gen++
	}

	p.sim.scheduleAt(p.sim.now, "resume "+p.name, func() {
		p.wakeUp(gen, wakeup{})
	})
}

// Interrupt schedules the delivery of a generic interrupt into whatever
// suspension the process is in on the next tick.
func (p *Process) Interrupt(reason any) {
	p.InterruptWith(NewInterrupt(InterruptGeneric, reason))
}

// InterruptWith schedules the delivery of the given interrupt. The interrupt
// is dropped if, when it is delivered, the process is not suspended.
func (p *Process) InterruptWith(intr *Interrupt) {
	if p.state == ProcessDead {
		return
	}

	p.sim.scheduleAt(p.sim.now, "interrupt "+p.name, func() {
		p.deliver(intr)
	})
}

func (p *Process) mustBeRunning() error {
	if !p.IsRunning() {
		return fmt.Errorf("%w: process %s is not the running process",
			ErrProgramming, p.name)
	}

	return nil
}

// suspend gives control back to the simulator and blocks until the simulator
// hands control back. It runs on the goroutine of the process.
func (p *Process) suspend() error {
	if p.killed {
		return ErrTerminated
	}

	p.gen++
	p.state = ProcessSuspended
	p.sim.yield <- struct{}{}

	w := <-p.wake
	if w.kill {
		p.killed = true
		runtime.Goexit()
	}

	if p.timer != nil {
		p.timer.Cancel()
		p.timer = nil
	}

	if w.interrupt != nil {
		return w.interrupt
	}

	return nil
}

func (p *Process) start() {
	if p.state != ProcessNotStarted {
		return
	}

	s := p.sim
	s.live[p] = s.started
	s.started++
	s.log.Debug().
		Str("process", p.name).
		Float64("now", float64(s.now)).
		Msg("process started")
	s.InvokeHook(HookCtx{
		Domain: s,
		Now:    s.now,
		Pos:    HookPosProcessStart,
		Item:   p,
	})

	p.transfer(func() { go p.main() })
}

func (p *Process) wakeUp(gen uint64, w wakeup) {
	if p.state != ProcessSuspended || p.gen != gen {
		return
	}

	p.transfer(func() { p.wake <- w })
}

func (p *Process) deliver(intr *Interrupt) {
	s := p.sim
	if p.state != ProcessSuspended {
		s.log.Debug().
			Str("process", p.name).
			Str("state", p.state.String()).
			Str("interrupt", intr.Error()).
			Msg("interrupt dropped")
		return
	}

	s.InvokeHook(HookCtx{
		Domain: s,
		Now:    s.now,
		Pos:    HookPosProcessInterrupt,
		Item:   p,
		Detail: intr,
	})

	p.transfer(func() { p.wake <- wakeup{interrupt: intr} })
}

func (p *Process) kill() {
	if p.state != ProcessSuspended {
		return
	}

	p.transfer(func() { p.wake <- wakeup{kill: true} })
}

// transfer hands control to the goroutine of the process and blocks until the
// process suspends or finishes. It runs on the goroutine driving the
// simulator.
func (p *Process) transfer(handoff func()) {
	s := p.sim
	prev := s.current

	s.current = p
	p.state = ProcessRunning
	handoff()
	<-s.yield
	s.current = prev

	if p.state == ProcessDead {
		p.finish()
	}
}

func (p *Process) main() {
	defer p.exit()
	p.err = p.body(p)
}

func (p *Process) exit() {
	if r := recover(); r != nil {
		p.panicked = true
		p.panicValue = r
		p.panicStack = debug.Stack()
	}

	p.state = ProcessDead
	p.sim.yield <- struct{}{}
}

func (p *Process) finish() {
	s := p.sim
	delete(s.live, p)

	if p.timer != nil {
		p.timer.Cancel()
		p.timer = nil
	}

	s.InvokeHook(HookCtx{
		Domain: s,
		Now:    s.now,
		Pos:    HookPosProcessEnd,
		Item:   p,
		Detail: p.err,
	})

	switch {
	case p.panicked:
		s.log.Error().
			Str("process", p.name).
			Interface("panic", p.panicValue).
			Bytes("stack", p.panicStack).
			Msg("process panicked")
		panic(p.panicValue)
	case p.killed:
		s.log.Debug().Str("process", p.name).Msg("process torn down")
	case p.err == nil:
		s.log.Debug().
			Str("process", p.name).
			Float64("now", float64(s.now)).
			Msg("process finished")
	case IsInterrupt(p.err):
		s.log.Debug().
			Str("process", p.name).
			Float64("now", float64(s.now)).
			Err(p.err).
			Msg("process ended by interrupt")
	default:
		s.log.Error().
			Str("process", p.name).
			Float64("now", float64(s.now)).
			Err(p.err).
			Msg("process failed")
		s.failure = fmt.Errorf("process %s: %w", p.name, p.err)
	}
}
