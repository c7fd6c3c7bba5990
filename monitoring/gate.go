package monitoring

import (
	"sync"

	"github.com/sarchlab/procsim/sim"
)

// A Gate is a hook that can hold the simulator before its next event. It lets
// a goroutine other than the one running the simulator pause and continue it.
type Gate struct {
	lock   sync.Mutex
	cond   *sync.Cond
	paused bool
	held   bool
}

// NewGate creates an open gate.
func NewGate() *Gate {
	g := &Gate{}
	g.cond = sync.NewCond(&g.lock)

	return g
}

// Pause makes the simulator wait before its next event.
func (g *Gate) Pause() {
	g.lock.Lock()
	defer g.lock.Unlock()

	g.paused = true
}

// Continue lets a paused simulator go on.
func (g *Gate) Continue() {
	g.lock.Lock()
	defer g.lock.Unlock()

	g.paused = false
	g.cond.Broadcast()
}

// IsPaused tells if the gate is closed.
func (g *Gate) IsPaused() bool {
	g.lock.Lock()
	defer g.lock.Unlock()

	return g.paused
}

// IsHolding tells if the simulator is waiting at the gate. While it waits, no
// model code runs.
func (g *Gate) IsHolding() bool {
	g.lock.Lock()
	defer g.lock.Unlock()

	return g.held
}

// Func blocks before an event while the gate is paused.
func (g *Gate) Func(ctx sim.HookCtx) {
	if ctx.Pos != sim.HookPosBeforeEvent {
		return
	}

	g.lock.Lock()
	defer g.lock.Unlock()

	for g.paused {
		g.held = true
		g.cond.Wait()
	}

	g.held = false
}
