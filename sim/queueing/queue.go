package queueing

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/sarchlab/procsim/sim"
)

// HookPosQueueJoin marks when a process starts waiting in a queue. The item is
// the *sim.Process and the detail is the *Queue.
var HookPosQueueJoin = &sim.HookPos{Name: "QueueJoin"}

// HookPosQueueLeave marks when a process stops waiting in a queue, whether it
// was popped, timed out, or interrupted. The item is the *sim.Process and the
// detail is the *Queue.
var HookPosQueueLeave = &sim.HookPos{Name: "QueueLeave"}

// An OrderFunc ranks a process that joins a queue. The counter strictly
// increases with every join. Processes with lower tokens are popped first.
// Processes with equal tokens are popped in an unspecified order.
type OrderFunc func(p *sim.Process, counter uint64) float64

// ArrivalOrder ranks processes by the order they join. It never ties.
func ArrivalOrder(_ *sim.Process, counter uint64) float64 {
	return float64(counter)
}

// QueueBuilder can build queues.
type QueueBuilder struct {
	orderFunc OrderFunc
}

// WithOrderFunc sets how waiting processes are ranked. Arrival order is used
// if not set.
func (b QueueBuilder) WithOrderFunc(f OrderFunc) QueueBuilder {
	b.orderFunc = f
	return b
}

// Build creates a new Queue.
func (b QueueBuilder) Build(name string) *Queue {
	orderFunc := b.orderFunc
	if orderFunc == nil {
		orderFunc = ArrivalOrder
	}

	return &Queue{
		name:      name,
		orderFunc: orderFunc,
	}
}

type waiter struct {
	token float64
	proc  *sim.Process
}

// A Queue is a list of processes waiting to be popped.
type Queue struct {
	name      string
	orderFunc OrderFunc
	counter   uint64
	waiters   []waiter
}

// Name returns the name of the queue.
func (q *Queue) Name() string {
	return q.name
}

// Len returns the number of waiting processes.
func (q *Queue) Len() int {
	return len(q.waiters)
}

// NumWaiting returns the number of waiting processes. It is the same as Len.
func (q *Queue) NumWaiting() int {
	return len(q.waiters)
}

// IsEmpty tells if no process is waiting.
func (q *Queue) IsEmpty() bool {
	return len(q.waiters) == 0
}

// Peek returns the process that Pop would resume, or nil.
func (q *Queue) Peek() *sim.Process {
	if len(q.waiters) == 0 {
		return nil
	}

	return q.waiters[0].proc
}

// Contains tells if the process is waiting in the queue.
func (q *Queue) Contains(p *sim.Process) bool {
	return q.indexOf(p) >= 0
}

// Pop removes the front process from the queue and resumes it on the next
// tick. It returns the process, or nil if the queue is empty. Pop can be
// called from anywhere, including from outside of any process.
func (q *Queue) Pop() *sim.Process {
	if len(q.waiters) == 0 {
		return nil
	}

	p := q.waiters[0].proc
	q.waiters = slices.Delete(q.waiters, 0, 1)
	p.Resume()

	return p
}

// Join makes p wait in the queue until it is popped or interrupted. p must be
// the running process.
func (q *Queue) Join(p *sim.Process) error {
	return q.join(p, sim.Forever)
}

// JoinTimeout is Join with a limit. If p is still waiting after timeout, p
// leaves the queue and JoinTimeout returns a sim.ErrTimeout interrupt.
func (q *Queue) JoinTimeout(p *sim.Process, timeout sim.VTimeInSec) error {
	if math.IsNaN(float64(timeout)) || timeout < 0 {
		return fmt.Errorf("%w: timeout %v must not be negative",
			sim.ErrInvalidArgument, float64(timeout))
	}

	return q.join(p, timeout)
}

func (q *Queue) join(p *sim.Process, timeout sim.VTimeInSec) error {
	if !p.IsRunning() {
		return fmt.Errorf("%w: %s cannot join queue %s, it is not running",
			sim.ErrProgramming, p.Name(), q.name)
	}

	token := q.orderFunc(p, q.counter)
	q.counter++
	q.insert(waiter{token: token, proc: p})
	q.invokeHook(p, HookPosQueueJoin)

	var (
		balker   *sim.Process
		timedOut *sim.Interrupt
	)

	if timeout.IsFinite() {
		timedOut = sim.NewTimeout(q.name)
		balker = q.startBalker(p, timeout, timedOut)
	}

	// Also runs when p is torn down while waiting.
	var err error
	defer func() {
		q.remove(p)
		q.invokeHook(p, HookPosQueueLeave)

		if balker != nil && err != error(timedOut) {
			balker.Interrupt(nil)
		}
	}()

	err = p.Pause()

	return err
}

// startBalker adds a process that takes p out of the queue after timeout.
func (q *Queue) startBalker(
	p *sim.Process,
	timeout sim.VTimeInSec,
	timedOut *sim.Interrupt,
) *sim.Process {
	balker := p.Simulator().Add(func(b *sim.Process) error {
		if err := b.Advance(timeout); err != nil {
			return err
		}

		if q.Contains(p) {
			p.InterruptWith(timedOut)
		}

		return nil
	})
	balker.SetName(p.Name() + "/timeout")

	return balker
}

func (q *Queue) insert(w waiter) {
	i := sort.Search(len(q.waiters), func(i int) bool {
		return q.waiters[i].token > w.token
	})
	q.waiters = slices.Insert(q.waiters, i, w)
}

func (q *Queue) remove(p *sim.Process) {
	i := q.indexOf(p)
	if i < 0 {
		return
	}

	q.waiters = slices.Delete(q.waiters, i, i+1)
}

func (q *Queue) indexOf(p *sim.Process) int {
	for i, w := range q.waiters {
		if w.proc == p {
			return i
		}
	}

	return -1
}

func (q *Queue) invokeHook(p *sim.Process, pos *sim.HookPos) {
	s := p.Simulator()
	if s.NumHooks() == 0 {
		return
	}

	s.InvokeHook(sim.HookCtx{
		Domain: s,
		Now:    s.Now(),
		Pos:    pos,
		Item:   p,
		Detail: q,
	})
}
