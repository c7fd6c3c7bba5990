package tracing

import (
	"fmt"
	"reflect"

	"github.com/rs/xid"

	"github.com/sarchlab/procsim/sim"
	"github.com/sarchlab/procsim/sim/queueing"
)

// CollectTrace lets the tracer collect the tasks of all the processes run by
// the simulator.
func CollectTrace(s *sim.Simulator, tracer Tracer) {
	for _, hook := range s.Hooks {
		hook, ok := hook.(*traceHook)
		if ok && hook.t == tracer {
			panic(fmt.Sprintf("simulator already has tracer %s",
				reflect.TypeOf(tracer)))
		}
	}

	h := &traceHook{
		t:         tracer,
		procTasks: make(map[*sim.Process]Task),
		waitTasks: make(map[*sim.Process]Task),
	}
	s.AcceptHook(h)
}

// A traceHook turns process and queue hooks into tasks.
type traceHook struct {
	t         Tracer
	procTasks map[*sim.Process]Task
	waitTasks map[*sim.Process]Task
}

// Func calls the tracer interfaces when the hook is triggered
func (h *traceHook) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case sim.HookPosProcessStart:
		h.processStart(ctx)
	case sim.HookPosProcessInterrupt:
		h.processInterrupt(ctx)
	case sim.HookPosProcessEnd:
		h.processEnd(ctx)
	case queueing.HookPosQueueJoin:
		h.queueJoin(ctx)
	case queueing.HookPosQueueLeave:
		h.queueLeave(ctx)
	}
}

func (h *traceHook) processStart(ctx sim.HookCtx) {
	p := ctx.Item.(*sim.Process)
	task := Task{
		ID:        xid.New().String(),
		Kind:      KindProcess,
		What:      p.Name(),
		Where:     p.Name(),
		StartTime: ctx.Now,
		Detail:    p,
	}

	h.procTasks[p] = task
	h.t.StartTask(task)
}

func (h *traceHook) processInterrupt(ctx sim.HookCtx) {
	p := ctx.Item.(*sim.Process)
	task, ok := h.procTasks[p]
	if !ok {
		return
	}

	intr := ctx.Detail.(*sim.Interrupt)
	task.Steps = []TaskStep{{Time: ctx.Now, What: intr.Kind.String()}}
	h.t.StepTask(task)
}

func (h *traceHook) processEnd(ctx sim.HookCtx) {
	p := ctx.Item.(*sim.Process)
	task, ok := h.procTasks[p]
	if !ok {
		return
	}

	delete(h.procTasks, p)

	task.EndTime = ctx.Now
	task.Steps = nil
	h.t.EndTask(task)
}

func (h *traceHook) queueJoin(ctx sim.HookCtx) {
	p := ctx.Item.(*sim.Process)
	q := ctx.Detail.(*queueing.Queue)

	task := Task{
		ID:        xid.New().String(),
		ParentID:  h.procTasks[p].ID,
		Kind:      KindWait,
		What:      q.Name(),
		Where:     p.Name(),
		StartTime: ctx.Now,
		Detail:    q,
	}

	h.waitTasks[p] = task
	h.t.StartTask(task)
}

func (h *traceHook) queueLeave(ctx sim.HookCtx) {
	p := ctx.Item.(*sim.Process)
	task, ok := h.waitTasks[p]
	if !ok {
		return
	}

	delete(h.waitTasks, p)

	task.EndTime = ctx.Now
	h.t.EndTask(task)
}
