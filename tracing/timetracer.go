package tracing

import (
	"sync"

	"github.com/sarchlab/procsim/sim"
)

// TimeTracer sums up how long the tasks accepted by its filter take. If two
// tasks overlap, both durations are counted in full.
type TimeTracer struct {
	timeTeller    TimeTeller
	filter        TaskFilter
	lock          sync.Mutex
	totalTime     sim.VTimeInSec
	maxTime       sim.VTimeInSec
	taskCount     uint64
	inflightTasks map[string]Task
}

// NewTimeTracer creates a new TimeTracer. A nil filter accepts every task.
func NewTimeTracer(timeTeller TimeTeller, filter TaskFilter) *TimeTracer {
	if filter == nil {
		filter = func(Task) bool { return true }
	}

	return &TimeTracer{
		timeTeller:    timeTeller,
		filter:        filter,
		inflightTasks: make(map[string]Task),
	}
}

// TotalTime returns the time spent on all the finished tasks.
func (t *TimeTracer) TotalTime() sim.VTimeInSec {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.totalTime
}

// MaxTime returns the duration of the longest finished task.
func (t *TimeTracer) MaxTime() sim.VTimeInSec {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.maxTime
}

// AverageTime returns the mean duration of the finished tasks, or 0 if none
// has finished.
func (t *TimeTracer) AverageTime() sim.VTimeInSec {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.taskCount == 0 {
		return 0
	}

	return t.totalTime / sim.VTimeInSec(t.taskCount)
}

// TaskCount returns the number of finished tasks.
func (t *TimeTracer) TaskCount() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.taskCount
}

// StartTask records the task start time
func (t *TimeTracer) StartTask(task Task) {
	task.StartTime = t.timeTeller.Now()

	if !t.filter(task) {
		return
	}

	t.lock.Lock()
	t.inflightTasks[task.ID] = task
	t.lock.Unlock()
}

// StepTask does nothing
func (t *TimeTracer) StepTask(_ Task) {
	// Do nothing
}

// EndTask records the end of the task
func (t *TimeTracer) EndTask(task Task) {
	task.EndTime = t.timeTeller.Now()

	t.lock.Lock()
	defer t.lock.Unlock()

	originalTask, ok := t.inflightTasks[task.ID]
	if !ok {
		return
	}

	duration := task.EndTime - originalTask.StartTime
	t.totalTime += duration
	t.maxTime = max(t.maxTime, duration)
	t.taskCount++

	delete(t.inflightTasks, task.ID)
}
