package sim

import (
	"container/heap"
	"sort"
)

// eventQueue is the timeline of a simulator. The front of the queue is always
// the event to happen next.
//
// The queue is only touched by whichever goroutine the simulator is currently
// dispatching, so it carries no lock.
type eventQueue struct {
	events eventHeap
}

func newEventQueue() *eventQueue {
	q := new(eventQueue)
	q.events = make([]*Event, 0)
	heap.Init(&q.events)
	return q
}

// Push adds an event to the event queue
func (q *eventQueue) Push(evt *Event) {
	heap.Push(&q.events, evt)
}

// Pop removes and returns the next earliest event. It returns nil if the queue
// is empty.
func (q *eventQueue) Pop() *Event {
	if q.events.Len() == 0 {
		return nil
	}

	return heap.Pop(&q.events).(*Event)
}

// Peek returns the event in front of the queue without removing it from the
// queue.
func (q *eventQueue) Peek() *Event {
	if q.events.Len() == 0 {
		return nil
	}

	return q.events[0]
}

// Len returns the number of events in the queue, including cancelled events
// that have not been discarded yet.
func (q *eventQueue) Len() int {
	return q.events.Len()
}

// DropCancelled discards cancelled events from the front of the queue.
func (q *eventQueue) DropCancelled() {
	for q.events.Len() > 0 && q.events[0].cancelled {
		heap.Pop(&q.events)
	}
}

// Pending returns the events that are not cancelled, in the order they are
// going to be executed.
func (q *eventQueue) Pending() []*Event {
	pending := make([]*Event, 0, len(q.events))
	for _, evt := range q.events {
		if !evt.cancelled {
			pending = append(pending, evt)
		}
	}

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].before(pending[j])
	})

	return pending
}

// Clear removes all the events.
func (q *eventQueue) Clear() {
	q.events = q.events[:0]
}

type eventHeap []*Event

// Len returns the length of the event queue
func (h eventHeap) Len() int {
	return len(h)
}

// Less determines the order between two events. Less returns true if the i-th
// event happens before the j-th event. Same-time events are ordered by their
// sequence number.
func (h eventHeap) Less(i, j int) bool {
	return h[i].before(h[j])
}

// Swap changes the position of two events in the event queue
func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

// Push adds an event into the event queue
func (h *eventHeap) Push(x interface{}) {
	event := x.(*Event)
	*h = append(*h, event)
}

// Pop removes and returns the next event to happen
func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	event := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	return event
}
