package queueing

import (
	"fmt"
	"math"

	"github.com/sarchlab/procsim/sim"
)

// ResourceBuilder can build resources.
type ResourceBuilder struct {
	numInstances int
	orderFunc    OrderFunc
}

// MakeResourceBuilder creates a builder for a resource with one instance.
func MakeResourceBuilder() ResourceBuilder {
	return ResourceBuilder{
		numInstances: 1,
	}
}

// WithNumInstances sets how many instances the resource holds.
func (b ResourceBuilder) WithNumInstances(n int) ResourceBuilder {
	b.numInstances = n
	return b
}

// WithOrderFunc sets the order in which waiting processes are served.
func (b ResourceBuilder) WithOrderFunc(f OrderFunc) ResourceBuilder {
	b.orderFunc = f
	return b
}

// Build creates a new Resource.
func (b ResourceBuilder) Build(name string) *Resource {
	if b.numInstances < 1 {
		panic(fmt.Sprintf("resource %s must have at least 1 instance, got %d",
			name, b.numInstances))
	}

	return &Resource{
		name:  name,
		free:  b.numInstances,
		total: b.numInstances,
		waiters: QueueBuilder{}.
			WithOrderFunc(b.orderFunc).
			Build(name),
		need:    make(map[*sim.Process]int),
		granted: make(map[*sim.Process]bool),
		usage:   make(map[*sim.Process]int),
	}
}

// A Resource is a counting semaphore. Processes take instances, waiting in
// line when not enough are free, and release them when done.
//
// Instances are handed to a waiter when they are released, so a waiter that
// has been served never finds them gone when it resumes. Each release or balk
// considers only the front waiter and serves at most one. A smaller request
// further back waits behind it.
//
// Resources acquired in different orders by different processes can deadlock.
// TakeTimeout is the only way out.
type Resource struct {
	name    string
	free    int
	total   int
	waiters *Queue

	need    map[*sim.Process]int
	granted map[*sim.Process]bool
	usage   map[*sim.Process]int
}

// Name returns the name of the resource.
func (r *Resource) Name() string {
	return r.name
}

// NumInstancesFree returns the number of instances nobody holds.
func (r *Resource) NumInstancesFree() int {
	return r.free
}

// NumInstancesTotal returns the number of instances, held or not.
func (r *Resource) NumInstancesTotal() int {
	return r.total
}

// NumWaiting returns the number of processes waiting for instances.
func (r *Resource) NumWaiting() int {
	return r.waiters.Len()
}

// Usage returns the number of instances p holds.
func (r *Resource) Usage(p *sim.Process) int {
	return r.usage[p]
}

// Take acquires n instances for p, waiting until they are available.
func (r *Resource) Take(p *sim.Process, n int) error {
	return r.take(p, n, sim.Forever)
}

// TakeTimeout is Take with a limit on how long p waits. When the timeout
// expires, TakeTimeout returns a sim.ErrTimeout interrupt and p holds nothing
// more than before.
func (r *Resource) TakeTimeout(
	p *sim.Process,
	n int,
	timeout sim.VTimeInSec,
) error {
	if math.IsNaN(float64(timeout)) || timeout < 0 {
		return fmt.Errorf("%w: timeout %v must not be negative",
			sim.ErrInvalidArgument, float64(timeout))
	}

	return r.take(p, n, timeout)
}

func (r *Resource) take(p *sim.Process, n int, timeout sim.VTimeInSec) error {
	if n < 1 || n > r.total {
		return fmt.Errorf("%w: cannot take %d instances of %s, it has %d",
			sim.ErrInvalidArgument, n, r.name, r.total)
	}

	if !p.IsRunning() {
		return fmt.Errorf("%w: %s cannot take %s, it is not running",
			sim.ErrProgramming, p.Name(), r.name)
	}

	if r.free >= n {
		r.free -= n
		r.usage[p] += n

		return nil
	}

	r.need[p] = n
	defer func() {
		delete(r.need, p)

		// Torn down after being served.
		if r.granted[p] {
			delete(r.granted, p)
			r.giveBack(p, n)
		}
	}()

	deadline := sim.Forever
	if timeout.IsFinite() {
		deadline = p.Simulator().Now() + timeout
	}

	for {
		var err error
		if deadline.IsFinite() {
			remaining := max(deadline-p.Simulator().Now(), 0)
			err = r.waiters.JoinTimeout(p, remaining)
		} else {
			err = r.waiters.Join(p)
		}

		granted := r.granted[p]
		delete(r.granted, p)

		switch {
		case err == nil && granted:
			return nil
		case err != nil && granted:
			// Served, then interrupted before resuming.
			r.giveBack(p, n)
			r.serve()

			return err
		case err != nil:
			// p may have blocked a request that now fits.
			r.serve()

			return err
		}

		// Resumed by someone other than the resource. Wait again.
	}
}

// Release returns n instances that p holds and serves the front waiter if
// the free instances are enough for it. Waiters behind the front are left for
// later releases.
func (r *Resource) Release(p *sim.Process, n int) error {
	if n < 1 {
		return fmt.Errorf("%w: cannot release %d instances of %s",
			sim.ErrInvalidArgument, n, r.name)
	}

	if r.usage[p] < n {
		return fmt.Errorf("%w: %s releases %d instances of %s, but holds %d",
			sim.ErrProgramming, p.Name(), n, r.name, r.usage[p])
	}

	r.giveBack(p, n)
	r.serve()

	return nil
}

// Using takes n instances, runs fn, and releases the instances on every way
// out of fn.
func (r *Resource) Using(p *sim.Process, n int, fn func() error) error {
	return r.using(p, n, sim.Forever, fn)
}

// UsingTimeout is Using with a limit on how long p waits for the instances.
// fn does not run if the wait times out.
func (r *Resource) UsingTimeout(
	p *sim.Process,
	n int,
	timeout sim.VTimeInSec,
	fn func() error,
) error {
	if math.IsNaN(float64(timeout)) || timeout < 0 {
		return fmt.Errorf("%w: timeout %v must not be negative",
			sim.ErrInvalidArgument, float64(timeout))
	}

	return r.using(p, n, timeout, fn)
}

func (r *Resource) using(
	p *sim.Process,
	n int,
	timeout sim.VTimeInSec,
	fn func() error,
) (err error) {
	if err := r.take(p, n, timeout); err != nil {
		return err
	}

	defer func() {
		if releaseErr := r.Release(p, n); releaseErr != nil && err == nil {
			err = releaseErr
		}
	}()

	return fn()
}

func (r *Resource) giveBack(p *sim.Process, n int) {
	r.free += n

	r.usage[p] -= n
	if r.usage[p] == 0 {
		delete(r.usage, p)
	}
}

// serve hands instances to the front waiter if its request fits. At most one
// waiter is served per call.
func (r *Resource) serve() {
	front := r.waiters.Peek()
	if front == nil {
		return
	}

	n := r.need[front]
	if n > r.free {
		return
	}

	r.free -= n
	r.usage[front] += n
	r.granted[front] = true
	r.waiters.Pop()
}
