package queueing

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/procsim/sim"
)

var _ = Describe("Resource", func() {
	var (
		simulator *sim.Simulator
		r         *Resource
	)

	BeforeEach(func() {
		simulator = sim.NewSimulator()
		r = MakeResourceBuilder().Build("Resource")
	})

	AfterEach(func() {
		Expect(simulator.Close()).To(Succeed())
	})

	It("should panic without instances", func() {
		Expect(func() {
			MakeResourceBuilder().WithNumInstances(0).Build("Empty")
		}).To(Panic())
	})

	It("should make a second taker wait for the release", func() {
		var grantedAt sim.VTimeInSec = -1

		simulator.Add(func(p *sim.Process) error {
			if err := r.Take(p, 1); err != nil {
				return err
			}
			if err := p.Advance(10); err != nil {
				return err
			}
			return r.Release(p, 1)
		})
		simulator.Add(func(p *sim.Process) error {
			if err := r.Take(p, 1); err != nil {
				return err
			}
			grantedAt = simulator.Now()
			return r.Release(p, 1)
		})

		Expect(simulator.Run()).To(Succeed())
		Expect(grantedAt).To(Equal(sim.VTimeInSec(10)))
		Expect(r.NumInstancesFree()).To(Equal(1))
	})

	It("should keep free plus usage equal to the total", func() {
		r = MakeResourceBuilder().WithNumInstances(3).Build("Pool")

		var workers []*sim.Process
		check := func() {
			used := 0
			for _, w := range workers {
				used += r.Usage(w)
			}
			Expect(r.NumInstancesFree()).To(BeNumerically(">=", 0))
			Expect(r.NumInstancesFree() + used).To(Equal(r.NumInstancesTotal()))
		}
		simulator.AcceptHook(sim.HookFunc(func(ctx sim.HookCtx) {
			if ctx.Pos == sim.HookPosAfterEvent {
				check()
			}
		}))

		for i := 0; i < 5; i++ {
			i := i
			w := simulator.Add(func(p *sim.Process) error {
				for round := 0; round < 3; round++ {
					n := 1 + (i+round)%3
					if err := r.Take(p, n); err != nil {
						return err
					}
					Expect(r.Usage(p)).To(Equal(n))
					check()

					if err := p.Advance(sim.VTimeInSec(1 + i%2)); err != nil {
						return err
					}
					if err := r.Release(p, n); err != nil {
						return err
					}
				}
				return nil
			})
			workers = append(workers, w)
		}

		Expect(simulator.Run()).To(Succeed())
		Expect(r.NumInstancesFree()).To(Equal(3))
		for _, w := range workers {
			Expect(w.State()).To(Equal(sim.ProcessDead))
		}
	})

	It("should only serve the front waiter", func() {
		r = MakeResourceBuilder().WithNumInstances(2).Build("Pair")
		grants := map[string]sim.VTimeInSec{}

		simulator.Add(func(p *sim.Process) error {
			if err := r.Take(p, 2); err != nil {
				return err
			}
			if err := p.Advance(1); err != nil {
				return err
			}
			if err := r.Release(p, 1); err != nil {
				return err
			}
			Expect(r.NumInstancesFree()).To(Equal(1))
			if err := p.Advance(4); err != nil {
				return err
			}
			return r.Release(p, 1)
		})
		taker := func(name string, n int) {
			simulator.Add(func(p *sim.Process) error {
				if err := r.Take(p, n); err != nil {
					return err
				}
				grants[name] = simulator.Now()
				if err := p.Advance(1); err != nil {
					return err
				}
				return r.Release(p, n)
			})
		}
		taker("big", 2)
		taker("small", 1)

		Expect(simulator.Run()).To(Succeed())
		Expect(grants).To(Equal(map[string]sim.VTimeInSec{
			"big":   5,
			"small": 6,
		}))
	})

	It("should serve one waiter per release", func() {
		r = MakeResourceBuilder().WithNumInstances(2).Build("Pair")
		grants := map[string]sim.VTimeInSec{}

		simulator.Add(func(p *sim.Process) error {
			if err := r.Take(p, 2); err != nil {
				return err
			}
			if err := p.Advance(1); err != nil {
				return err
			}
			return r.Release(p, 2)
		})
		for _, name := range []string{"first", "second"} {
			name := name
			simulator.Add(func(p *sim.Process) error {
				if err := r.Take(p, 1); err != nil {
					return err
				}
				grants[name] = simulator.Now()
				return p.Pause()
			})
		}

		Expect(simulator.Run()).To(Succeed())
		Expect(grants).To(Equal(map[string]sim.VTimeInSec{"first": 1}))
		Expect(r.NumInstancesFree()).To(Equal(1))
		Expect(r.NumWaiting()).To(Equal(1))
	})

	It("should serve the next waiter when the front one gives up", func() {
		r = MakeResourceBuilder().WithNumInstances(3).Build("Pool")
		var (
			bigErr  error
			smallAt sim.VTimeInSec = -1
		)

		simulator.Add(func(p *sim.Process) error {
			if err := r.Take(p, 3); err != nil {
				return err
			}
			if err := p.Advance(2); err != nil {
				return err
			}
			if err := r.Release(p, 1); err != nil {
				return err
			}
			if err := p.Advance(20); err != nil {
				return err
			}
			return r.Release(p, 2)
		})
		simulator.Add(func(p *sim.Process) error {
			bigErr = r.TakeTimeout(p, 3, 5)
			return nil
		})
		simulator.Add(func(p *sim.Process) error {
			if err := r.Take(p, 1); err != nil {
				return err
			}
			smallAt = simulator.Now()
			return r.Release(p, 1)
		})

		Expect(simulator.Run()).To(Succeed())
		Expect(bigErr).To(MatchError(sim.ErrTimeout))
		Expect(smallAt).To(Equal(sim.VTimeInSec(5)))
		Expect(r.NumInstancesFree()).To(Equal(3))
		Expect(r.NumWaiting()).To(BeZero())
	})

	It("should get instances back from a waiter torn down after a grant", func() {
		var releaseErr error
		holder := simulator.Add(func(p *sim.Process) error {
			if err := r.Take(p, 1); err != nil {
				return err
			}
			defer func() { releaseErr = r.Release(p, 1) }()
			return p.Pause()
		})
		waiter := simulator.Add(func(p *sim.Process) error {
			return r.Take(p, 1)
		})

		Expect(simulator.Run()).To(Succeed())
		Expect(r.NumWaiting()).To(Equal(1))

		Expect(simulator.Close()).To(Succeed())

		Expect(releaseErr).NotTo(HaveOccurred())
		Expect(r.Usage(holder)).To(BeZero())
		Expect(r.Usage(waiter)).To(BeZero())
		Expect(r.NumInstancesFree()).To(Equal(1))
		Expect(r.NumWaiting()).To(BeZero())
	})

	It("should give up after the timeout", func() {
		var (
			err error
			at  sim.VTimeInSec
		)
		simulator.Add(func(p *sim.Process) error {
			if err := r.Take(p, 1); err != nil {
				return err
			}
			if err := p.Advance(10); err != nil {
				return err
			}
			return r.Release(p, 1)
		})
		simulator.Add(func(p *sim.Process) error {
			err = r.TakeTimeout(p, 1, 3)
			at = simulator.Now()
			Expect(r.Usage(p)).To(Equal(0))
			Expect(r.NumWaiting()).To(Equal(0))
			return nil
		})

		Expect(simulator.Run()).To(Succeed())
		Expect(err).To(MatchError(sim.ErrTimeout))
		Expect(at).To(Equal(sim.VTimeInSec(3)))
		Expect(r.NumInstancesFree()).To(Equal(1))
	})

	It("should return instances granted to an interrupted waiter", func() {
		var (
			waiter *sim.Process
			err    error
		)
		simulator.Add(func(p *sim.Process) error {
			if err := r.Take(p, 1); err != nil {
				return err
			}
			if err := p.Advance(1); err != nil {
				return err
			}
			waiter.Interrupt("go away")
			return r.Release(p, 1)
		})
		waiter = simulator.Add(func(p *sim.Process) error {
			err = r.Take(p, 1)
			return nil
		})

		Expect(simulator.Run()).To(Succeed())
		intr, ok := sim.AsInterrupt(err)
		Expect(ok).To(BeTrue())
		Expect(intr.Reason).To(Equal("go away"))
		Expect(r.Usage(waiter)).To(Equal(0))
		Expect(r.NumInstancesFree()).To(Equal(1))
	})

	It("should reject invalid counts", func() {
		var takeErrs []error
		var releaseErr error
		simulator.Add(func(p *sim.Process) error {
			takeErrs = append(takeErrs, r.Take(p, 0), r.Take(p, 2))
			releaseErr = r.Release(p, 1)
			return nil
		})

		Expect(simulator.Run()).To(Succeed())
		Expect(takeErrs[0]).To(MatchError(sim.ErrInvalidArgument))
		Expect(takeErrs[1]).To(MatchError(sim.ErrInvalidArgument))
		Expect(releaseErr).To(MatchError(sim.ErrProgramming))
	})

	It("should release after a scoped use fails", func() {
		boom := errors.New("boom")
		var err error
		simulator.Add(func(p *sim.Process) error {
			err = r.Using(p, 1, func() error {
				Expect(r.NumInstancesFree()).To(Equal(0))
				return boom
			})
			return nil
		})

		Expect(simulator.Run()).To(Succeed())
		Expect(err).To(MatchError(boom))
		Expect(r.NumInstancesFree()).To(Equal(1))
	})

	It("should release after a scoped use is interrupted", func() {
		var err error
		user := simulator.Add(func(p *sim.Process) error {
			err = r.Using(p, 1, func() error {
				return p.Advance(10)
			})
			return nil
		})
		simulator.Add(func(p *sim.Process) error {
			if err := p.Advance(2); err != nil {
				return err
			}
			user.Interrupt(nil)
			return nil
		})

		Expect(simulator.Run()).To(Succeed())
		Expect(sim.IsInterrupt(err)).To(BeTrue())
		Expect(r.NumInstancesFree()).To(Equal(1))
		Expect(simulator.Now()).To(Equal(sim.VTimeInSec(2)))
	})
})
