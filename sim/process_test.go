package sim

import (
	"bytes"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rs/zerolog"
)

var _ = Describe("Process", func() {
	var (
		simulator *Simulator
	)

	BeforeEach(func() {
		simulator = NewSimulator()
	})

	AfterEach(func() {
		Expect(simulator.Close()).To(Succeed())
	})

	It("should advance the clock", func() {
		var log []VTimeInSec
		simulator.Add(func(p *Process) error {
			for i := 0; i < 5; i++ {
				if err := p.Advance(2.0); err != nil {
					return err
				}
				log = append(log, simulator.Now())
			}
			return nil
		})

		Expect(simulator.Run()).To(Succeed())
		Expect(log).To(Equal([]VTimeInSec{2, 4, 6, 8, 10}))
	})

	It("should go through its lifecycle", func() {
		var states []ProcessState
		var p1 *Process
		p1 = simulator.Add(func(p *Process) error {
			states = append(states, p.State())
			return p.Advance(1)
		})
		simulator.Add(func(p *Process) error {
			states = append(states, p1.State())
			return nil
		})

		Expect(p1.State()).To(Equal(ProcessNotStarted))
		Expect(simulator.Run()).To(Succeed())
		Expect(states).To(Equal([]ProcessState{
			ProcessRunning, ProcessSuspended,
		}))
		Expect(p1.State()).To(Equal(ProcessDead))
		Expect(simulator.NumLiveProcesses()).To(Equal(0))
	})

	It("should start processes later or at a given time", func() {
		var starts []VTimeInSec
		record := func(p *Process) error {
			starts = append(starts, p.Simulator().Now())
			return nil
		}

		_, err := simulator.AddIn(3, record)
		Expect(err).NotTo(HaveOccurred())
		_, err = simulator.AddAt(1, record)
		Expect(err).NotTo(HaveOccurred())

		_, err = simulator.AddIn(-1, record)
		Expect(err).To(MatchError(ErrInvalidArgument))

		Expect(simulator.Run()).To(Succeed())
		Expect(starts).To(Equal([]VTimeInSec{1, 3}))

		_, err = simulator.AddAt(2, record)
		Expect(err).To(MatchError(ErrInvalidArgument))
	})

	It("should pause until resumed", func() {
		var resumedAt VTimeInSec
		sleeper := simulator.Add(func(p *Process) error {
			if err := p.Pause(); err != nil {
				return err
			}
			resumedAt = simulator.Now()
			return nil
		})
		simulator.Add(func(p *Process) error {
			if err := p.Advance(4); err != nil {
				return err
			}
			sleeper.Resume()
			return nil
		})

		Expect(simulator.Run()).To(Succeed())
		Expect(resumedAt).To(Equal(VTimeInSec(4)))
	})

	It("should resume on a later tick, never synchronously", func() {
		var order []string
		sleeper := simulator.Add(func(p *Process) error {
			if err := p.Pause(); err != nil {
				return err
			}
			order = append(order, "sleeper resumed")
			return nil
		})
		simulator.Add(func(p *Process) error {
			sleeper.Resume()
			order = append(order, "resume returned")
			return nil
		})

		Expect(simulator.Run()).To(Succeed())
		Expect(order).To(Equal([]string{"resume returned", "sleeper resumed"}))
	})

	It("should not let a stale resume wake a later suspension", func() {
		var wokeAt []VTimeInSec
		sleeper := simulator.Add(func(p *Process) error {
			if err := p.Advance(5); err != nil {
				return err
			}
			wokeAt = append(wokeAt, simulator.Now())
			return p.Pause()
		})
		simulator.Add(func(p *Process) error {
			if err := p.Advance(1); err != nil {
				return err
			}
			sleeper.Resume()
			return nil
		})

		Expect(simulator.Run()).To(Succeed())
		Expect(wokeAt).To(Equal([]VTimeInSec{1}))
		Expect(sleeper.State()).To(Equal(ProcessSuspended))
		Expect(simulator.Now()).To(Equal(VTimeInSec(1)))
	})

	It("should ignore resuming a dead process", func() {
		done := simulator.Add(func(p *Process) error { return nil })
		simulator.Add(func(p *Process) error {
			if err := p.Advance(1); err != nil {
				return err
			}
			done.Resume()
			return nil
		})

		Expect(simulator.Run()).To(Succeed())
		Expect(done.State()).To(Equal(ProcessDead))
	})

	It("should interrupt an advance and cancel its wake", func() {
		var got error
		var at VTimeInSec
		victim := simulator.Add(func(p *Process) error {
			got = p.Advance(10)
			at = simulator.Now()
			return p.Pause()
		})
		simulator.Add(func(p *Process) error {
			if err := p.Advance(3); err != nil {
				return err
			}
			victim.Interrupt("wake up")
			return nil
		})

		Expect(simulator.Run()).To(Succeed())

		intr, ok := AsInterrupt(got)
		Expect(ok).To(BeTrue())
		Expect(intr.Kind).To(Equal(InterruptGeneric))
		Expect(intr.Reason).To(Equal("wake up"))
		Expect(at).To(Equal(VTimeInSec(3)))
		Expect(victim.State()).To(Equal(ProcessSuspended))
		Expect(simulator.Now()).To(Equal(VTimeInSec(3)))
	})

	It("should end cleanly when a body returns its interrupt", func() {
		victim := simulator.Add(func(p *Process) error {
			return p.Pause()
		})
		simulator.Add(func(p *Process) error {
			victim.InterruptWith(NewTimeout(nil))
			return nil
		})

		Expect(simulator.Run()).To(Succeed())
		Expect(victim.State()).To(Equal(ProcessDead))
		Expect(victim.Err()).To(MatchError(ErrTimeout))
	})

	It("should drop an interrupt aimed at a finished process", func() {
		victim := simulator.Add(func(p *Process) error {
			return p.Advance(1)
		})
		simulator.Add(func(p *Process) error {
			if err := p.Advance(2); err != nil {
				return err
			}
			victim.Interrupt(nil)
			return nil
		})

		Expect(simulator.Run()).To(Succeed())
		Expect(victim.Err()).NotTo(HaveOccurred())
	})

	It("should fail the run when a body returns an error", func() {
		boom := errors.New("boom")
		laterRan := false
		simulator.Add(func(p *Process) error {
			if err := p.Advance(1); err != nil {
				return err
			}
			return boom
		})
		_, err := simulator.AddIn(5, func(p *Process) error {
			laterRan = true
			return nil
		})
		Expect(err).NotTo(HaveOccurred())

		err = simulator.Run()

		Expect(err).To(MatchError(boom))
		Expect(simulator.Now()).To(Equal(VTimeInSec(1)))
		Expect(laterRan).To(BeFalse())
	})

	It("should propagate a panic out of Run", func() {
		simulator.Add(func(p *Process) error {
			panic("kaboom")
		})

		Expect(func() { _ = simulator.Run() }).To(PanicWith("kaboom"))
	})

	It("should refuse to suspend a process that is not running", func() {
		var other *Process
		other = simulator.Add(func(p *Process) error {
			return p.Pause()
		})

		var err error
		simulator.Add(func(p *Process) error {
			err = other.Advance(1)
			return nil
		})

		Expect(simulator.Run()).To(Succeed())
		Expect(err).To(MatchError(ErrProgramming))
		Expect(other.Pause()).To(MatchError(ErrProgramming))
	})

	It("should keep a private local store", func() {
		var seen any
		simulator.Add(func(p *Process) error {
			p.Local()["count"] = 3
			if err := p.Advance(1); err != nil {
				return err
			}
			seen = p.Local()["count"]
			return nil
		})

		Expect(simulator.Run()).To(Succeed())
		Expect(seen).To(Equal(3))
	})

	It("should tear down suspended processes on close", func() {
		deferRan := false
		var deferErr error
		p := simulator.Add(func(p *Process) error {
			defer func() {
				deferRan = true
				deferErr = p.Advance(1)
			}()
			return p.Pause()
		})
		Expect(simulator.Run()).To(Succeed())
		Expect(p.State()).To(Equal(ProcessSuspended))

		Expect(simulator.Close()).To(Succeed())

		Expect(deferRan).To(BeTrue())
		Expect(deferErr).To(MatchError(ErrTerminated))
		Expect(p.State()).To(Equal(ProcessDead))
		Expect(simulator.NumLiveProcesses()).To(Equal(0))
		Expect(simulator.Now()).To(Equal(VTimeInSec(0)))
	})

	It("should tear down processes in the order they started", func() {
		var order []string
		for _, name := range []string{"c", "a", "d", "b"} {
			name := name
			simulator.Add(func(p *Process) error {
				defer func() { order = append(order, name) }()
				return p.Pause()
			})
		}
		Expect(simulator.Run()).To(Succeed())

		Expect(simulator.Close()).To(Succeed())

		Expect(order).To(Equal([]string{"c", "a", "d", "b"}))
	})

	It("should name processes", func() {
		p1 := simulator.Add(func(p *Process) error { return nil })
		p2 := simulator.Add(func(p *Process) error { return nil })
		p2.SetName("server")

		Expect(p1.Name()).To(Equal("process-1"))
		Expect(p2.Name()).To(Equal("server"))
	})

	It("should log process lifecycles to the injected logger", func() {
		buf := new(bytes.Buffer)
		logger := zerolog.New(buf).Level(zerolog.DebugLevel)
		simulator = MakeBuilder().WithLogger(logger).Build()

		simulator.Add(func(p *Process) error { return p.Advance(1) })
		Expect(simulator.Run()).To(Succeed())

		Expect(buf.String()).To(ContainSubstring(`"message":"process started"`))
		Expect(buf.String()).To(ContainSubstring(`"message":"process finished"`))
	})
})

var _ = Describe("Free functions", func() {
	var (
		simulator *Simulator
	)

	BeforeEach(func() {
		simulator = NewSimulator()
	})

	AfterEach(func() {
		Expect(simulator.Close()).To(Succeed())
	})

	It("should fail outside of a process", func() {
		_, err := Current()
		Expect(err).To(MatchError(ErrProgramming))
		Expect(CurrentExists()).To(BeFalse())
		Expect(Advance(1)).To(MatchError(ErrProgramming))
		Expect(Pause()).To(MatchError(ErrProgramming))
		Expect(Stop()).To(MatchError(ErrProgramming))
		Expect(func() { Now() }).To(PanicWith(MatchError(ErrProgramming)))
	})

	It("should act on the current process", func() {
		var self *Process
		var childStart VTimeInSec
		var exists bool

		p := simulator.Add(func(p *Process) error {
			exists = CurrentExists()
			self, _ = Current()

			if err := Advance(2); err != nil {
				return err
			}

			_, err := AddIn(1, func(p *Process) error {
				childStart = Now()
				return Stop()
			})

			return err
		})
		_, err := simulator.AddIn(100, func(p *Process) error { return nil })
		Expect(err).NotTo(HaveOccurred())

		Expect(simulator.Run()).To(Succeed())

		Expect(exists).To(BeTrue())
		Expect(self).To(BeIdenticalTo(p))
		Expect(childStart).To(Equal(VTimeInSec(3)))
		Expect(simulator.Now()).To(Equal(VTimeInSec(3)))
	})
})
