// Package sim is a process-oriented discrete event simulation engine.
//
// A Simulator keeps a clock and a timeline of events ordered by time and then
// by submission order. Models are written as processes: plain Go functions
// that advance the simulated clock, pause until resumed, or wait on the
// primitives of the queueing package. Only one process executes at a time and
// a process only executes while the simulator dispatches it, so model state
// needs no locking and every run is deterministic.
//
//	s := sim.NewSimulator()
//	defer s.Close()
//
//	s.Add(func(p *sim.Process) error {
//		for i := 0; i < 5; i++ {
//			if err := p.Advance(2); err != nil {
//				return err
//			}
//			fmt.Println(p.Simulator().Now())
//		}
//		return nil
//	})
//
//	if err := s.Run(); err != nil {
//		log.Fatal(err)
//	}
//
// Waiting calls return an *Interrupt when another party interrupts the
// process. Returning the interrupt from the body ends the process cleanly;
// any other error returned from a body stops the run and is returned by Run.
package sim
