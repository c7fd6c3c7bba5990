package tracing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/procsim/sim"
	"github.com/sarchlab/procsim/sim/queueing"
)

var _ = Describe("CollectTrace", func() {
	var (
		mockCtrl  *gomock.Controller
		tracer    *MockTracer
		simulator *sim.Simulator
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		tracer = NewMockTracer(mockCtrl)
		simulator = sim.NewSimulator()
	})

	AfterEach(func() {
		Expect(simulator.Close()).To(Succeed())
		mockCtrl.Finish()
	})

	It("should not accept the same tracer twice", func() {
		CollectTrace(simulator, tracer)

		Expect(func() { CollectTrace(simulator, tracer) }).To(Panic())
	})

	It("should trace processes and their waits", func() {
		var starts, steps, ends []Task
		tracer.EXPECT().StartTask(gomock.Any()).
			Do(func(t Task) { starts = append(starts, t) }).
			Times(3)
		tracer.EXPECT().StepTask(gomock.Any()).
			Do(func(t Task) { steps = append(steps, t) }).
			Times(1)
		tracer.EXPECT().EndTask(gomock.Any()).
			Do(func(t Task) { ends = append(ends, t) }).
			Times(3)

		CollectTrace(simulator, tracer)

		line := queueing.QueueBuilder{}.Build("line")
		simulator.Add(func(p *sim.Process) error {
			return line.JoinTimeout(p, 2)
		}).SetName("customer")

		Expect(simulator.Run()).To(Succeed())

		Expect(starts[0].Kind).To(Equal(KindProcess))
		Expect(starts[0].What).To(Equal("customer"))
		Expect(starts[1].Kind).To(Equal(KindWait))
		Expect(starts[1].What).To(Equal("line"))
		Expect(starts[1].ParentID).To(Equal(starts[0].ID))
		Expect(starts[2].What).To(Equal("customer/timeout"))

		Expect(steps[0].ID).To(Equal(starts[0].ID))
		Expect(steps[0].Steps).To(Equal([]TaskStep{{Time: 2, What: "timeout"}}))

		Expect(ends[1].ID).To(Equal(starts[1].ID))
		Expect(ends[1].EndTime).To(Equal(sim.VTimeInSec(2)))
		Expect(ends[2].ID).To(Equal(starts[0].ID))
	})
})
