package frontend

import (
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/anirbannag/usimm-pm/mem/dram"
	"github.com/anirbannag/usimm-pm/sim/timing"
)

var _ = Describe("Driver", func() {
	var (
		mockCtrl *gomock.Controller
		mem      *MockMemory
		robs     *ReorderBuffers
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		mem = NewMockMemory(mockCtrl)
		robs = NewReorderBuffers(1, 128)

		mem.EXPECT().AdvanceAll(gomock.Any()).Return(nil).AnyTimes()
		mem.EXPECT().AllWritesCompleted().Return(true).AnyTimes()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	build := func(trace string, b Builder) *Driver {
		d, err := b.
			WithMemory(mem).
			WithReorderBuffers(robs).
			WithTraces(strings.NewReader(trace)).
			Build("Driver")
		Expect(err).NotTo(HaveOccurred())

		return d
	}

	run := func(d *Driver, from, to int64) {
		for now := from; now <= to && !d.Done(); now++ {
			Expect(d.Step(now)).To(Succeed())
		}
	}

	It("should retire after the read returns", func() {
		d := build("2 R 0x100 0x400\n", MakeBuilder())
		mem.EXPECT().ReadMatchesPending(uint64(0x100), 0).Return(int64(0))
		mem.EXPECT().InsertRead(uint64(0x100), int64(0), 0, 2, uint64(0x400))

		Expect(d.Step(0)).To(Succeed())
		robs.NotifyCompletion(0, 2, 20)
		run(d, 1, 100)

		Expect(d.Done()).To(BeTrue())
		s := d.CoreStats(0)
		Expect(s.FinishCycle).To(Equal(int64(20)))
		Expect(s.Retired).To(Equal(uint64(3)))
		Expect(s.Reads).To(Equal(uint64(1)))
	})

	It("should answer merged reads after the lookup latency", func() {
		d := build("0 R 0x100 0x0\n", MakeBuilder())
		mem.EXPECT().ReadMatchesPending(uint64(0x100), 0).Return(int64(10))

		run(d, 0, 100)

		s := d.CoreStats(0)
		Expect(s.ReadMerges).To(Equal(uint64(1)))
		Expect(s.FinishCycle).To(Equal(int64(15)))
	})

	It("should stall writes while the write queue is full", func() {
		d := build("0 W 0x40\n", MakeBuilder())
		mem.EXPECT().WriteQueueIsFull(0).Return(true)
		mem.EXPECT().WriteQueueIsFull(0).Return(false).AnyTimes()
		mem.EXPECT().WriteMatchesPending(uint64(0x40), 0).Return(false)
		mem.EXPECT().InsertWrite(uint64(0x40), int64(1), 0, 0)

		run(d, 0, 100)

		s := d.CoreStats(0)
		Expect(s.StallCycles).To(Equal(uint64(1)))
		Expect(s.Writes).To(Equal(uint64(1)))
		Expect(s.FinishCycle).To(Equal(int64(6)))
	})

	It("should not send merged writes", func() {
		d := build("0 W 0x40\n", MakeBuilder())
		mem.EXPECT().WriteQueueIsFull(0).Return(false)
		mem.EXPECT().WriteMatchesPending(uint64(0x40), 0).Return(true)

		run(d, 0, 100)

		Expect(d.CoreStats(0).WriteMerges).To(Equal(uint64(1)))
	})

	It("should only fetch up to the width", func() {
		d := build("10 W 0x40\n", MakeBuilder())

		Expect(d.Step(0)).To(Succeed())
		Expect(d.CoreStats(0).Fetched).To(Equal(uint64(4)))
	})

	Context("with a cache", func() {
		cache := CacheSpec{NumSets: 1, NumWays: 1, BlockSize: 64, Latency: 3}

		It("should serve repeated reads from the cache", func() {
			d := build("0 R 0x1000 0x0\n0 R 0x1000 0x0\n",
				MakeBuilder().WithCache(cache))
			mem.EXPECT().ReadMatchesPending(uint64(0x1000), 0).Return(int64(0))
			mem.EXPECT().InsertRead(uint64(0x1000), int64(0), 0, 0, uint64(0))

			Expect(d.Step(0)).To(Succeed())
			robs.NotifyCompletion(0, 0, 40)
			run(d, 1, 100)

			s := d.CoreStats(0)
			Expect(s.CacheHits).To(Equal(uint64(1)))
			Expect(s.CacheMisses).To(Equal(uint64(1)))
			Expect(s.FinishCycle).To(Equal(int64(40)))

			cs, ok := d.CacheStats()
			Expect(ok).To(BeTrue())
			Expect(cs.HitRate()).To(BeNumerically("==", 0.5))
		})

		It("should write back dirty victims", func() {
			d := build("0 W 0x40\n0 W 0x80\n", MakeBuilder().WithCache(cache))
			mem.EXPECT().WriteQueueIsFull(0).Return(false).AnyTimes()
			mem.EXPECT().WriteMatchesPending(uint64(0x40), 0).Return(false)
			mem.EXPECT().InsertWrite(uint64(0x40), int64(0), 0, 1)

			run(d, 0, 100)

			s := d.CoreStats(0)
			Expect(s.Writebacks).To(Equal(uint64(1)))
			Expect(s.Writes).To(Equal(uint64(1)))
			Expect(d.Done()).To(BeTrue())
		})
	})

	It("should stop at the cycle limit", func() {
		d := build("0 R 0x100 0x0\n", MakeBuilder().WithMaxCycles(10))
		mem.EXPECT().ReadMatchesPending(gomock.Any(), gomock.Any()).Return(int64(0))
		mem.EXPECT().InsertRead(gomock.Any(), gomock.Any(), gomock.Any(),
			gomock.Any(), gomock.Any())

		run(d, 0, 9)
		err := d.Step(10)

		Expect(errors.Is(err, ErrCycleLimit)).To(BeTrue())
	})

	It("should reject a bad configuration", func() {
		_, err := MakeBuilder().WithMemory(mem).Build("Driver")
		Expect(err).To(MatchError(ContainSubstring("trace")))

		_, err = MakeBuilder().
			WithMemory(mem).
			WithTraces(strings.NewReader("")).
			WithWidths(0, 2).
			Build("Driver")
		Expect(err).To(HaveOccurred())
	})

	It("should run on an engine", func() {
		engine := timing.NewSerialEngine()
		d := build("1 W 0x40\n", MakeBuilder().WithEngine(engine))
		mem.EXPECT().WriteQueueIsFull(0).Return(false)
		mem.EXPECT().WriteMatchesPending(uint64(0x40), 0).Return(false)
		mem.EXPECT().InsertWrite(uint64(0x40), int64(0), 0, 1)

		Expect(d.Run()).To(Succeed())
		Expect(d.Done()).To(BeTrue())
		Expect(d.Cycle()).To(Equal(int64(5)))
	})
})

var _ = Describe("Driver with DRAM", func() {
	It("should run a trace to completion", func() {
		robs := NewReorderBuffers(1, 128)
		ctrl, err := dram.MakeBuilder().
			WithCompletionSink(robs).
			Build("DRAM")
		Expect(err).NotTo(HaveOccurred())

		trace := "0 R 0x0 0x0\n5 R 0x40 0x0\n0 W 0x80\n3 R 0x20000 0x0\n"
		d, err := MakeBuilder().
			WithEngine(timing.NewSerialEngine()).
			WithMemory(ctrl).
			WithReorderBuffers(robs).
			WithTraces(strings.NewReader(trace)).
			Build("Driver")
		Expect(err).NotTo(HaveOccurred())

		Expect(d.Run()).To(Succeed())

		Expect(d.CoreStats(0).Retired).To(Equal(uint64(12)))
		Expect(ctrl.Pending()).To(BeZero())
		Expect(ctrl.Stats().ReadsCompleted).To(Equal(uint64(3)))
		Expect(ctrl.Stats().WritesCompleted).To(Equal(uint64(1)))
	})
})
