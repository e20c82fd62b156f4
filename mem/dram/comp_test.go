package dram

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/anirbannag/usimm-pm/mem/dram/internal/signal"
	"github.com/anirbannag/usimm-pm/sim/hooking"
	"github.com/anirbannag/usimm-pm/sim/timing"
)

// farAddr builds an address of the default bank-striped DIMM channel.
func farAddr(rank, bank, col, row int) uint64 {
	return uint64(bank)<<6 | uint64(rank)<<9 | uint64(col)<<10 |
		uint64(row)<<17
}

// nearAddr builds an address of a single near channel with two vaults and
// one rank.
func nearAddr(vault, bank, col, row int) uint64 {
	return uint64(vault)<<6 | uint64(bank)<<7 | uint64(col)<<10 |
		uint64(row)<<17
}

const farSpace = uint64(1) << 36

func twoVaultNear() ChannelSpec {
	s := DefaultNearSpec()
	s.NumVault = 2

	return s
}

func advance(c *Comp, from, to int64) {
	for now := from; now <= to; now += 4 {
		Expect(c.AdvanceAll(now)).To(Succeed())
	}
}

type commandLog struct {
	cmds []Command
}

func (l *commandLog) Func(ctx hooking.HookCtx) {
	if ctx.Pos == HookPosCommandIssued {
		l.cmds = append(l.cmds, ctx.Item.(Command))
	}
}

func (l *commandLog) columnKinds() []CommandKind {
	var kinds []CommandKind

	for _, cmd := range l.cmds {
		if cmd.Kind.IsColumn() {
			kinds = append(kinds, cmd.Kind)
		}
	}

	return kinds
}

func (l *commandLog) count(kind CommandKind) int {
	n := 0

	for _, cmd := range l.cmds {
		if cmd.Kind == kind {
			n++
		}
	}

	return n
}

var _ = Describe("Comp", func() {
	var (
		mockCtrl *gomock.Controller
		sink     *MockCompletionSink
		cmds     *commandLog
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		sink = NewMockCompletionSink(mockCtrl)
		cmds = &commandLog{}
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	Context("far memory", func() {
		var c *Comp

		BeforeEach(func() {
			var err error
			c, err = MakeBuilder().
				WithCompletionSink(sink).
				WithAdditionalHooks(cmds).
				Build("DRAM")
			Expect(err).NotTo(HaveOccurred())
		})

		It("should activate then read on a row miss", func() {
			c.InsertRead(farAddr(0, 0, 0, 5), 0, 0, 7, 0x400)
			sink.EXPECT().NotifyCompletion(0, 7, int64(109))

			advance(c, 0, 200)

			Expect(cmds.cmds).To(HaveLen(2))
			Expect(cmds.cmds[0].Kind).To(Equal(signal.CmdKindActivate))
			Expect(cmds.cmds[0].Cycle).To(Equal(int64(0)))
			Expect(cmds.cmds[1].Kind).To(Equal(signal.CmdKindRead))
			Expect(cmds.cmds[1].Cycle).To(Equal(int64(44)))

			s := c.Stats()
			Expect(s.ReadsCompleted).To(Equal(uint64(1)))
			Expect(s.AvgReadLatency).To(BeNumerically("==", 104))
			Expect(s.Vaults[0].ReadPageHitRate).To(BeNumerically("==", 0))
			Expect(c.Pending()).To(Equal(0))
		})

		It("should serve a row hit without another activate", func() {
			c.InsertRead(farAddr(0, 0, 0, 5), 0, 0, 1, 0)
			c.InsertRead(farAddr(0, 0, 1, 5), 0, 0, 2, 0)
			sink.EXPECT().NotifyCompletion(0, 1, int64(109))
			sink.EXPECT().NotifyCompletion(0, 2, int64(125))

			advance(c, 0, 200)

			Expect(cmds.count(signal.CmdKindActivate)).To(Equal(1))
			s := c.Stats()
			Expect(s.Vaults[0].ReadPageHitRate).To(BeNumerically("==", 0.5))
			Expect(s.Vaults[0].Ranks[0].ReadActivates).To(Equal(uint64(1)))
		})

		It("should drain writes past the high watermark", func() {
			sink.EXPECT().NotifyCompletion(0, 100, gomock.Any())
			for i := 0; i < 41; i++ {
				c.InsertWrite(farAddr(0, 1, i, 1), 0, 0, i)
			}
			c.InsertRead(farAddr(0, 0, 0, 5), 0, 0, 100, 0)

			advance(c, 0, 2000)

			kinds := cmds.columnKinds()
			Expect(len(kinds)).To(BeNumerically(">", 21))
			for i := 0; i < 21; i++ {
				Expect(kinds[i]).To(Equal(signal.CmdKindWrite))
			}
			Expect(kinds[21]).To(Equal(signal.CmdKindRead))
			Expect(c.AllWritesCompleted()).To(BeTrue())
		})

		It("should merge requests to pending addresses", func() {
			addr := farAddr(1, 2, 3, 4)
			c.InsertWrite(addr, 0, 0, 0)

			Expect(c.WriteMatchesPending(addr, 0)).To(BeTrue())
			Expect(c.ReadMatchesPending(addr, 0)).To(Equal(int64(10)))
			Expect(c.ReadMatchesPending(addr+farAddr(0, 0, 0, 1), 0)).
				To(BeZero())

			v := c.Stats().Vaults[0]
			Expect(v.WritesSeen).To(Equal(uint64(1)))
			Expect(v.WritesMerged).To(Equal(uint64(1)))
			Expect(v.ReadsMerged).To(Equal(uint64(1)))
		})

		It("should report a full write queue", func() {
			for i := 0; i < 64; i++ {
				Expect(c.WriteQueueIsFull(0)).To(BeFalse())
				c.InsertWrite(farAddr(0, 0, i, 0), 0, 0, i)
			}

			Expect(c.WriteQueueIsFull(0)).To(BeTrue())
		})

		It("should compute idle power", func() {
			advance(c, 0, 3996)

			e := DDR3Electrical()
			t := DDR3Timing()
			background := e.IDD2N * e.VDD
			refresh := (e.IDD5 - e.IDD3N) * e.VDD *
				float64(t.TRFC) / float64(t.TREFI)

			p := c.Power(0, 0, 1)
			Expect(p.Rank).To(Equal(1))
			Expect(p.Activate).To(BeZero())
			Expect(p.Background).To(BeNumerically("~", background, 1e-9))
			Expect(p.Refresh).To(BeNumerically("~", refresh, 1e-9))
			Expect(p.RankPower).To(
				BeNumerically("~", (background+refresh)*8, 1e-6))
		})
	})

	It("should force the owed refreshes at the deadline", func() {
		far := DefaultFarSpec()
		far.Timing.TREFI = 100
		far.Timing.TRFC = 10

		c, err := MakeBuilder().
			WithFar(far).
			WithAdditionalHooks(cmds).
			Build("DRAM")
		Expect(err).NotTo(HaveOccurred())

		advance(c, 0, 2832)
		Expect(cmds.count(signal.CmdKindForcedRefresh)).To(Equal(0))

		advance(c, 2836, 3196)
		Expect(cmds.count(signal.CmdKindForcedRefresh)).To(Equal(2))

		for _, r := range c.Stats().Vaults[0].Ranks {
			Expect(r.ForcedRefreshes).To(Equal(uint64(8)))
		}
	})

	It("should reject an empty configuration", func() {
		_, err := MakeBuilder().WithCores(0).Build("DRAM")
		Expect(err).To(HaveOccurred())

		far := DefaultFarSpec()
		far.Multiplier = 0
		_, err = MakeBuilder().WithFar(far).Build("DRAM")
		Expect(err).To(MatchError(ContainSubstring("multiplier")))
	})

	Context("near memory", func() {
		var c *Comp

		BeforeEach(func() {
			var err error
			c, err = MakeBuilder().
				WithNear(twoVaultNear()).
				WithCores(2).
				WithCompletionSink(sink).
				WithAdditionalHooks(cmds).
				Build("DRAM")
			Expect(err).NotTo(HaveOccurred())
		})

		It("should map near and far space", func() {
			Expect(c.NumChannel()).To(Equal(2))
			Expect(c.IsNear(0)).To(BeTrue())
			Expect(c.IsNear(1)).To(BeFalse())
			Expect(c.NumVault(0)).To(Equal(2))
			Expect(c.Map(nearAddr(1, 0, 0, 0)).Vault).To(Equal(1))
			Expect(c.Map(farSpace | farAddr(0, 0, 0, 0)).Channel).To(Equal(1))
		})

		It("should carry a read over the link both ways", func() {
			c.InsertRead(nearAddr(0, 0, 0, 0), 0, 1, 3, 0)
			sink.EXPECT().NotifyCompletion(1, 3, int64(129))

			advance(c, 0, 200)

			Expect(cmds.cmds[0].Kind).To(Equal(signal.CmdKindActivate))
			Expect(cmds.cmds[0].Cycle).To(Equal(int64(8)))
			Expect(cmds.cmds[1].Kind).To(Equal(signal.CmdKindRead))
			Expect(cmds.cmds[1].Cycle).To(Equal(int64(52)))
			Expect(c.Stats().Vaults[0].AggressivePrecharges).
				To(Equal(uint64(1)))
			Expect(c.Pending()).To(Equal(0))
		})

		It("should complete near writes without the sink", func() {
			c.InsertWrite(nearAddr(1, 2, 0, 3), 0, 0, 0)

			advance(c, 0, 400)

			Expect(c.AllWritesCompleted()).To(BeTrue())
			Expect(c.Stats().Vaults[1].WritesCompleted).To(Equal(uint64(1)))
		})

		It("should step vaults in parallel with the same outcome", func() {
			serial, err := MakeBuilder().
				WithNear(twoVaultNear()).
				WithCores(2).
				Build("Serial")
			Expect(err).NotTo(HaveOccurred())
			parallel, err := MakeBuilder().
				WithNear(twoVaultNear()).
				WithCores(2).
				Build("Parallel")
			Expect(err).NotTo(HaveOccurred())

			rng := rand.New(rand.NewSource(11))
			for i := 0; i < 200; i++ {
				addr := nearAddr(rng.Intn(2), rng.Intn(8), rng.Intn(128),
					rng.Intn(4))
				core := rng.Intn(2)

				if rng.Intn(3) == 0 {
					serial.InsertWrite(addr, 0, core, i)
					parallel.InsertWrite(addr, 0, core, i)
				} else {
					serial.InsertRead(addr, 0, core, i, 0)
					parallel.InsertRead(addr, 0, core, i, 0)
				}
			}

			for now := int64(0); now < 40000; now += 4 {
				Expect(serial.Advance(now, 0)).To(Succeed())
				Expect(parallel.AdvanceParallel(now, 0)).To(Succeed())
			}

			Expect(serial.Pending()).To(Equal(0))
			Expect(parallel.Stats().Vaults).To(Equal(serial.Stats().Vaults))
		})
	})

	It("should tick itself on an engine", func() {
		engine := timing.NewSerialEngine()
		c, err := MakeBuilder().
			WithEngine(engine).
			WithCompletionSink(sink).
			Build("DRAM")
		Expect(err).NotTo(HaveOccurred())

		sink.EXPECT().NotifyCompletion(0, 0, int64(113))
		c.InsertRead(farAddr(0, 0, 0, 0), 0, 0, 0, 0)

		Expect(engine.Run()).To(Succeed())
		Expect(c.Pending()).To(Equal(0))
	})
})
