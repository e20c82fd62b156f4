package org

import (
	"errors"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/anirbannag/usimm-pm/mem/dram/internal/signal"
)

func newTestUnit(near bool, numRank, numBank int, t Timing) *Unit {
	return NewUnit(UnitConfig{
		Near:          near,
		NumRank:       numRank,
		NumBank:       numBank,
		Timing:        t,
		Multiplier:    1,
		PipelineDepth: 10,
	})
}

func beginCycle(u *Unit, now int64, reqs ...*signal.Request) {
	u.BeginCycle()
	u.AdvanceBookkeeping(now)
	u.UpdateIssuable(now)

	for _, r := range reqs {
		u.UpdateRequestCommand(now, r)
	}
}

func readTo(rank, bank, row int) *signal.Request {
	loc := signal.Location{Rank: rank, Bank: bank, Row: row}
	return signal.NewRequest(0, loc, signal.OpRead, 0, 0, 7, 0)
}

type commandLog struct {
	cmds []signal.Command
}

func (l *commandLog) CommandIssued(cmd signal.Command) {
	l.cmds = append(l.cmds, cmd)
}

var _ = Describe("Unit", func() {
	var (
		mockCtrl *gomock.Controller
		t        Timing
		u        *Unit
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		t = ddr3Timing()
		u = newTestUnit(false, 1, 1, t)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	Context("row miss", func() {
		It("should activate then read after T_RCD", func() {
			sink := NewMockCompletionSink(mockCtrl)
			u.Sink = sink
			req := readTo(0, 0, 5)

			beginCycle(u, 0, req)
			Expect(req.NextCommand).To(Equal(signal.CmdKindActivate))
			Expect(req.Issuable).To(BeTrue())
			Expect(u.IssueRequestCommand(0, req)).To(Succeed())
			Expect(u.CommandIssued()).To(BeTrue())
			Expect(u.Bank(0, 0).State).To(Equal(BankStateRowActive))

			beginCycle(u, t.TRCD-1, req)
			Expect(req.NextCommand).To(Equal(signal.CmdKindRead))
			Expect(req.Issuable).To(BeFalse())

			sink.EXPECT().NotifyCompletion(0, 7, t.TRCD+t.TCAS+t.TDataTrans+10)

			beginCycle(u, t.TRCD, req)
			Expect(req.Issuable).To(BeTrue())
			Expect(u.IssueRequestCommand(t.TRCD, req)).To(Succeed())
			Expect(req.CompletionCycle).To(Equal(t.TRCD + t.TCAS + t.TDataTrans))
			Expect(req.DispatchCycle).To(Equal(t.TRCD))
			Expect(req.Served).To(Equal(signal.Served))
			Expect(u.Bank(0, 0).Stats.ReadActivates).To(Equal(uint64(1)))
			Expect(u.Stats.ReadsCompleted).To(Equal(uint64(1)))
			Expect(u.Stats.AvgReadLatency).To(
				BeNumerically("==", t.TRCD+t.TCAS+t.TDataTrans))
		})

		It("should not notify the sink for near reads", func() {
			u = newTestUnit(true, 1, 1, t)
			u.Sink = NewMockCompletionSink(mockCtrl)
			Expect(u.IssueActivate(0, 0, 0, 5)).To(Succeed())
			req := readTo(0, 0, 5)

			beginCycle(u, t.TRCD, req)
			Expect(u.IssueRequestCommand(t.TRCD, req)).To(Succeed())
			Expect(req.Served).To(Equal(signal.Served))
		})
	})

	Context("row hit", func() {
		It("should read without activating", func() {
			Expect(u.IssueActivate(0, 0, 0, 5)).To(Succeed())
			req := readTo(0, 0, 5)

			beginCycle(u, 20, req)
			Expect(req.NextCommand).To(Equal(signal.CmdKindRead))
			Expect(req.Issuable).To(BeTrue())
			Expect(u.Bank(0, 0).Stats.ExplicitActivates).To(Equal(uint64(1)))
		})
	})

	Context("row conflict", func() {
		It("should precharge after T_RAS", func() {
			Expect(u.IssueActivate(0, 0, 0, 5)).To(Succeed())
			req := readTo(0, 0, 6)

			beginCycle(u, t.TRAS-1, req)
			Expect(req.NextCommand).To(Equal(signal.CmdKindPrecharge))
			Expect(req.Issuable).To(BeFalse())

			beginCycle(u, t.TRAS, req)
			Expect(req.Issuable).To(BeTrue())
			Expect(u.IssueRequestCommand(t.TRAS, req)).To(Succeed())
			Expect(u.Bank(0, 0).State).To(Equal(BankStatePrecharging))
			Expect(u.Bank(0, 0).NextActivate).To(Equal(max(t.TRAS+t.TRP, t.TRC)))
		})
	})

	Context("writes", func() {
		It("should return near writes immediately", func() {
			u = newTestUnit(true, 2, 1, t)
			Expect(u.IssueActivate(0, 0, 0, 1)).To(Succeed())
			loc := signal.Location{Row: 1}
			req := signal.NewRequest(0, loc, signal.OpWrite, 0, 0, 0, 0)

			beginCycle(u, t.TRCD, req)
			Expect(req.NextCommand).To(Equal(signal.CmdKindWrite))
			Expect(u.IssueRequestCommand(t.TRCD, req)).To(Succeed())
			Expect(req.Served).To(Equal(signal.Returned))
			Expect(req.CompletionCycle).To(Equal(t.TRCD + t.TDataTrans + t.TWR))
			Expect(u.Bank(0, 0).CAS).To(Equal(CASWrite))
			Expect(u.Bank(0, 0).NextRead).To(
				Equal(t.TRCD + t.TCWD + t.TDataTrans + t.TWTR))
			Expect(u.Bank(1, 0).NextWrite).To(
				Equal(t.TRCD + t.TDataTrans + t.TRTRS))
			Expect(u.Ranks[1].Stats.CyclesTerminatingWrites).To(Equal(t.TDataTrans))
		})
	})

	Context("command bus", func() {
		It("should refuse a second command in a cycle", func() {
			u = newTestUnit(false, 1, 2, t)
			Expect(u.IssueActivate(0, 0, 0, 1)).To(Succeed())

			err := u.IssueActivate(0, 0, 1, 1)

			var illegal *IllegalCommandError
			Expect(errors.Is(err, ErrIllegalCommand)).To(BeTrue())
			Expect(errors.As(err, &illegal)).To(BeTrue())
			Expect(illegal.Kind).To(Equal(signal.CmdKindActivate))
			Expect(illegal.Bank).To(Equal(1))
		})

		It("should panic when asked to", func() {
			u.PanicOnViolation = true
			Expect(u.IssueActivate(0, 0, 0, 1)).To(Succeed())

			Expect(func() { _ = u.IssuePrecharge(0, 0, 0) }).To(Panic())
		})

		It("should refuse a request that is not issuable", func() {
			req := readTo(0, 0, 1)
			Expect(u.IssueRequestCommand(0, req)).
				To(MatchError(ErrIllegalCommand))
		})

		It("should report commands to the observer", func() {
			obs := NewMockCommandObserver(mockCtrl)
			u.Observer = obs

			obs.EXPECT().CommandIssued(gomock.Any()).Do(func(cmd signal.Command) {
				Expect(cmd.Kind).To(Equal(signal.CmdKindActivate))
				Expect(cmd.Location.Row).To(Equal(3))
				Expect(cmd.Cycle).To(Equal(int64(0)))
			})

			Expect(u.IssueActivate(0, 0, 0, 3)).To(Succeed())
		})
	})

	Context("auto precharge", func() {
		It("should close the row behind a read", func() {
			Expect(u.IssueActivate(0, 0, 0, 5)).To(Succeed())
			req := readTo(0, 0, 5)

			beginCycle(u, t.TRCD, req)
			Expect(u.IssueRequestCommand(t.TRCD, req)).To(Succeed())
			Expect(u.IsAutoPrechargeAllowed(t.TRCD, 0, 0)).To(BeTrue())
			Expect(u.IssueAutoPrecharge(t.TRCD, 0, 0)).To(BeTrue())

			b := u.Bank(0, 0)
			start := max(t.TRCD+t.TRTP, t.TRAS)
			Expect(b.State).To(Equal(BankStatePrecharging))
			Expect(b.NextActivate).To(Equal(max(start+t.TRP, t.TRC)))
			Expect(b.CAS).To(Equal(CASNone))
		})

		It("should not apply to banks without a column access", func() {
			Expect(u.IssueAutoPrecharge(0, 0, 0)).To(BeFalse())
		})
	})

	Context("power", func() {
		It("should enter and leave slow power-down", func() {
			u = newTestUnit(false, 1, 2, t)

			Expect(u.IssuePowerDown(0, 0, signal.CmdKindPowerDownSlow)).To(Succeed())
			Expect(u.Bank(0, 1).State).To(Equal(BankStatePrechargePowerDownSlow))
			Expect(u.Ranks[0].Stats.PowerDownsSlow).To(Equal(uint64(1)))

			beginCycle(u, t.TPDMin-1)
			Expect(u.IsPowerUpAllowed(t.TPDMin-1, 0)).To(BeFalse())

			beginCycle(u, t.TPDMin)
			Expect(u.Issuable.PowerUp[0]).To(BeTrue())
			Expect(u.IssuePowerUp(t.TPDMin, 0)).To(Succeed())
			Expect(u.Bank(0, 0).State).To(Equal(BankStateIdle))
			Expect(u.Bank(0, 0).NextActivate).To(Equal(t.TPDMin + t.TXPDLL))
			Expect(u.Ranks[0].Stats.PowerUps).To(Equal(uint64(1)))
		})

		It("should keep open rows in active power-down", func() {
			Expect(u.IssueActivate(0, 0, 0, 2)).To(Succeed())

			beginCycle(u, t.TRCD)
			Expect(u.IsPowerDownSlowAllowed(t.TRCD, 0)).To(BeFalse())
			Expect(u.IssuePowerDown(t.TRCD, 0, signal.CmdKindPowerDownFast)).
				To(Succeed())
			Expect(u.Bank(0, 0).State).To(Equal(BankStateActivePowerDown))
			Expect(u.Ranks[0].Stats.PowerDownsFast).To(BeZero())

			req := readTo(0, 0, 2)
			beginCycle(u, t.TRCD+t.TPDMin, req)
			Expect(req.NextCommand).To(Equal(signal.CmdKindPowerUp))
			Expect(u.IssueRequestCommand(t.TRCD+t.TPDMin, req)).To(Succeed())
			Expect(u.Bank(0, 0).State).To(Equal(BankStateRowActive))
			Expect(u.Bank(0, 0).ActiveRow).To(Equal(2))
		})

		It("should reject a non power-down kind", func() {
			Expect(u.IssuePowerDown(0, 0, signal.CmdKindRead)).
				To(MatchError(ErrIllegalCommand))
		})

		It("should accumulate residency", func() {
			u.Multiplier = 4
			u.GatherStats()
			Expect(u.IssueActivate(0, 0, 0, 2)).To(Succeed())
			u.GatherStats()

			s := u.Ranks[0].Stats
			Expect(s.CyclesPoweredUp).To(Equal(int64(8)))
			Expect(s.CyclesActiveStandby).To(Equal(int64(4)))
		})
	})

	Context("refresh", func() {
		It("should refresh a precharged rank", func() {
			beginCycle(u, 0)
			Expect(u.Issuable.Refresh[0]).To(BeTrue())
			Expect(u.IssueRefresh(0, 0)).To(Succeed())

			Expect(u.Bank(0, 0).State).To(Equal(BankStateRefreshing))
			Expect(u.Bank(0, 0).NextActivate).To(Equal(t.TRFC))
			Expect(u.Ranks[0].Refresh.Issued).To(Equal(1))
		})

		It("should close open rows before refreshing", func() {
			Expect(u.IssueActivate(0, 0, 0, 2)).To(Succeed())

			beginCycle(u, t.TRAS)
			Expect(u.IssueRefresh(t.TRAS, 0)).To(Succeed())
			Expect(u.Bank(0, 0).ActiveRow).To(Equal(NoRow))
			Expect(u.Bank(0, 0).NextActivate).To(Equal(t.TRAS + t.TRP + t.TRFC))
		})

		It("should force refreshes at the issue deadline", func() {
			u = newTestUnit(false, 1, 4, t)
			log := &commandLog{}
			u.Observer = log
			deadline := u.Ranks[0].Refresh.IssueDeadline
			end := u.Ranks[0].Refresh.NextCompletion

			beginCycle(u, deadline-1)
			Expect(u.Ranks[0].Refresh.Forced).To(BeFalse())

			beginCycle(u, deadline)
			Expect(u.Ranks[0].Refresh.Forced).To(BeTrue())
			for _, b := range u.Ranks[0].Banks {
				Expect(b.State).To(Equal(BankStateRefreshing))
				Expect(b.NextActivate).To(Equal(end))
			}
			Expect(u.Ranks[0].Stats.ForcedRefreshes).To(Equal(uint64(8)))
			Expect(log.cmds).To(HaveLen(1))
			Expect(log.cmds[0].Kind).To(Equal(signal.CmdKindForcedRefresh))
			Expect(u.IsActivateAllowed(deadline, 0, 0)).To(BeFalse())
			Expect(u.IsRefreshAllowed(deadline, 0)).To(BeFalse())

			beginCycle(u, end)
			Expect(u.Ranks[0].Refresh.Forced).To(BeFalse())
			Expect(u.IsActivateAllowed(end, 0, 0)).To(BeTrue())
		})
	})

	Context("random traffic", func() {
		It("should keep every timing property", func() {
			t.TREFI = 200
			t.TRFC = 10
			t.TRRD = 1
			u = newTestUnit(false, 2, 4, t)
			log := &commandLog{}
			u.Observer = log

			rng := rand.New(rand.NewSource(7))
			var queue []*signal.Request
			prev := make(map[*Bank][7]int64)

			for now := int64(0); now < 6000; now++ {
				for _, r := range u.Ranks {
					if now >= r.Refresh.NextCompletion {
						Expect(r.Refresh.Issued).To(Equal(RefreshesPerWindow))
					}
				}

				if rng.Intn(3) == 0 {
					loc := signal.Location{
						Rank: rng.Intn(2), Bank: rng.Intn(4), Row: rng.Intn(3),
					}
					op := signal.OpRead
					if rng.Intn(2) == 0 {
						op = signal.OpWrite
					}
					queue = append(queue,
						signal.NewRequest(0, loc, op, now, 0, 0, 0))
				}

				beginCycle(u, now, queue...)

				for i, req := range queue {
					if !req.Issuable {
						continue
					}

					Expect(u.IssueRequestCommand(now, req)).To(Succeed())
					if req.Served != signal.NotServed {
						queue = append(queue[:i], queue[i+1:]...)
					}
					break
				}

				for rank, r := range u.Ranks {
					if u.CommandIssued() {
						break
					}

					switch {
					case r.Refresh.Issued < RefreshesPerWindow &&
						rng.Intn(20) == 0 && u.IsRefreshAllowed(now, rank):
						Expect(u.IssueRefresh(now, rank)).To(Succeed())
					case rng.Intn(40) == 0 && u.IsPowerDownFastAllowed(now, rank):
						Expect(u.IssuePowerDown(now, rank,
							signal.CmdKindPowerDownFast)).To(Succeed())
					}
				}

				for _, r := range u.Ranks {
					for _, b := range r.Banks {
						cur := [7]int64{
							b.NextActivate, b.NextPrecharge, b.NextRead,
							b.NextWrite, b.NextPowerDown, b.NextPowerUp,
							b.NextRefresh,
						}
						for k := range cur {
							Expect(cur[k]).To(BeNumerically(">=", prev[b][k]))
						}
						prev[b] = cur
					}
				}
			}

			perCycle := make(map[int64]int)
			acts := make(map[int][]int64)
			for _, cmd := range log.cmds {
				if cmd.Kind == signal.CmdKindForcedRefresh {
					continue
				}
				perCycle[cmd.Cycle]++
				if cmd.Kind == signal.CmdKindActivate {
					acts[cmd.Location.Rank] = append(acts[cmd.Location.Rank], cmd.Cycle)
				}
			}

			for _, n := range perCycle {
				Expect(n).To(Equal(1))
			}

			Expect(acts).NotTo(BeEmpty())
			for _, cycles := range acts {
				for i := range cycles {
					j := i
					for j < len(cycles) && cycles[j] < cycles[i]+t.TFAW {
						j++
					}
					Expect(j - i).To(BeNumerically("<=", MaxActivationsPerWindow))
				}
			}
		})
	})
})
