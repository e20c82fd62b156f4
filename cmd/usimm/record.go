package main

import (
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/anirbannag/usimm-pm/mem/dram"
)

type vaultEntry struct {
	Channel              int
	Vault                int
	Near                 bool
	ReadsSeen            uint64
	WritesSeen           uint64
	ReadsMerged          uint64
	WritesMerged         uint64
	ReadsCompleted       uint64
	WritesCompleted      uint64
	AvgReadLatency       float64
	AvgReadQueueLatency  float64
	AvgWriteLatency      float64
	AvgWriteQueueLatency float64
	ReadPageHitRate      float64
	WritePageHitRate     float64
	AggressivePrecharges uint64
}

type flatRank struct {
	Channel                int
	Vault                  int
	Rank                   int
	Reads                  uint64
	Writes                 uint64
	ReadActivates          uint64
	WriteActivates         uint64
	ExplicitActivates      uint64
	Precharges             uint64
	Refreshes              uint64
	ForcedRefreshes        uint64
	PowerDownsFast         uint64
	PowerDownsSlow         uint64
	PowerUps               uint64
	CyclesActiveStandby    int64
	CyclesActivePowerDown  int64
	CyclesPrePowerDownFast int64
	CyclesPrePowerDownSlow int64
	CyclesPoweredUp        int64
}

func flatten(ch, vault int, r dram.RankSnapshot) flatRank {
	return flatRank{
		Channel:                ch,
		Vault:                  vault,
		Rank:                   r.Rank,
		Reads:                  r.Reads,
		Writes:                 r.Writes,
		ReadActivates:          r.ReadActivates,
		WriteActivates:         r.WriteActivates,
		ExplicitActivates:      r.ExplicitActivates,
		Precharges:             r.Precharges,
		Refreshes:              r.Refreshes,
		ForcedRefreshes:        r.ForcedRefreshes,
		PowerDownsFast:         r.PowerDownsFast,
		PowerDownsSlow:         r.PowerDownsSlow,
		PowerUps:               r.PowerUps,
		CyclesActiveStandby:    r.CyclesActiveStandby,
		CyclesActivePowerDown:  r.CyclesActivePowerDown,
		CyclesPrePowerDownFast: r.CyclesPrePowerDownFast,
		CyclesPrePowerDownSlow: r.CyclesPrePowerDownSlow,
		CyclesPoweredUp:        r.CyclesPoweredUp,
	}
}

// record stores the final statistics and closes the run.
func (s *simulation) record() {
	r := s.report()

	s.recorder.CreateTable("core_stats", coreReport{})
	for _, c := range r.Cores {
		s.recorder.InsertData("core_stats", c)
	}

	s.recorder.CreateTable("vault_stats", vaultEntry{})
	s.recorder.CreateTable("rank_stats", flatRank{})

	for _, v := range r.Memory.Vaults {
		s.recorder.InsertData("vault_stats", vaultEntry{
			Channel:              v.Channel,
			Vault:                v.Vault,
			Near:                 v.Near,
			ReadsSeen:            v.ReadsSeen,
			WritesSeen:           v.WritesSeen,
			ReadsMerged:          v.ReadsMerged,
			WritesMerged:         v.WritesMerged,
			ReadsCompleted:       v.ReadsCompleted,
			WritesCompleted:      v.WritesCompleted,
			AvgReadLatency:       v.AvgReadLatency,
			AvgReadQueueLatency:  v.AvgReadQueueLatency,
			AvgWriteLatency:      v.AvgWriteLatency,
			AvgWriteQueueLatency: v.AvgWriteQueueLatency,
			ReadPageHitRate:      v.ReadPageHitRate,
			WritePageHitRate:     v.WritePageHitRate,
			AggressivePrecharges: v.AggressivePrecharges,
		})

		for _, rank := range v.Ranks {
			s.recorder.InsertData("rank_stats", flatten(v.Channel, v.Vault, rank))
		}
	}

	s.recorder.CreateTable("rank_power", dram.PowerReport{})
	for _, p := range r.Power {
		s.recorder.InsertData("rank_power", p)
	}

	s.recorder.CreateTable("command_count", commandCount{})
	for _, c := range r.Commands {
		s.recorder.InsertData("command_count", c)
	}

	s.run.Set("Cycles", strconv.FormatInt(r.Cycle, 10))
	s.run.Set("Cores", strconv.Itoa(len(r.Cores)))
	s.run.End()

	fields := logrus.Fields{"tables": len(s.recorder.ListTables())}
	if s.commands != nil {
		fields["commands"] = s.commands.Count()
	}

	logrus.WithFields(fields).Info("statistics recorded")
}
