package dram

import (
	"gonum.org/v1/gonum/stat"

	"github.com/anirbannag/usimm-pm/mem/dram/internal/org"
)

// RankSnapshot holds the command counts and power-state residency of a rank.
type RankSnapshot struct {
	Rank int

	Reads             uint64
	Writes            uint64
	ReadActivates     uint64
	WriteActivates    uint64
	ExplicitActivates uint64
	Precharges        uint64
	Refreshes         uint64
	ForcedRefreshes   uint64
	PowerDownsFast    uint64
	PowerDownsSlow    uint64
	PowerUps          uint64

	CyclesActiveStandby    int64
	CyclesActivePowerDown  int64
	CyclesPrePowerDownFast int64
	CyclesPrePowerDownSlow int64
	CyclesPoweredUp        int64
}

// VaultSnapshot holds the statistics of one command bus.
type VaultSnapshot struct {
	Channel int
	Vault   int
	Near    bool

	ReadsSeen       uint64
	WritesSeen      uint64
	ReadsMerged     uint64
	WritesMerged    uint64
	ReadsCompleted  uint64
	WritesCompleted uint64

	AvgReadLatency       float64
	AvgReadQueueLatency  float64
	AvgWriteLatency      float64
	AvgWriteQueueLatency float64

	ReadPageHitRate      float64
	WritePageHitRate     float64
	AggressivePrecharges uint64

	Ranks []RankSnapshot
}

// Snapshot is the state of the statistics at a cycle.
type Snapshot struct {
	Cycle  int64
	Vaults []VaultSnapshot

	ReadsCompleted  uint64
	WritesCompleted uint64
	AvgReadLatency  float64
	AvgWriteLatency float64
}

// pageHitRate returns the share of column commands that found their row
// open.
func pageHitRate(cmds, activates uint64) float64 {
	if cmds == 0 {
		return 0
	}

	return (float64(cmds) - float64(activates)) / float64(cmds)
}

func snapshotRank(i int, r *org.Rank) RankSnapshot {
	rs := RankSnapshot{
		Rank:                   i,
		Refreshes:              r.Stats.Refreshes,
		ForcedRefreshes:        r.Stats.ForcedRefreshes,
		PowerDownsFast:         r.Stats.PowerDownsFast,
		PowerDownsSlow:         r.Stats.PowerDownsSlow,
		PowerUps:               r.Stats.PowerUps,
		CyclesActiveStandby:    r.Stats.CyclesActiveStandby,
		CyclesActivePowerDown:  r.Stats.CyclesActivePowerDown,
		CyclesPrePowerDownFast: r.Stats.CyclesPrePowerDownFast,
		CyclesPrePowerDownSlow: r.Stats.CyclesPrePowerDownSlow,
		CyclesPoweredUp:        r.Stats.CyclesPoweredUp,
	}

	for _, b := range r.Banks {
		rs.Reads += b.Stats.Reads
		rs.Writes += b.Stats.Writes
		rs.ReadActivates += b.Stats.ReadActivates
		rs.WriteActivates += b.Stats.WriteActivates
		rs.ExplicitActivates += b.Stats.ExplicitActivates
		rs.Precharges += b.Stats.Precharges
	}

	return rs
}

// weightedMean averages per-vault means weighted by their request counts.
func weightedMean(means []float64, counts []float64) float64 {
	total := 0.0
	for _, c := range counts {
		total += c
	}

	if total == 0 {
		return 0
	}

	return stat.Mean(means, counts)
}

func summarize(s *Snapshot) {
	n := len(s.Vaults)
	readMeans := make([]float64, n)
	readCounts := make([]float64, n)
	writeMeans := make([]float64, n)
	writeCounts := make([]float64, n)

	for i, v := range s.Vaults {
		s.ReadsCompleted += v.ReadsCompleted
		s.WritesCompleted += v.WritesCompleted
		readMeans[i] = v.AvgReadLatency
		readCounts[i] = float64(v.ReadsCompleted)
		writeMeans[i] = v.AvgWriteLatency
		writeCounts[i] = float64(v.WritesCompleted)
	}

	s.AvgReadLatency = weightedMean(readMeans, readCounts)
	s.AvgWriteLatency = weightedMean(writeMeans, writeCounts)
}
