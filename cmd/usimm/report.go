package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/anirbannag/usimm-pm/mem/dram"
)

type coreReport struct {
	Core        int
	Retired     uint64
	FinishCycle int64
	IPC         float64
	Reads       uint64
	Writes      uint64
	ReadMerges  uint64
	WriteMerges uint64
	CacheHits   uint64
	CacheMisses uint64
	Writebacks  uint64
	StallCycles uint64
}

type commandCount struct {
	Kind  string
	Count uint64
}

type report struct {
	Cycle        int64
	Cores        []coreReport
	Memory       dram.Snapshot
	Power        []dram.PowerReport
	Commands     []commandCount
	HasCache     bool
	CacheHitRate float64
}

func (s *simulation) coreReports() []coreReport {
	reports := make([]coreReport, 0, s.driver.NumCore())

	for i := 0; i < s.driver.NumCore(); i++ {
		cs := s.driver.CoreStats(i)

		cycles := cs.FinishCycle
		if cycles < 0 {
			cycles = s.driver.Cycle()
		}

		r := coreReport{
			Core:        i,
			Retired:     cs.Retired,
			FinishCycle: cs.FinishCycle,
			Reads:       cs.Reads,
			Writes:      cs.Writes,
			ReadMerges:  cs.ReadMerges,
			WriteMerges: cs.WriteMerges,
			CacheHits:   cs.CacheHits,
			CacheMisses: cs.CacheMisses,
			Writebacks:  cs.Writebacks,
			StallCycles: cs.StallCycles,
		}

		if cycles > 0 {
			r.IPC = float64(cs.Retired) / float64(cycles)
		}

		reports = append(reports, r)
	}

	return reports
}

func (s *simulation) report() report {
	r := report{
		Cycle:  s.driver.Cycle(),
		Cores:  s.coreReports(),
		Memory: s.ctrl.Stats(),
	}

	for _, v := range r.Memory.Vaults {
		for _, rank := range v.Ranks {
			r.Power = append(r.Power, s.ctrl.Power(v.Channel, v.Vault, rank.Rank))
		}
	}

	for _, kind := range s.counter.TagNames() {
		r.Commands = append(r.Commands,
			commandCount{Kind: kind, Count: s.counter.TagCount(kind)})
	}

	if cs, ok := s.driver.CacheStats(); ok {
		r.HasCache = true
		r.CacheHitRate = cs.HitRate()
	}

	return r
}

func printReport(w io.Writer, r report) {
	header := color.New(color.FgCyan, color.Bold)
	warn := color.New(color.FgYellow)

	header.Fprintln(w, "== Cores ==")
	for _, c := range r.Cores {
		if c.FinishCycle < 0 {
			warn.Fprintf(w, "Core %d did not finish\n", c.Core)
		}

		fmt.Fprintf(w,
			"Core %d: %d instructions, done at cycle %d, IPC %.4f, "+
				"%d reads (%d merged), %d writes (%d merged)\n",
			c.Core, c.Retired, c.FinishCycle, c.IPC,
			c.Reads, c.ReadMerges, c.Writes, c.WriteMerges)
	}

	if r.HasCache {
		fmt.Fprintf(w, "LLC hit rate: %.4f\n", r.CacheHitRate)
	}

	header.Fprintln(w, "== Memory ==")
	fmt.Fprintf(w, "Reads completed: %d, average latency %.2f cycles\n",
		r.Memory.ReadsCompleted, r.Memory.AvgReadLatency)
	fmt.Fprintf(w, "Writes completed: %d, average latency %.2f cycles\n",
		r.Memory.WritesCompleted, r.Memory.AvgWriteLatency)

	for _, v := range r.Memory.Vaults {
		kind := "far"
		if v.Near {
			kind = "near"
		}

		fmt.Fprintf(w,
			"Channel %d vault %d (%s): read hit rate %.4f, write hit rate %.4f, "+
				"%d aggressive precharges\n",
			v.Channel, v.Vault, kind, v.ReadPageHitRate, v.WritePageHitRate,
			v.AggressivePrecharges)
	}

	header.Fprintln(w, "== Commands ==")
	for _, c := range r.Commands {
		fmt.Fprintf(w, "%-16s %d\n", c.Kind, c.Count)
	}

	header.Fprintln(w, "== Power (mW) ==")

	var total float64
	for _, p := range r.Power {
		total += p.RankPower
		fmt.Fprintf(w,
			"Channel %d vault %d rank %d: background %.2f, activate %.2f, "+
				"read %.2f, write %.2f, refresh %.2f, rank total %.2f\n",
			p.Channel, p.Vault, p.Rank, p.Background, p.Activate,
			p.Read, p.Write, p.Refresh, p.RankPower)
	}

	fmt.Fprintf(w, "Total memory power: %.2f\n", total)
}
