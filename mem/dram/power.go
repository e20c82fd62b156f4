package dram

import "github.com/anirbannag/usimm-pm/mem/dram/internal/org"

// Electrical lists the supply voltage and the IDD currents (mA) of one DRAM
// device, together with the number of devices that form a rank.
type Electrical struct {
	VDD    float64
	IDD0   float64
	IDD2P0 float64
	IDD2P1 float64
	IDD2N  float64
	IDD3P  float64
	IDD3N  float64
	IDD4W  float64
	IDD4R  float64
	IDD5   float64

	ChipsPerRank int
}

// DDR3Electrical returns the currents of a 4Gb x8 DDR3-1600 device.
func DDR3Electrical() Electrical {
	return Electrical{
		VDD:          1.5,
		IDD0:         55,
		IDD2P0:       16,
		IDD2P1:       32,
		IDD2N:        28,
		IDD3P:        38,
		IDD3N:        38,
		IDD4W:        125,
		IDD4R:        157,
		IDD5:         155,
		ChipsPerRank: 8,
	}
}

// Termination power of the DQ pins per device, in mW.
const (
	dqPower               = 32.0
	writeTerminationPower = 0.0
	readOtherTermPower    = 249.0
	writeOtherTermPower   = 228.8
)

// PowerReport breaks down the average power of one rank, in mW per device
// unless stated otherwise.
type PowerReport struct {
	Channel, Vault, Rank int

	Background             float64
	Activate               float64
	Read                   float64
	Write                  float64
	ReadTermination        float64
	WriteTermination       float64
	ReadOtherTermination   float64
	WriteOtherTermination  float64
	Refresh                float64
	ChipPower              float64
	RankPower              float64
	ActiveStandby          float64
	ActivePowerDown        float64
	PrechargeStandby       float64
	PrechargePowerDownFast float64
	PrechargePowerDownSlow float64
}

// computePower derives the power of a rank from its counters following the
// Micron DDR3 power calculation. Timing is in the same unit as now.
func computePower(
	e Electrical,
	t org.Timing,
	r *org.Rank,
	now int64,
) PowerReport {
	var rep PowerReport

	if now <= 0 {
		return rep
	}

	cycles := float64(now)
	s := r.Stats

	actPower := (e.IDD0 - (e.IDD3N*float64(t.TRAS)+
		e.IDD2N*float64(t.TRC-t.TRAS))/float64(t.TRC)) * e.VDD

	if s.AvgActivateGap > 0 {
		rep.Activate = actPower * float64(t.TRC) / s.AvgActivateGap
	}

	rep.ActivePowerDown = e.IDD3P * e.VDD *
		float64(s.CyclesActivePowerDown) / cycles
	rep.ActiveStandby = e.IDD3N * e.VDD *
		float64(s.CyclesActiveStandby) / cycles
	rep.PrechargePowerDownSlow = e.IDD2P0 * e.VDD *
		float64(s.CyclesPrePowerDownSlow) / cycles
	rep.PrechargePowerDownFast = e.IDD2P1 * e.VDD *
		float64(s.CyclesPrePowerDownFast) / cycles

	preStandby := now - s.CyclesActiveStandby - s.CyclesPrePowerDownSlow -
		s.CyclesPrePowerDownFast - s.CyclesActivePowerDown
	rep.PrechargeStandby = e.IDD2N * e.VDD * float64(preStandby) / cycles

	reads, writes := rankColumnCommands(r)
	readCycles := float64(reads * uint64(t.TDataTrans))
	writeCycles := float64(writes * uint64(t.TDataTrans))

	rep.Read = (e.IDD4R - e.IDD3N) * e.VDD * readCycles / cycles
	rep.Write = (e.IDD4W - e.IDD3N) * e.VDD * writeCycles / cycles
	rep.Refresh = (e.IDD5 - e.IDD3N) * e.VDD *
		float64(t.TRFC) / float64(t.TREFI)

	rep.ReadTermination = dqPower * readCycles / cycles
	rep.WriteTermination = writeTerminationPower * writeCycles / cycles
	rep.ReadOtherTermination = readOtherTermPower *
		float64(s.CyclesTerminatingReads) / cycles
	rep.WriteOtherTermination = writeOtherTermPower *
		float64(s.CyclesTerminatingWrites) / cycles

	rep.Background = rep.ActivePowerDown + rep.ActiveStandby +
		rep.PrechargePowerDownSlow + rep.PrechargePowerDownFast +
		rep.PrechargeStandby

	rep.ChipPower = rep.Background + rep.Activate + rep.Read + rep.Write +
		rep.ReadTermination + rep.WriteTermination +
		rep.ReadOtherTermination + rep.WriteOtherTermination + rep.Refresh
	rep.RankPower = rep.ChipPower * float64(e.ChipsPerRank)

	return rep
}

func rankColumnCommands(r *org.Rank) (reads, writes uint64) {
	for _, b := range r.Banks {
		reads += b.Stats.Reads
		writes += b.Stats.Writes
	}

	return reads, writes
}
