package dram

import (
	"errors"
	"fmt"

	"github.com/anirbannag/usimm-pm/mem/dram/internal/addressmapping"
	"github.com/anirbannag/usimm-pm/mem/dram/internal/cmdq"
	"github.com/anirbannag/usimm-pm/mem/dram/internal/org"
	"github.com/anirbannag/usimm-pm/mem/dram/internal/trans"
	"github.com/anirbannag/usimm-pm/sim/hooking"
	"github.com/anirbannag/usimm-pm/sim/timing"
)

// ChannelSpec describes a group of identical channels.
type ChannelSpec struct {
	NumChannel int
	NumVault   int
	NumRank    int
	NumBank    int
	NumRow     int
	NumColumn  int
	LineSize   int

	// Multiplier is the number of processor cycles per memory cycle.
	Multiplier int64

	WriteQueueCapacity int
	ReadLookupLatency  int64
	WriteLookupLatency int64

	Timing     Timing
	Electrical Electrical
}

// DefaultFarSpec returns a single DDR3-1600 DIMM channel behind a 3.2 GHz
// processor.
func DefaultFarSpec() ChannelSpec {
	return ChannelSpec{
		NumChannel:         1,
		NumVault:           1,
		NumRank:            2,
		NumBank:            8,
		NumRow:             32768,
		NumColumn:          128,
		LineSize:           64,
		Multiplier:         4,
		WriteQueueCapacity: 64,
		ReadLookupLatency:  10,
		WriteLookupLatency: 10,
		Timing:             DDR3Timing(),
		Electrical:         DDR3Electrical(),
	}
}

// DefaultNearSpec returns one HMC-like channel of 16 single-rank vaults.
func DefaultNearSpec() ChannelSpec {
	s := DefaultFarSpec()
	s.NumVault = 16
	s.NumRank = 1
	s.NumRow = 16384

	return s
}

func (s ChannelSpec) geometry() addressmapping.Geometry {
	return addressmapping.Geometry{
		NumChannel: s.NumChannel,
		NumVault:   s.NumVault,
		NumRank:    s.NumRank,
		NumBank:    s.NumBank,
		NumRow:     s.NumRow,
		NumColumn:  s.NumColumn,
		LineSize:   s.LineSize,
	}
}

func (s ChannelSpec) validate(kind string) error {
	switch {
	case s.NumVault <= 0, s.NumRank <= 0, s.NumBank <= 0:
		return fmt.Errorf("%s channels need at least one vault, rank and bank", kind)
	case s.NumRow <= 0, s.NumColumn <= 0, s.LineSize <= 0:
		return fmt.Errorf("%s channels need positive rows, columns and line size", kind)
	case s.Multiplier <= 0:
		return fmt.Errorf("%s channel clock multiplier must be positive", kind)
	case s.WriteQueueCapacity <= 0:
		return fmt.Errorf("%s write queue capacity must be positive", kind)
	case s.Timing.TRC <= 0 || s.Timing.TFAW <= 0 || s.Timing.TREFI <= 0:
		return fmt.Errorf("%s channel timing is incomplete", kind)
	}

	return nil
}

// Builder can build memory controllers.
type Builder struct {
	engine  timing.Engine
	near    ChannelSpec
	far     ChannelSpec
	numCore int
	mode    Mode

	farSpaceBit      uint
	readLinkLatency  int64
	writeLinkLatency int64
	pipelineDepth    int64
	sink             CompletionSink
	panicOnViolation bool
	additionalHooks  []hooking.Hook
}

// MakeBuilder creates a builder with a single DDR3 DIMM channel and no near
// memory.
func MakeBuilder() Builder {
	near := DefaultNearSpec()
	near.NumChannel = 0

	return Builder{
		near:             near,
		far:              DefaultFarSpec(),
		numCore:          1,
		mode:             BankStriped,
		farSpaceBit:      36,
		readLinkLatency:  4,
		writeLinkLatency: 8,
		pipelineDepth:    5,
	}
}

// WithEngine lets the controller tick itself on the engine.
func (b Builder) WithEngine(engine timing.Engine) Builder {
	b.engine = engine
	return b
}

// WithNear sets the near-memory channels. A NumChannel of 0 disables near
// memory.
func (b Builder) WithNear(spec ChannelSpec) Builder {
	b.near = spec
	return b
}

// WithFar sets the far-memory channels.
func (b Builder) WithFar(spec ChannelSpec) Builder {
	b.far = spec
	return b
}

// WithCores sets the number of cores that send requests.
func (b Builder) WithCores(n int) Builder {
	b.numCore = n
	return b
}

// WithMode sets the far-memory address interleaving.
func (b Builder) WithMode(m Mode) Builder {
	b.mode = m
	return b
}

// WithFarSpaceBit sets the address bit that selects far memory when near
// memory exists.
func (b Builder) WithFarSpaceBit(bit uint) Builder {
	b.farSpaceBit = bit
	return b
}

// WithLinkLatencies sets the processor cycles the near-memory link needs to
// carry a read and a write.
func (b Builder) WithLinkLatencies(read, write int64) Builder {
	b.readLinkLatency = read
	b.writeLinkLatency = write

	return b
}

// WithPipelineDepth sets the cycles between data arrival and the reorder
// buffer seeing the completion.
func (b Builder) WithPipelineDepth(depth int64) Builder {
	b.pipelineDepth = depth
	return b
}

// WithCompletionSink sets who is told about completed reads.
func (b Builder) WithCompletionSink(sink CompletionSink) Builder {
	b.sink = sink
	return b
}

// WithPanicOnViolation makes illegal commands panic instead of returning an
// error.
func (b Builder) WithPanicOnViolation(panicOnViolation bool) Builder {
	b.panicOnViolation = panicOnViolation
	return b
}

// WithAdditionalHooks registers hooks on the built controller.
func (b Builder) WithAdditionalHooks(hooks ...hooking.Hook) Builder {
	b.additionalHooks = append(b.additionalHooks, hooks...)
	return b
}

// Build creates a memory controller.
func (b Builder) Build(name string) (*Comp, error) {
	if err := b.validate(); err != nil {
		return nil, fmt.Errorf("building %s: %w", name, err)
	}

	mapper := b.buildMapper()
	specs := b.queueSpecs()
	qs := trans.NewQueueSet(mapper, b.near.NumChannel, b.numCore, specs)

	c := &Comp{name: name, queues: qs}

	for ch := 0; ch < b.near.NumChannel; ch++ {
		c.channels = append(c.channels, b.buildChannel(c, ch, true, b.near))
	}

	for i := 0; i < b.far.NumChannel; i++ {
		ch := b.near.NumChannel + i
		c.channels = append(c.channels, b.buildChannel(c, ch, false, b.far))
	}

	for _, h := range b.additionalHooks {
		c.AcceptHook(h)
	}

	if b.engine != nil {
		domain := timing.ClockDomain{Multiplier: b.tickMultiplier()}
		c.TickingComponent = timing.NewTickingComponent(name, b.engine, domain, c)
	}

	return c, nil
}

func (b Builder) validate() error {
	if b.numCore <= 0 {
		return errors.New("at least one core is required")
	}

	if b.far.NumChannel <= 0 {
		return errors.New("at least one far channel is required")
	}

	if err := b.far.validate("far"); err != nil {
		return err
	}

	if b.near.NumChannel > 0 {
		if err := b.near.validate("near"); err != nil {
			return err
		}

		if b.readLinkLatency <= 0 || b.writeLinkLatency <= 0 {
			return errors.New("link latencies must be positive")
		}
	}

	return nil
}

func (b Builder) buildMapper() *addressmapping.DefaultMapper {
	mb := addressmapping.MakeBuilder().
		WithFarSpace(b.far.geometry()).
		WithMode(b.mode).
		WithFarSpaceBit(b.farSpaceBit)

	if b.near.NumChannel > 0 {
		mb = mb.WithNearSpace(b.near.geometry())
	}

	return mb.Build()
}

func (b Builder) queueSpecs() []trans.ChannelSpec {
	var specs []trans.ChannelSpec

	for i := 0; i < b.near.NumChannel; i++ {
		specs = append(specs, queueSpec(b.near))
	}

	for i := 0; i < b.far.NumChannel; i++ {
		far := queueSpec(b.far)
		far.NumVault = 1
		specs = append(specs, far)
	}

	return specs
}

func queueSpec(s ChannelSpec) trans.ChannelSpec {
	return trans.ChannelSpec{
		NumVault:           s.NumVault,
		WriteQueueCapacity: s.WriteQueueCapacity,
		ReadLookupLatency:  s.ReadLookupLatency,
		WriteLookupLatency: s.WriteLookupLatency,
	}
}

func (b Builder) buildChannel(
	c *Comp,
	ch int,
	near bool,
	spec ChannelSpec,
) *channel {
	numVault := spec.NumVault
	if !near {
		numVault = 1
	}

	chn := &channel{
		near:       near,
		multiplier: spec.Multiplier,
		electrical: spec.Electrical,
	}

	for v := 0; v < numVault; v++ {
		u := org.NewUnit(org.UnitConfig{
			Channel:       ch,
			Vault:         v,
			Near:          near,
			NumRank:       spec.NumRank,
			NumBank:       spec.NumBank,
			Timing:        spec.Timing.Scale(spec.Multiplier),
			Multiplier:    spec.Multiplier,
			PipelineDepth: b.pipelineDepth,
		})
		u.Sink = b.sink
		u.Observer = c
		u.PanicOnViolation = b.panicOnViolation

		var policy cmdq.Policy = cmdq.NewFRFCFS()
		if near {
			policy = cmdq.NewClosePage(spec.NumRank, spec.NumBank)
		}

		chn.vaults = append(chn.vaults, &vault{
			unit:   u,
			queues: c.queues.Vault(ch, v),
			policy: policy,
		})
	}

	if near {
		chn.link = trans.NewLink(ch, c.queues, b.readLinkLatency, b.writeLinkLatency)
		chn.link.PipelineDepth = b.pipelineDepth
		chn.link.Sink = b.sink
	}

	return chn
}

// tickMultiplier is the largest clock period that still hits every
// channel's memory clock.
func (b Builder) tickMultiplier() int64 {
	m := b.far.Multiplier
	if b.near.NumChannel > 0 {
		m = gcd(m, b.near.Multiplier)
	}

	return m
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}

	return a
}
