// Package config loads simulation settings from YAML files and the
// environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/anirbannag/usimm-pm/frontend"
	"github.com/anirbannag/usimm-pm/mem/dram"
)

// File is the content of a configuration file. Fields left out of a file
// keep the value of Default.
type File struct {
	Cores         int    `yaml:"cores"`
	ROBSize       int    `yaml:"rob_size"`
	FetchWidth    int    `yaml:"fetch_width"`
	RetireWidth   int    `yaml:"retire_width"`
	PipelineDepth int64  `yaml:"pipeline_depth"`
	MaxCycles     int64  `yaml:"max_cycles"`
	AddressMode   string `yaml:"address_mode"`
	FarSpaceBit   uint   `yaml:"far_space_bit"`

	Link  Link    `yaml:"link"`
	Near  Channel `yaml:"near"`
	Far   Channel `yaml:"far"`
	Cache Cache   `yaml:"cache"`
}

// Link sets the latencies of the serial link in front of near memory.
type Link struct {
	ReadLatency  int64 `yaml:"read_latency"`
	WriteLatency int64 `yaml:"write_latency"`
}

// Cache describes the optional last-level cache. Sets of 0 disables it.
type Cache struct {
	Sets      int   `yaml:"sets"`
	Ways      int   `yaml:"ways"`
	BlockSize int   `yaml:"block_size"`
	Latency   int64 `yaml:"latency"`
}

// Channel describes a group of identical memory channels.
type Channel struct {
	Channels           int        `yaml:"channels"`
	Vaults             int        `yaml:"vaults"`
	Ranks              int        `yaml:"ranks"`
	Banks              int        `yaml:"banks"`
	Rows               int        `yaml:"rows"`
	Columns            int        `yaml:"columns"`
	LineSize           int        `yaml:"line_size"`
	ClockMultiplier    int64      `yaml:"clock_multiplier"`
	WriteQueueCapacity int        `yaml:"write_queue_capacity"`
	ReadLookupLatency  int64      `yaml:"read_lookup_latency"`
	WriteLookupLatency int64      `yaml:"write_lookup_latency"`
	Timing             Timing     `yaml:"timing"`
	Electrical         Electrical `yaml:"electrical"`
}

// Timing lists DDR timing parameters in memory cycles.
type Timing struct {
	TRCD       int64 `yaml:"t_rcd"`
	TRP        int64 `yaml:"t_rp"`
	TCAS       int64 `yaml:"t_cas"`
	TRAS       int64 `yaml:"t_ras"`
	TRC        int64 `yaml:"t_rc"`
	TCWD       int64 `yaml:"t_cwd"`
	TWR        int64 `yaml:"t_wr"`
	TWTR       int64 `yaml:"t_wtr"`
	TRTRS      int64 `yaml:"t_rtrs"`
	TDataTrans int64 `yaml:"t_data_trans"`
	TRTP       int64 `yaml:"t_rtp"`
	TCCD       int64 `yaml:"t_ccd"`
	TXP        int64 `yaml:"t_xp"`
	TXPDLL     int64 `yaml:"t_xp_dll"`
	TCKE       int64 `yaml:"t_cke"`
	TPDMin     int64 `yaml:"t_pd_min"`
	TRRD       int64 `yaml:"t_rrd"`
	TFAW       int64 `yaml:"t_faw"`
	TREFI      int64 `yaml:"t_refi"`
	TRFC       int64 `yaml:"t_rfc"`
}

// Electrical lists the supply voltage and currents of a DRAM device.
type Electrical struct {
	VDD          float64 `yaml:"vdd"`
	IDD0         float64 `yaml:"idd0"`
	IDD2P0       float64 `yaml:"idd2p0"`
	IDD2P1       float64 `yaml:"idd2p1"`
	IDD2N        float64 `yaml:"idd2n"`
	IDD3P        float64 `yaml:"idd3p"`
	IDD3N        float64 `yaml:"idd3n"`
	IDD4W        float64 `yaml:"idd4w"`
	IDD4R        float64 `yaml:"idd4r"`
	IDD5         float64 `yaml:"idd5"`
	ChipsPerRank int     `yaml:"chips_per_rank"`
}

// Address modes accepted in files.
const (
	ModeBankStriped = "bank_striped"
	ModeRowMajor    = "row_major"
)

// Default returns the configuration of one core on a single DDR3 DIMM
// channel with no near memory and no cache.
func Default() File {
	near := fromSpec(dram.DefaultNearSpec())
	near.Channels = 0

	return File{
		Cores:         1,
		ROBSize:       128,
		FetchWidth:    4,
		RetireWidth:   2,
		PipelineDepth: 5,
		AddressMode:   ModeBankStriped,
		FarSpaceBit:   36,
		Link:          Link{ReadLatency: 4, WriteLatency: 8},
		Near:          near,
		Far:           fromSpec(dram.DefaultFarSpec()),
		Cache:         Cache{Ways: 16, BlockSize: 64, Latency: 20},
	}
}

// Load reads a configuration file on top of Default.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("reading config: %w", err)
	}

	f, err := Parse(bytes.NewReader(data))
	if err != nil {
		return File{}, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return f, nil
}

// Parse decodes YAML on top of Default. Unknown keys are errors.
func Parse(r io.Reader) (File, error) {
	f := Default()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return File{}, err
	}

	if err := f.Validate(); err != nil {
		return File{}, err
	}

	return f, nil
}

// Marshal encodes the configuration as YAML.
func (f File) Marshal() ([]byte, error) {
	var buf bytes.Buffer

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)

	if err := enc.Encode(f); err != nil {
		return nil, err
	}

	if err := enc.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Validate checks the settings the builders do not check.
func (f File) Validate() error {
	switch {
	case f.Cores <= 0:
		return errors.New("cores must be positive")
	case f.ROBSize <= 0:
		return errors.New("rob_size must be positive")
	case f.MaxCycles < 0:
		return errors.New("max_cycles cannot be negative")
	case f.Cache.Sets < 0:
		return errors.New("cache sets cannot be negative")
	}

	if _, err := f.mode(); err != nil {
		return err
	}

	return nil
}

func (f File) mode() (dram.Mode, error) {
	switch f.AddressMode {
	case ModeBankStriped:
		return dram.BankStriped, nil
	case ModeRowMajor:
		return dram.RowMajor, nil
	default:
		return 0, fmt.Errorf("unknown address_mode %q", f.AddressMode)
	}
}

// MemoryBuilder converts the file into a memory controller builder. The
// caller still sets the engine, the completion sink and any hooks.
func (f File) MemoryBuilder() (dram.Builder, error) {
	mode, err := f.mode()
	if err != nil {
		return dram.Builder{}, err
	}

	return dram.MakeBuilder().
		WithNear(f.Near.spec()).
		WithFar(f.Far.spec()).
		WithCores(f.Cores).
		WithMode(mode).
		WithFarSpaceBit(f.FarSpaceBit).
		WithLinkLatencies(f.Link.ReadLatency, f.Link.WriteLatency).
		WithPipelineDepth(f.PipelineDepth), nil
}

// DriverBuilder converts the file into a driver builder. The caller still
// sets the memory, the reorder buffers and the traces.
func (f File) DriverBuilder() frontend.Builder {
	return frontend.MakeBuilder().
		WithROBSize(f.ROBSize).
		WithWidths(f.FetchWidth, f.RetireWidth).
		WithPipelineDepth(f.PipelineDepth).
		WithMaxCycles(f.MaxCycles).
		WithCache(frontend.CacheSpec{
			NumSets:   f.Cache.Sets,
			NumWays:   f.Cache.Ways,
			BlockSize: f.Cache.BlockSize,
			Latency:   f.Cache.Latency,
		})
}

func (c Channel) spec() dram.ChannelSpec {
	return dram.ChannelSpec{
		NumChannel:         c.Channels,
		NumVault:           c.Vaults,
		NumRank:            c.Ranks,
		NumBank:            c.Banks,
		NumRow:             c.Rows,
		NumColumn:          c.Columns,
		LineSize:           c.LineSize,
		Multiplier:         c.ClockMultiplier,
		WriteQueueCapacity: c.WriteQueueCapacity,
		ReadLookupLatency:  c.ReadLookupLatency,
		WriteLookupLatency: c.WriteLookupLatency,
		Timing:             dram.Timing(c.Timing),
		Electrical:         dram.Electrical(c.Electrical),
	}
}

func fromSpec(s dram.ChannelSpec) Channel {
	return Channel{
		Channels:           s.NumChannel,
		Vaults:             s.NumVault,
		Ranks:              s.NumRank,
		Banks:              s.NumBank,
		Rows:               s.NumRow,
		Columns:            s.NumColumn,
		LineSize:           s.LineSize,
		ClockMultiplier:    s.Multiplier,
		WriteQueueCapacity: s.WriteQueueCapacity,
		ReadLookupLatency:  s.ReadLookupLatency,
		WriteLookupLatency: s.WriteLookupLatency,
		Timing:             Timing(s.Timing),
		Electrical:         Electrical(s.Electrical),
	}
}
