package frontend

import (
	"errors"
	"fmt"
	"io"

	"github.com/anirbannag/usimm-pm/mem/cache/tagging"
	"github.com/anirbannag/usimm-pm/sim/timing"
)

// CacheSpec describes an optional last-level cache in front of memory. A
// NumSets of 0 disables it.
type CacheSpec struct {
	NumSets   int
	NumWays   int
	BlockSize int
	Latency   int64
}

// Builder can build drivers.
type Builder struct {
	engine        timing.Engine
	mem           Memory
	robs          *ReorderBuffers
	traces        []io.Reader
	robSize       int
	fetchWidth    int
	retireWidth   int
	pipelineDepth int64
	maxCycles     int64
	cache         CacheSpec
}

// MakeBuilder creates a builder with the default core parameters.
func MakeBuilder() Builder {
	return Builder{
		robSize:       128,
		fetchWidth:    4,
		retireWidth:   2,
		pipelineDepth: 5,
	}
}

// WithEngine lets the driver tick itself on the engine.
func (b Builder) WithEngine(engine timing.Engine) Builder {
	b.engine = engine
	return b
}

// WithMemory sets the memory controller.
func (b Builder) WithMemory(mem Memory) Builder {
	b.mem = mem
	return b
}

// WithReorderBuffers sets the reorder buffers. They are usually created
// first so that the memory controller can report completions to them.
func (b Builder) WithReorderBuffers(robs *ReorderBuffers) Builder {
	b.robs = robs
	return b
}

// WithTraces sets one trace per core.
func (b Builder) WithTraces(traces ...io.Reader) Builder {
	b.traces = traces
	return b
}

// WithROBSize sets the number of reorder buffer entries per core.
func (b Builder) WithROBSize(n int) Builder {
	b.robSize = n
	return b
}

// WithWidths sets how many instructions a core fetches and retires per
// cycle.
func (b Builder) WithWidths(fetch, retire int) Builder {
	b.fetchWidth = fetch
	b.retireWidth = retire

	return b
}

// WithPipelineDepth sets the cycles an instruction takes before it can
// retire.
func (b Builder) WithPipelineDepth(depth int64) Builder {
	b.pipelineDepth = depth
	return b
}

// WithMaxCycles stops the driver with ErrCycleLimit at the given cycle. 0
// means no limit.
func (b Builder) WithMaxCycles(n int64) Builder {
	b.maxCycles = n
	return b
}

// WithCache puts a shared last-level cache in front of memory.
func (b Builder) WithCache(spec CacheSpec) Builder {
	b.cache = spec
	return b
}

// Build creates a driver.
func (b Builder) Build(name string) (*Driver, error) {
	if err := b.validate(); err != nil {
		return nil, fmt.Errorf("building %s: %w", name, err)
	}

	robs := b.robs
	if robs == nil {
		robs = NewReorderBuffers(len(b.traces), b.robSize)
	}

	d := &Driver{
		mem:           b.mem,
		robs:          robs,
		cacheLatency:  b.cache.Latency,
		fetchWidth:    b.fetchWidth,
		retireWidth:   b.retireWidth,
		pipelineDepth: b.pipelineDepth,
		maxCycles:     b.maxCycles,
	}

	for i, t := range b.traces {
		d.cores = append(d.cores, newCore(i, t, robs.Core(i)))
	}

	if b.cache.NumSets > 0 {
		d.cache = tagging.NewTagArray(
			b.cache.NumSets, b.cache.NumWays, b.cache.BlockSize)
	}

	if b.engine != nil {
		d.TickingComponent = timing.NewTickingComponent(
			name, b.engine, timing.ClockDomain{Multiplier: 1}, d)
	}

	return d, nil
}

func (b Builder) validate() error {
	switch {
	case b.mem == nil:
		return errors.New("memory is not set")
	case len(b.traces) == 0:
		return errors.New("at least one trace is required")
	case b.fetchWidth <= 0 || b.retireWidth <= 0:
		return errors.New("fetch and retire widths must be positive")
	case b.pipelineDepth < 0:
		return errors.New("pipeline depth cannot be negative")
	case b.robs != nil && len(b.robs.robs) < len(b.traces):
		return errors.New("fewer reorder buffers than traces")
	case b.robs == nil && b.robSize <= 0:
		return errors.New("reorder buffer size must be positive")
	case b.cache.NumSets > 0 && (b.cache.NumWays <= 0 || b.cache.BlockSize <= 0):
		return errors.New("cache needs positive ways and block size")
	}

	return nil
}
