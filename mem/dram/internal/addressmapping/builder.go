package addressmapping

// Builder builds DefaultMappers.
type Builder struct {
	numNearChannel int
	near           Geometry
	far            Geometry
	mode           Mode
	farSpaceBit    uint
}

// MakeBuilder creates a builder for a single DDR3-like DIMM channel.
func MakeBuilder() Builder {
	dimm := Geometry{
		NumChannel: 1,
		NumVault:   1,
		NumRank:    2,
		NumBank:    8,
		NumRow:     32768,
		NumColumn:  128,
		LineSize:   64,
	}

	return Builder{
		far:         dimm,
		mode:        BankStriped,
		farSpaceBit: 36,
	}
}

// WithNearSpace sets the near-memory geometry. NumChannel is the number of
// near channels; zero disables the near space.
func (b Builder) WithNearSpace(g Geometry) Builder {
	b.near = g
	b.numNearChannel = g.NumChannel

	return b
}

// WithFarSpace sets the DIMM geometry.
func (b Builder) WithFarSpace(g Geometry) Builder {
	b.far = g
	return b
}

// WithMode sets the far-memory interleaving.
func (b Builder) WithMode(m Mode) Builder {
	b.mode = m
	return b
}

// WithFarSpaceBit sets the address bit that separates near and far space.
// Addresses with any bit at or above it set are far.
func (b Builder) WithFarSpaceBit(bit uint) Builder {
	b.farSpaceBit = bit
	return b
}

// Build creates the mapper.
func (b Builder) Build() *DefaultMapper {
	return &DefaultMapper{
		numNearChannel: b.numNearChannel,
		near:           widthsOf(b.near),
		far:            widthsOf(b.far),
		mode:           b.mode,
		farSpaceBit:    b.farSpaceBit,
	}
}
