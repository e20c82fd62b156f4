package tagging

// A VictimFinder decides which block of a set should be evicted.
type VictimFinder interface {
	FindVictim(set *Set) *Block
}

// LRUVictimFinder evicts the least recently used block.
type LRUVictimFinder struct {
}

// NewLRUVictimFinder returns a newly constructed lru evictor
func NewLRUVictimFinder() *LRUVictimFinder {
	e := new(LRUVictimFinder)
	return e
}

// FindVictim returns an invalid block if the set has one, or else the least
// recently used block.
func (e *LRUVictimFinder) FindVictim(set *Set) *Block {
	order := set.LRUOrder()

	for _, block := range order {
		if !block.IsValid {
			return block
		}
	}

	return order[0]
}
