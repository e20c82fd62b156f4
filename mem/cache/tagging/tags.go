// Package tagging provides a set-associative tag array with LRU replacement.
package tagging

import (
	"github.com/google/btree"
)

// A TagArray keeps the tags of a set-associative cache.
type TagArray interface {
	Lookup(addr uint64) (*Block, bool)
	Access(addr uint64, write bool) (*Block, bool)
	Replace(addr uint64) Block
	Insert(addr uint64, core, instructionID int, write bool) Block
	GetSet(addr uint64) (set *Set, setID int)
	Address(block *Block) uint64
	Visit(block *Block)
	Stats() Stats
	Reset()
}

// Stats counts the counted accesses of a tag array.
type Stats struct {
	Hits   uint64
	Misses uint64
}

// HitRate returns the share of accesses that hit.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}

	return float64(s.Hits) / float64(total)
}

// A Block of a cache is the information that is associated with a cache line
type Block struct {
	Tag           uint64
	SetID         int
	WayID         int
	IsValid       bool
	IsDirty       bool
	Core          int
	InstructionID int

	lastVisit uint64
}

// Less orders blocks from the least to the most recently visited.
func (b *Block) Less(than btree.Item) bool {
	return b.lastVisit < than.(*Block).lastVisit
}

// A Set is a list of blocks where a certain piece memory can be stored at.
type Set struct {
	Blocks    []*Block
	visitTree *btree.BTree
}

// LRUOrder returns the blocks from the least to the most recently visited.
func (s *Set) LRUOrder() []*Block {
	order := make([]*Block, 0, len(s.Blocks))
	s.visitTree.Ascend(func(i btree.Item) bool {
		order = append(order, i.(*Block))
		return true
	})

	return order
}

// NewTagArray creates an empty tag array. BlockSize and numSets are expected
// to be powers of two.
func NewTagArray(numSets, numWays, blockSize int) TagArray {
	t := &tagArrayImpl{
		NumSets:      numSets,
		NumWays:      numWays,
		BlockSize:    blockSize,
		victimFinder: NewLRUVictimFinder(),
	}

	t.Reset()

	return t
}

type tagArrayImpl struct {
	NumSets   int
	NumWays   int
	BlockSize int
	Sets      []Set

	victimFinder VictimFinder
	visitCount   uint64
	stats        Stats
}

// TotalSize returns the maximum number of bytes can be stored in the cache
func (d *tagArrayImpl) TotalSize() uint64 {
	return uint64(d.NumSets) * uint64(d.NumWays) * uint64(d.BlockSize)
}

func (d *tagArrayImpl) split(addr uint64) (tag uint64, setID int) {
	line := addr / uint64(d.BlockSize)
	return line / uint64(d.NumSets), int(line % uint64(d.NumSets))
}

// GetSet returns the set that an address maps to.
func (d *tagArrayImpl) GetSet(addr uint64) (set *Set, setID int) {
	_, setID = d.split(addr)
	set = &d.Sets[setID]

	return
}

// Address converts a block back to the address of its first byte.
func (d *tagArrayImpl) Address(block *Block) uint64 {
	line := block.Tag*uint64(d.NumSets) + uint64(block.SetID)
	return line * uint64(d.BlockSize)
}

// Lookup finds the valid block that holds addr without counting an access.
func (d *tagArrayImpl) Lookup(addr uint64) (*Block, bool) {
	tag, setID := d.split(addr)

	for _, block := range d.Sets[setID].Blocks {
		if block.IsValid && block.Tag == tag {
			return block, true
		}
	}

	return nil, false
}

// Access looks addr up as a counted access. A hit becomes the most recently
// used block of its set and is marked dirty by writes.
func (d *tagArrayImpl) Access(addr uint64, write bool) (*Block, bool) {
	block, hit := d.Lookup(addr)
	if !hit {
		d.stats.Misses++
		return nil, false
	}

	d.stats.Hits++
	if write {
		block.IsDirty = true
	}

	d.Visit(block)

	return block, true
}

// Replace returns a copy of the block that inserting addr would evict,
// without changing the array.
func (d *tagArrayImpl) Replace(addr uint64) Block {
	set, _ := d.GetSet(addr)
	return *d.victimFinder.FindVictim(set)
}

// Insert places addr into its set and returns a copy of the block it
// replaced. The address must not be present.
func (d *tagArrayImpl) Insert(
	addr uint64,
	core, instructionID int,
	write bool,
) Block {
	if _, found := d.Lookup(addr); found {
		panic("inserting an address that is already cached")
	}

	set, _ := d.GetSet(addr)
	victim := d.victimFinder.FindVictim(set)
	replaced := *victim

	tag, _ := d.split(addr)
	victim.Tag = tag
	victim.IsValid = true
	victim.IsDirty = write
	victim.Core = core
	victim.InstructionID = instructionID
	d.Visit(victim)

	return replaced
}

// Visit makes the block the most recently used of its set.
func (d *tagArrayImpl) Visit(block *Block) {
	set := &d.Sets[block.SetID]

	set.visitTree.Delete(block)
	d.visitCount++
	block.lastVisit = d.visitCount
	set.visitTree.ReplaceOrInsert(block)
}

// Stats returns the hit and miss counts.
func (d *tagArrayImpl) Stats() Stats {
	return d.stats
}

// Reset will mark all the blocks in the directory invalid
func (d *tagArrayImpl) Reset() {
	d.Sets = make([]Set, d.NumSets)
	d.visitCount = 0
	d.stats = Stats{}

	for i := range d.Sets {
		d.Sets[i].visitTree = btree.New(2)

		for j := 0; j < d.NumWays; j++ {
			block := &Block{SetID: i, WayID: j}
			d.Sets[i].Blocks = append(d.Sets[i].Blocks, block)
			d.Visit(block)
		}
	}
}
