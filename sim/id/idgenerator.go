// Package id provides the unique identifiers assigned to requests and events.
package id

import (
	"log"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"
)

// IDGenerator can generate IDs.
type IDGenerator interface {
	Generate() string
}

var (
	generatorLock sync.Mutex
	generator     IDGenerator
)

// UseSequentialIDGenerator makes every later call to Generate return
// increasing decimal numbers. Sequential IDs keep runs reproducible.
func UseSequentialIDGenerator() {
	setGenerator(&sequentialIDGenerator{})
}

// UseParallelIDGenerator switches to globally unique xid IDs. The IDs are no
// longer deterministic.
func UseParallelIDGenerator() {
	setGenerator(parallelIDGenerator{})
}

func setGenerator(g IDGenerator) {
	generatorLock.Lock()
	defer generatorLock.Unlock()

	if generator != nil {
		log.Panic("cannot change id generator type after using it")
	}

	generator = g
}

// NewIDGenerator returns a fresh sequential generator, independent of the
// package-level one.
func NewIDGenerator() IDGenerator {
	return &sequentialIDGenerator{}
}

// Generate returns an ID from the package-level generator.
func Generate() string {
	generatorLock.Lock()
	if generator == nil {
		generator = &sequentialIDGenerator{}
	}
	g := generator
	generatorLock.Unlock()

	return g.Generate()
}

type sequentialIDGenerator struct {
	nextID uint64
}

func (g *sequentialIDGenerator) Generate() string {
	idNumber := atomic.AddUint64(&g.nextID, 1)
	id := strconv.FormatUint(idNumber, 10)

	return id
}

type parallelIDGenerator struct{}

func (g parallelIDGenerator) Generate() string {
	return xid.New().String()
}
