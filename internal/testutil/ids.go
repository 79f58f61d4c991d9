package testutil

import (
	"fmt"
	"sync"
)

// FixedIDGenerator returns the same trace ID every time, so CLI output can
// be compared byte for byte.
//
// Thread-safety: FixedIDGenerator is stateless and safe for concurrent use.
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a generator returning id. If id is empty,
// Generate returns "test-trace-default".
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	if id == "" {
		id = "test-trace-default"
	}
	return &FixedIDGenerator{id: id}
}

// Generate returns the fixed ID.
func (g *FixedIDGenerator) Generate() string {
	return g.id
}

// SequentialIDGenerator returns trace-0001, trace-0002, ...
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequentialIDGenerator struct {
	mu  sync.Mutex
	seq int64
}

// NewSequentialIDGenerator creates a generator whose first ID is trace-0001.
func NewSequentialIDGenerator() *SequentialIDGenerator {
	return &SequentialIDGenerator{}
}

// Generate returns the next ID.
func (g *SequentialIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("trace-%04d", g.seq)
}

// Reset restarts the sequence. After Reset the next ID is trace-0001.
func (g *SequentialIDGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}
