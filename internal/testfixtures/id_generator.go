package testfixtures

import (
	"encoding/binary"
	"sync"

	"github.com/google/uuid"
)

// IDGenerator produces deterministic UUIDs for tests. The n-th id carries n
// in its last eight bytes, so ids sort in generation order.
type IDGenerator struct {
	mu      sync.Mutex
	prefix  byte
	counter uint64
}

// NewIDGenerator constructs a generator whose ids start with the given byte.
func NewIDGenerator(prefix byte) *IDGenerator {
	return &IDGenerator{prefix: prefix}
}

// Next returns the next identifier in the sequence.
func (g *IDGenerator) Next() uuid.UUID {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return g.at(g.counter)
}

// At returns the id Next yields for counter n without advancing.
func (g *IDGenerator) At(n uint64) uuid.UUID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.at(n)
}

func (g *IDGenerator) at(n uint64) uuid.UUID {
	var id uuid.UUID
	id[0] = g.prefix
	binary.BigEndian.PutUint64(id[8:], n)
	return id
}

// NextFunc exposes Next as a function suitable for dependency injection.
func (g *IDGenerator) NextFunc() func() uuid.UUID {
	if g == nil {
		return uuid.New
	}
	return g.Next
}

// SetCounter overrides the internal counter, enabling deterministic resets.
func (g *IDGenerator) SetCounter(counter uint64) {
	g.mu.Lock()
	g.counter = counter
	g.mu.Unlock()
}
