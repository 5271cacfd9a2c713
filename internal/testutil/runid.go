// Package testutil provides deterministic stand-ins for tests.
package testutil

import (
	"fmt"
	"sync"
)

// SequentialRunIDs generates run ids "<prefix>-0001", "<prefix>-0002", ...
// Two generators with the same prefix produce the same sequence, which
// keeps stored runs and command output comparable across test runs.
//
// Implements engine.RunIDGenerator. Safe for concurrent use.
type SequentialRunIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialRunIDs creates a generator. An empty prefix means "run".
func NewSequentialRunIDs(prefix string) *SequentialRunIDs {
	if prefix == "" {
		prefix = "run"
	}
	return &SequentialRunIDs{prefix: prefix}
}

// Generate returns the next id.
func (g *SequentialRunIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}

// Reset restarts the sequence at 1.
func (g *SequentialRunIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}

// FixedRunID returns the same id on every call.
type FixedRunID string

// Generate returns the fixed id.
func (f FixedRunID) Generate() string {
	return string(f)
}
