package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/rtfm/internal/engine"
)

var (
	_ engine.RunIDGenerator = (*SequentialRunIDs)(nil)
	_ engine.RunIDGenerator = FixedRunID("")
)

func TestSequentialRunIDs(t *testing.T) {
	gen := NewSequentialRunIDs("explore")
	assert.Equal(t, "explore-0001", gen.Generate())
	assert.Equal(t, "explore-0002", gen.Generate())

	gen.Reset()
	assert.Equal(t, "explore-0001", gen.Generate())
}

func TestSequentialRunIDs_DefaultPrefix(t *testing.T) {
	assert.Equal(t, "run-0001", NewSequentialRunIDs("").Generate())
}

func TestSequentialRunIDs_Deterministic(t *testing.T) {
	a := NewSequentialRunIDs("x")
	b := NewSequentialRunIDs("x")
	for i := 0; i < 50; i++ {
		assert.Equal(t, a.Generate(), b.Generate())
	}
}

func TestSequentialRunIDs_ThreadSafe(t *testing.T) {
	gen := NewSequentialRunIDs("t")
	const workers, calls = 20, 50

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[string]bool)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < calls; j++ {
				id := gen.Generate()
				mu.Lock()
				assert.False(t, seen[id], "duplicate id %s", id)
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, workers*calls)
}

func TestFixedRunID(t *testing.T) {
	id := FixedRunID("run-fixed")
	assert.Equal(t, "run-fixed", id.Generate())
	assert.Equal(t, "run-fixed", id.Generate())
}
