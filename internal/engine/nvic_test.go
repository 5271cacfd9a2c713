package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rtfm/internal/ir"
)

func act(task ir.TaskID, prio ir.Priority, seq int64) Activation {
	return Activation{Task: task, Priority: prio, Seq: seq}
}

func TestNVIC_HighestPriorityFirst(t *testing.T) {
	n := NewNVIC()
	n.Activate(act(0, 1, 1))
	n.Activate(act(1, 3, 2))
	n.Activate(act(2, 2, 3))

	var got []ir.TaskID
	for {
		a, ok := n.next()
		if !ok {
			break
		}
		got = append(got, a.Task)
	}
	assert.Equal(t, []ir.TaskID{1, 2, 0}, got)
}

func TestNVIC_FIFOAmongEqualPriorities(t *testing.T) {
	n := NewNVIC()
	n.Activate(act(4, 2, 1))
	n.Activate(act(7, 2, 2))
	n.Activate(act(4, 2, 3))

	var seqs []int64
	for {
		a, ok := n.next()
		if !ok {
			break
		}
		seqs = append(seqs, a.Seq)
	}
	assert.Equal(t, []int64{1, 2, 3}, seqs)
}

func TestNVIC_MaskHoldsAtOrBelowLevel(t *testing.T) {
	n := NewNVIC()
	prior := n.Mask(2)
	assert.Equal(t, ir.IdlePriority, prior)

	n.Activate(act(0, 1, 1))
	n.Activate(act(1, 2, 2))
	_, ok := n.next()
	assert.False(t, ok, "equal to the mask level must stay pending")
	assert.Equal(t, 2, n.Len())

	n.Activate(act(2, 3, 3))
	a, ok := n.next()
	require.True(t, ok)
	assert.Equal(t, ir.TaskID(2), a.Task)

	n.Unmask(prior)
	a, ok = n.next()
	require.True(t, ok)
	assert.Equal(t, ir.TaskID(1), a.Task)
	assert.Equal(t, 1, n.Pending(0))
}

func TestNVIC_ActivateAfterClose(t *testing.T) {
	n := NewNVIC()
	n.Close()
	assert.False(t, n.Activate(act(0, 1, 1)))
	assert.True(t, n.closedAndEmpty())
}

func TestNVIC_WaitSignalsActivation(t *testing.T) {
	n := NewNVIC()
	go func() {
		time.Sleep(10 * time.Millisecond)
		n.Activate(act(0, 1, 1))
	}()

	select {
	case <-n.Wait():
	case <-time.After(time.Second):
		t.Fatal("wait did not signal")
	}
	assert.Equal(t, 1, n.Len())
}

func TestNVIC_ConcurrentActivations(t *testing.T) {
	n := NewNVIC()
	const sources = 10
	const each = 100

	var wg sync.WaitGroup
	for s := 0; s < sources; s++ {
		wg.Add(1)
		go func(task ir.TaskID) {
			defer wg.Done()
			for i := 0; i < each; i++ {
				n.Activate(act(task, 1, int64(i)))
			}
		}(ir.TaskID(s))
	}
	wg.Wait()

	delivered := 0
	for {
		if _, ok := n.next(); !ok {
			break
		}
		delivered++
	}
	assert.Equal(t, sources*each, delivered, "every activation delivered exactly once")
}
