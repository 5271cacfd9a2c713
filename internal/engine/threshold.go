package engine

import (
	"github.com/roach88/rtfm/internal/ir"
)

// Threshold is the execution threshold: no activation of priority at or
// below it may start. Raises and restores go through the controller and
// nest strictly; each restore must pass the value its raise returned.
//
// Only the engine goroutine touches a Threshold.
type Threshold struct {
	ctrl    Controller
	current ir.Priority
	saved   []ir.Priority
}

// NewThreshold returns a threshold at the idle level.
func NewThreshold(ctrl Controller) *Threshold {
	return &Threshold{ctrl: ctrl, current: ir.IdlePriority}
}

// Current returns the threshold.
func (t *Threshold) Current() ir.Priority {
	return t.current
}

// Depth returns the number of unrestored raises.
func (t *Threshold) Depth() int {
	return len(t.saved)
}

// Raise masks the controller at to and returns the prior value. The
// threshold only moves up.
func (t *Threshold) Raise(to ir.Priority) ir.Priority {
	if to <= t.current {
		misuse("raise", "threshold %d is not above current %d", to, t.current)
	}
	prior := t.ctrl.Mask(to)
	if prior != t.current {
		misuse("raise", "controller level %d disagrees with threshold %d", prior, t.current)
	}
	t.saved = append(t.saved, prior)
	t.current = to
	return prior
}

// Restore undoes the most recent raise.
func (t *Threshold) Restore(prior ir.Priority) {
	n := len(t.saved)
	if n == 0 {
		misuse("restore", "no raise to restore")
	}
	if t.saved[n-1] != prior {
		misuse("restore", "restoring %d but the innermost raise saved %d", prior, t.saved[n-1])
	}
	t.saved = t.saved[:n-1]
	t.current = prior
	t.ctrl.Unmask(prior)
}
