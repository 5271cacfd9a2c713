package engine

import (
	"github.com/roach88/rtfm/internal/ir"
)

// Controller is the lock manager's view of the interrupt controller.
// Mask raises the level below which activations are held pending and
// returns the previous level; Unmask restores a level previously returned
// by Mask.
type Controller interface {
	Mask(ceiling ir.Priority) (prior ir.Priority)
	Unmask(prior ir.Priority)
}

// NVIC simulates a nested vectored interrupt controller with a base
// priority mask. Activations at or below the mask level stay pending;
// every posted activation is delivered exactly once.
//
// Mask, Unmask and Activate serialize on one mutex, so no activation is
// lost or delivered twice across a mask transition.
type NVIC struct {
	*pendingQueue
	level ir.Priority
}

// NewNVIC returns a controller at the idle level with nothing pending.
func NewNVIC() *NVIC {
	return &NVIC{pendingQueue: newPendingQueue(), level: ir.IdlePriority}
}

// Mask implements Controller.
func (n *NVIC) Mask(ceiling ir.Priority) ir.Priority {
	n.mu.Lock()
	defer n.mu.Unlock()
	prior := n.level
	n.level = ceiling
	return prior
}

// Unmask implements Controller.
func (n *NVIC) Unmask(prior ir.Priority) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.level = prior
}

// Level returns the current mask level.
func (n *NVIC) Level() ir.Priority {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.level
}

// Activate records an activation as pending. Safe from any goroutine.
// Returns false once the controller is closed.
func (n *NVIC) Activate(a Activation) bool {
	return n.Post(a)
}

// next takes the activation that should run now, if any.
func (n *NVIC) next() (Activation, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.takeAbove(n.level)
}

// Pending returns the pending activations of one task.
func (n *NVIC) Pending(task ir.TaskID) int {
	return n.count(task)
}
