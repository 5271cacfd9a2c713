// Package engine implements the static-priority preemptive scheduler and
// the immediate priority-ceiling lock manager.
//
// ARCHITECTURE:
//
// Single-core, interrupt-driven model. Every frame of execution runs on the
// goroutine that called Run, RunUntilIdle or Invoke; preemption nests a new
// frame on the Go call stack, exactly as a hardware interrupt nests on the
// processor stack. Activations may be posted from any goroutine.
//
// Execution Threshold:
// The threshold is the interrupt controller's mask level. Starting a frame
// raises it to the task's priority; a claim raises it to the resource
// ceiling when the frame runs below that ceiling. Every raise is paired
// with a restore of the exact prior value, in LIFO order, by scoped guards.
//
// Preemption points:
// Each resource operation costs one cycle and is followed by a preemption
// check. Claim entry and claim release (after the unmask) are preemption
// points too. A pending activation runs only if its priority exceeds the
// threshold, so equal priorities never preempt each other.
//
// Values:
// Resource values are sym.Values. The scheduler runs them concretely; the
// exploration harness installs a symbolic sym.Path and the same task bodies
// enumerate their paths.
package engine
