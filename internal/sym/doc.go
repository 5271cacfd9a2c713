// Package sym is the evaluation domain shared by the scheduler and the
// exploration harness.
//
// Resource values are affine integer expressions over symbolic variables
// with a fixed bit width. On the scheduler every value is a constant and
// every operation evaluates directly. Under exploration, resources start
// as variables; a comparison or checked operation whose outcome depends on
// them becomes a decision, both feasible outcomes are recorded, and the
// path continues with the chosen constraint added.
//
// A Path is driven by re-execution: the explorer runs the task body once
// per forced decision prefix and collects the untaken alternatives the run
// discovered. Faults and aborted paths unwind the body with a panic
// carrying *Fault or *Abort.
//
// Widths are limited to 32 bits so expressions never leave int64.
package sym
