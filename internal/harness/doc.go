// Package harness validates applications by exploration, replay,
// measurement and scenario simulation.
//
// # Exploration
//
// Explore treats every resource a task declares as a fresh symbolic
// variable and enumerates the feasible paths of the task body depth
// first. Each run re-executes the body from the start with a forced
// prefix of branch decisions; every decision where both outcomes were
// feasible pushes the untaken prefix for a later run. Each finished path
// yields one ir.TestVector: a concrete assignment from the solver, the
// path id and the observed outcome.
//
// A fault site is reported once. Later paths that would fault at the same
// site are pruned and counted in ExploreStats.Suppressed, so the set of
// vectors covers every fault location but not every way to reach it.
//
// # Scenarios
//
// Scenarios are YAML files that drive the concrete scheduler:
//
//	name: preempt-at-release
//	description: "B arrives while A holds X"
//	app: preempt
//	values: {X: 0}
//	schedule:
//	  - {at: 0, task: A}
//	  - {at: 2, task: B}
//	assertions:
//	  - type: trace_order
//	    events: ["exit A X", "start B", "finish B", "resume A"]
//	  - type: preempts
//	    task: B
//	    preempted: A
//	  - type: final_value
//	    resource: X
//	    value: 13
//
// # Assertion Types
//
//   - trace_order: the listed events occur in this order
//   - preempts: task preempts the preempted task at least once
//   - never_concurrent: no two claims of resource overlap, or no two of
//     tasks are ever active at once
//   - final_value: a resource holds value after the schedule drains
//   - max_threshold: no task runs above value, counting claims
//
// A scenario may set spec to a CUE package directory, relative to the
// scenario file, whose declaration replaces the built-in one while the
// built-in task bodies run. Golden snapshots of the trace and final values
// live in testdata/golden.
//
// # Measurement
//
// Measure replays vectors one at a time from a zeroed cycle counter and
// keeps the start, enter, exit and finish points. Analyze turns those into
// claim times, worst-case execution times, blocking times and response
// times.
package harness
