// Package ir holds the shared data model of the scheduler and the
// exploration harness: application declarations, test vectors, trace
// records, and their canonical identities.
//
// ir imports nothing internal. Every other package builds on it.
//
// Conventions:
//   - JSON tags are snake_case
//   - no floats; cycle counts and values are integers
//   - time is measured in logical cycles, never wall-clock
package ir
