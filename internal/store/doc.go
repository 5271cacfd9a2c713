// Package store provides SQLite-backed storage for exploration results.
//
// Three tables hold the data the command line tools pass between steps:
//   - runs: one exploration of an application, identified by a UUIDv7 and
//     ordered by a logical seq
//   - vectors: the test vectors of a run, keyed by run and content-addressed
//     vector id, so rewriting a vector is a no-op
//   - measurements: timing points of replayed vectors
//
// Ordering always comes from seq columns or ids, never from timestamps.
// Reads order by (seq, id COLLATE BINARY) and return empty slices rather
// than nil.
//
// Assignments are stored as canonical JSON so that a vector read back
// hashes to the id it was stored under.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
