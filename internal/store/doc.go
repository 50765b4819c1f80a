// Package store provides SQLite-backed storage for harness traces.
//
// A session is one harness instance. Every request the harness sends to a
// scope and every event it receives back is appended as a record:
//
//   - sessions: id (UUIDv7), start time and the scope ids it talked to
//   - records: one row per frame, keyed by (session_id, seq)
//
// # Ordering
//
// Records are ordered by seq, a per-session logical clock assigned by the
// Recorder. Queries always ORDER BY seq ASC. Sessions are listed by id, which
// sorts by creation time because ids are UUIDv7.
//
// Payloads are stored as canonical JSON so traces of identical runs are
// byte-identical.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
