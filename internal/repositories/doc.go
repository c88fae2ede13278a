// Package repositories implements SQLite persistence for migration run history.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// All repositories support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [RunRepository] : One row per migration run with its final statistics and status
//   - [ItemRepository] : Per-entry results of a run in source order
//   - [RunRecorderAdapter] : Writes a finished run and its items in a single transaction for the migration engine
//
// Sequence numbers provide stable, human-readable ordering (e.g., run #15) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
