// Package memory provides the in-memory snapshot session table.
//
// Sessions are keyed by scope. Per-unit sessions live in a sharded map and
// the aggregate session in a single slot guarded by the table lock.
//
// Locking:
//
// Inserts always take the table lock first and a shard lock second, so an
// aggregate insert observes every per-unit session and no per-unit insert
// can slip past a live aggregate session. Lookups and removals of per-unit
// sessions take only their shard lock.
package memory
