// Package journal persists partition snapshots and the notifications
// applied to them in SQLite, so a partition can be rebuilt later by
// replaying its notifications through a replicator.
//
// Every notification is stored as canonical JSON (see package codec)
// together with a content hash. Entries carry a sequence number from a
// logical clock; Entries returns them in ascending order, which is the
// order Replay applies them in.
//
// The database runs in WAL mode with a single connection.
package journal
