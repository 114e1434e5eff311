// Package model implements the node store and the notification catalog.
//
// A Node holds property values, ordered containment lists, ordered reference
// target lists and an ordered annotation list, and keeps a back-link to its
// single owner. Every mutation validates against the node's classifier
// before touching state, so a failed call leaves the tree unchanged.
//
// OWNERSHIP:
//
// A node is owned by at most one containment slot or annotation slot. Placing
// an owned node somewhere else always runs the same two steps: detach it from
// its current slot, then attach it to the new one. This holds even when the
// old and new owner are the same node.
//
// NOTIFICATIONS:
//
// Each successful mutation produces exactly one notification describing it
// (batched inserts produce one per element, in index order). Notifications
// are delivered to the Notifier attached to the partition root of the
// mutated node; nodes in trees without a notifier mutate silently. Moves
// between two partitions are reported as a deletion to the source partition
// and an addition to the destination partition.
//
// The causal id of a notification is the one passed with WithCause, or a
// fresh id minted by the notifier once per top-level call.
package model
