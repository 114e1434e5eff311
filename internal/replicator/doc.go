// Package replicator keeps a mirror of a partition consistent with its
// origin by exchanging notifications instead of state.
//
// A Replicator owns one side of a replicated partition pair. It has two
// halves:
//
// Outbound: a registry hook taps the partition's pipeline and keeps the
// shared registry in step with ownership changes; a forwarder subscribed
// after the filter sends every local notification to the Sender. A pipeline
// may serve several partitions; each replicator forwards only the parts of a
// unit produced in its own partition.
//
// Inbound: Apply translates a notification produced on the other side into
// the equivalent node store calls on local instances, found through the
// registry. The calls carry the inbound causal id and run inside a
// suppression scope on the local filter, so the resulting local
// notifications are never sent back to their origin.
//
// FAILURES:
//
// An inbound notification naming a node that must exist locally but is not
// registered, or one whose translation is rejected by the node store, means
// the mirror has diverged. The replicator then marks itself desynchronized
// and refuses further input. A notification of an unknown shape is a
// protocol violation and is rejected without retry.
package replicator
