// Package pipeline delivers node store notifications to subscribers.
//
// A Pipeline is the model.Notifier of one or more partitions. Every
// notification it receives passes, synchronously and in the mutating
// goroutine, through a fixed chain of stages:
//
//  1. Producer: mints causal ids and hands each atomic notification to the
//     taps (observers that must see every change, such as the registry hook)
//  2. Composer: while a transaction is open, buffers notifications and emits
//     them as one model.Composite when the outermost transaction ends
//  3. Filter: drops notifications whose causal id is currently suppressed
//  4. Dispatcher: delivers to subscribers by kind, by group, or to all
//
// ORDERING:
//
// Notifications leave the pipeline in the order their mutations committed.
// Nothing in the pipeline reorders, retries or drops except the Filter.
//
// CONCURRENCY:
//
// The chain runs on the caller's goroutine. Subscription and suppression
// state is guarded by mutexes, but a partition must have a single logical
// writer.
package pipeline
