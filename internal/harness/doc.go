// Package harness runs replication scenarios end to end.
//
// A scenario edits one partition through the node store. Every notification
// the edits produce is encoded with the wire codec, decoded against a second
// copy of the language and applied to a mirror partition. The same
// notifications are journaled to an in-memory SQLite database, and the
// journal is replayed once the steps are done. A scenario passes when the
// mirror and the replay both equal the origin and every assertion holds.
//
// # Scenario Format
//
//	name: move_shapes
//	description: "Reorders shapes; the mirror follows"
//	language: ../shapes.cue
//	partition: {id: geo, classifier: Geometry}
//	cause_prefix: c
//	setup:
//	  - {op: new, id: X, classifier: Circle, properties: {r: 1}}
//	  - {op: insert, node: geo, feature: shapes, nodes: [X]}
//	steps:
//	  - {op: set, node: X, feature: name, value: ex}
//	  - {op: set, node: X, feature: r, value: big, expect_error: INVALID_VALUE}
//	assertions:
//	  - {type: trace_kinds, kinds: [PropertyAdded]}
//	  - {type: property, node: X, feature: name, value: ex}
//
// The language path is resolved relative to the scenario file. Setup runs
// before replication starts and produces no notifications.
//
// # Operations
//
//   - new: create a detached node with optional properties
//   - set: write a single-valued feature; a missing value clears it
//   - insert: insert or move nodes into a containment; append without index
//   - remove: remove nodes from a containment, annotations or reference entries
//   - replace: replace the child or annotation at index with another node
//   - annotate: insert or move annotations; append without index
//   - reference: insert reference entries; append without index
//   - resolve_info: set the resolve info of the entry at index
//   - move_reference: move the entry at index to another reference
//   - begin, end: open and close a transaction
//
// # Assertion Types
//
//   - trace_kinds: the kinds sent over the wire, in order
//   - trace_count: how many atomic notifications of a kind were sent
//   - property: a property value on the mirror; no value means unset
//   - children: the children of a mirror containment
//   - annotations: the annotations of a mirror node
//   - references: the target ids of a mirror reference
//   - absent: nodes the mirror no longer knows
//   - suppressed: how many notifications the mirror held back as echoes
//
// # Golden Traces
//
// RunWithGolden compares the wire trace, one canonical JSON object per line,
// against testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
