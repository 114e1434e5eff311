// Package codec converts notifications to and from a JSON wire form.
//
// An encoded notification is an object with the fields
//
//	kind      catalog name, e.g. "ChildAdded"
//	cause     causal id
//	context   id of the partition root the notification was emitted to
//	affected  ids of the owners whose features changed
//
// plus the kind's own fields in lowerCamel case. Nodes that already exist
// on the receiving side travel as {id, classifier}. Nodes that a
// notification introduces (the new child of ChildAdded, the new annotation
// of AnnotationReplaced, ...) travel as full subtrees so the receiver can
// build them. Features travel by key and reference entries as
// {id, resolveInfo}.
//
// Encoding uses ir.MarshalCanonical, so two encodings of the same
// notification are byte-identical. Golden traces depend on this.
package codec
