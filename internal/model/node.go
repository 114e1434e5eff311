package model

import (
	"fmt"

	"github.com/roach88/modelsync/internal/ir"
	"github.com/roach88/modelsync/internal/language"
)

// CausalID identifies the actor or session that triggered a mutation.
// Replication uses it to recognize and suppress its own echoes.
type CausalID string

// Notifier receives the notifications of a partition. It is attached to a
// root node and implemented by the pipeline producer.
type Notifier interface {
	// NewCause mints a causal id for a top-level call without WithCause.
	NewCause() CausalID
	// Notify delivers a committed mutation.
	Notify(n Notification)
}

// Node is one element of a model tree.
//
// Invariants:
//   - parent != nil iff the node sits in exactly one containment slot
//     (containment != nil) or annotation slot (containment == nil) of parent
//   - every node in children/annotations has its back-link pointing here
//   - single-valued features hold slices of length 0 or 1
type Node struct {
	id         string
	classifier *language.Classifier

	parent      *Node
	containment *language.Feature

	properties  map[*language.Feature]ir.Value
	children    map[*language.Feature][]*Node
	references  map[*language.Feature][]ReferenceTarget
	annotations []*Node

	notifier Notifier
}

// NewNode creates a detached node. The classifier is fixed for the node's lifetime.
func NewNode(id string, classifier *language.Classifier) *Node {
	if classifier == nil {
		panic(fmt.Sprintf("model: node %q without classifier", id))
	}
	return &Node{
		id:         id,
		classifier: classifier,
		properties: make(map[*language.Feature]ir.Value),
		children:   make(map[*language.Feature][]*Node),
		references: make(map[*language.Feature][]ReferenceTarget),
	}
}

// ID returns the node identity.
func (n *Node) ID() string { return n.id }

// Classifier returns the node's schema type.
func (n *Node) Classifier() *language.Classifier { return n.classifier }

// Parent returns the owner, or nil for a root.
func (n *Node) Parent() *Node { return n.parent }

// ContainingFeature returns the containment holding the node, or nil when
// the node is a root or an annotation.
func (n *Node) ContainingFeature() *language.Feature { return n.containment }

// IsAnnotation reports whether the node currently sits in an annotation slot.
func (n *Node) IsAnnotation() bool { return n.parent != nil && n.containment == nil }

// Root returns the topmost ancestor (n itself for a root).
func (n *Node) Root() *Node {
	r := n
	for r.parent != nil {
		r = r.parent
	}
	return r
}

// IsAncestorOf reports whether n is d or one of d's ancestors.
func (n *Node) IsAncestorOf(d *Node) bool {
	for x := d; x != nil; x = x.parent {
		if x == n {
			return true
		}
	}
	return false
}

// Annotations returns a copy of the annotation list.
func (n *Node) Annotations() []*Node {
	return append([]*Node(nil), n.annotations...)
}

// Descendants returns the containment and annotation subtree below n in
// depth-first order. n itself is included first when self is true.
func (n *Node) Descendants(self bool) []*Node {
	var out []*Node
	var walk func(*Node)
	walk = func(x *Node) {
		out = append(out, x)
		for _, f := range x.classifier.AllFeatures() {
			if f.Kind == language.Containment {
				for _, c := range x.children[f] {
					walk(c)
				}
			}
		}
		for _, a := range x.annotations {
			walk(a)
		}
	}
	walk(n)
	if !self {
		out = out[1:]
	}
	return out
}

// AttachNotifier makes n the root of a notifying partition.
func (n *Node) AttachNotifier(nt Notifier) error {
	if n.parent != nil {
		return n.fail(ErrCodeInvalidValue, nil, "notifier can only be attached to a root node")
	}
	n.notifier = nt
	return nil
}

// DetachNotifier silences the partition rooted at n.
func (n *Node) DetachNotifier() { n.notifier = nil }

// Notifier returns the notifier attached to n, if any.
func (n *Node) Notifier() Notifier { return n.notifier }

func (n *Node) String() string {
	return fmt.Sprintf("%s(%s)", n.classifier.Name, n.id)
}

// ReferenceTarget is one entry of a reference feature. Target is set when the
// target node is known locally; ResolveInfo is a human-readable hint used to
// resolve the target otherwise. References never own their target.
type ReferenceTarget struct {
	Target      *Node
	TargetID    string
	ResolveInfo string
}

// RefTo returns a resolved target for n.
func RefTo(n *Node) ReferenceTarget {
	return ReferenceTarget{Target: n, TargetID: n.id}
}

// RefInfo returns a target known only by id and resolve info. Either may be empty.
func RefInfo(id, resolveInfo string) ReferenceTarget {
	return ReferenceTarget{TargetID: id, ResolveInfo: resolveInfo}
}

// ID returns the target node identity, or "" when unknown.
func (r ReferenceTarget) ID() string {
	if r.Target != nil {
		return r.Target.id
	}
	return r.TargetID
}

// Same reports whether r and o denote the same entry value: the same node
// when either is resolved, otherwise the same id and resolve info.
func (r ReferenceTarget) Same(o ReferenceTarget) bool {
	if r.Target != nil || o.Target != nil {
		return r.Target == o.Target
	}
	return r.TargetID == o.TargetID && r.ResolveInfo == o.ResolveInfo
}

func (r ReferenceTarget) empty() bool {
	return r.Target == nil && r.TargetID == "" && r.ResolveInfo == ""
}

func (r ReferenceTarget) String() string {
	if r.ResolveInfo != "" {
		return fmt.Sprintf("->%s[%s]", r.ID(), r.ResolveInfo)
	}
	return "->" + r.ID()
}
