package model

import "github.com/roach88/modelsync/internal/language"

// MutationOption configures one top-level node store call.
type MutationOption func(*mutation)

// WithCause stamps every notification of the call with id instead of a
// freshly minted one. Replication passes the causal id of the remote change.
func WithCause(id CausalID) MutationOption {
	return func(m *mutation) { m.cause = id }
}

// mutation carries the per-call state shared by all notifications it emits.
type mutation struct {
	cause CausalID
}

func newMutation(opts []MutationOption) *mutation {
	m := &mutation{}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// causeFor returns the call's causal id, minting it on first use.
func (m *mutation) causeFor(nt Notifier) CausalID {
	if m.cause == "" {
		m.cause = nt.NewCause()
	}
	return m.cause
}

// emit delivers the notification built by build to the partition rooted at
// root. Trees without a notifier mutate silently.
func (m *mutation) emit(root *Node, build func(h Header) Notification) {
	nt := root.notifier
	if nt == nil {
		return
	}
	nt.Notify(build(Header{ID: m.causeFor(nt), Context: root.id}))
}

// feature checks that f is declared by n's lineage and has the given kind.
func (n *Node) feature(f *language.Feature, kind language.FeatureKind) error {
	if f == nil {
		return n.fail(ErrCodeUnknownFeature, nil, "nil feature")
	}
	if !n.classifier.Declares(f) {
		return n.fail(ErrCodeUnknownFeature, f, "not declared by %s", n.classifier.Name)
	}
	if f.Kind != kind {
		return n.fail(ErrCodeUnknownFeature, f, "%s is a %s, not a %s", f, f.Kind, kind)
	}
	return nil
}

// validateOwned checks that c may be placed in an owning slot of n. The
// check runs before any state changes.
func (n *Node) validateOwned(f *language.Feature, c *Node) error {
	if c == nil {
		return n.fail(ErrCodeInvalidValue, f, "nil node")
	}
	if c.classifier.Partition {
		return n.fail(ErrCodeInvalidValue, f, "partition %s cannot be owned", c)
	}
	if c.notifier != nil {
		return n.fail(ErrCodeInvalidValue, f, "%s is the root of a notifying partition", c)
	}
	if c.IsAncestorOf(n) {
		return n.fail(ErrCodeInvalidValue, f, "%s is an ancestor of %s", c, n)
	}
	return nil
}

// distinct fails when the same node appears twice in one call.
func (n *Node) distinct(f *language.Feature, nodes []*Node) error {
	seen := make(map[*Node]bool, len(nodes))
	for _, c := range nodes {
		if seen[c] {
			return n.fail(ErrCodeInvalidValue, f, "%s inserted twice", c)
		}
		seen[c] = true
	}
	return nil
}

// sameTree reports whether a and b share a root.
func sameTree(a, b *Node) bool {
	return a.Root() == b.Root()
}

// owned returns the list of containment f, or the annotations when f is nil.
func (n *Node) owned(f *language.Feature) []*Node {
	if f == nil {
		return n.annotations
	}
	return n.children[f]
}

func (n *Node) setOwned(f *language.Feature, list []*Node) {
	switch {
	case f == nil:
		n.annotations = list
	case len(list) == 0:
		delete(n.children, f)
	default:
		n.children[f] = list
	}
}

// detach removes n from its owner and clears the back-link, returning the
// slot it occupied. It is the first half of every re-parenting.
func (n *Node) detach() (slot, bool) {
	p := n.parent
	if p == nil {
		return slot{}, false
	}
	s := slot{parent: p, feature: n.containment}
	list := p.owned(s.feature)
	s.index = indexOf(list, n)
	p.setOwned(s.feature, removeAt(list, s.index))
	n.parent = nil
	n.containment = nil
	return s, true
}

// attach splices c into the owned list f of n (annotations for nil f) at
// index and sets the back-link.
func (n *Node) attach(f *language.Feature, index int, c *Node) {
	n.setOwned(f, insertAt(n.owned(f), index, c))
	c.parent = n
	c.containment = f
}

// slot is a (parent, feature, index) position. feature is nil for annotations.
type slot struct {
	parent  *Node
	feature *language.Feature
	index   int
}

func indexOf[T comparable](list []T, v T) int {
	for i, x := range list {
		if x == v {
			return i
		}
	}
	return -1
}

func insertAt[T any](list []T, index int, v T) []T {
	list = append(list, v)
	copy(list[index+1:], list[index:])
	list[index] = v
	return list
}

func removeAt[T any](list []T, index int) []T {
	out := append(list[:index:index], list[index+1:]...)
	if len(out) == 0 {
		return nil
	}
	return out
}
