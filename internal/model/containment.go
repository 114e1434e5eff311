package model

import "github.com/roach88/modelsync/internal/language"

// InsertChildren inserts nodes into containment f starting at index, which
// must lie in [0, count]. Each node is detached from its previous owner
// first; one notification is emitted per node, in index order. A node
// already in f is moved so that it ends up at its requested position.
//
// Nodes are placed one at a time: nodes[i] goes to index+i of the list as
// left by nodes[:i]. A member of f taken from ahead of index shortens that
// list, so the batch is not contiguous: on [A B], inserting [X A] at 1
// yields [X B A].
func (n *Node) InsertChildren(f *language.Feature, index int, nodes []*Node, opts ...MutationOption) error {
	if err := n.feature(f, language.Containment); err != nil {
		return err
	}
	count := len(n.children[f])
	if index < 0 || index > count {
		return n.outOfRange(f, index, 0, count)
	}
	if err := n.distinct(f, nodes); err != nil {
		return err
	}
	fresh := 0
	for _, c := range nodes {
		if err := n.validateChild(f, c); err != nil {
			return err
		}
		if c.parent != n || c.containment != f {
			fresh++
		}
	}
	if !f.Multiple && count+fresh > 1 {
		return n.fail(ErrCodeInvalidValue, f, "single containment cannot hold %d children", count+fresh)
	}

	m := newMutation(opts)
	for i, c := range nodes {
		n.place(m, f, index+i, c)
	}
	return nil
}

// AddChildren appends nodes to containment f.
func (n *Node) AddChildren(f *language.Feature, nodes []*Node, opts ...MutationOption) error {
	if err := n.feature(f, language.Containment); err != nil {
		return err
	}
	return n.InsertChildren(f, len(n.children[f]), nodes, opts...)
}

// RemoveChildren detaches nodes from containment f. Nodes that are not
// children of f are ignored.
func (n *Node) RemoveChildren(f *language.Feature, nodes []*Node, opts ...MutationOption) error {
	if err := n.feature(f, language.Containment); err != nil {
		return err
	}
	n.unplace(newMutation(opts), f, nodes)
	return nil
}

// ReplaceChild puts c in place of the child at index, which must lie in
// [0, count). The replaced child becomes a detached root.
func (n *Node) ReplaceChild(f *language.Feature, index int, c *Node, opts ...MutationOption) error {
	if err := n.feature(f, language.Containment); err != nil {
		return err
	}
	count := len(n.children[f])
	if index < 0 || index >= count {
		return n.outOfRange(f, index, 0, count-1)
	}
	if n.children[f][index] == c {
		return nil
	}
	if err := n.validateChild(f, c); err != nil {
		return err
	}
	n.replace(newMutation(opts), f, index, c)
	return nil
}

// SetChild writes single containment f. A nil node empties it; on a
// required containment this leaves it unset.
func (n *Node) SetChild(f *language.Feature, c *Node, opts ...MutationOption) error {
	if err := n.feature(f, language.Containment); err != nil {
		return err
	}
	if f.Multiple {
		return n.fail(ErrCodeInvalidValue, f, "multiple containment cannot be set")
	}
	current := n.children[f]
	switch {
	case c == nil:
		return n.RemoveChildren(f, current, opts...)
	case len(current) == 0:
		return n.InsertChildren(f, 0, []*Node{c}, opts...)
	default:
		return n.ReplaceChild(f, 0, c, opts...)
	}
}

func (n *Node) validateChild(f *language.Feature, c *Node) error {
	if err := n.validateOwned(f, c); err != nil {
		return err
	}
	if !c.classifier.IsA(f.Target) {
		return n.fail(ErrCodeInvalidValue, f, "%s is not a %s", c, f.Target.Name)
	}
	return nil
}
