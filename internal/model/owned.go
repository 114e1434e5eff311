package model

import "github.com/roach88/modelsync/internal/language"

// Containments and annotations share ownership semantics. The helpers below
// implement both; a nil feature denotes the annotation list.

// place moves c into the owned list f of n at index (clamped to the list
// length after c is detached) and emits the notification describing where
// c came from. Placing c where it already is changes nothing.
func (n *Node) place(m *mutation, f *language.Feature, index int, c *Node) {
	srcRoot := c.Root()
	from, moved := c.detach()
	if index > len(n.owned(f)) {
		index = len(n.owned(f))
	}
	n.attach(f, index, c)
	if moved && from.parent == n && from.feature == f && from.index == index {
		return
	}

	root := n.Root()
	switch {
	case !moved:
		m.emit(root, func(h Header) Notification { return added(h, n, f, index, c) })
	case from.feature == nil && f == nil && from.parent == n:
		m.emit(root, func(h Header) Notification {
			return &AnnotationMovedInSameParent{Header: h, Parent: n, OldIndex: from.index, NewIndex: index, MovedAnnotation: c}
		})
	case from.feature == nil && f == nil && srcRoot == root:
		m.emit(root, func(h Header) Notification {
			return &AnnotationMovedFromOtherParent{Header: h, OldParent: from.parent, OldIndex: from.index,
				NewParent: n, NewIndex: index, MovedAnnotation: c}
		})
	case from.feature == nil || f == nil || srcRoot != root:
		m.emit(srcRoot, func(h Header) Notification { return deleted(h, from, c) })
		m.emit(root, func(h Header) Notification { return added(h, n, f, index, c) })
	case from.parent == n && from.feature == f:
		m.emit(root, func(h Header) Notification {
			return &ChildMovedInSameContainment{Header: h, Parent: n, Containment: f,
				OldIndex: from.index, NewIndex: index, MovedChild: c}
		})
	case from.parent == n:
		m.emit(root, func(h Header) Notification {
			return &ChildMovedFromOtherContainmentInSameParent{Header: h, Parent: n,
				OldContainment: from.feature, OldIndex: from.index, NewContainment: f, NewIndex: index, MovedChild: c}
		})
	default:
		m.emit(root, func(h Header) Notification {
			return &ChildMovedFromOtherContainment{Header: h, OldParent: from.parent, OldContainment: from.feature,
				OldIndex: from.index, NewParent: n, NewContainment: f, NewIndex: index, MovedChild: c}
		})
	}
}

// replace puts c in place of the node at index of the owned list f. The
// replaced node becomes a detached root. When c moves within the same list
// the reported index is the replaced node's position after c left.
func (n *Node) replace(m *mutation, f *language.Feature, index int, c *Node) {
	old := n.owned(f)[index]
	srcRoot := c.Root()
	from, moved := c.detach()

	r := indexOf(n.owned(f), old)
	n.setOwned(f, removeAt(n.owned(f), r))
	old.parent = nil
	old.containment = nil
	n.attach(f, r, c)

	root := n.Root()
	switch {
	case !moved:
		m.emit(root, func(h Header) Notification { return replaced(h, n, f, r, c, old) })
	case from.feature == nil && f == nil && from.parent == n:
		m.emit(root, func(h Header) Notification {
			return &AnnotationMovedAndReplacedInSameParent{Header: h, Parent: n, OldIndex: from.index, NewIndex: r,
				MovedAnnotation: c, ReplacedAnnotation: old}
		})
	case from.feature == nil && f == nil && srcRoot == root:
		m.emit(root, func(h Header) Notification {
			return &AnnotationMovedAndReplacedFromOtherParent{Header: h, OldParent: from.parent, OldIndex: from.index,
				NewParent: n, NewIndex: r, MovedAnnotation: c, ReplacedAnnotation: old}
		})
	case from.feature == nil || f == nil || srcRoot != root:
		m.emit(srcRoot, func(h Header) Notification { return deleted(h, from, c) })
		m.emit(root, func(h Header) Notification { return replaced(h, n, f, r, c, old) })
	case from.parent == n && from.feature == f:
		m.emit(root, func(h Header) Notification {
			return &ChildMovedAndReplacedInSameContainment{Header: h, Parent: n, Containment: f,
				OldIndex: from.index, NewIndex: r, MovedChild: c, ReplacedChild: old}
		})
	case from.parent == n:
		m.emit(root, func(h Header) Notification {
			return &ChildMovedAndReplacedFromOtherContainmentInSameParent{Header: h, Parent: n,
				OldContainment: from.feature, OldIndex: from.index, NewContainment: f, NewIndex: r,
				MovedChild: c, ReplacedChild: old}
		})
	default:
		m.emit(root, func(h Header) Notification {
			return &ChildMovedAndReplacedFromOtherContainment{Header: h, OldParent: from.parent,
				OldContainment: from.feature, OldIndex: from.index, NewParent: n, NewContainment: f, NewIndex: r,
				MovedChild: c, ReplacedChild: old}
		})
	}
}

// unplace detaches the given members of the owned list f. Nodes not in the
// list are skipped.
func (n *Node) unplace(m *mutation, f *language.Feature, nodes []*Node) {
	root := n.Root()
	for _, c := range nodes {
		if c == nil || c.parent != n || c.containment != f {
			continue
		}
		from, _ := c.detach()
		m.emit(root, func(h Header) Notification { return deleted(h, from, c) })
	}
}

func added(h Header, parent *Node, f *language.Feature, index int, c *Node) Notification {
	if f == nil {
		return &AnnotationAdded{Header: h, Parent: parent, Index: index, NewAnnotation: c}
	}
	return &ChildAdded{Header: h, Parent: parent, Containment: f, Index: index, NewChild: c}
}

func deleted(h Header, from slot, c *Node) Notification {
	if from.feature == nil {
		return &AnnotationDeleted{Header: h, Parent: from.parent, Index: from.index, DeletedAnnotation: c}
	}
	return &ChildDeleted{Header: h, Parent: from.parent, Containment: from.feature, Index: from.index, DeletedChild: c}
}

func replaced(h Header, parent *Node, f *language.Feature, index int, c, old *Node) Notification {
	if f == nil {
		return &AnnotationReplaced{Header: h, Parent: parent, Index: index, NewAnnotation: c, ReplacedAnnotation: old}
	}
	return &ChildReplaced{Header: h, Parent: parent, Containment: f, Index: index, NewChild: c, ReplacedChild: old}
}
