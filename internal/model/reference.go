package model

import "github.com/roach88/modelsync/internal/language"

// InsertReferences inserts entries into reference f starting at index, which
// must lie in [0, count]. Duplicate entries are allowed. One notification is
// emitted per entry.
func (n *Node) InsertReferences(f *language.Feature, index int, targets []ReferenceTarget, opts ...MutationOption) error {
	if err := n.feature(f, language.Reference); err != nil {
		return err
	}
	count := len(n.references[f])
	if index < 0 || index > count {
		return n.outOfRange(f, index, 0, count)
	}
	for _, t := range targets {
		if err := n.validateTarget(f, t); err != nil {
			return err
		}
	}
	if !f.Multiple && count+len(targets) > 1 {
		return n.fail(ErrCodeInvalidValue, f, "single reference cannot hold %d entries", count+len(targets))
	}

	m := newMutation(opts)
	root := n.Root()
	for i, t := range targets {
		at := index + i
		n.references[f] = insertAt(n.references[f], at, t)
		m.emit(root, func(h Header) Notification {
			return &ReferenceAdded{Header: h, Parent: n, Reference: f, Index: at, NewTarget: t}
		})
	}
	return nil
}

// AddReferences appends entries to reference f.
func (n *Node) AddReferences(f *language.Feature, targets []ReferenceTarget, opts ...MutationOption) error {
	if err := n.feature(f, language.Reference); err != nil {
		return err
	}
	return n.InsertReferences(f, len(n.references[f]), targets, opts...)
}

// RemoveReferences removes the first entry matching each target. Targets
// without a matching entry are ignored. Reference targets keep their owner.
func (n *Node) RemoveReferences(f *language.Feature, targets []ReferenceTarget, opts ...MutationOption) error {
	if err := n.feature(f, language.Reference); err != nil {
		return err
	}
	m := newMutation(opts)
	root := n.Root()
	for _, t := range targets {
		i := n.indexOfTarget(f, t)
		if i < 0 {
			continue
		}
		old := n.references[f][i]
		n.setReferences(f, removeAt(n.references[f], i))
		m.emit(root, func(h Header) Notification {
			return &ReferenceDeleted{Header: h, Parent: n, Reference: f, Index: i, DeletedTarget: old}
		})
	}
	return nil
}

// RemoveReferenceAt removes the entry at index, which must lie in [0, count).
// Replicas use it where duplicate entries make removal by value ambiguous.
func (n *Node) RemoveReferenceAt(f *language.Feature, index int, opts ...MutationOption) error {
	if err := n.feature(f, language.Reference); err != nil {
		return err
	}
	count := len(n.references[f])
	if index < 0 || index >= count {
		return n.outOfRange(f, index, 0, count-1)
	}
	old := n.references[f][index]
	n.setReferences(f, removeAt(n.references[f], index))
	newMutation(opts).emit(n.Root(), func(h Header) Notification {
		return &ReferenceDeleted{Header: h, Parent: n, Reference: f, Index: index, DeletedTarget: old}
	})
	return nil
}

// ReplaceReference overwrites the entry at index, which must lie in
// [0, count). When only the resolve info differs, a resolve info
// notification is emitted instead of ReferenceChanged.
func (n *Node) ReplaceReference(f *language.Feature, index int, t ReferenceTarget, opts ...MutationOption) error {
	if err := n.feature(f, language.Reference); err != nil {
		return err
	}
	count := len(n.references[f])
	if index < 0 || index >= count {
		return n.outOfRange(f, index, 0, count-1)
	}
	if err := n.validateTarget(f, t); err != nil {
		return err
	}
	old := n.references[f][index]
	if old == t {
		return nil
	}
	if old.Target == t.Target && old.ID() == t.ID() {
		return n.SetResolveInfo(f, index, t.ResolveInfo, opts...)
	}
	n.references[f][index] = t
	newMutation(opts).emit(n.Root(), func(h Header) Notification {
		return &ReferenceChanged{Header: h, Parent: n, Reference: f, Index: index, NewTarget: t, OldTarget: old}
	})
	return nil
}

// SetReference writes single reference f. An empty target clears it.
func (n *Node) SetReference(f *language.Feature, t ReferenceTarget, opts ...MutationOption) error {
	if err := n.feature(f, language.Reference); err != nil {
		return err
	}
	if f.Multiple {
		return n.fail(ErrCodeInvalidValue, f, "multiple reference cannot be set")
	}
	current := n.references[f]
	switch {
	case t.empty():
		return n.RemoveReferences(f, current, opts...)
	case len(current) == 0:
		return n.InsertReferences(f, 0, []ReferenceTarget{t}, opts...)
	default:
		return n.ReplaceReference(f, 0, t, opts...)
	}
}

// SetResolveInfo changes the resolve info of the entry at index. An empty
// info removes it, unless the entry would then identify nothing.
func (n *Node) SetResolveInfo(f *language.Feature, index int, info string, opts ...MutationOption) error {
	if err := n.feature(f, language.Reference); err != nil {
		return err
	}
	count := len(n.references[f])
	if index < 0 || index >= count {
		return n.outOfRange(f, index, 0, count-1)
	}
	entry := n.references[f][index]
	old := entry.ResolveInfo
	if old == info {
		return nil
	}
	entry.ResolveInfo = info
	if entry.empty() {
		return n.fail(ErrCodeInvalidValue, f, "entry %d would identify nothing", index)
	}
	n.references[f][index] = entry

	m := newMutation(opts)
	m.emit(n.Root(), func(h Header) Notification {
		switch {
		case old == "":
			return &ReferenceResolveInfoAdded{Header: h, Parent: n, Reference: f, Index: index, Target: entry, NewResolveInfo: info}
		case info == "":
			return &ReferenceResolveInfoDeleted{Header: h, Parent: n, Reference: f, Index: index, Target: entry, DeletedResolveInfo: old}
		default:
			return &ReferenceResolveInfoChanged{Header: h, Parent: n, Reference: f, Index: index, Target: entry,
				NewResolveInfo: info, OldResolveInfo: old}
		}
	})
	return nil
}

// MoveReference moves the entry at fromIndex of reference f to position
// toIndex of reference dstF on dst. Within one reference toIndex is the
// final position of the entry; moving an entry onto its own position is a
// no-op.
func (n *Node) MoveReference(f *language.Feature, fromIndex int, dst *Node, dstF *language.Feature, toIndex int, opts ...MutationOption) error {
	entry, err := n.movable(f, fromIndex, dst, dstF)
	if err != nil {
		return err
	}
	same := dst == n && dstF == f
	count := len(dst.references[dstF])
	if toIndex < 0 || toIndex > count {
		return dst.outOfRange(dstF, toIndex, 0, count)
	}
	if !same && !dstF.Multiple && count > 0 {
		return dst.fail(ErrCodeInvalidValue, dstF, "single reference already holds an entry")
	}

	n.setReferences(f, removeAt(n.references[f], fromIndex))
	if toIndex > len(dst.references[dstF]) {
		toIndex = len(dst.references[dstF])
	}
	dst.references[dstF] = insertAt(dst.references[dstF], toIndex, entry)
	if same && toIndex == fromIndex {
		return nil
	}

	m := newMutation(opts)
	srcRoot, root := n.Root(), dst.Root()
	switch {
	case same:
		m.emit(root, func(h Header) Notification {
			return &EntryMovedInSameReference{Header: h, Parent: n, Reference: f, OldIndex: fromIndex, NewIndex: toIndex, Target: entry}
		})
	case dst == n:
		m.emit(root, func(h Header) Notification {
			return &EntryMovedFromOtherReferenceInSameParent{Header: h, Parent: n, OldReference: f, OldIndex: fromIndex,
				NewReference: dstF, NewIndex: toIndex, Target: entry}
		})
	case srcRoot == root:
		m.emit(root, func(h Header) Notification {
			return &EntryMovedFromOtherReference{Header: h, OldParent: n, OldReference: f, OldIndex: fromIndex,
				NewParent: dst, NewReference: dstF, NewIndex: toIndex, Target: entry}
		})
	default:
		m.emit(srcRoot, func(h Header) Notification {
			return &ReferenceDeleted{Header: h, Parent: n, Reference: f, Index: fromIndex, DeletedTarget: entry}
		})
		m.emit(root, func(h Header) Notification {
			return &ReferenceAdded{Header: h, Parent: dst, Reference: dstF, Index: toIndex, NewTarget: entry}
		})
	}
	return nil
}

// MoveAndReplaceReference moves the entry at fromIndex of reference f over
// the entry at toIndex of reference dstF on dst, which is discarded.
func (n *Node) MoveAndReplaceReference(f *language.Feature, fromIndex int, dst *Node, dstF *language.Feature, toIndex int, opts ...MutationOption) error {
	entry, err := n.movable(f, fromIndex, dst, dstF)
	if err != nil {
		return err
	}
	same := dst == n && dstF == f
	count := len(dst.references[dstF])
	if toIndex < 0 || toIndex >= count {
		return dst.outOfRange(dstF, toIndex, 0, count-1)
	}
	if same && toIndex == fromIndex {
		return nil
	}

	replaced := dst.references[dstF][toIndex]
	n.setReferences(f, removeAt(n.references[f], fromIndex))
	r := toIndex
	if same && fromIndex < toIndex {
		r--
	}
	dst.references[dstF][r] = entry

	m := newMutation(opts)
	srcRoot, root := n.Root(), dst.Root()
	switch {
	case same:
		m.emit(root, func(h Header) Notification {
			return &EntryMovedAndReplacedInSameReference{Header: h, Parent: n, Reference: f, OldIndex: fromIndex,
				NewIndex: r, Target: entry, ReplacedTarget: replaced}
		})
	case dst == n:
		m.emit(root, func(h Header) Notification {
			return &EntryMovedAndReplacedFromOtherReferenceInSameParent{Header: h, Parent: n, OldReference: f,
				OldIndex: fromIndex, NewReference: dstF, NewIndex: r, Target: entry, ReplacedTarget: replaced}
		})
	case srcRoot == root:
		m.emit(root, func(h Header) Notification {
			return &EntryMovedAndReplacedFromOtherReference{Header: h, OldParent: n, OldReference: f, OldIndex: fromIndex,
				NewParent: dst, NewReference: dstF, NewIndex: r, Target: entry, ReplacedTarget: replaced}
		})
	default:
		m.emit(srcRoot, func(h Header) Notification {
			return &ReferenceDeleted{Header: h, Parent: n, Reference: f, Index: fromIndex, DeletedTarget: entry}
		})
		m.emit(root, func(h Header) Notification {
			return &ReferenceChanged{Header: h, Parent: dst, Reference: dstF, Index: r, NewTarget: entry, OldTarget: replaced}
		})
	}
	return nil
}

// movable validates the source and destination of an entry move and
// returns the entry.
func (n *Node) movable(f *language.Feature, fromIndex int, dst *Node, dstF *language.Feature) (ReferenceTarget, error) {
	if err := n.feature(f, language.Reference); err != nil {
		return ReferenceTarget{}, err
	}
	if dst == nil {
		return ReferenceTarget{}, n.fail(ErrCodeInvalidValue, f, "nil destination")
	}
	if err := dst.feature(dstF, language.Reference); err != nil {
		return ReferenceTarget{}, err
	}
	count := len(n.references[f])
	if fromIndex < 0 || fromIndex >= count {
		return ReferenceTarget{}, n.outOfRange(f, fromIndex, 0, count-1)
	}
	entry := n.references[f][fromIndex]
	if err := dst.validateTarget(dstF, entry); err != nil {
		return ReferenceTarget{}, err
	}
	return entry, nil
}

func (n *Node) validateTarget(f *language.Feature, t ReferenceTarget) error {
	if t.empty() {
		return n.fail(ErrCodeInvalidValue, f, "empty reference target")
	}
	if t.Target != nil && !t.Target.classifier.IsA(f.Target) {
		return n.fail(ErrCodeInvalidValue, f, "%s is not a %s", t.Target, f.Target.Name)
	}
	return nil
}

func (n *Node) indexOfTarget(f *language.Feature, t ReferenceTarget) int {
	for i, e := range n.references[f] {
		if e.Same(t) {
			return i
		}
	}
	return -1
}

func (n *Node) setReferences(f *language.Feature, list []ReferenceTarget) {
	if len(list) == 0 {
		delete(n.references, f)
		return
	}
	n.references[f] = list
}
