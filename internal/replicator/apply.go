package replicator

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/modelsync/internal/language"
	"github.com/roach88/modelsync/internal/model"
)

// Apply reproduces a notification from the other side on the local
// partition. The node store calls carry n's causal id and the resulting
// local notifications are suppressed, so nothing is echoed back.
// Composites are applied part by part, in order. A part produced in another
// partition is a protocol violation and nothing of n is applied.
func (r *Replicator) Apply(n model.Notification) error {
	if r.desync != nil {
		return &ReplicationError{
			Code:      ErrCodeDesynchronized,
			Message:   "replicator is desynchronized",
			Partition: r.root.ID(),
			Kind:      n.Kind().String(),
			Cause:     string(n.Cause()),
			Err:       r.desync,
		}
	}

	parts := model.Unwrap(n)
	for _, part := range parts {
		if ctx := part.ContextNodeID(); ctx != r.root.ID() {
			return r.failed(part, protocolf("notification of partition %q sent to partition %q", ctx, r.root.ID()))
		}
	}
	seen := make(map[model.CausalID]bool, 1)
	for _, part := range parts {
		if id := part.Cause(); !seen[id] {
			seen[id] = true
			defer r.pipe.Suppress(id)()
		}
	}

	for _, part := range parts {
		if err := r.applyOne(part); err != nil {
			return r.failed(part, err)
		}
	}
	return nil
}

func (r *Replicator) failed(n model.Notification, err error) error {
	re := &ReplicationError{
		Partition: r.root.ID(),
		Kind:      n.Kind().String(),
		Cause:     string(n.Cause()),
		Err:       err,
	}
	var pe *errProtocol
	if errors.As(err, &pe) {
		re.Code = ErrCodeUnknownNotification
		re.Message = "notification cannot be interpreted"
		slog.Error("protocol violation",
			"partition", re.Partition,
			"kind", re.Kind,
			"cause", re.Cause,
			"error", err,
		)
		return re
	}

	r.desync = err
	re.Code = ErrCodeDesynchronized
	re.Message = "notification does not apply to the local partition"
	slog.Error("replica desynchronized",
		"partition", re.Partition,
		"kind", re.Kind,
		"cause", re.Cause,
		"error", err,
	)
	return re
}

func (r *Replicator) applyOne(n model.Notification) error {
	with := model.WithCause(n.Cause())

	switch v := n.(type) {
	// --- property ---
	case *model.PropertyAdded:
		return r.setProperty(v.Node, v.Property, v.New, with)
	case *model.PropertyChanged:
		return r.setProperty(v.Node, v.Property, v.New, with)
	case *model.PropertyDeleted:
		return r.setProperty(v.Node, v.Property, nil, with)

	// --- containment ---
	case *model.ChildAdded:
		parent, f, err := r.slot(v.Parent, v.Containment)
		if err != nil {
			return err
		}
		child, err := r.adopt(v.NewChild)
		if err != nil {
			return err
		}
		return insertChild(parent, f, v.Index, child, with)

	case *model.ChildDeleted:
		parent, f, err := r.slot(v.Parent, v.Containment)
		if err != nil {
			return err
		}
		child, err := r.node(v.DeletedChild)
		if err != nil {
			return err
		}
		return parent.RemoveChildren(f, []*model.Node{child}, with)

	case *model.ChildReplaced:
		parent, f, err := r.slot(v.Parent, v.Containment)
		if err != nil {
			return err
		}
		child, err := r.adopt(v.NewChild)
		if err != nil {
			return err
		}
		return replaceChild(parent, f, v.Index, child, v.ReplacedChild, with)

	case *model.ChildMovedFromOtherContainment:
		return r.moveChild(v.NewParent, v.NewContainment, v.NewIndex, v.MovedChild, nil, with)
	case *model.ChildMovedFromOtherContainmentInSameParent:
		return r.moveChild(v.Parent, v.NewContainment, v.NewIndex, v.MovedChild, nil, with)
	case *model.ChildMovedInSameContainment:
		return r.moveChild(v.Parent, v.Containment, v.NewIndex, v.MovedChild, nil, with)
	case *model.ChildMovedAndReplacedFromOtherContainment:
		return r.moveChild(v.NewParent, v.NewContainment, v.NewIndex, v.MovedChild, v.ReplacedChild, with)
	case *model.ChildMovedAndReplacedFromOtherContainmentInSameParent:
		return r.moveChild(v.Parent, v.NewContainment, v.NewIndex, v.MovedChild, v.ReplacedChild, with)
	case *model.ChildMovedAndReplacedInSameContainment:
		return r.moveChild(v.Parent, v.Containment, v.NewIndex, v.MovedChild, v.ReplacedChild, with)

	// --- annotation ---
	case *model.AnnotationAdded:
		parent, err := r.node(v.Parent)
		if err != nil {
			return err
		}
		ann, err := r.adopt(v.NewAnnotation)
		if err != nil {
			return err
		}
		return parent.InsertAnnotations(v.Index, []*model.Node{ann}, with)

	case *model.AnnotationDeleted:
		parent, err := r.node(v.Parent)
		if err != nil {
			return err
		}
		ann, err := r.node(v.DeletedAnnotation)
		if err != nil {
			return err
		}
		return parent.RemoveAnnotations([]*model.Node{ann}, with)

	case *model.AnnotationReplaced:
		parent, err := r.node(v.Parent)
		if err != nil {
			return err
		}
		ann, err := r.adopt(v.NewAnnotation)
		if err != nil {
			return err
		}
		return replaceAnnotation(parent, v.Index, ann, v.ReplacedAnnotation, with)

	case *model.AnnotationMovedFromOtherParent:
		return r.moveAnnotation(v.NewParent, v.NewIndex, v.MovedAnnotation, nil, with)
	case *model.AnnotationMovedInSameParent:
		return r.moveAnnotation(v.Parent, v.NewIndex, v.MovedAnnotation, nil, with)
	case *model.AnnotationMovedAndReplacedFromOtherParent:
		return r.moveAnnotation(v.NewParent, v.NewIndex, v.MovedAnnotation, v.ReplacedAnnotation, with)
	case *model.AnnotationMovedAndReplacedInSameParent:
		return r.moveAnnotation(v.Parent, v.NewIndex, v.MovedAnnotation, v.ReplacedAnnotation, with)

	// --- reference ---
	case *model.ReferenceAdded:
		parent, f, err := r.ref(v.Parent, v.Reference)
		if err != nil {
			return err
		}
		t := r.target(v.NewTarget)
		if !f.Multiple && v.Index == 0 {
			return parent.SetReference(f, t, with)
		}
		return parent.InsertReferences(f, v.Index, []model.ReferenceTarget{t}, with)

	case *model.ReferenceDeleted:
		parent, f, err := r.ref(v.Parent, v.Reference)
		if err != nil {
			return err
		}
		return parent.RemoveReferenceAt(f, v.Index, with)

	case *model.ReferenceChanged:
		parent, f, err := r.ref(v.Parent, v.Reference)
		if err != nil {
			return err
		}
		return parent.ReplaceReference(f, v.Index, r.target(v.NewTarget), with)

	case *model.EntryMovedFromOtherReference:
		return r.moveEntry(v.OldParent, v.OldReference, v.OldIndex, v.NewParent, v.NewReference, v.NewIndex, false, with)
	case *model.EntryMovedFromOtherReferenceInSameParent:
		return r.moveEntry(v.Parent, v.OldReference, v.OldIndex, v.Parent, v.NewReference, v.NewIndex, false, with)
	case *model.EntryMovedInSameReference:
		return r.moveEntry(v.Parent, v.Reference, v.OldIndex, v.Parent, v.Reference, v.NewIndex, false, with)
	case *model.EntryMovedAndReplacedFromOtherReference:
		return r.moveEntry(v.OldParent, v.OldReference, v.OldIndex, v.NewParent, v.NewReference, v.NewIndex, true, with)
	case *model.EntryMovedAndReplacedFromOtherReferenceInSameParent:
		return r.moveEntry(v.Parent, v.OldReference, v.OldIndex, v.Parent, v.NewReference, v.NewIndex, true, with)
	case *model.EntryMovedAndReplacedInSameReference:
		return r.moveEntry(v.Parent, v.Reference, v.OldIndex, v.Parent, v.Reference, v.NewIndex, true, with)

	case *model.ReferenceResolveInfoAdded:
		return r.setResolveInfo(v.Parent, v.Reference, v.Index, v.NewResolveInfo, with)
	case *model.ReferenceResolveInfoChanged:
		return r.setResolveInfo(v.Parent, v.Reference, v.Index, v.NewResolveInfo, with)
	case *model.ReferenceResolveInfoDeleted:
		return r.setResolveInfo(v.Parent, v.Reference, v.Index, "", with)

	default:
		return protocolf("unsupported notification %s (%T)", n.Kind(), n)
	}
}

func (r *Replicator) setProperty(remote *model.Node, remoteF *language.Feature, v any, with model.MutationOption) error {
	node, err := r.node(remote)
	if err != nil {
		return err
	}
	f, err := r.feature(remoteF, language.Property)
	if err != nil {
		return err
	}
	return node.Set(f, v, with)
}

// moveChild reproduces a move, dropping the replaced child first when the
// move overwrote one. NewIndex is the final position of the moved child on
// the origin, which is where a local move to NewIndex puts it too.
func (r *Replicator) moveChild(remoteParent *model.Node, remoteF *language.Feature, index int, remoteMoved, remoteReplaced *model.Node, with model.MutationOption) error {
	parent, f, err := r.slot(remoteParent, remoteF)
	if err != nil {
		return err
	}
	moved, err := r.node(remoteMoved)
	if err != nil {
		return err
	}
	if remoteReplaced != nil {
		replaced, err := r.node(remoteReplaced)
		if err != nil {
			return err
		}
		if err := parent.RemoveChildren(f, []*model.Node{replaced}, with); err != nil {
			return err
		}
	}
	return insertChild(parent, f, index, moved, with)
}

func (r *Replicator) moveAnnotation(remoteParent *model.Node, index int, remoteMoved, remoteReplaced *model.Node, with model.MutationOption) error {
	parent, err := r.node(remoteParent)
	if err != nil {
		return err
	}
	moved, err := r.node(remoteMoved)
	if err != nil {
		return err
	}
	if remoteReplaced != nil {
		replaced, err := r.node(remoteReplaced)
		if err != nil {
			return err
		}
		if err := parent.RemoveAnnotations([]*model.Node{replaced}, with); err != nil {
			return err
		}
	}
	return parent.InsertAnnotations(index, []*model.Node{moved}, with)
}

func (r *Replicator) moveEntry(remoteSrc *model.Node, remoteSrcF *language.Feature, from int,
	remoteDst *model.Node, remoteDstF *language.Feature, to int, replace bool, with model.MutationOption) error {
	src, srcF, err := r.ref(remoteSrc, remoteSrcF)
	if err != nil {
		return err
	}
	dst, dstF, err := r.ref(remoteDst, remoteDstF)
	if err != nil {
		return err
	}
	if !replace {
		return src.MoveReference(srcF, from, dst, dstF, to, with)
	}
	// The origin reports where the entry ended up; within one reference
	// that is one before the overwritten position when it moved forward.
	if src == dst && srcF == dstF && from <= to {
		to++
	}
	return src.MoveAndReplaceReference(srcF, from, dst, dstF, to, with)
}

func (r *Replicator) setResolveInfo(remoteParent *model.Node, remoteF *language.Feature, index int, info string, with model.MutationOption) error {
	parent, f, err := r.ref(remoteParent, remoteF)
	if err != nil {
		return err
	}
	return parent.SetResolveInfo(f, index, info, with)
}

// insertChild splices c into f at index. A single slot at index 0 is
// written wholesale whether or not it holds a value.
func insertChild(parent *model.Node, f *language.Feature, index int, c *model.Node, with model.MutationOption) error {
	if !f.Multiple && index == 0 {
		return parent.SetChild(f, c, with)
	}
	return parent.InsertChildren(f, index, []*model.Node{c}, with)
}

// replaceChild inserts c at index and then removes the element that the
// insert pushed to index+1. This assumes the replica holds the replaced
// child at index, which holds as long as notifications arrive in order.
func replaceChild(parent *model.Node, f *language.Feature, index int, c, remoteReplaced *model.Node, with model.MutationOption) error {
	if !f.Multiple {
		return parent.SetChild(f, c, with)
	}
	if err := parent.InsertChildren(f, index, []*model.Node{c}, with); err != nil {
		return err
	}
	kids, err := parent.Children(f)
	if err != nil {
		return err
	}
	if index+1 >= len(kids) {
		return fmt.Errorf("replace %s at %d: no element follows the inserted child", f, index)
	}
	old := kids[index+1]
	if remoteReplaced != nil && old.ID() != remoteReplaced.ID() {
		slog.Warn("replaced child differs from origin",
			"parent", parent.ID(),
			"feature", f.String(),
			"index", index,
			"expected", remoteReplaced.ID(),
			"actual", old.ID(),
		)
	}
	return parent.RemoveChildren(f, []*model.Node{old}, with)
}

func replaceAnnotation(parent *model.Node, index int, a, remoteReplaced *model.Node, with model.MutationOption) error {
	if err := parent.InsertAnnotations(index, []*model.Node{a}, with); err != nil {
		return err
	}
	anns := parent.Annotations()
	if index+1 >= len(anns) {
		return fmt.Errorf("replace annotation at %d: no element follows the inserted annotation", index)
	}
	old := anns[index+1]
	if remoteReplaced != nil && old.ID() != remoteReplaced.ID() {
		slog.Warn("replaced annotation differs from origin",
			"parent", parent.ID(),
			"index", index,
			"expected", remoteReplaced.ID(),
			"actual", old.ID(),
		)
	}
	return parent.RemoveAnnotations([]*model.Node{old}, with)
}
