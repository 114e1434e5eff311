package harness

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/modelsync/internal/ir"
	"github.com/roach88/modelsync/internal/language"
	"github.com/roach88/modelsync/internal/model"
)

// exec performs one step on the origin.
func (h *Harness) exec(s Step) error {
	switch s.Op {
	case OpNew:
		return h.create(s)
	case OpBegin:
		h.pipe.Begin()
		return nil
	case OpEnd:
		h.pipe.End()
		return nil
	}

	n, err := h.node(s.Node)
	if err != nil {
		return err
	}
	var f *language.Feature
	if s.Feature != "" {
		if f, err = h.feature(n, s.Feature); err != nil {
			return err
		}
	}

	switch s.Op {
	case OpSet:
		return h.set(n, f, s)

	case OpInsert:
		nodes, err := h.nodeList(s.Nodes)
		if err != nil {
			return err
		}
		if s.Index == nil {
			return n.AddChildren(f, nodes)
		}
		return n.InsertChildren(f, *s.Index, nodes)

	case OpAnnotate:
		nodes, err := h.nodeList(s.Nodes)
		if err != nil {
			return err
		}
		if s.Index == nil {
			return n.AddAnnotations(nodes)
		}
		return n.InsertAnnotations(*s.Index, nodes)

	case OpRemove:
		return h.remove(n, f, s)

	case OpReplace:
		if f != nil && f.Kind == language.Reference {
			return n.ReplaceReference(f, *s.Index, h.target(s.With))
		}
		with, err := h.node(s.With)
		if err != nil {
			return err
		}
		if f == nil {
			return n.ReplaceAnnotation(*s.Index, with)
		}
		return n.ReplaceChild(f, *s.Index, with)

	case OpReference:
		targets := make([]model.ReferenceTarget, len(s.Targets))
		for i, id := range s.Targets {
			targets[i] = h.target(id)
		}
		if s.Index == nil {
			return n.AddReferences(f, targets)
		}
		return n.InsertReferences(f, *s.Index, targets)

	case OpResolveInfo:
		return n.SetResolveInfo(f, *s.Index, s.ResolveInfo)

	case OpMoveReference:
		dst, err := h.node(s.To.Node)
		if err != nil {
			return err
		}
		dstF, err := h.feature(dst, s.To.Feature)
		if err != nil {
			return err
		}
		if s.Replace {
			return n.MoveAndReplaceReference(f, *s.Index, dst, dstF, s.To.Index)
		}
		return n.MoveReference(f, *s.Index, dst, dstF, s.To.Index)
	}
	return fmt.Errorf("unknown op %q", s.Op)
}

// create builds a detached node and sets its properties in name order.
func (h *Harness) create(s Step) error {
	if _, dup := h.nodes[s.ID]; dup {
		return fmt.Errorf("duplicate node id %q", s.ID)
	}
	c := h.lang.ClassifierNamed(s.Classifier)
	if c == nil {
		return fmt.Errorf("unknown classifier %q", s.Classifier)
	}
	n := model.NewNode(s.ID, c)
	for _, name := range slices.Sorted(maps.Keys(s.Properties)) {
		f, err := h.feature(n, name)
		if err != nil {
			return err
		}
		v, err := ir.FromGo(s.Properties[name])
		if err != nil {
			return fmt.Errorf("property %s: %w", name, err)
		}
		if err := n.SetProperty(f, v); err != nil {
			return err
		}
	}
	h.nodes[s.ID] = n
	return nil
}

func (h *Harness) set(n *model.Node, f *language.Feature, s Step) error {
	if f.Kind == language.Property {
		return n.Set(f, s.Value)
	}
	if s.With == "" {
		return n.Set(f, nil)
	}
	if f.Kind == language.Reference {
		return n.Set(f, h.target(s.With))
	}
	with, err := h.node(s.With)
	if err != nil {
		return err
	}
	return n.Set(f, with)
}

// remove drops annotations when no feature is named, entries by index or
// target when the feature is a reference, and children otherwise.
func (h *Harness) remove(n *model.Node, f *language.Feature, s Step) error {
	switch {
	case f == nil:
		nodes, err := h.nodeList(s.Nodes)
		if err != nil {
			return err
		}
		return n.RemoveAnnotations(nodes)
	case f.Kind == language.Reference && s.Index != nil:
		return n.RemoveReferenceAt(f, *s.Index)
	case f.Kind == language.Reference:
		targets := make([]model.ReferenceTarget, len(s.Targets))
		for i, id := range s.Targets {
			targets[i] = h.target(id)
		}
		return n.RemoveReferences(f, targets)
	default:
		nodes, err := h.nodeList(s.Nodes)
		if err != nil {
			return err
		}
		return n.RemoveChildren(f, nodes)
	}
}

func (h *Harness) node(id string) (*model.Node, error) {
	n := h.nodes[id]
	if n == nil {
		return nil, fmt.Errorf("unknown node %q", id)
	}
	return n, nil
}

func (h *Harness) nodeList(ids []string) ([]*model.Node, error) {
	out := make([]*model.Node, len(ids))
	for i, id := range ids {
		n, err := h.node(id)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// target resolves id to a scenario node, or to an unresolved entry when no
// such node exists.
func (h *Harness) target(id string) model.ReferenceTarget {
	if n := h.nodes[id]; n != nil {
		return model.RefTo(n)
	}
	return model.RefInfo(id, "")
}

func (h *Harness) feature(n *model.Node, name string) (*language.Feature, error) {
	f := n.Classifier().FeatureNamed(name)
	if f == nil {
		return nil, fmt.Errorf("%s has no feature %q", n.Classifier().Name, name)
	}
	return f, nil
}

// errorCode returns the node store error code of err, or "".
func errorCode(err error) string {
	var ne *model.NodeError
	if errors.As(err, &ne) {
		return string(ne.Code)
	}
	return ""
}
