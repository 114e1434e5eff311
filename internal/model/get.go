package model

import (
	"github.com/roach88/modelsync/internal/ir"
	"github.com/roach88/modelsync/internal/language"
)

// Get reads feature f and returns its value by feature kind:
//   - property: ir.Value, or nil when unset
//   - single containment: *Node, or nil
//   - multiple containment: []*Node
//   - single reference: ReferenceTarget, or nil
//   - multiple reference: []ReferenceTarget
//
// Reading a required feature that holds no value fails with UNSET_FEATURE.
func (n *Node) Get(f *language.Feature) (any, error) {
	if f == nil || !n.classifier.Declares(f) {
		return nil, n.fail(ErrCodeUnknownFeature, f, "not declared by %s", n.classifier.Name)
	}
	switch f.Kind {
	case language.Property:
		v, err := n.Property(f)
		if v == nil || err != nil {
			return nil, err
		}
		return v, nil
	case language.Containment:
		if f.Multiple {
			return n.Children(f)
		}
		c, err := n.Child(f)
		if c == nil || err != nil {
			return nil, err
		}
		return c, nil
	default:
		if f.Multiple {
			return n.References(f)
		}
		refs, err := n.References(f)
		if len(refs) == 0 || err != nil {
			return nil, err
		}
		return refs[0], nil
	}
}

// Property returns the value of property f, or nil when an optional
// property is unset.
func (n *Node) Property(f *language.Feature) (ir.Value, error) {
	if err := n.feature(f, language.Property); err != nil {
		return nil, err
	}
	v, ok := n.properties[f]
	if !ok {
		return nil, n.unset(f)
	}
	return v, nil
}

// Children returns a copy of containment f.
func (n *Node) Children(f *language.Feature) ([]*Node, error) {
	if err := n.feature(f, language.Containment); err != nil {
		return nil, err
	}
	list := n.children[f]
	if len(list) == 0 {
		return nil, n.unset(f)
	}
	return append([]*Node(nil), list...), nil
}

// Child returns the node held by single containment f, or nil when an
// optional containment is empty.
func (n *Node) Child(f *language.Feature) (*Node, error) {
	if err := n.feature(f, language.Containment); err != nil {
		return nil, err
	}
	if f.Multiple {
		return nil, n.fail(ErrCodeInvalidValue, f, "multiple containment has no single child")
	}
	list := n.children[f]
	if len(list) == 0 {
		return nil, n.unset(f)
	}
	return list[0], nil
}

// References returns a copy of the entries of reference f.
func (n *Node) References(f *language.Feature) ([]ReferenceTarget, error) {
	if err := n.feature(f, language.Reference); err != nil {
		return nil, err
	}
	list := n.references[f]
	if len(list) == 0 {
		return nil, n.unset(f)
	}
	return append([]ReferenceTarget(nil), list...), nil
}

// Count returns the number of values f holds. Undeclared features hold none.
func (n *Node) Count(f *language.Feature) int {
	if f == nil {
		return 0
	}
	switch f.Kind {
	case language.Property:
		if _, ok := n.properties[f]; ok {
			return 1
		}
		return 0
	case language.Containment:
		return len(n.children[f])
	default:
		return len(n.references[f])
	}
}

// IsSet reports whether f holds at least one value.
func (n *Node) IsSet(f *language.Feature) bool { return n.Count(f) > 0 }

// SetFeatures returns the declared features holding a value, in
// declaration order.
func (n *Node) SetFeatures() []*language.Feature {
	var out []*language.Feature
	for _, f := range n.classifier.AllFeatures() {
		if n.IsSet(f) {
			out = append(out, f)
		}
	}
	return out
}

func (n *Node) unset(f *language.Feature) error {
	if f.Optional {
		return nil
	}
	return n.fail(ErrCodeUnsetFeature, f, "required feature is unset")
}
