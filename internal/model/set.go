package model

import (
	"github.com/roach88/modelsync/internal/ir"
	"github.com/roach88/modelsync/internal/language"
)

// Set writes a single-valued feature, dispatching on the feature kind.
// Accepted values are:
//   - property: ir.Value or a Go scalar convertible with ir.FromGo
//   - containment: *Node
//   - reference: ReferenceTarget or *Node
//
// A nil value clears the feature. Multiple features reject Set with
// INVALID_VALUE; use the insert and remove operations instead.
func (n *Node) Set(f *language.Feature, v any, opts ...MutationOption) error {
	if f == nil || !n.classifier.Declares(f) {
		return n.fail(ErrCodeUnknownFeature, f, "not declared by %s", n.classifier.Name)
	}
	if f.Multiple {
		return n.fail(ErrCodeInvalidValue, f, "multiple feature cannot be set")
	}

	switch f.Kind {
	case language.Property:
		switch val := v.(type) {
		case nil:
			return n.SetProperty(f, nil, opts...)
		case ir.Value:
			return n.SetProperty(f, val, opts...)
		default:
			iv, err := ir.FromGo(v)
			if err != nil {
				return n.fail(ErrCodeInvalidValue, f, "%v", err)
			}
			return n.SetProperty(f, iv, opts...)
		}

	case language.Containment:
		switch val := v.(type) {
		case nil:
			return n.SetChild(f, nil, opts...)
		case *Node:
			return n.SetChild(f, val, opts...)
		default:
			return n.fail(ErrCodeInvalidValue, f, "%T is not a node", v)
		}

	default:
		switch val := v.(type) {
		case nil:
			return n.SetReference(f, ReferenceTarget{}, opts...)
		case *Node:
			if val == nil {
				return n.SetReference(f, ReferenceTarget{}, opts...)
			}
			return n.SetReference(f, RefTo(val), opts...)
		case ReferenceTarget:
			return n.SetReference(f, val, opts...)
		default:
			return n.fail(ErrCodeInvalidValue, f, "%T is not a reference target", v)
		}
	}
}
