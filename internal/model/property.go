package model

import (
	"github.com/roach88/modelsync/internal/ir"
	"github.com/roach88/modelsync/internal/language"
)

// SetProperty writes property f. A nil value clears the property; on a
// required property this leaves it unset. Writing the current value is a
// no-op.
func (n *Node) SetProperty(f *language.Feature, v ir.Value, opts ...MutationOption) error {
	if err := n.feature(f, language.Property); err != nil {
		return err
	}
	if v != nil && !f.Datatype.Accepts(v) {
		return n.fail(ErrCodeInvalidValue, f, "%T is not a valid %s", v, f.Datatype.Name)
	}

	m := newMutation(opts)
	old, had := n.properties[f]
	switch {
	case v == nil && !had:
		return nil
	case v == nil:
		delete(n.properties, f)
		m.emit(n.Root(), func(h Header) Notification {
			return &PropertyDeleted{Header: h, Node: n, Property: f, Old: old}
		})
	case !had:
		n.properties[f] = v
		m.emit(n.Root(), func(h Header) Notification {
			return &PropertyAdded{Header: h, Node: n, Property: f, New: v}
		})
	case ir.Equal(old, v):
		return nil
	default:
		n.properties[f] = v
		m.emit(n.Root(), func(h Header) Notification {
			return &PropertyChanged{Header: h, Node: n, Property: f, Old: old, New: v}
		})
	}
	return nil
}
