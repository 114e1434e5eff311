package pipeline

import "github.com/roach88/modelsync/internal/model"

// Handler consumes notifications. Handlers are compared by identity when
// subscribing and unsubscribing, so implementations must be comparable
// (pointer receivers are).
type Handler interface {
	Handle(n model.Notification)
}

type funcHandler struct {
	fn func(model.Notification)
}

func (h *funcHandler) Handle(n model.Notification) { h.fn(n) }

// Func adapts fn to a Handler. Each call returns a distinct handler; keep
// the result to unsubscribe later.
func Func(fn func(model.Notification)) Handler {
	return &funcHandler{fn: fn}
}

// Topic selects the notifications a subscription receives.
//
// A kind topic receives atomic notifications of that kind, unwrapped from
// composites. A group topic receives every atomic notification of the group.
// All receives every unit leaving the filter as-is, composites included.
// The Composite kind or group receives composites only.
type Topic struct {
	kind  model.Kind
	group model.Group
}

// All is the topic matching every notification.
var All = Topic{}

// ForKind returns the topic of notifications of kind k.
func ForKind(k model.Kind) Topic {
	if k == model.KindComposite {
		return Topic{group: model.GroupComposite}
	}
	return Topic{kind: k}
}

// ForGroup returns the topic of notifications of group g.
func ForGroup(g model.Group) Topic { return Topic{group: g} }

func (t Topic) String() string {
	switch {
	case t.kind != model.KindUnknown:
		return t.kind.String()
	case t.group != model.GroupNone:
		return t.group.String()
	default:
		return "All"
	}
}
