package replicator

import (
	"fmt"
	"log/slog"

	"github.com/roach88/modelsync/internal/language"
	"github.com/roach88/modelsync/internal/model"
	"github.com/roach88/modelsync/internal/pipeline"
	"github.com/roach88/modelsync/internal/registry"
)

// Sender ships local notifications to the other side. Transport is the
// caller's concern; it must preserve order per partition.
type Sender interface {
	Send(n model.Notification) error
}

// SenderFunc adapts a function to a Sender.
type SenderFunc func(n model.Notification) error

func (f SenderFunc) Send(n model.Notification) error { return f(n) }

// Replicator is one side of a replicated partition pair.
type Replicator struct {
	lang *language.Language
	root *model.Node
	pipe *pipeline.Pipeline
	reg  *registry.Registry
	out  Sender

	hook    pipeline.Handler
	forward pipeline.Handler

	// frozen holds copies of subtrees introduced while a transaction is
	// open, keyed by the notification that introduced them.
	frozen map[model.Notification]*model.Node

	desync  error
	sendErr error
}

// Option configures a Replicator.
type Option func(*Replicator)

// WithSender sets where local notifications are forwarded. Without a
// sender the replicator only applies inbound notifications.
func WithSender(s Sender) Option {
	return func(r *Replicator) { r.out = s }
}

// WithRegistry shares a registry between replicators of one session.
//
// Default: a registry private to the replicator.
func WithRegistry(reg *registry.Registry) Option {
	return func(r *Replicator) { r.reg = reg }
}

// New starts replicating the partition rooted at root. The root must be a
// partition without a parent. The pipeline is attached as the root's
// notifier unless it already is.
func New(lang *language.Language, root *model.Node, pipe *pipeline.Pipeline, opts ...Option) (*Replicator, error) {
	if root.Parent() != nil || !root.Classifier().Partition {
		return nil, fmt.Errorf("replicate %s: not a partition root", root)
	}
	if lang.Classifier(root.Classifier().Key) != root.Classifier() {
		return nil, fmt.Errorf("replicate %s: classifier %s is not part of language %s", root, root.Classifier().Key, lang.Key)
	}
	switch nt := root.Notifier(); {
	case nt == nil:
		if err := root.AttachNotifier(pipe); err != nil {
			return nil, fmt.Errorf("replicate %s: %w", root, err)
		}
	case nt != model.Notifier(pipe):
		return nil, fmt.Errorf("replicate %s: root already has a different notifier", root)
	}

	r := &Replicator{lang: lang, root: root, pipe: pipe}
	for _, opt := range opts {
		opt(r)
	}
	if r.reg == nil {
		r.reg = registry.New()
	}
	r.reg.RegisterNode(root)

	r.hook = pipeline.Func(r.track)
	pipe.Tap(r.hook)
	r.forward = pipeline.Func(r.send)
	pipe.Subscribe(pipeline.All, r.forward)

	slog.Debug("replication started",
		"partition", root.ID(),
		"nodes", r.reg.Len(),
	)
	return r, nil
}

// SetSender replaces the Sender. A nil sender stops forwarding.
func (r *Replicator) SetSender(s Sender) { r.out = s }

// Pair connects two replicators so each forwards to the other.
func Pair(a, b *Replicator) {
	a.SetSender(b)
	b.SetSender(a)
}

// Send applies n. It lets a Replicator serve as the Sender of its peer.
func (r *Replicator) Send(n model.Notification) error { return r.Apply(n) }

// Root returns the replicated partition root.
func (r *Replicator) Root() *model.Node { return r.root }

// Registry returns the registry the replicator maintains.
func (r *Replicator) Registry() *registry.Registry { return r.reg }

// Desynchronized returns the error that desynchronized the replicator, or nil.
func (r *Replicator) Desynchronized() error { return r.desync }

// SendErr returns the last error reported by the Sender, or nil.
func (r *Replicator) SendErr() error { return r.sendErr }

// Close detaches the replicator from its pipeline. The registry keeps its
// entries.
func (r *Replicator) Close() {
	r.pipe.Untap(r.hook)
	r.pipe.Unsubscribe(pipeline.All, r.forward)
}

// track keeps the registry in step with ownership changes of the partition.
// It runs before the filter, so changes applied from the other side are
// tracked too.
func (r *Replicator) track(n model.Notification) {
	if n.ContextNodeID() != r.root.ID() {
		return
	}
	switch v := n.(type) {
	case *model.ChildAdded:
		r.reg.RegisterNode(v.NewChild)
	case *model.ChildDeleted:
		r.reg.UnregisterNode(v.DeletedChild)
	case *model.ChildReplaced:
		r.reg.UnregisterNode(v.ReplacedChild)
		r.reg.RegisterNode(v.NewChild)
	case *model.ChildMovedAndReplacedFromOtherContainment:
		r.reg.UnregisterNode(v.ReplacedChild)
	case *model.ChildMovedAndReplacedFromOtherContainmentInSameParent:
		r.reg.UnregisterNode(v.ReplacedChild)
	case *model.ChildMovedAndReplacedInSameContainment:
		r.reg.UnregisterNode(v.ReplacedChild)
	case *model.AnnotationAdded:
		r.reg.RegisterNode(v.NewAnnotation)
	case *model.AnnotationDeleted:
		r.reg.UnregisterNode(v.DeletedAnnotation)
	case *model.AnnotationReplaced:
		r.reg.UnregisterNode(v.ReplacedAnnotation)
		r.reg.RegisterNode(v.NewAnnotation)
	case *model.AnnotationMovedAndReplacedFromOtherParent:
		r.reg.UnregisterNode(v.ReplacedAnnotation)
	case *model.AnnotationMovedAndReplacedInSameParent:
		r.reg.UnregisterNode(v.ReplacedAnnotation)
	}
	switch {
	case !r.pipe.Composing():
		// a transaction that ended without reaching send left its copies
		clear(r.frozen)
	case r.out != nil && !r.pipe.Filter().Suppressed(n.Cause()):
		r.freeze(n)
	}
}

// freeze copies the subtree n introduces. A composite is forwarded only when
// its transaction ends, by which time later parts may have edited the live
// subtree; the peer must see it as it was when the part was produced.
func (r *Replicator) freeze(n model.Notification) {
	var fresh *model.Node
	switch v := n.(type) {
	case *model.ChildAdded:
		fresh = v.NewChild
	case *model.ChildReplaced:
		fresh = v.NewChild
	case *model.AnnotationAdded:
		fresh = v.NewAnnotation
	case *model.AnnotationReplaced:
		fresh = v.NewAnnotation
	default:
		return
	}
	c, err := r.clone(fresh)
	if err != nil {
		slog.Warn("subtree snapshot failed",
			"partition", r.root.ID(),
			"node", fresh.ID(),
			"error", err,
		)
		return
	}
	if r.frozen == nil {
		r.frozen = make(map[model.Notification]*model.Node)
	}
	r.frozen[n] = c
}

// thaw substitutes the frozen subtrees into n.
func (r *Replicator) thaw(n model.Notification) model.Notification {
	if len(r.frozen) == 0 {
		return n
	}
	parts := model.Unwrap(n)
	out := make([]model.Notification, len(parts))
	changed := false
	for i, p := range parts {
		out[i] = p
		c, ok := r.frozen[p]
		if !ok {
			continue
		}
		changed = true
		switch v := p.(type) {
		case *model.ChildAdded:
			cp := *v
			cp.NewChild = c
			out[i] = &cp
		case *model.ChildReplaced:
			cp := *v
			cp.NewChild = c
			out[i] = &cp
		case *model.AnnotationAdded:
			cp := *v
			cp.NewAnnotation = c
			out[i] = &cp
		case *model.AnnotationReplaced:
			cp := *v
			cp.NewAnnotation = c
			out[i] = &cp
		}
	}
	if !changed {
		return n
	}
	if _, ok := n.(*model.Composite); ok {
		return model.NewComposite(out...)
	}
	return out[0]
}

// own returns the parts of n produced in this partition, or nil when there
// are none. A pipeline shared by several partitions composes their parts
// into one unit; each replicator forwards only its own.
func (r *Replicator) own(n model.Notification) model.Notification {
	parts := model.Unwrap(n)
	kept := make([]model.Notification, 0, len(parts))
	for _, p := range parts {
		if p.ContextNodeID() == r.root.ID() {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case len(parts):
		return n
	case 1:
		return kept[0]
	default:
		return model.NewComposite(kept...)
	}
}

// send forwards the local parts of a notification that passed the filter.
func (r *Replicator) send(n model.Notification) {
	if r.out == nil {
		return
	}
	defer clear(r.frozen)
	if n = r.own(n); n == nil {
		return
	}
	n = r.thaw(n)
	if err := r.out.Send(n); err != nil {
		r.sendErr = err
		slog.Error("forwarding notification failed",
			"partition", r.root.ID(),
			"kind", n.Kind().String(),
			"cause", string(n.Cause()),
			"error", err,
		)
	}
}
