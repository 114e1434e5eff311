package pipeline

import (
	"slices"
	"sync"

	"github.com/roach88/modelsync/internal/model"
)

// Dispatcher delivers notifications to subscribers by topic.
//
// Delivery order for one unit is: exact-kind subscribers, then group
// subscribers, then All subscribers, each in subscription order. Atomic
// parts of a composite reach kind and group subscribers one by one.
//
// Thread-safety: Subscribe and Unsubscribe are safe for concurrent use and
// may be called from inside a handler.
type Dispatcher struct {
	mu   sync.Mutex
	subs map[Topic][]Handler
}

// NewDispatcher creates a dispatcher without subscribers.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{subs: make(map[Topic][]Handler)}
}

// Subscribe registers h for topic. Subscribing twice is a no-op.
func (d *Dispatcher) Subscribe(topic Topic, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if slices.Contains(d.subs[topic], h) {
		return
	}
	d.subs[topic] = append(d.subs[topic], h)
}

// Unsubscribe removes h from topic. Unknown handlers are ignored.
func (d *Dispatcher) Unsubscribe(topic Topic, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	list := d.subs[topic]
	i := slices.Index(list, h)
	if i < 0 {
		return
	}
	list = slices.Delete(slices.Clone(list), i, i+1)
	if len(list) == 0 {
		delete(d.subs, topic)
		return
	}
	d.subs[topic] = list
}

// Subscribers returns the number of handlers registered for topic.
func (d *Dispatcher) Subscribers(topic Topic) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subs[topic])
}

// Dispatch delivers n and returns the number of handler invocations.
func (d *Dispatcher) Dispatch(n model.Notification) int {
	delivered := 0
	if n.Kind() == model.KindComposite {
		delivered += d.deliver(ForKind(model.KindComposite), n)
		for _, p := range model.Unwrap(n) {
			delivered += d.deliver(ForKind(p.Kind()), p)
			delivered += d.deliver(ForGroup(p.Kind().Group()), p)
		}
	} else {
		delivered += d.deliver(ForKind(n.Kind()), n)
		delivered += d.deliver(ForGroup(n.Kind().Group()), n)
	}
	delivered += d.deliver(All, n)
	return delivered
}

func (d *Dispatcher) deliver(topic Topic, n model.Notification) int {
	d.mu.Lock()
	handlers := d.subs[topic]
	d.mu.Unlock()

	for _, h := range handlers {
		h.Handle(n)
	}
	return len(handlers)
}
