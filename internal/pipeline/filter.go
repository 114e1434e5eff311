package pipeline

import (
	"sync"

	"github.com/roach88/modelsync/internal/model"
)

// Filter drops notifications whose causal id is being suppressed. It is the
// echo-loop guard of replication: while a remote change is applied under
// its own causal id, the resulting local notifications must not be sent back.
//
// Suppression is a counting set, so nested scopes for the same id stack.
//
// Thread-safety: Filter is safe for concurrent use.
type Filter struct {
	mu         sync.Mutex
	suppressed map[model.CausalID]int
}

// NewFilter creates a filter that suppresses nothing.
func NewFilter() *Filter {
	return &Filter{suppressed: make(map[model.CausalID]int)}
}

// Suppress starts dropping notifications caused by id and returns the
// function that ends the scope. The release function is idempotent.
//
//	release := f.Suppress(id)
//	defer release()
func (f *Filter) Suppress(id model.CausalID) (release func()) {
	f.mu.Lock()
	f.suppressed[id]++
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if f.suppressed[id]--; f.suppressed[id] <= 0 {
				delete(f.suppressed, id)
			}
		})
	}
}

// Suppressed reports whether notifications caused by id are being dropped.
func (f *Filter) Suppressed(id model.CausalID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.suppressed[id] > 0
}

// Apply returns n, or nil when it is suppressed. Suppressed parts of a
// composite are removed; a composite left without parts is dropped. The
// second result counts the dropped atomic notifications.
func (f *Filter) Apply(n model.Notification) (model.Notification, int) {
	c, ok := n.(*model.Composite)
	if !ok {
		if f.Suppressed(n.Cause()) {
			return nil, 1
		}
		return n, 0
	}

	var kept []model.Notification
	for _, p := range c.Parts {
		if !f.Suppressed(p.Cause()) {
			kept = append(kept, p)
		}
	}
	dropped := len(c.Parts) - len(kept)
	switch {
	case len(kept) == 0:
		return nil, dropped
	case dropped == 0:
		return c, 0
	default:
		return model.NewComposite(kept...), dropped
	}
}
