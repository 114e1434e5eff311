package pipeline

import "github.com/roach88/modelsync/internal/model"

// Composer groups the notifications of a transaction into one composite.
// Transactions nest; only the outermost End flushes.
//
// Composer is not safe for concurrent use; it runs on the writer's goroutine.
type Composer struct {
	depth   int
	pending []model.Notification
}

// Begin opens a (possibly nested) transaction.
func (c *Composer) Begin() { c.depth++ }

// Active reports whether a transaction is open.
func (c *Composer) Active() bool { return c.depth > 0 }

// Add buffers n when a transaction is open and returns nil, or returns n
// unchanged otherwise.
func (c *Composer) Add(n model.Notification) model.Notification {
	if c.depth == 0 {
		return n
	}
	c.pending = append(c.pending, n)
	return nil
}

// End closes the innermost transaction. Closing the outermost one returns the
// composite of everything buffered, or nil when nothing happened. Calling End
// without a transaction returns nil.
func (c *Composer) End() model.Notification {
	if c.depth == 0 {
		return nil
	}
	c.depth--
	if c.depth > 0 || len(c.pending) == 0 {
		return nil
	}
	out := model.NewComposite(c.pending...)
	c.pending = nil
	return out
}
