package harness

import "github.com/roach88/modelsync/internal/ir"

// TraceEvent is one notification as it crossed the wire.
type TraceEvent struct {
	// Seq numbers the events from 1.
	Seq int `json:"seq"`

	// Kind is the wire kind; "Composite" for a transaction.
	Kind string `json:"kind"`

	// Parts lists the atomic kinds, one entry unless Kind is Composite.
	Parts []string `json:"parts"`

	// Body is the encoded notification.
	Body ir.Object `json:"body"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step behaved as expected, the mirror and the
	// journal replay converged, and every assertion held.
	Pass bool `json:"pass"`

	// Trace contains the notifications sent to the mirror in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Journaled counts the journal entries written for the partition.
	Journaled int `json:"journaled"`

	// Suppressed counts the notifications the mirror held back as echoes.
	Suppressed int `json:"suppressed"`

	// Origin, Mirror and Replayed are dumps of the three final trees.
	Origin   string `json:"origin"`
	Mirror   string `json:"mirror"`
	Replayed string `json:"replayed"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a wire event.
func (r *Result) AddTrace(kind string, parts []string, body ir.Object) {
	r.Trace = append(r.Trace, TraceEvent{
		Seq:   len(r.Trace) + 1,
		Kind:  kind,
		Parts: parts,
		Body:  body,
	})
}
