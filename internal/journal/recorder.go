package journal

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/modelsync/internal/model"
)

// Recorder appends the notifications of one partition to a journal. It is
// a pipeline.Handler; tap it on the partition's pipeline to record
// changes applied from a peer as well as local ones.
//
// The context is held for the handler's lifetime because Handle has no
// context of its own.
type Recorder struct {
	j         *Journal
	ctx       context.Context
	partition string

	mu       sync.Mutex
	appended int
	err      error
}

// Recorder returns a handler that journals notifications whose context is
// partition. Others are ignored.
func (j *Journal) Recorder(ctx context.Context, partition string) *Recorder {
	return &Recorder{j: j, ctx: ctx, partition: partition}
}

// Handle appends n. Failures are logged and kept for Err; later
// notifications are still attempted.
func (r *Recorder) Handle(n model.Notification) {
	if n.ContextNodeID() != r.partition {
		return
	}
	seq, err := r.j.Append(r.ctx, n)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.err = err
		slog.Error("journal append failed",
			"partition", r.partition,
			"kind", n.Kind().String(),
			"cause", string(n.Cause()),
			"error", err,
		)
		return
	}
	r.appended++
	slog.Debug("journal append",
		"partition", r.partition,
		"seq", seq,
		"kind", n.Kind().String(),
	)
}

// Appended returns the number of notifications stored so far.
func (r *Recorder) Appended() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.appended
}

// Err returns the last append error, or nil.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
