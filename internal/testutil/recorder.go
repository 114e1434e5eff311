package testutil

import (
	"fmt"

	"github.com/roach88/modelsync/internal/model"
)

// Recorder is a model.Notifier that keeps every notification it receives
// and mints causal ids "cause-1", "cause-2", ...
type Recorder struct {
	Notifications []model.Notification
	causes        int
}

func (r *Recorder) NewCause() model.CausalID {
	r.causes++
	return model.CausalID(fmt.Sprintf("cause-%d", r.causes))
}

func (r *Recorder) Notify(n model.Notification) {
	r.Notifications = append(r.Notifications, n)
}

// Kinds returns the kinds of the recorded notifications in order.
func (r *Recorder) Kinds() []model.Kind {
	out := make([]model.Kind, len(r.Notifications))
	for i, n := range r.Notifications {
		out[i] = n.Kind()
	}
	return out
}

// Last returns the most recent notification, or nil.
func (r *Recorder) Last() model.Notification {
	if len(r.Notifications) == 0 {
		return nil
	}
	return r.Notifications[len(r.Notifications)-1]
}

// Reset forgets the recorded notifications.
func (r *Recorder) Reset() { r.Notifications = nil }
