package pipeline

import (
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/modelsync/internal/model"
)

// Pipeline is the producer → composer → filter → dispatcher chain. It
// implements model.Notifier and is attached to partition roots.
type Pipeline struct {
	gen        CauseGenerator
	composer   Composer
	filter     *Filter
	dispatcher *Dispatcher
	metrics    *Metrics

	mu   sync.Mutex
	taps []Handler
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithGenerator sets the causal id generator.
//
// Default: UUIDv7Generator.
func WithGenerator(g CauseGenerator) Option {
	return func(p *Pipeline) { p.gen = g }
}

// WithRegisterer registers the pipeline metrics with reg.
//
// Default: metrics are kept but not registered.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(p *Pipeline) { p.metrics = NewMetrics(reg) }
}

// WithFilter shares a filter between pipelines, so one suppression scope
// covers every partition a replication session writes to.
func WithFilter(f *Filter) Option {
	return func(p *Pipeline) { p.filter = f }
}

// New creates a pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		gen:        UUIDv7Generator{},
		filter:     NewFilter(),
		dispatcher: NewDispatcher(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.metrics == nil {
		p.metrics = NewMetrics(nil)
	}
	return p
}

var _ model.Notifier = (*Pipeline)(nil)

// NewCause mints a causal id.
func (p *Pipeline) NewCause() model.CausalID {
	return model.CausalID(p.gen.Generate())
}

// Notify runs n through the chain.
func (p *Pipeline) Notify(n model.Notification) {
	for _, part := range model.Unwrap(n) {
		p.metrics.Produced.WithLabelValues(part.Kind().String()).Inc()
	}
	p.mu.Lock()
	taps := p.taps
	p.mu.Unlock()
	for _, t := range taps {
		t.Handle(n)
	}

	if out := p.composer.Add(n); out != nil {
		p.forward(out)
	}
}

// forward runs a unit leaving the composer through the filter and the
// dispatcher.
func (p *Pipeline) forward(n model.Notification) {
	if c, ok := n.(*model.Composite); ok {
		p.metrics.Composite.Observe(float64(len(c.Parts)))
	}
	out, dropped := p.filter.Apply(n)
	if dropped > 0 {
		p.metrics.Suppressed.Add(float64(dropped))
		slog.Debug("notification suppressed",
			"kind", n.Kind().String(),
			"cause", string(n.Cause()),
			"dropped", dropped,
		)
	}
	if out == nil {
		return
	}
	delivered := p.dispatcher.Dispatch(out)
	p.metrics.Delivered.Add(float64(delivered))
}

// Tap registers h to observe every atomic notification as it is produced,
// before composition and filtering. Taps see suppressed notifications.
func (p *Pipeline) Tap(h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range p.taps {
		if t == h {
			return
		}
	}
	p.taps = append(p.taps, h)
}

// Untap removes a tap. Unknown handlers are ignored.
func (p *Pipeline) Untap(h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, t := range p.taps {
		if t == h {
			p.taps = append(p.taps[:i:i], p.taps[i+1:]...)
			return
		}
	}
}

// Subscribe registers h for topic on the dispatcher.
func (p *Pipeline) Subscribe(topic Topic, h Handler) { p.dispatcher.Subscribe(topic, h) }

// Unsubscribe removes h from topic.
func (p *Pipeline) Unsubscribe(topic Topic, h Handler) { p.dispatcher.Unsubscribe(topic, h) }

// Suppress drops notifications caused by id until the returned function is called.
func (p *Pipeline) Suppress(id model.CausalID) func() { return p.filter.Suppress(id) }

// Filter returns the pipeline's filter.
func (p *Pipeline) Filter() *Filter { return p.filter }

// Metrics returns the pipeline's metrics.
func (p *Pipeline) Metrics() *Metrics { return p.metrics }

// Begin opens a transaction: notifications are buffered until the matching
// End and then delivered as one composite.
func (p *Pipeline) Begin() { p.composer.Begin() }

// Composing reports whether a transaction is open.
func (p *Pipeline) Composing() bool { return p.composer.Active() }

// End closes the innermost transaction, flushing when it is the outermost.
func (p *Pipeline) End() {
	if out := p.composer.End(); out != nil {
		p.forward(out)
	}
}

// Transaction runs fn inside Begin/End. Mutations are not rolled back when
// fn fails; whatever was applied is still delivered.
func (p *Pipeline) Transaction(fn func() error) error {
	p.Begin()
	defer p.End()
	return fn()
}
