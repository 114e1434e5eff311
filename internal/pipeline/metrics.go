package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts the notifications flowing through a pipeline.
type Metrics struct {
	Produced   *prometheus.CounterVec
	Suppressed prometheus.Counter
	Delivered  prometheus.Counter
	Composite  prometheus.Histogram
}

// NewMetrics creates the pipeline metrics and registers them with reg.
// A nil reg leaves them unregistered, which is what tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Produced: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "modelsync_notifications_produced_total",
			Help: "Atomic notifications produced by the node store",
		}, []string{"kind"}),
		Suppressed: factory.NewCounter(prometheus.CounterOpts{
			Name: "modelsync_notifications_suppressed_total",
			Help: "Atomic notifications dropped by echo suppression",
		}),
		Delivered: factory.NewCounter(prometheus.CounterOpts{
			Name: "modelsync_notifications_delivered_total",
			Help: "Handler invocations made by the dispatcher",
		}),
		Composite: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "modelsync_composite_parts",
			Help:    "Number of parts per composite notification",
			Buckets: []float64{1, 2, 4, 8, 16, 64, 256},
		}),
	}
}
