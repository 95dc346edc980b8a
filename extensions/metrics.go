package extensions

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	scoped "github.com/pumped-fn/scoped-go"
)

// MetricsExtension exports Prometheus metrics for channel operations:
//
//   - scoped_operations_total{op,channel}
//   - scoped_errors_total{op,channel}
//   - scoped_active_bindings{channel}
//   - scoped_frame_duration_seconds{op,channel}
//
// Frames opened with Enter are reported with an empty channel label.
type MetricsExtension struct {
	scoped.BaseExtension
	registerer prometheus.Registerer

	operations *prometheus.CounterVec
	errors     *prometheus.CounterVec
	active     *prometheus.GaugeVec
	duration   *prometheus.HistogramVec
}

// NewMetricsExtension creates a metrics extension that registers its
// collectors with reg when added to a registry. A nil reg uses
// prometheus.DefaultRegisterer.
func NewMetricsExtension(reg prometheus.Registerer) *MetricsExtension {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &MetricsExtension{
		BaseExtension: scoped.NewBaseExtension("metrics"),
		registerer:    reg,
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scoped_operations_total",
				Help: "Number of bind, enter, resolve and update operations.",
			},
			[]string{"op", "channel"},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scoped_errors_total",
				Help: "Number of operations that returned an error.",
			},
			[]string{"op", "channel"},
		),
		active: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "scoped_active_bindings",
				Help: "Bindings currently pushed, across all traversals.",
			},
			[]string{"channel"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scoped_frame_duration_seconds",
				Help:    "Time spent evaluating subtrees.",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{"op", "channel"},
		),
	}
}

func (e *MetricsExtension) Order() int {
	return 10
}

func (e *MetricsExtension) Init(r *scoped.Registry) error {
	for _, c := range e.collectors() {
		if err := e.registerer.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}

func (e *MetricsExtension) Wrap(ctx context.Context, next func() (any, error), op *scoped.Operation) (any, error) {
	channel := channelLabel(op)
	e.operations.WithLabelValues(string(op.Kind), channel).Inc()

	if op.Kind != scoped.OpBind && op.Kind != scoped.OpEnter {
		return next()
	}

	if op.Kind == scoped.OpBind {
		e.active.WithLabelValues(channel).Inc()
		defer e.active.WithLabelValues(channel).Dec()
	}

	start := time.Now()
	defer func() {
		e.duration.WithLabelValues(string(op.Kind), channel).Observe(time.Since(start).Seconds())
	}()
	return next()
}

func (e *MetricsExtension) OnResolve(op *scoped.Operation) {
	e.operations.WithLabelValues(string(op.Kind), channelLabel(op)).Inc()
}

func (e *MetricsExtension) OnError(err error, op *scoped.Operation, r *scoped.Registry) {
	e.errors.WithLabelValues(string(op.Kind), channelLabel(op)).Inc()
}

func (e *MetricsExtension) Dispose(r *scoped.Registry) error {
	for _, c := range e.collectors() {
		e.registerer.Unregister(c)
	}
	return nil
}

func (e *MetricsExtension) collectors() []prometheus.Collector {
	return []prometheus.Collector{e.operations, e.errors, e.active, e.duration}
}

func channelLabel(op *scoped.Operation) string {
	if op.Channel == nil {
		return ""
	}
	return op.Channel.Name()
}
