package runtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/veil-ui/veil/pkg/reconcile"
)

// MetricsConfig configures the Prometheus metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "veil").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for render pass duration.
	// Default: prometheus.DefBuckets.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) { c.Namespace = namespace }
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) { c.Subsystem = subsystem }
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) { c.ConstLabels = labels }
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) { c.Buckets = buckets }
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) { c.Registry = registry }
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "veil",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the Prometheus metrics an App records.
//
// Metrics collected:
//   - veil_mounts_total: Counter of instance mounts by component
//   - veil_unmounts_total: Counter of instance unmounts by component
//   - veil_render_passes_total: Counter of render passes by component and status
//   - veil_render_duration_seconds: Histogram of render pass duration by component
//   - veil_patch_ops_total: Counter of tree mutations by operation
type Metrics struct {
	mountsTotal    *prometheus.CounterVec
	unmountsTotal  *prometheus.CounterVec
	renderPasses   *prometheus.CounterVec
	renderDuration *prometheus.HistogramVec
	patchOps       *prometheus.CounterVec
}

// NewMetrics registers and returns the metrics. Register at most once per
// registry.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		mountsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "mounts_total",
			Help:        "Total number of component instances mounted",
			ConstLabels: config.ConstLabels,
		}, []string{"component"}),

		unmountsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "unmounts_total",
			Help:        "Total number of component instances unmounted",
			ConstLabels: config.ConstLabels,
		}, []string{"component"}),

		renderPasses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "render_passes_total",
			Help:        "Total number of render passes by status",
			ConstLabels: config.ConstLabels,
		}, []string{"component", "status"}),

		renderDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "render_duration_seconds",
			Help:        "Render pass duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"component"}),

		patchOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "patch_ops_total",
			Help:        "Total tree mutations applied by the reconciler",
			ConstLabels: config.ConstLabels,
		}, []string{"op"}),
	}
}

func (m *Metrics) recordMount(component string) {
	if m != nil {
		m.mountsTotal.WithLabelValues(component).Inc()
	}
}

func (m *Metrics) recordUnmount(component string) {
	if m != nil {
		m.unmountsTotal.WithLabelValues(component).Inc()
	}
}

func (m *Metrics) recordRender(component string, seconds float64, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.renderPasses.WithLabelValues(component, status).Inc()
	if err == nil {
		m.renderDuration.WithLabelValues(component).Observe(seconds)
	}
}

// Recorder adapts the metrics into a reconcile.Recorder so patch passes
// feed the mutation counters.
func (m *Metrics) Recorder() reconcile.Recorder {
	return patchOpRecorder{m}
}

type patchOpRecorder struct{ m *Metrics }

func (r patchOpRecorder) AttrWritten()  { r.m.patchOps.WithLabelValues("attr_write").Inc() }
func (r patchOpRecorder) AttrRemoved()  { r.m.patchOps.WithLabelValues("attr_remove").Inc() }
func (r patchOpRecorder) TextWritten()  { r.m.patchOps.WithLabelValues("text_write").Inc() }
func (r patchOpRecorder) NodeInserted() { r.m.patchOps.WithLabelValues("insert").Inc() }
func (r patchOpRecorder) NodeMoved()    { r.m.patchOps.WithLabelValues("move").Inc() }
func (r patchOpRecorder) NodeRemoved()  { r.m.patchOps.WithLabelValues("remove").Inc() }
