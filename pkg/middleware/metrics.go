package middleware

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/vango-stream/pkg/stream"
)

// MetricsConfig configures the Prometheus stream metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "vango").
	Namespace string

	// Subsystem is the metrics subsystem (default: "stream").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for stream durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus stream metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "vango",
		Subsystem: "stream",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics records stream lifecycle metrics. It implements stream.Observer.
//
// Metrics collected (default namespace and subsystem):
//   - vango_stream_streams_total: Counter of finished streams by mode and status
//   - vango_stream_duration_seconds: Histogram of total stream duration by mode
//   - vango_stream_first_flush_seconds: Histogram of time to first flush by mode
//   - vango_stream_fragments_total: Counter of fragments written
//   - vango_stream_fragment_bytes: Histogram of fragment sizes
//   - vango_stream_active_streams: Gauge of streams in progress
type Metrics struct {
	config MetricsConfig

	streamsTotal   *prometheus.CounterVec
	streamDuration *prometheus.HistogramVec
	firstFlush     *prometheus.HistogramVec
	fragmentsTotal prometheus.Counter
	fragmentBytes  prometheus.Histogram
	activeStreams  prometheus.Gauge
}

var _ stream.Observer = (*Metrics)(nil)

// NewMetrics registers the stream metrics.
// It panics if the metrics are already registered with the registry.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		config: config,

		streamsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "streams_total",
			Help:        "Total number of finished streams",
			ConstLabels: config.ConstLabels,
		}, []string{"mode", "status"}),

		streamDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "duration_seconds",
			Help:        "Stream duration from start to quiescence in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"mode"}),

		firstFlush: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "first_flush_seconds",
			Help:        "Time from stream start to the first flush in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"mode"}),

		fragmentsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "fragments_total",
			Help:        "Total number of fragments written",
			ConstLabels: config.ConstLabels,
		}),

		fragmentBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "fragment_bytes",
			Help:        "Size of written fragments in bytes",
			ConstLabels: config.ConstLabels,
			Buckets:     prometheus.ExponentialBuckets(64, 4, 8), // 64B to 1MB
		}),

		activeStreams: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active_streams",
			Help:        "Number of streams in progress",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// StreamStarted implements stream.Observer.
func (m *Metrics) StreamStarted(mode string) {
	m.activeStreams.Inc()
}

// FirstFlush implements stream.Observer.
func (m *Metrics) FirstFlush(mode string, elapsed time.Duration) {
	m.firstFlush.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// FragmentWritten implements stream.Observer.
func (m *Metrics) FragmentWritten(bytes int) {
	m.fragmentsTotal.Inc()
	m.fragmentBytes.Observe(float64(bytes))
}

// StreamFinished implements stream.Observer.
func (m *Metrics) StreamFinished(mode, status string, elapsed time.Duration) {
	m.activeStreams.Dec()
	m.streamsTotal.WithLabelValues(mode, status).Inc()
	m.streamDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// Handler returns the exposition handler for the configured registry.
func (m *Metrics) Handler() http.Handler {
	if g, ok := m.config.Registry.(prometheus.Gatherer); ok {
		return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
	}
	return promhttp.Handler()
}
