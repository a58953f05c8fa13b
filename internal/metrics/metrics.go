package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

const namespace = "replay"

// Collector records replay buffer metrics in Prometheus and mirrors the
// notable ones as structured log lines.
type Collector struct {
	logger zerolog.Logger

	pushed        prometheus.Counter
	sampled       prometheus.Counter
	updated       prometheus.Counter
	size          prometheus.Gauge
	capacity      prometheus.Gauge
	maxPriority   prometheus.Gauge
	totalPriority prometheus.Gauge
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	checkpoints   *prometheus.CounterVec
}

// NewCollector registers the replay metrics on reg.
func NewCollector(reg prometheus.Registerer, logger zerolog.Logger) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		logger: logger,
		pushed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_pushed_total",
			Help:      "Total transitions written to the buffer",
		}),
		sampled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_sampled_total",
			Help:      "Total transitions returned by Sample",
		}),
		updated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "priority_updates_total",
			Help:      "Total priorities assigned by UpdatePriorities",
		}),
		size: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "buffer_size",
			Help:      "Number of stored transitions",
		}),
		capacity: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "buffer_capacity",
			Help:      "Maximum number of stored transitions",
		}),
		maxPriority: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "max_priority",
			Help:      "Largest raw priority seen by the buffer",
		}),
		totalPriority: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "total_priority",
			Help:      "Sum of priority^alpha over all stored transitions",
		}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "RPCs handled by method and status code",
		}, []string{"method", "code"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "RPC duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		}, []string{"method"}),
		checkpoints: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkpoints_total",
			Help:      "Checkpoints attempted by result",
		}, []string{"result"}),
	}
}

// Pushed tracks transitions written by Push.
func (c *Collector) Pushed(n int) {
	c.pushed.Add(float64(n))
}

// Sampled tracks transitions returned by Sample.
func (c *Collector) Sampled(n int) {
	c.sampled.Add(float64(n))
}

// PrioritiesUpdated tracks priorities assigned by UpdatePriorities.
func (c *Collector) PrioritiesUpdated(n int) {
	c.updated.Add(float64(n))
}

// BufferState publishes the current fill level and priority mass.
func (c *Collector) BufferState(size, capacity int, maxPriority, totalPriority float64) {
	c.size.Set(float64(size))
	c.capacity.Set(float64(capacity))
	c.maxPriority.Set(maxPriority)
	c.totalPriority.Set(totalPriority)
}

// RPC tracks a finished RPC.
func (c *Collector) RPC(method, code string, d time.Duration) {
	c.requests.WithLabelValues(method, code).Inc()
	c.duration.WithLabelValues(method).Observe(d.Seconds())
}

// PhaseTransition logs a buffer phase change.
func (c *Collector) PhaseTransition(from, to string, size int) {
	c.logger.Info().
		Str("metric", "phase_transition").
		Str("from_phase", from).
		Str("to_phase", to).
		Int("len", size).
		Msg("Buffer phase transition")
}

// CheckpointSaved tracks a successful checkpoint.
func (c *Collector) CheckpointSaved(id string, records int, d time.Duration) {
	c.checkpoints.WithLabelValues("ok").Inc()
	c.logger.Info().
		Str("metric", "checkpoint_saved").
		Str("checkpoint_id", id).
		Int("records", records).
		Dur("duration", d).
		Msg("Checkpoint metric")
}

// CheckpointFailed tracks a failed checkpoint.
func (c *Collector) CheckpointFailed(err error) {
	c.checkpoints.WithLabelValues("error").Inc()
	c.logger.Warn().
		Str("metric", "checkpoint_failed").
		Err(err).
		Msg("Checkpoint metric")
}
