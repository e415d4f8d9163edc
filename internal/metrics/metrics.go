// Package metrics holds the Prometheus collectors for segmentation and
// coordination. Collectors register on a caller-provided registry; a nil
// *Collectors is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "segmenter"

// #region collectors

// Collectors groups every metric the engine records.
type Collectors struct {
	segmentsTotal      *prometheus.CounterVec
	segmentDuration    *prometheus.HistogramVec
	escalationsTotal   *prometheus.CounterVec
	escalationsDropped prometheus.Counter
	stageDuration      prometheus.Histogram
	cacheLookups       *prometheus.CounterVec
	queriesTotal       *prometheus.CounterVec
	tokensTotal        prometheus.Counter
	planStages         prometheus.Histogram
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Collectors {
	f := promauto.With(reg)
	return &Collectors{
		segmentsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_total",
			Help:      "Segments executed by type and outcome",
		}, []string{"type", "outcome"}),
		segmentDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "segment_duration_seconds",
			Help:      "Segment execution time by tier",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
		}, []string{"tier"}),
		escalationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escalations_total",
			Help:      "Escalation children enqueued by reason",
		}, []string{"reason"}),
		escalationsDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escalations_dropped_total",
			Help:      "Escalations dropped because the queue was full",
		}),
		stageDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time per execution stage",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		cacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Segmentation cache lookups by result",
		}, []string{"result"}),
		queriesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Coordinated queries by outcome",
		}, []string{"outcome"}),
		tokensTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_total",
			Help:      "Model tokens consumed",
		}),
		planStages: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "plan_stages",
			Help:      "Stages per execution plan",
			Buckets:   []float64{1, 2, 3, 4, 5, 8, 13},
		}),
	}
}

// #endregion collectors

// #region record

// SegmentFinished records one segment execution.
func (c *Collectors) SegmentFinished(typ, tier string, success bool, d time.Duration, tokens int) {
	if c == nil {
		return
	}
	outcome := "completed"
	if !success {
		outcome = "failed"
	}
	c.segmentsTotal.WithLabelValues(typ, outcome).Inc()
	c.segmentDuration.WithLabelValues(tier).Observe(d.Seconds())
	if tokens > 0 {
		c.tokensTotal.Add(float64(tokens))
	}
}

// Escalated records an enqueued escalation.
func (c *Collectors) Escalated(reason string) {
	if c == nil {
		return
	}
	c.escalationsTotal.WithLabelValues(reason).Inc()
}

// EscalationDropped records an escalation lost to a full queue.
func (c *Collectors) EscalationDropped() {
	if c == nil {
		return
	}
	c.escalationsDropped.Inc()
}

// StageFinished records the wall time of one stage.
func (c *Collectors) StageFinished(d time.Duration) {
	if c == nil {
		return
	}
	c.stageDuration.Observe(d.Seconds())
}

// CacheLookup records a cache lookup; result is "hit" or "miss".
func (c *Collectors) CacheLookup(result string) {
	if c == nil {
		return
	}
	c.cacheLookups.WithLabelValues(result).Inc()
}

// QueryFinished records the outcome of a coordinated query.
func (c *Collectors) QueryFinished(outcome string) {
	if c == nil {
		return
	}
	c.queriesTotal.WithLabelValues(outcome).Inc()
}

// PlanBuilt records the size of an execution plan.
func (c *Collectors) PlanBuilt(stages int) {
	if c == nil {
		return
	}
	c.planStages.Observe(float64(stages))
}

// #endregion record
