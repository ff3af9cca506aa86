package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	approvals     *prometheus.CounterVec
	rejections    *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	discrepancies *prometheus.CounterVec
	feedErrors    *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	lastPrice     *prometheus.GaugeVec
	latency       *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		approvals: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalgate_approvals_total",
				Help: "Signals approved by the release gate",
			},
			[]string{"asset"},
		),
		rejections: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalgate_rejections_total",
				Help: "Candidates rejected by the release gate",
			},
			[]string{"asset", "reason"},
		),
		transitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalgate_transitions_total",
				Help: "Applied lifecycle state transitions",
			},
			[]string{"from", "to"},
		),
		discrepancies: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalgate_discrepancies_total",
				Help: "Discrepancies flagged by the reconciler",
			},
			[]string{"type"},
		),
		feedErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalgate_feed_errors_total",
				Help: "Price feed failures by feed",
			},
			[]string{"feed"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalgate_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "signalgate_last_price",
				Help: "Last recorded price for an asset",
			},
			[]string{"asset"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signalgate_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordApproval records a gate approval.
func (r *Recorder) RecordApproval(asset string) {
	r.approvals.WithLabelValues(asset).Inc()
}

// RecordRejection records a gate rejection with its reason.
func (r *Recorder) RecordRejection(asset, reason string) {
	r.rejections.WithLabelValues(asset, reason).Inc()
}

// RecordTransition records an applied lifecycle transition.
func (r *Recorder) RecordTransition(from, to string) {
	r.transitions.WithLabelValues(from, to).Inc()
}

// RecordDiscrepancy records a flagged reconciler observation.
func (r *Recorder) RecordDiscrepancy(kind string) {
	r.discrepancies.WithLabelValues(kind).Inc()
}

// RecordFeedError records a price feed failure.
func (r *Recorder) RecordFeedError(feed string) {
	r.feedErrors.WithLabelValues(feed).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for an asset.
func (r *Recorder) RecordLastPrice(asset string, price float64) {
	r.lastPrice.WithLabelValues(asset).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
