package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giru_attempts_total",
			Help: "Total number of model attempts made by the fallback loop",
		},
		[]string{"provider", "model", "status"},
	)

	AttemptDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "giru_attempt_duration_seconds",
			Help:    "Model attempt duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"provider", "model"},
	)

	FallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giru_fallbacks_total",
			Help: "Total number of times a candidate failed and the chain advanced",
		},
		[]string{"model"},
	)

	ExhaustedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "giru_chain_exhausted_total",
			Help: "Total number of calls that exhausted every candidate",
		},
	)

	StreamFramesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giru_stream_frames_skipped_total",
			Help: "Total number of undecodable stream frames skipped",
		},
		[]string{"provider"},
	)

	ActiveStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "giru_active_streams",
			Help: "Number of streaming calls currently in flight",
		},
	)
)

func RecordAttempt(provider, model, status string, durationSec float64) {
	AttemptsTotal.WithLabelValues(provider, model, status).Inc()
	AttemptDuration.WithLabelValues(provider, model).Observe(durationSec)
}

func RecordFallback(model string) {
	FallbacksTotal.WithLabelValues(model).Inc()
}

func RecordExhausted() {
	ExhaustedTotal.Inc()
}

// RecordSkippedFrame counts one stream frame that failed to decode and
// was silently skipped by an adapter.
func RecordSkippedFrame(provider string) {
	StreamFramesSkipped.WithLabelValues(provider).Inc()
}

func IncActiveStreams() {
	ActiveStreams.Inc()
}

func DecActiveStreams() {
	ActiveStreams.Dec()
}
