// Package metrics provides Prometheus metrics for article-analyzer.
package metrics

import (
	"time"

	"github.com/dtnitsch/article-analyzer/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "article_analyzer"

var (
	// BatchesTotal counts finished batches.
	BatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Total number of processed batches",
		},
	)

	// BatchesInProgress is 1 while a batch runs.
	BatchesInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batches_in_progress",
			Help:      "Number of batches currently running",
		},
	)

	// BatchSize observes the number of URLs per batch.
	BatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Distribution of batch sizes",
			Buckets:   []float64{1, 2, 5, 10, 25, 50},
		},
	)

	// BatchDuration measures wall time per batch.
	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Duration of batches in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)

	// ItemsTotal counts items by terminal status and error code.
	ItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_total",
			Help:      "Total number of processed URLs",
		},
		[]string{"status", "code"},
	)

	// PhaseDuration measures each pipeline phase.
	PhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Duration of pipeline phases in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"phase", "status"},
	)

	// AugmentTotal counts rewrite and question requests.
	AugmentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "augment_total",
			Help:      "Total number of augmentation requests",
		},
		[]string{"operation", "status"},
	)
)

// Recorder feeds pipeline events into the package metrics.
type Recorder struct{}

func (Recorder) BatchStarted(size int) {
	BatchesInProgress.Inc()
	BatchSize.Observe(float64(size))
}

func (Recorder) PhaseFinished(phase models.Phase, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	PhaseDuration.WithLabelValues(phase.String(), status).Observe(d.Seconds())
}

func (Recorder) ItemFinished(status models.TaskStatus, code models.ErrorCode) {
	ItemsTotal.WithLabelValues(string(status), string(code)).Inc()
}

func (Recorder) BatchFinished(d time.Duration) {
	BatchesInProgress.Dec()
	BatchesTotal.Inc()
	BatchDuration.Observe(d.Seconds())
}

// RecordAugment records a rewrite or question generation request.
func RecordAugment(operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	AugmentTotal.WithLabelValues(operation, status).Inc()
}
