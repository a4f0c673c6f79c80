// Package metrics provides Prometheus metrics for the document text pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the pipeline.
type Metrics struct {
	// Page-level outcomes
	PagesProcessedTotal *prometheus.CounterVec
	PagesBlockedTotal   prometheus.Counter
	LowConfidencePages  prometheus.Counter
	QualityFlagsTotal   *prometheus.CounterVec

	// OCR job metrics
	OCRJobsSubmittedTotal prometheus.Counter
	OCRJobsCompletedTotal *prometheus.CounterVec
	OCRJobDuration        prometheus.Histogram
	OCRPagesInFlight      prometheus.Gauge

	// Fusion metrics
	HybridMergesTotal     prometheus.Counter
	OCRLinesDroppedTotal  *prometheus.CounterVec
	BackfillTriggersTotal prometheus.Counter
}

// New creates the pipeline metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{}

	m.PagesProcessedTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "doctext_pages_processed_total",
			Help: "Total number of pages processed, labeled by final text source",
		},
		[]string{"source"},
	)

	m.PagesBlockedTotal = promauto.With(reg).NewCounter(
		prometheus.CounterOpts{
			Name: "doctext_pages_blocked_total",
			Help: "Total number of pages blocked pending OCR",
		},
	)

	m.LowConfidencePages = promauto.With(reg).NewCounter(
		prometheus.CounterOpts{
			Name: "doctext_low_confidence_pages_total",
			Help: "Total number of pages classified below the completeness gate",
		},
	)

	m.QualityFlagsTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "doctext_quality_flags_total",
			Help: "Total quality flags raised during classification",
		},
		[]string{"flag"},
	)

	m.OCRJobsSubmittedTotal = promauto.With(reg).NewCounter(
		prometheus.CounterOpts{
			Name: "doctext_ocr_jobs_submitted_total",
			Help: "Total OCR job requests submitted",
		},
	)

	m.OCRJobsCompletedTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "doctext_ocr_jobs_completed_total",
			Help: "Total OCR job replies received, labeled by status",
		},
		[]string{"status"},
	)

	m.OCRJobDuration = promauto.With(reg).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "doctext_ocr_job_duration_seconds",
			Help:    "Wall-clock duration of OCR jobs in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	m.OCRPagesInFlight = promauto.With(reg).NewGauge(
		prometheus.GaugeOpts{
			Name: "doctext_ocr_pages_in_flight",
			Help: "Number of pages currently awaiting an OCR reply",
		},
	)

	m.HybridMergesTotal = promauto.With(reg).NewCounter(
		prometheus.CounterOpts{
			Name: "doctext_hybrid_merges_total",
			Help: "Total pages whose final text merged native and OCR lines",
		},
	)

	m.OCRLinesDroppedTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "doctext_ocr_lines_dropped_total",
			Help: "Total OCR lines dropped by the postprocessing filters",
		},
		[]string{"reason"},
	)

	m.BackfillTriggersTotal = promauto.With(reg).NewCounter(
		prometheus.CounterOpts{
			Name: "doctext_backfill_triggers_total",
			Help: "Total pages where weak-signal consensus requested OCR backfill",
		},
	)

	return m
}

// RecordPage records a finalized page by its text source.
func (m *Metrics) RecordPage(source string, blocked bool) {
	m.PagesProcessedTotal.WithLabelValues(source).Inc()
	if blocked {
		m.PagesBlockedTotal.Inc()
	}
}

// RecordOCRJob records one completed OCR job round trip.
func (m *Metrics) RecordOCRJob(status string, duration time.Duration) {
	m.OCRJobsCompletedTotal.WithLabelValues(status).Inc()
	m.OCRJobDuration.Observe(duration.Seconds())
}
