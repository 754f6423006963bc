package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the pipeline's prometheus instruments. Each collector owns
// its own registry so tests can construct collectors independently.
type Collector struct {
	registry           *prometheus.Registry
	processed          prometheus.Counter
	alerted            *prometheus.CounterVec
	errors             prometheus.Counter
	notifications      *prometheus.CounterVec
	processingDuration prometheus.Histogram
	modelScores        prometheus.Histogram
	queueDepth         prometheus.Gauge
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	return &Collector{
		registry: registry,
		processed: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "fraudguard_transactions_processed_total",
			Help: "Total number of transactions processed without alerts",
		}),
		alerted: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "fraudguard_transactions_alerted_total",
			Help: "Total number of alerted transactions by max severity",
		}, []string{"severity"}),
		errors: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "fraudguard_processing_errors_total",
			Help: "Total number of transaction processing errors",
		}),
		notifications: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "fraudguard_notifications_total",
			Help: "Total notification attempts by channel and outcome",
		}, []string{"channel", "status"}),
		processingDuration: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "fraudguard_processing_duration_seconds",
			Help:    "Time taken to process one transaction",
			Buckets: prometheus.DefBuckets,
		}),
		modelScores: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "fraudguard_model_score_distribution",
			Help:    "Distribution of model fraud scores",
			Buckets: []float64{0, 0.2, 0.4, 0.6, 0.8, 1.0},
		}),
		queueDepth: promauto.With(registry).NewGauge(prometheus.GaugeOpts{
			Name: "fraudguard_queue_depth",
			Help: "Current number of pending entries on the work queue",
		}),
	}
}

// RecordProcessed increments the processed-without-alert counter
func (c *Collector) RecordProcessed() {
	c.processed.Inc()
}

// RecordAlert increments the alerted counter for the given max severity
func (c *Collector) RecordAlert(severity int) {
	c.alerted.WithLabelValues(strconv.Itoa(severity)).Inc()
}

// RecordError increments the processing error counter
func (c *Collector) RecordError() {
	c.errors.Inc()
}

// RecordNotification records one notification attempt outcome
func (c *Collector) RecordNotification(channel string, success bool) {
	status := "success"
	if !success {
		status = "failed"
	}
	c.notifications.WithLabelValues(channel, status).Inc()
}

// RecordProcessingTime observes one transaction's processing duration
func (c *Collector) RecordProcessingTime(d time.Duration) {
	c.processingDuration.Observe(d.Seconds())
}

// RecordModelScore observes one model score
func (c *Collector) RecordModelScore(score float64) {
	c.modelScores.Observe(score)
}

// SetQueueDepth sets the pending queue depth gauge
func (c *Collector) SetQueueDepth(depth int64) {
	c.queueDepth.Set(float64(depth))
}

// Handler returns the HTTP handler serving this collector's registry
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
