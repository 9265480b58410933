// Package metrics exposes Prometheus collectors for download jobs.
package metrics

import (
	"net/http"
	"time"

	"fetcharr/internal/domain/consts"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fetcharr"

// Metrics records job lifecycle measurements on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	submittedTotal  *prometheus.CounterVec
	finishedTotal   *prometheus.CounterVec
	active          prometheus.Gauge
	droppedTotal    prometheus.Counter
	durationSeconds prometheus.Histogram
}

// New creates and registers the job collectors together with the Go runtime
// and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.submittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_submitted_total",
			Help:      "Download jobs started, by requested format.",
		},
		[]string{"format"},
	)

	m.finishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_finished_total",
			Help:      "Download jobs that reached a terminal status.",
		},
		[]string{"status"},
	)

	m.active = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_active",
			Help:      "Download jobs currently tracked.",
		},
	)

	m.droppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Events discarded because a subscriber fell behind.",
		},
	)

	// Downloads run from seconds to hours
	m.durationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Time from job start to its terminal status.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	m.registry.MustRegister(
		m.submittedTotal,
		m.finishedTotal,
		m.active,
		m.droppedTotal,
		m.durationSeconds,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// JobSubmitted counts a started job.
func (m *Metrics) JobSubmitted(format consts.Format) {
	m.submittedTotal.WithLabelValues(string(format)).Inc()
}

// JobFinished counts a terminal job and observes how long it ran.
func (m *Metrics) JobFinished(status consts.DownloadStatus, elapsed time.Duration) {
	m.finishedTotal.WithLabelValues(string(status)).Inc()
	if elapsed > 0 {
		m.durationSeconds.Observe(elapsed.Seconds())
	}
}

// ActiveJobs sets the number of tracked jobs.
func (m *Metrics) ActiveJobs(n int) {
	m.active.Set(float64(n))
}

// EventDropped counts one discarded event.
func (m *Metrics) EventDropped() {
	m.droppedTotal.Inc()
}

// WatchSubscribers exports the subscriber count reported by count at scrape time.
func (m *Metrics) WatchSubscribers(count func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_subscribers",
			Help:      "Clients currently subscribed to job events.",
		},
		func() float64 { return float64(count()) },
	))
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
