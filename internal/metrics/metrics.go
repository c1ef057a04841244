// Package metrics exposes Prometheus instrumentation for the dispatch
// pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the collectors the engine reports into. All vectors are
// safe for concurrent use.
type Metrics struct {
	registry *prometheus.Registry

	EventsReceived  *prometheus.CounterVec
	EventsDropped   *prometheus.CounterVec
	Deliveries      *prometheus.CounterVec
	Deduplicated    prometheus.Counter
	QuietSuppressed prometheus.Counter
	DigestBuffered  prometheus.Counter
	DigestFlushes   *prometheus.CounterVec
	SendDuration    *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		EventsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifier_events_received_total",
			Help: "Events accepted for dispatch, by event type.",
		}, []string{"type"}),
		EventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifier_events_dropped_total",
			Help: "Events dropped because the dispatch queue was full.",
		}, []string{"type"}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifier_deliveries_total",
			Help: "Channel delivery attempts, by channel and outcome.",
		}, []string{"channel", "status"}),
		Deduplicated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notifier_deduplicated_total",
			Help: "Per-recipient deliveries skipped as duplicates.",
		}),
		QuietSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notifier_quiet_suppressed_total",
			Help: "External deliveries suppressed by quiet hours.",
		}),
		DigestBuffered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notifier_digest_buffered_total",
			Help: "Notifications deferred into a digest bucket.",
		}),
		DigestFlushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifier_digest_flushes_total",
			Help: "Digest flush runs, by period.",
		}, []string{"period"}),
		SendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "notifier_send_duration_seconds",
			Help:    "Wall time of individual channel sends.",
			Buckets: prometheus.DefBuckets,
		}, []string{"channel"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.EventsReceived,
		m.EventsDropped,
		m.Deliveries,
		m.Deduplicated,
		m.QuietSuppressed,
		m.DigestBuffered,
		m.DigestFlushes,
		m.SendDuration,
	)
	return m
}

// Handler serves the scrape endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
