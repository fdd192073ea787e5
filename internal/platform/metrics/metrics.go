package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the edit engine.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal      prometheus.Counter
	editsTotal         prometheus.Counter
	editsRejectedTotal prometheus.Counter
	undosTotal         prometheus.Counter
	redosTotal         prometheus.Counter
	errorsTotal        prometheus.Counter

	timelineVersion  prometheus.Gauge
	timelineTracks   prometheus.Gauge
	timelineSegments prometheus.Gauge
}

// New creates and registers Prometheus metrics for the edit engine.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "editor_requests_total",
			Help: "Total number of HTTP requests received",
		}),
		editsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "editor_edits_total",
			Help: "Total number of edit commands executed",
		}),
		editsRejectedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "editor_edits_rejected_total",
			Help: "Total number of edit commands rejected (overlap, missing ID)",
		}),
		undosTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "editor_undos_total",
			Help: "Total number of successful undo operations",
		}),
		redosTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "editor_redos_total",
			Help: "Total number of successful redo operations",
		}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "editor_errors_total",
			Help: "Total number of HTTP responses with error status (4xx or 5xx)",
		}),
		timelineVersion: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "editor_timeline_version",
			Help: "Structural version counter of the timeline",
		}),
		timelineTracks: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "editor_timeline_tracks",
			Help: "Number of tracks on the timeline",
		}),
		timelineSegments: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "editor_timeline_segments",
			Help: "Total number of segments across all tracks",
		}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.editsTotal,
		m.editsRejectedTotal,
		m.undosTotal,
		m.redosTotal,
		m.errorsTotal,
		m.timelineVersion,
		m.timelineTracks,
		m.timelineSegments,
	)

	return m
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() { m.requestsTotal.Inc() }

// IncEdits increments the executed-edit counter.
func (m *Metrics) IncEdits() { m.editsTotal.Inc() }

// IncEditsRejected increments the rejected-edit counter.
func (m *Metrics) IncEditsRejected() { m.editsRejectedTotal.Inc() }

// IncUndos increments the undo counter.
func (m *Metrics) IncUndos() { m.undosTotal.Inc() }

// IncRedos increments the redo counter.
func (m *Metrics) IncRedos() { m.redosTotal.Inc() }

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() { m.errorsTotal.Inc() }

// SetTimelineVersion sets the timeline version gauge.
func (m *Metrics) SetTimelineVersion(v uint64) { m.timelineVersion.Set(float64(v)) }

// SetTimelineShape sets the track and segment count gauges.
func (m *Metrics) SetTimelineShape(tracks, segments int) {
	m.timelineTracks.Set(float64(tracks))
	m.timelineSegments.Set(float64(segments))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
