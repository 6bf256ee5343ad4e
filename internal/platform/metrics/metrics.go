package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the broadcast engine.
type Metrics struct {
	registry            *prometheus.Registry
	requestsTotal       prometheus.Counter
	errorsTotal         prometheus.Counter
	resolutionsTotal    prometheus.Counter
	standbyTotal        prometheus.Counter
	scheduleRowsTotal   prometheus.Counter
	replicatedRowsTotal prometheus.Counter
	activeChannels      prometheus.Gauge
}

// New creates and registers Prometheus metrics for the broadcast engine.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "broadcast_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "broadcast_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	resolutionsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "broadcast_resolutions_total",
		Help: "Total number of live resolution passes",
	})
	standbyTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "broadcast_standby_total",
		Help: "Total number of resolutions that fell back to the standby program",
	})
	scheduleRowsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "broadcast_schedule_rows_written_total",
		Help: "Total number of schedule rows written by the builder",
	})
	replicatedRowsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "broadcast_replicated_rows_total",
		Help: "Total number of schedule rows copied forward by the replicator",
	})
	activeChannels := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "broadcast_active_channels",
		Help: "Number of enabled channels in the catalog",
	})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		resolutionsTotal,
		standbyTotal,
		scheduleRowsTotal,
		replicatedRowsTotal,
		activeChannels,
	)

	return &Metrics{
		registry:            registry,
		requestsTotal:       requestsTotal,
		errorsTotal:         errorsTotal,
		resolutionsTotal:    resolutionsTotal,
		standbyTotal:        standbyTotal,
		scheduleRowsTotal:   scheduleRowsTotal,
		replicatedRowsTotal: replicatedRowsTotal,
		activeChannels:      activeChannels,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// IncResolutions increments the resolution pass counter.
func (m *Metrics) IncResolutions() {
	m.resolutionsTotal.Inc()
}

// IncStandby increments the standby fallback counter.
func (m *Metrics) IncStandby() {
	m.standbyTotal.Inc()
}

// AddScheduleRows adds to the builder row counter.
func (m *Metrics) AddScheduleRows(n int) {
	m.scheduleRowsTotal.Add(float64(n))
}

// AddReplicatedRows adds to the replicator row counter.
func (m *Metrics) AddReplicatedRows(n int) {
	m.replicatedRowsTotal.Add(float64(n))
}

// SetActiveChannels sets the enabled channel gauge.
func (m *Metrics) SetActiveChannels(n int) {
	m.activeChannels.Set(float64(n))
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
