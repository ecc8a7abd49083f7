// Package observability provides the bot's Prometheus metrics, the HTTP
// endpoint that exposes them, and OpenTelemetry tracing setup.
package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "statusbot"

// Metrics collects bot metrics on a private registry
type Metrics struct {
	registry *prometheus.Registry

	updatesTotal       prometheus.Counter
	commandsTotal      *prometheus.CounterVec
	pollErrorsTotal    prometheus.Counter
	lastOffset         prometheus.Gauge
	apiRequestsTotal   *prometheus.CounterVec
	apiRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a Metrics with Go runtime and process collectors
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		updatesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Total number of Telegram updates processed",
		}),
		commandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Total number of bot commands handled",
		}, []string{"command", "status"}),
		pollErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_errors_total",
			Help:      "Total number of failed getUpdates polls",
		}),
		lastOffset: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_offset",
			Help:      "Last acknowledged Telegram update offset",
		}),
		apiRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Total number of outbound API requests",
		}, []string{"api", "method", "status"}),
		apiRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "Duration of outbound API requests including retries",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		}, []string{"api", "method"}),
	}
}

// Registry returns the registry metrics are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// UpdateReceived counts one processed update
func (m *Metrics) UpdateReceived() {
	m.updatesTotal.Inc()
}

// CommandHandled counts a command by outcome
func (m *Metrics) CommandHandled(command string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.commandsTotal.WithLabelValues(command, status).Inc()
}

// PollFailed counts a failed poll
func (m *Metrics) PollFailed() {
	m.pollErrorsTotal.Inc()
}

// OffsetAdvanced records the acknowledged offset
func (m *Metrics) OffsetAdvanced(offset int64) {
	m.lastOffset.Set(float64(offset))
}

// ObserveRequest implements httpclient.Observer
func (m *Metrics) ObserveRequest(api, method string, status int, err error, elapsed time.Duration) {
	label := strconv.Itoa(status)
	if err != nil || status == 0 {
		label = "error"
	}
	m.apiRequestsTotal.WithLabelValues(api, method, label).Inc()
	m.apiRequestDuration.WithLabelValues(api, method).Observe(elapsed.Seconds())
}
