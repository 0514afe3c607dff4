package leaserenew

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
	"time"
)

// Metrics counts logins and renewal cycles. A nil *Metrics records nothing.
type Metrics struct {
	registry    *prometheus.Registry
	cycles      *prometheus.CounterVec
	logins      *prometheus.CounterVec
	lastSuccess prometheus.Gauge
}

// NewMetrics registers the collectors on a registry of their own.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leaserenew",
			Name:      "cycles_total",
			Help:      "Renewal cycles run, by result.",
		}, []string{"result"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leaserenew",
			Name:      "logins_total",
			Help:      "Login attempts, by result.",
		}, []string{"result"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "leaserenew",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last cycle that clicked a renew control.",
		}),
	}
	m.registry.MustRegister(m.cycles, m.logins, m.lastSuccess)
	return m
}

// result is the label value recorded for err
func result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// observeCycle counts a finished cycle and stamps the last success
func (m *Metrics) observeCycle(err error) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(result(err)).Inc()
	if err == nil {
		m.lastSuccess.Set(float64(time.Now().Unix()))
	}
}

// observeLogin counts a login attempt
func (m *Metrics) observeLogin(err error) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(result(err)).Inc()
}

// Handler serves the metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
