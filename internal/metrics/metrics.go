package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cafepos"

type Metrics struct {
	registry *prometheus.Registry

	OrdersCommitted  *prometheus.CounterVec
	CheckoutFailures *prometheus.CounterVec
	Requests         *prometheus.CounterVec
	LatencyMS        *prometheus.HistogramVec
	Announcements    *prometheus.CounterVec
}

// New registers every collector on a fresh registry, so tests can build as
// many instances as they like.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		OrdersCommitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_committed_total",
			Help:      "Orders committed, by payment method.",
		}, []string{"method"}),
		CheckoutFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_failures_total",
			Help:      "Failed checkout attempts, by error kind.",
		}, []string{"kind"}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route"}),
		Announcements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "announcements_total",
			Help:      "Ready announcements, by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.OrdersCommitted,
		m.CheckoutFailures,
		m.Requests,
		m.LatencyMS,
		m.Announcements,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Server exposes only /metrics on the given port, for processes that have no
// HTTP surface of their own.
func (m *Metrics) Server(port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
