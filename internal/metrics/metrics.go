package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "auth_gateway"

// Refresh results
const (
	RefreshUpstream = "upstream"
	RefreshShared   = "shared"
	RefreshReused   = "reused"
	RefreshFailed   = "failed"
)

var (
	registry = prometheus.NewRegistry()

	upstreamRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_requests_total",
		Help:      "Identity backend calls by backend, operation and outcome.",
	}, []string{"backend", "operation", "outcome"})

	upstreamDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upstream_request_duration_seconds",
		Help:      "Identity backend call latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"backend", "operation"})

	managementExchanges = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "management_token_exchanges_total",
		Help:      "Client credentials exchanges performed for the management token.",
	}, []string{"outcome"})

	refreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refresh_total",
		Help:      "Refresh attempts by how they were served.",
	}, []string{"result"})

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Inbound requests by route and status.",
	}, []string{"route", "status"})
)

func init() {
	registry.MustRegister(
		upstreamRequests,
		upstreamDuration,
		managementExchanges,
		refreshes,
		httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves the gateway registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}

// Registry is exposed for tests.
func Registry() *prometheus.Registry {
	return registry
}

func ObserveUpstream(backend, operation, outcome string, took time.Duration) {
	upstreamRequests.WithLabelValues(backend, operation, outcome).Inc()
	upstreamDuration.WithLabelValues(backend, operation).Observe(took.Seconds())
}

func ManagementExchange(outcome string) {
	managementExchanges.WithLabelValues(outcome).Inc()
}

func Refresh(result string) {
	refreshes.WithLabelValues(result).Inc()
}

func HTTPRequest(route string, status int) {
	httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}
