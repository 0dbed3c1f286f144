// Package metrics defines the Prometheus instrumentation used by the
// application. Collectors are registered on the default registry via
// promauto so packages can increment them without extra wiring; the
// /metrics endpoint is served by Handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// GatewayRequests counts calls to the external search API by
	// operation (search, related, artist) and outcome (ok, error, quota).
	GatewayRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hungify_gateway_requests_total",
		Help: "External search API calls by operation and outcome.",
	}, []string{"operation", "outcome"})

	// CacheHits and CacheMisses track response cache effectiveness. Every
	// hit is an external API call avoided.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hungify_cache_hits_total",
		Help: "Response cache hits.",
	})
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hungify_cache_misses_total",
		Help: "Response cache misses, including expired entries.",
	})

	// AutoAdvances counts queue refills performed by the recommendation
	// policy, labelled by how the candidates were obtained.
	AutoAdvances = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hungify_auto_advance_total",
		Help: "Automatic queue refills by source (related, search, none).",
	}, []string{"source"})
)

// Handler returns the HTTP handler that exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
