// Package metrics - prometheus метрики сервиса
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "territory"

var (
	ProviderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_requests_total",
		Help:      "Requests to external geodata providers by outcome",
	}, []string{"provider", "outcome"})

	ProviderLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "provider_request_duration_seconds",
		Help:      "Latency of external geodata provider requests",
		Buckets:   prometheus.DefBuckets,
	}, []string{"provider"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "location_cache_lookups_total",
		Help:      "Location cache lookups by result",
	}, []string{"result"})

	ValidationOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "boundary_validations_total",
		Help:      "Boundary validations by path and verdict",
	}, []string{"path", "verdict"})

	BlockDetections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "block_buildings_total",
		Help:      "Buildings attributed to blocks by type",
	}, []string{"type"})
)

// ObserveProvider фиксирует исход и длительность запроса к провайдеру
func ObserveProvider(provider, outcome string, started time.Time) {
	ProviderRequests.WithLabelValues(provider, outcome).Inc()
	ProviderLatency.WithLabelValues(provider).Observe(time.Since(started).Seconds())
}
