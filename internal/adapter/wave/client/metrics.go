package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	gatewayRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wave_gateway_requests_total",
		Help: "Requests sent to the Wave gateway, by operation and outcome (success, rejected, error, circuit_open).",
	}, []string{"operation", "outcome"})

	gatewayRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wave_gateway_request_duration_seconds",
		Help:    "Latency of Wave gateway requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
)

// GetGatewayRequestsTotal exposes the request counter for tests and dashboards.
func GetGatewayRequestsTotal() *prometheus.CounterVec {
	return gatewayRequestsTotal
}

// GetGatewayRequestDuration exposes the latency histogram.
func GetGatewayRequestDuration() *prometheus.HistogramVec {
	return gatewayRequestDuration
}
