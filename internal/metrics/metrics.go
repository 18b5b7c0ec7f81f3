package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Verification outcomes recorded by VerifyResults.
const (
	VerifyBound     = "bound"
	VerifyVerified  = "verified"
	VerifyForbidden = "forbidden"
	VerifyNotFound  = "not_found"
)

var (
	// HTTPRequests counts handled requests by method, route pattern and status.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keyserver_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPDuration measures request latency by method and route pattern.
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "keyserver_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// VerifyResults counts activation key checks by outcome.
	VerifyResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keyserver_verifications_total",
			Help: "Total number of activation key verifications",
		},
		[]string{"result"},
	)
)
