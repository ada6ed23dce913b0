// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GeocodeResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solar_geocode_results_total",
			Help: "Geocoding resolutions by outcome (resolved, default)",
		},
		[]string{"outcome"},
	)

	IrradianceResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solar_irradiance_results_total",
			Help: "Irradiance profiles served by data source",
		},
		[]string{"source"},
	)

	VisionAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solar_vision_attempts_total",
			Help: "Vision provider attempts by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	VisionFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "solar_vision_fallbacks_total",
			Help: "Roof analyses served by the synthetic estimator",
		},
	)

	AssessmentDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "solar_assessment_duration_seconds",
			Help:    "End-to-end assessment latency",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 45, 90},
		},
		[]string{"status"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solar_http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"route", "code"},
	)
)
