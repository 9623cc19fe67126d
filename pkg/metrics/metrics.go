package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Deployment metrics
	DeploysTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "obup_deploys_total",
			Help: "Total number of deployment runs by terminal status",
		},
		[]string{"status"},
	)

	StagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "obup_stages_total",
			Help: "Total number of executed stages by status",
		},
		[]string{"status"},
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "obup_stage_duration_seconds",
			Help:    "Wall-clock duration of each stage",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		[]string{"stage"},
	)

	// Step metrics
	StepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "obup_steps_total",
			Help: "Total number of executed steps by failure kind (empty kind = success)",
		},
		[]string{"failure"},
	)

	// Readiness probe metrics
	ProbeWaitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "obup_probe_waits_total",
			Help: "Total number of readiness waits by target and outcome",
		},
		[]string{"target", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		DeploysTotal,
		StagesTotal,
		StageDuration,
		StepsTotal,
		ProbeWaitsTotal,
	)
}

// Handler returns the HTTP handler for the Prometheus metrics endpoint
func Handler() http.Handler {
	return promhttp.Handler()
}
