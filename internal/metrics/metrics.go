// Package metrics holds the Prometheus collectors for script invocations
// and HTTP requests.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "kvm_manager"

// Outcome labels for ScriptInvocations.
const (
	OutcomeOK       = "ok"
	OutcomeNonZero  = "nonzero_exit"
	OutcomeTimeout  = "timeout"
	OutcomeStartErr = "start_error"
)

var (
	// ScriptInvocations counts script runs by logical action and outcome.
	ScriptInvocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "script_invocations_total",
			Help:      "Number of kvm-manager.sh invocations by action and outcome.",
		},
		[]string{"action", "outcome"},
	)

	// ScriptDuration observes wall time of script runs by logical action.
	ScriptDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "script_duration_seconds",
			Help:      "Wall time of kvm-manager.sh invocations.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 300, 600},
		},
		[]string{"action"},
	)

	// ScriptInFlight is the number of script processes currently running.
	ScriptInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "script_in_flight",
			Help:      "Number of kvm-manager.sh processes currently running.",
		},
	)

	// ScrapedVMs is the VM count seen by the most recent list invocation.
	ScrapedVMs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scraped_vms",
			Help:      "Number of VMs parsed from the most recent listing.",
		},
	)

	// HTTPRequests counts HTTP requests by route template, method and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Number of HTTP requests by route, method and status code.",
		},
		[]string{"route", "method", "code"},
	)

	registerOnce sync.Once
)

// Register adds all collectors to reg. It is safe to call more than once;
// only the first call registers.
func Register(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		reg.MustRegister(ScriptInvocations, ScriptDuration, ScriptInFlight, ScrapedVMs, HTTPRequests)
	})
}
