// Package metrics exposes Prometheus collectors for the monitoring service.
package metrics

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	checksTotal                 *prometheus.CounterVec
	changesTotal                *prometheus.CounterVec
	notificationsTotal          *prometheus.CounterVec
	fetchDurationSeconds        *prometheus.HistogramVec
	analyzerFailuresTotal       prometheus.Counter
	sessionRecreationsTotal     prometheus.Counter
	sessionAuthenticationsTotal prometheus.Counter
	activeWorkers               prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		checksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitewatch_checks_total",
				Help: "Total number of check cycles, labeled by target type and outcome.",
			},
			[]string{"type", "outcome"},
		)

		changesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitewatch_changes_total",
				Help: "Total number of detected changes, labeled by target type.",
			},
			[]string{"type"},
		)

		notificationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitewatch_notifications_total",
				Help: "Total notification decisions, labeled by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sitewatch_fetch_duration_seconds",
				Help:    "Histogram of fetch latencies, labeled by target type.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"type"},
		)

		analyzerFailuresTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "sitewatch_analyzer_failures_total",
				Help: "Total analyzer calls that degraded to the fallback result.",
			},
		)

		sessionRecreationsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "sitewatch_browser_session_recreations_total",
				Help: "Total times the shared browser session was recreated.",
			},
		)

		sessionAuthenticationsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "sitewatch_browser_session_authentications_total",
				Help: "Total authentication runs against the remote provider.",
			},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "sitewatch_active_workers",
				Help: "Number of workers currently processing a check.",
			},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCheck increments the check counter for the given type and outcome.
func ObserveCheck(targetType string, outcome string) {
	checksTotal.WithLabelValues(targetType, outcome).Inc()
}

// ObserveChange increments the detected-change counter.
func ObserveChange(targetType string) {
	changesTotal.WithLabelValues(targetType).Inc()
}

// ObserveNotification records a notification decision outcome.
func ObserveNotification(kind string, outcome string) {
	notificationsTotal.WithLabelValues(kind, outcome).Inc()
}

// ObserveFetch records the duration of a fetch.
func ObserveFetch(targetType string, duration time.Duration) {
	fetchDurationSeconds.WithLabelValues(targetType).Observe(duration.Seconds())
}

// ObserveAnalyzerFailure increments the degraded-analysis counter.
func ObserveAnalyzerFailure() {
	analyzerFailuresTotal.Inc()
}

// ObserveSessionRecreation increments the session recreation counter.
func ObserveSessionRecreation() {
	sessionRecreationsTotal.Inc()
}

// ObserveSessionAuthentication increments the authentication counter.
func ObserveSessionAuthentication() {
	sessionAuthenticationsTotal.Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	activeWorkers.Dec()
}
