package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StravaRequestsTotal tracks the number of outbound API calls to Strava.
	StravaRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strava_api_requests_total",
			Help: "Total number of Strava API requests made (by endpoint and status).",
		},
		[]string{"endpoint", "status"},
	)

	// StravaRequestDuration measures the duration of outbound Strava API calls.
	StravaRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "strava_api_request_duration_seconds",
			Help:    "Duration of Strava API requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms → ~10s
		},
		[]string{"endpoint"},
	)

	TokenRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strava_token_refresh_total",
			Help: "Token refresh attempts by result (success, auth_error, transport_error, persist_error).",
		},
		[]string{"result"},
	)

	EmptyActivityLists = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "strava_empty_activity_lists_total",
			Help: "Number of activity list calls that returned no activities.",
		},
	)

	// RateLimitUsage and RateLimitLimit mirror Strava's X-RateLimit-* headers.
	RateLimitUsage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "strava_rate_limit_usage",
			Help: "Requests used in the current Strava rate-limit window.",
		},
		[]string{"window"},
	)

	RateLimitLimit = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "strava_rate_limit_limit",
			Help: "Request quota of the Strava rate-limit window.",
		},
		[]string{"window"},
	)

	ActivitySyncTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strava_activity_sync_total",
			Help: "Activity sync runs by result (success, empty, error).",
		},
		[]string{"result"},
	)
)

// IncStravaRequest increments the Strava API request counter.
func IncStravaRequest(endpoint, status string) {
	StravaRequestsTotal.WithLabelValues(endpoint, status).Inc()
}

func IncTokenRefresh(result string) {
	TokenRefreshTotal.WithLabelValues(result).Inc()
}

func IncEmptyActivityList() {
	EmptyActivityLists.Inc()
}

func IncActivitySync(result string) {
	ActivitySyncTotal.WithLabelValues(result).Inc()
}

// SetRateLimit records usage and quota for a window label.
func SetRateLimit(window string, usage, limit int) {
	RateLimitUsage.WithLabelValues(window).Set(float64(usage))
	RateLimitLimit.WithLabelValues(window).Set(float64(limit))
}

// ObserveDuration records elapsed time since start into a HistogramVec or SummaryVec.
func ObserveDuration(v any, start time.Time, labels ...string) {
	duration := time.Since(start).Seconds()
	switch metric := v.(type) {
	case *prometheus.HistogramVec:
		metric.WithLabelValues(labels...).Observe(duration)
	case *prometheus.SummaryVec:
		metric.WithLabelValues(labels...).Observe(duration)
	}
}
