package strava

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/Checker-Finance/activity-adapters/strava-adapter/internal/metrics"
)

// rateLimitWindow is one "short,long" pair from Strava's rate-limit headers.
type rateLimitWindow struct {
	Short, Long int
}

// parseRateLimitHeader parses "100,1000" into its 15-minute and daily values.
func parseRateLimitHeader(v string) (rateLimitWindow, bool) {
	parts := strings.Split(v, ",")
	if len(parts) != 2 {
		return rateLimitWindow{}, false
	}
	short, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return rateLimitWindow{}, false
	}
	long, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return rateLimitWindow{}, false
	}
	return rateLimitWindow{Short: short, Long: long}, true
}

// observeRateLimits exports the overall and read quotas when both the limit and
// usage headers are present and well formed.
func observeRateLimits(h http.Header) {
	observeRateLimitPair(h, "X-RateLimit-Limit", "X-RateLimit-Usage", "15m", "daily")
	observeRateLimitPair(h, "X-ReadRateLimit-Limit", "X-ReadRateLimit-Usage", "read_15m", "read_daily")
}

func observeRateLimitPair(h http.Header, limitKey, usageKey, shortLabel, longLabel string) {
	limit, ok := parseRateLimitHeader(h.Get(limitKey))
	if !ok {
		return
	}
	usage, ok := parseRateLimitHeader(h.Get(usageKey))
	if !ok {
		return
	}
	metrics.SetRateLimit(shortLabel, usage.Short, limit.Short)
	metrics.SetRateLimit(longLabel, usage.Long, limit.Long)
}
