package metrics

import (
	"strconv"
	"time"

	"github.com/mygh/mygh/internal/observability"
)

// API client metrics following Prometheus conventions
const (
	RequestsTotal      = "api_requests_total"
	RequestDuration    = "api_request_duration_ms"
	RetriesTotal       = "api_retries_total"
	RateLimitWaits     = "api_rate_limit_waits_total"
	RateLimitRemaining = "api_rate_limit_remaining"
	CacheLookupsTotal  = "api_cache_lookups_total"
	PagesTotal         = "api_pages_total"
)

// RecordRequest records one HTTP exchange. status is 0 for transport failures.
func RecordRequest(method, resource string, status int, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}

	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	tags := map[string]string{
		"method":   method,
		"resource": resource,
		"status":   code,
	}
	_ = observability.TelemetrySystem.Counter(RequestsTotal, 1, tags)
	_ = observability.TelemetrySystem.Histogram(RequestDuration, duration, map[string]string{
		"resource": resource,
	})
}

// RecordRetry records a retry scheduled for the given failure kind.
func RecordRetry(resource, kind string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			RetriesTotal,
			1,
			map[string]string{
				"resource": resource,
				"kind":     kind,
			},
		)
	}
}

// RecordRateLimitWait records a sleep caused by rate limiting. reason is
// "preemptive" or "secondary".
func RecordRateLimitWait(resource, reason string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			RateLimitWaits,
			1,
			map[string]string{
				"resource": resource,
				"reason":   reason,
			},
		)
	}
}

// SetRateLimitRemaining publishes the last observed quota for a resource.
func SetRateLimitRemaining(resource string, remaining int) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			RateLimitRemaining,
			float64(remaining),
			map[string]string{"resource": resource},
		)
	}
}

// RecordCacheLookup records a conditional-request cache outcome: "hit"
// (304 served from cache), "miss" or "error".
func RecordCacheLookup(outcome string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			CacheLookupsTotal,
			1,
			map[string]string{"outcome": outcome},
		)
	}
}

// RecordPage records one fetched page of a paginated listing.
func RecordPage(resource string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			PagesTotal,
			1,
			map[string]string{"resource": resource},
		)
	}
}
