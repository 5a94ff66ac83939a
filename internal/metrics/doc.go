// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

/*
Package metrics provides Prometheus metrics collection and export for observability.

All collectors are registered with promauto on the default registry under the
"moviesavanna" namespace and exposed at /metrics via promhttp.

# Available Metrics

HTTP Metrics:
  - moviesavanna_api_requests_total: Total API requests (counter)
    Labels: method, path, status
  - moviesavanna_api_request_duration_seconds: Request latency (histogram)
    Labels: method, path
  - moviesavanna_api_active_requests: Active requests (gauge)

TMDB Metrics:
  - moviesavanna_tmdb_cache_events_total: Cache lookups (counter)
    Labels: result (hit, miss, stale)
  - moviesavanna_tmdb_requests_total: Outbound calls (counter)
    Labels: outcome
  - moviesavanna_tmdb_request_duration_seconds: Outbound latency (histogram)
  - moviesavanna_rate_limit_rejections_total: Sliding window rejections (counter)

Circuit Breaker Metrics:
  - moviesavanna_circuit_breaker_state: 0=closed, 1=half-open, 2=open (gauge)
  - moviesavanna_circuit_breaker_requests_total: Labels: name, result
  - moviesavanna_circuit_breaker_consecutive_failures (gauge)
  - moviesavanna_circuit_breaker_transitions_total: Labels: name, from_state, to_state

Application Metrics:
  - moviesavanna_policy_decisions_total: Labels: kind, reason
  - moviesavanna_favorites_operations_total: Labels: op, outcome
  - moviesavanna_auth_events_total: Labels: event, outcome
  - moviesavanna_recommendations_total: Labels: source

# Usage

	start := time.Now()
	// ... handle request
	metrics.RecordAPIRequest(r.Method, route, strconv.Itoa(status), time.Since(start))

Example PromQL:

	# Stale fallbacks served per minute
	rate(moviesavanna_tmdb_cache_events_total{result="stale"}[1m])
*/
package metrics
