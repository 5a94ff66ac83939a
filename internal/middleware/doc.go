// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

/*
Package middleware provides HTTP middleware components for the application.

All middleware has the chi signature func(http.Handler) http.Handler and
is mounted by internal/api alongside the session and route policy
middleware.

Key Components:

  - RequestID: accepts a well-formed upstream X-Request-ID or generates a
    UUID, echoes it, and seeds the logging context (request_id and a fresh
    correlation_id)
  - PrometheusMetrics: request count, duration and in-flight gauge,
    labelled by chi route pattern
  - Compression: gzip for clients that send Accept-Encoding: gzip
  - PerformanceMonitor: sliding window of request samples with per-route
    percentiles, served to admins, and slow-request logging

Middleware Stack:

	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.Use(perfMon.Middleware)
	r.Use(sessions.Authenticate)
	r.Use(routePolicy.Handler)
	r.With(middleware.Compression).Get("/api/movies/popular", h.Popular)

Thread Safety:

PerformanceMonitor guards its samples with a sync.RWMutex. Gzip writers
are pooled and used by one request at a time.
*/
package middleware
