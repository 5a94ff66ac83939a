// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

/*
Package tmdb is the outbound client for The Movie Database v3 API.

Every request goes through a Fetcher:

 1. cache lookup (unless SkipCache)
 2. sliding window admission; a full window returns ErrRateLimitExceeded
 3. GET through a circuit breaker, with api_key appended server-side
 4. non-2xx responses become *UpstreamError
 5. valid JSON bodies are cached with the caller's TTL

Failures after admission fall back to the last body stored for the same
endpoint. Concurrent misses for one endpoint share a single upstream call.

Client layers typed resources (popular, search, details, credits, videos,
similar, discover) over the Fetcher with per-resource TTLs.
*/
package tmdb
