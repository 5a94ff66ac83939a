// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

/*
Package main is the entry point for the MovieSavanna server.

MovieSavanna is a movie discovery service: a caching, rate-limited proxy in
front of TMDB, account flows backed by Supabase Auth, per-user favorites and
genre-based recommendations.

# Application Architecture

	RootSupervisor ("moviesavanna")
	├── MaintenanceSupervisor ("maintenance-layer")
	│   └── MaintenanceService
	└── APISupervisor ("api-layer")
	    └── HTTP Server (chi router)

Component initialization order:

 1. Configuration: Koanf v2 with defaults, config.yaml and environment variables
 2. Logging: zerolog with JSON/console output modes
 3. TMDB: response cache, sliding window limiter, circuit breaker
 4. Supabase: identity provider, profile reader, favorites store
 5. Sessions: memory or BadgerDB store behind the session cookie
 6. Access control: route policy engine and Casbin admin policy
 7. Supervisor Tree: Suture v4 process supervision
 8. HTTP Server: Chi router with middleware stack

# Configuration

Required:
  - TMDB_API_KEY
  - SUPABASE_URL, SUPABASE_ANON_KEY
  - SUPABASE_SERVICE_ROLE_KEY when FAVORITES_BACKEND=supabase (the default)

Common options:
  - PORT (default 3000), HOST, ENVIRONMENT (production|development)
  - SESSION_STORE (memory|badger), SESSION_STORE_PATH
  - SESSION_ENCRYPTION_KEY (base64, 16+ bytes) to encrypt stored tokens
  - CORS_ORIGINS, TRUSTED_PROXIES, RATE_LIMIT_REQUESTS, DISABLE_RATE_LIMIT
  - LOG_LEVEL, LOG_FORMAT

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains
in-flight requests for up to ten seconds, the maintenance loop stops, and
the session store is closed.

# Example Usage

	export TMDB_API_KEY=...
	export SUPABASE_URL=https://project.supabase.co
	export SUPABASE_ANON_KEY=...
	export SUPABASE_SERVICE_ROLE_KEY=...
	./moviesavanna

Local development without a favorites table:

	export ENVIRONMENT=development FAVORITES_BACKEND=memory LOG_FORMAT=console
	./moviesavanna
*/
package main
