// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package tmdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/moviesavanna/internal/cache"
	"github.com/tomtom215/moviesavanna/internal/logging"
	"github.com/tomtom215/moviesavanna/internal/metrics"
	"github.com/tomtom215/moviesavanna/internal/ratelimit"
)

// DefaultTTL applies when FetchOptions.TTL is zero.
const DefaultTTL = 30 * time.Minute

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 4096

// FetcherConfig configures a Fetcher.
type FetcherConfig struct {
	BaseURL    string
	APIKey     string
	DefaultTTL time.Duration
	Timeout    time.Duration
	// HTTPClient overrides the client built from Timeout. Optional.
	HTTPClient *http.Client
}

// FetchOptions controls a single Fetch.
type FetchOptions struct {
	TTL       time.Duration
	SkipCache bool
}

// Fetcher is the only path to TMDB. Each call goes cache, limiter,
// breaker, GET, then populates the cache; failures after admission fall
// back to the last value stored for the endpoint.
type Fetcher struct {
	cfg        FetcherConfig
	cache      *cache.Cache
	limiter    *ratelimit.SlidingWindow
	httpClient *http.Client
	breaker    *breaker
	group      singleflight.Group
}

// NewFetcher wires a fetcher around the shared cache and limiter.
func NewFetcher(cfg FetcherConfig, c *cache.Cache, limiter *ratelimit.SlidingWindow) *Fetcher {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultTTL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &Fetcher{
		cfg:        cfg,
		cache:      c,
		limiter:    limiter,
		httpClient: client,
		breaker:    newBreaker(breakerName),
	}
}

// Fetch returns the raw JSON body for endpoint (a path plus optional query,
// e.g. "/movie/popular?page=1"). The API key is appended here and never
// forms part of the cache key.
func (f *Fetcher) Fetch(ctx context.Context, endpoint string, opts FetchOptions) ([]byte, error) {
	key := cache.GenerateKey("tmdb", endpoint)
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = f.cfg.DefaultTTL
	}

	if !opts.SkipCache {
		if v, ok := f.cache.Get(key); ok {
			if body, ok := v.([]byte); ok {
				metrics.RecordCacheEvent("hit")
				logging.Debug().Str("endpoint", endpoint).Msg("TMDB cache hit")
				return body, nil
			}
		}
		metrics.RecordCacheEvent("miss")
	}

	// The shared call outlives any single caller; the http.Client timeout
	// still bounds it.
	upstreamCtx := context.WithoutCancel(ctx)
	ch := f.group.DoChan(key, func() (interface{}, error) {
		return f.fetchFresh(upstreamCtx, key, endpoint, ttl)
	})

	var err error
	select {
	case res := <-ch:
		if res.Err == nil {
			if res.Shared {
				logging.Debug().Str("endpoint", endpoint).Msg("Coalesced concurrent TMDB request")
			}
			body, _ := res.Val.([]byte)
			return body, nil
		}
		err = res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if errors.Is(err, ErrRateLimitExceeded) {
		return nil, err
	}

	logging.Error().Err(err).Str("endpoint", endpoint).Msg("TMDB API request error")

	if v, storedAt, ok := f.cache.GetStale(key); ok {
		if body, ok := v.([]byte); ok {
			metrics.RecordCacheEvent("stale")
			logging.Warn().
				Str("endpoint", endpoint).
				Dur("age", time.Since(storedAt)).
				Msg("Using stale cache data")
			return body, nil
		}
	}

	if !errors.Is(err, ErrUpstream) {
		err = fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	return nil, err
}

// fetchFresh is steps 2 to 5: admission, GET through the breaker, JSON
// check, cache populate.
func (f *Fetcher) fetchFresh(ctx context.Context, key, endpoint string, ttl time.Duration) ([]byte, error) {
	if !f.limiter.TryAdmit() {
		metrics.RecordRateLimitRejection()
		logging.Warn().
			Str("endpoint", endpoint).
			Dur("retry_after", f.limiter.RetryAfter()).
			Msg("TMDB API rate limit reached")
		return nil, ErrRateLimitExceeded
	}

	body, err := f.breaker.execute(func() ([]byte, error) {
		return f.get(ctx, endpoint)
	})
	if err != nil {
		return nil, err
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: invalid JSON body for %s", ErrUpstream, endpoint)
	}

	f.cache.SetWithTTL(key, body, ttl)
	return body, nil
}

// get performs the HTTP request. Non-2xx responses become *UpstreamError.
func (f *Fetcher) get(ctx context.Context, endpoint string) ([]byte, error) {
	reqURL := f.buildURL(endpoint)

	logging.Debug().Str("endpoint", endpoint).Msg("Making request to TMDB API")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", f.redact(err))
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	if err != nil {
		metrics.RecordTMDBRequest("transport_error", time.Since(start))
		return nil, fmt.Errorf("request failed: %w", f.redact(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RecordTMDBRequest("upstream_error", time.Since(start))
		return nil, parseUpstreamError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RecordTMDBRequest("transport_error", time.Since(start))
		return nil, fmt.Errorf("read response failed: %w", err)
	}
	metrics.RecordTMDBRequest("success", time.Since(start))
	return body, nil
}

func (f *Fetcher) buildURL(endpoint string) string {
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	return f.cfg.BaseURL + endpoint + sep + "api_key=" + url.QueryEscape(f.cfg.APIKey)
}

// redact strips the api_key parameter out of *url.Error before it can be
// logged or returned to a caller.
func (f *Fetcher) redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = logging.RedactQueryParam(urlErr.URL, "api_key")
	}
	return err
}

// parseUpstreamError reads TMDB's {status_code, status_message} body,
// falling back to the HTTP status text.
func parseUpstreamError(resp *http.Response) *UpstreamError {
	upErr := &UpstreamError{
		Status:  resp.StatusCode,
		Message: http.StatusText(resp.StatusCode),
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return upErr
	}
	var body apiError
	if err := json.Unmarshal(data, &body); err == nil && body.StatusMessage != "" {
		upErr.Code = body.StatusCode
		upErr.Message = body.StatusMessage
	}
	return upErr
}

// CacheStats is the cache snapshot plus the remaining outbound budget.
type CacheStats struct {
	cache.Stats
	RateLimitRemaining int    `json:"rateLimitRemaining"`
	BreakerState       string `json:"breaker_state"`
}

func (f *Fetcher) CacheStats() CacheStats {
	return CacheStats{
		Stats:              f.cache.Stats(),
		RateLimitRemaining: f.limiter.Remaining(),
		BreakerState:       stateToString(f.breaker.state()),
	}
}

func (f *Fetcher) ClearCache() {
	hitRate := f.cache.HitRate()
	f.cache.Clear()
	logging.Info().Float64("hit_rate_pct", hitRate).Msg("TMDB cache cleared")
}

// PruneStale drops stale fallback copies older than maxAge.
func (f *Fetcher) PruneStale(maxAge time.Duration) int {
	return f.cache.PruneStale(maxAge)
}
