// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package tmdb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/moviesavanna/internal/cache"
	"github.com/tomtom215/moviesavanna/internal/ratelimit"
)

const testAPIKey = "secret-tmdb-key"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

type fixture struct {
	fetcher *Fetcher
	server  *httptest.Server
	clock   *fakeClock
	hits    *atomic.Int64
}

// newFixture starts a TMDB stand-in. handler may be swapped during a test
// through the returned pointer.
func newFixture(t *testing.T, limit int, handler *atomic.Pointer[http.HandlerFunc]) *fixture {
	t.Helper()

	hits := &atomic.Int64{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Query().Get("api_key") != testAPIKey {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"status_code":7,"status_message":"Invalid API key: You must be granted a valid key."}`))
			return
		}
		(*handler.Load())(w, r)
	}))
	t.Cleanup(srv.Close)

	clock := &fakeClock{now: time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)}
	c := cache.New(30*time.Minute, cache.WithClock(clock.Now))
	lim := ratelimit.NewSlidingWindow(limit, 10*time.Second)
	lim.SetClock(clock.Now)

	f := NewFetcher(FetcherConfig{BaseURL: srv.URL, APIKey: testAPIKey, Timeout: 5 * time.Second}, c, lim)
	return &fixture{fetcher: f, server: srv, clock: clock, hits: hits}
}

func handlerPtr(h http.HandlerFunc) *atomic.Pointer[http.HandlerFunc] {
	p := &atomic.Pointer[http.HandlerFunc]{}
	p.Store(&h)
	return p
}

func okJSON(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func TestFetch_CachesSuccessfulResponse(t *testing.T) {
	fx := newFixture(t, 40, handlerPtr(okJSON(`{"page":1,"results":[]}`)))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		body, err := fx.fetcher.Fetch(ctx, "/movie/popular?page=1", FetchOptions{})
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if string(body) != `{"page":1,"results":[]}` {
			t.Fatalf("body = %s", body)
		}
	}
	if fx.hits.Load() != 1 {
		t.Errorf("upstream hits = %d, want 1", fx.hits.Load())
	}

	if _, err := fx.fetcher.Fetch(ctx, "/movie/popular?page=1", FetchOptions{SkipCache: true}); err != nil {
		t.Fatal(err)
	}
	if fx.hits.Load() != 2 {
		t.Errorf("SkipCache should bypass the cache, hits = %d", fx.hits.Load())
	}
}

func TestFetch_TTLExpiryRefetches(t *testing.T) {
	fx := newFixture(t, 40, handlerPtr(okJSON(`{"id":1}`)))
	ctx := context.Background()

	if _, err := fx.fetcher.Fetch(ctx, "/search/movie?query=alien", FetchOptions{TTL: 10 * time.Minute}); err != nil {
		t.Fatal(err)
	}
	fx.clock.Advance(9 * time.Minute)
	_, _ = fx.fetcher.Fetch(ctx, "/search/movie?query=alien", FetchOptions{TTL: 10 * time.Minute})
	if fx.hits.Load() != 1 {
		t.Fatalf("hits = %d before TTL, want 1", fx.hits.Load())
	}
	fx.clock.Advance(2 * time.Minute)
	_, _ = fx.fetcher.Fetch(ctx, "/search/movie?query=alien", FetchOptions{TTL: 10 * time.Minute})
	if fx.hits.Load() != 2 {
		t.Errorf("hits = %d after TTL, want 2", fx.hits.Load())
	}
}

func TestFetch_StaleFallbackAfterUpstreamFailure(t *testing.T) {
	h := handlerPtr(okJSON(`{"id":603,"title":"The Matrix"}`))
	fx := newFixture(t, 40, h)
	ctx := context.Background()

	if _, err := fx.fetcher.Fetch(ctx, "/movie/603", FetchOptions{TTL: time.Hour}); err != nil {
		t.Fatal(err)
	}

	fail := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	h.Store(&fail)
	fx.clock.Advance(2 * time.Hour)

	body, err := fx.fetcher.Fetch(ctx, "/movie/603", FetchOptions{TTL: time.Hour})
	if err != nil {
		t.Fatalf("expected stale fallback, got error %v", err)
	}
	if !strings.Contains(string(body), "The Matrix") {
		t.Errorf("body = %s", body)
	}
	if fx.fetcher.CacheStats().StaleHits != 1 {
		t.Errorf("StaleHits = %d, want 1", fx.fetcher.CacheStats().StaleHits)
	}
}

func TestFetch_UpstreamErrorParsed(t *testing.T) {
	fx := newFixture(t, 40, handlerPtr(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"status_code":34,"status_message":"The resource you requested could not be found."}`))
	}))

	_, err := fx.fetcher.Fetch(context.Background(), "/movie/999999999", FetchOptions{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrUpstream) {
		t.Errorf("errors.Is(err, ErrUpstream) = false for %v", err)
	}
	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected *UpstreamError, got %T", err)
	}
	if upErr.Status != http.StatusNotFound || upErr.Code != 34 {
		t.Errorf("Status, Code = %d, %d", upErr.Status, upErr.Code)
	}
	if got := upErr.Error(); got != "TMDB API Error 34: The resource you requested could not be found." {
		t.Errorf("Error() = %q", got)
	}
}

func TestFetch_UpstreamErrorWithoutBody(t *testing.T) {
	fx := newFixture(t, 40, handlerPtr(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := fx.fetcher.Fetch(context.Background(), "/movie/1", FetchOptions{})
	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected *UpstreamError, got %v", err)
	}
	if upErr.Error() != "TMDB API Error 502: Bad Gateway" {
		t.Errorf("Error() = %q", upErr.Error())
	}
}

func TestFetch_RateLimitRejectsWithoutStale(t *testing.T) {
	fx := newFixture(t, 1, handlerPtr(okJSON(`{"ok":true}`)))
	ctx := context.Background()

	if _, err := fx.fetcher.Fetch(ctx, "/movie/1", FetchOptions{}); err != nil {
		t.Fatal(err)
	}

	if _, err := fx.fetcher.Fetch(ctx, "/movie/2", FetchOptions{}); !errors.Is(err, ErrRateLimitExceeded) {
		t.Fatalf("err = %v, want ErrRateLimitExceeded", err)
	}

	// A stale copy of /movie/1 exists, but a rejected admission is reported
	// as-is rather than masked.
	if _, err := fx.fetcher.Fetch(ctx, "/movie/1", FetchOptions{SkipCache: true}); !errors.Is(err, ErrRateLimitExceeded) {
		t.Fatalf("err = %v, want ErrRateLimitExceeded", err)
	}
	if fx.hits.Load() != 1 {
		t.Errorf("rejected calls must not reach upstream, hits = %d", fx.hits.Load())
	}
	if fx.fetcher.CacheStats().RateLimitRemaining != 0 {
		t.Error("RateLimitRemaining should be 0")
	}

	fx.clock.Advance(10 * time.Second)
	if _, err := fx.fetcher.Fetch(ctx, "/movie/2", FetchOptions{}); err != nil {
		t.Fatalf("after window: %v", err)
	}
}

func TestFetch_InvalidJSONIsUpstreamError(t *testing.T) {
	fx := newFixture(t, 40, handlerPtr(okJSON(`<html>maintenance</html>`)))

	_, err := fx.fetcher.Fetch(context.Background(), "/movie/popular?page=1", FetchOptions{})
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("err = %v, want ErrUpstream", err)
	}
	if fx.fetcher.CacheStats().Total != 0 {
		t.Error("invalid body must not be cached")
	}
}

func TestFetch_TransportErrorRedactsKey(t *testing.T) {
	fx := newFixture(t, 40, handlerPtr(okJSON(`{}`)))
	fx.server.Close()

	_, err := fx.fetcher.Fetch(context.Background(), "/movie/1", FetchOptions{})
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("err = %v, want ErrUpstream", err)
	}
	if strings.Contains(err.Error(), testAPIKey) {
		t.Errorf("error leaks API key: %v", err)
	}
}

func TestFetch_TransportErrorRedactsShortKey(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	f := NewFetcher(FetcherConfig{BaseURL: srv.URL, APIKey: "k", Timeout: time.Second},
		cache.New(time.Minute), ratelimit.NewSlidingWindow(40, 10*time.Second))

	_, err := f.Fetch(context.Background(), "/search/movie?query=k", FetchOptions{})
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("err = %v, want ErrUpstream", err)
	}
	if !strings.Contains(err.Error(), "/search/movie?query=k&api_key=[REDACTED]") {
		t.Errorf("error should keep the URL and redact only api_key: %v", err)
	}
}

func TestFetch_BreakerOpenFallsBackToStale(t *testing.T) {
	h := handlerPtr(okJSON(`{"page":1}`))
	fx := newFixture(t, 100, h)
	ctx := context.Background()

	if _, err := fx.fetcher.Fetch(ctx, "/movie/popular?page=1", FetchOptions{}); err != nil {
		t.Fatal(err)
	}

	fail := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	h.Store(&fail)

	// Ten consecutive 500s trip the breaker (minimum 10 requests, 60%).
	for i := 0; i < 10; i++ {
		_, _ = fx.fetcher.Fetch(ctx, "/movie/popular?page=2", FetchOptions{SkipCache: true})
	}
	if fx.fetcher.breaker.state() != gobreaker.StateOpen {
		t.Fatalf("breaker state = %v, want open", fx.fetcher.breaker.state())
	}

	before := fx.hits.Load()
	body, err := fx.fetcher.Fetch(ctx, "/movie/popular?page=1", FetchOptions{SkipCache: true})
	if err != nil {
		t.Fatalf("open breaker should reach stale fallback, got %v", err)
	}
	if string(body) != `{"page":1}` {
		t.Errorf("body = %s", body)
	}
	if fx.hits.Load() != before {
		t.Error("open breaker must not call upstream")
	}
	if fx.fetcher.CacheStats().BreakerState != "open" {
		t.Errorf("BreakerState = %q", fx.fetcher.CacheStats().BreakerState)
	}
}

func TestFetch_NotFoundDoesNotTripBreaker(t *testing.T) {
	fx := newFixture(t, 100, handlerPtr(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	for i := 0; i < 15; i++ {
		_, _ = fx.fetcher.Fetch(context.Background(), "/movie/0", FetchOptions{})
	}
	if fx.fetcher.breaker.state() != gobreaker.StateClosed {
		t.Errorf("breaker state = %v, want closed", fx.fetcher.breaker.state())
	}
}

func TestFetch_CoalescesConcurrentMisses(t *testing.T) {
	fx := newFixture(t, 40, handlerPtr(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(100 * time.Millisecond)
		_, _ = w.Write([]byte(`{"id":1}`))
	}))

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := fx.fetcher.Fetch(context.Background(), "/movie/1", FetchOptions{})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
	}
	if fx.hits.Load() >= 10 {
		t.Errorf("concurrent misses were not coalesced, hits = %d", fx.hits.Load())
	}
}

func TestFetch_CanceledCallerDoesNotFailCoalescedCaller(t *testing.T) {
	started := make(chan struct{}, 1)
	fx := newFixture(t, 40, handlerPtr(func(w http.ResponseWriter, _ *http.Request) {
		select {
		case started <- struct{}{}:
		default:
		}
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"page":1,"results":[]}`))
	}))

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()

	errA := make(chan error, 1)
	go func() {
		_, err := fx.fetcher.Fetch(ctxA, "/movie/popular?page=1", FetchOptions{})
		errA <- err
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("upstream request never started")
	}

	type result struct {
		body []byte
		err  error
	}
	resB := make(chan result, 1)
	go func() {
		body, err := fx.fetcher.Fetch(context.Background(), "/movie/popular?page=1", FetchOptions{})
		resB <- result{body, err}
	}()

	time.Sleep(50 * time.Millisecond)
	cancelA()

	if err := <-errA; !errors.Is(err, context.Canceled) {
		t.Errorf("canceled caller err = %v, want context.Canceled", err)
	}

	res := <-resB
	if res.err != nil {
		t.Fatalf("other caller err = %v, want nil", res.err)
	}
	if string(res.body) != `{"page":1,"results":[]}` {
		t.Errorf("other caller body = %q", res.body)
	}
	if fx.hits.Load() != 1 {
		t.Errorf("upstream hits = %d, want 1", fx.hits.Load())
	}

	// The shared call completed and populated the cache.
	if _, err := fx.fetcher.Fetch(context.Background(), "/movie/popular?page=1", FetchOptions{}); err != nil {
		t.Fatal(err)
	}
	if fx.hits.Load() != 1 {
		t.Errorf("upstream hits after cached read = %d, want 1", fx.hits.Load())
	}
}

func TestFetch_ClearCache(t *testing.T) {
	fx := newFixture(t, 40, handlerPtr(okJSON(`{}`)))
	_, _ = fx.fetcher.Fetch(context.Background(), "/movie/1", FetchOptions{})
	fx.fetcher.ClearCache()
	if s := fx.fetcher.CacheStats(); s.Total != 0 || s.Stale != 0 {
		t.Errorf("CacheStats() = %+v", s)
	}
}
