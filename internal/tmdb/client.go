// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package tmdb

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// TTLs are the per-resource cache lifetimes the client passes to Fetch.
type TTLs struct {
	Default time.Duration // popular, discover, similar
	Search  time.Duration
	Details time.Duration // details, credits, videos
}

// DefaultTTLs returns 30m / 10m / 1h.
func DefaultTTLs() TTLs {
	return TTLs{
		Default: 30 * time.Minute,
		Search:  10 * time.Minute,
		Details: time.Hour,
	}
}

// Client exposes typed TMDB resources on top of a Fetcher.
type Client struct {
	fetcher      *Fetcher
	imageBaseURL string
	ttl          TTLs
}

func NewClient(fetcher *Fetcher, imageBaseURL string, ttls TTLs) *Client {
	def := DefaultTTLs()
	if ttls.Default <= 0 {
		ttls.Default = def.Default
	}
	if ttls.Search <= 0 {
		ttls.Search = def.Search
	}
	if ttls.Details <= 0 {
		ttls.Details = def.Details
	}
	return &Client{
		fetcher:      fetcher,
		imageBaseURL: strings.TrimRight(imageBaseURL, "/"),
		ttl:          ttls,
	}
}

// request builds an endpoint path with a deterministic query string, so
// equal requests share a cache key.
type request struct {
	path   string
	params url.Values
}

func newRequest(path string) *request {
	return &request{path: path, params: url.Values{}}
}

// addParam adds a parameter to the request (only if non-empty)
func (r *request) addParam(key, value string) *request {
	if value != "" {
		r.params.Set(key, value)
	}
	return r
}

// addIntParam adds an integer parameter to the request (only if > 0)
func (r *request) addIntParam(key string, value int) *request {
	if value > 0 {
		r.params.Set(key, strconv.Itoa(value))
	}
	return r
}

// addFloatParam adds a float parameter to the request (only if > 0)
func (r *request) addFloatParam(key string, value float64) *request {
	if value > 0 {
		r.params.Set(key, strconv.FormatFloat(value, 'f', -1, 64))
	}
	return r
}

func (r *request) endpoint() string {
	if len(r.params) == 0 {
		return r.path
	}
	return r.path + "?" + r.params.Encode()
}

// getJSON fetches and decodes one resource.
func getJSON[T any](ctx context.Context, c *Client, r *request, ttl time.Duration) (*T, error) {
	body, err := c.fetcher.Fetch(ctx, r.endpoint(), FetchOptions{TTL: ttl})
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", r.path, err)
	}
	return &out, nil
}

// Popular returns /movie/popular for page.
func (c *Client) Popular(ctx context.Context, page int) (*MovieList, error) {
	r := newRequest("/movie/popular").addIntParam("page", normalizePage(page))
	return getJSON[MovieList](ctx, c, r, c.ttl.Default)
}

// Search trims query and returns /search/movie.
func (c *Client) Search(ctx context.Context, query string, page int) (*MovieList, error) {
	r := newRequest("/search/movie").
		addParam("query", strings.TrimSpace(query)).
		addIntParam("page", normalizePage(page))
	return getJSON[MovieList](ctx, c, r, c.ttl.Search)
}

func (c *Client) Details(ctx context.Context, id int) (*MovieDetails, error) {
	return getJSON[MovieDetails](ctx, c, newRequest(fmt.Sprintf("/movie/%d", id)), c.ttl.Details)
}

func (c *Client) Credits(ctx context.Context, id int) (*Credits, error) {
	return getJSON[Credits](ctx, c, newRequest(fmt.Sprintf("/movie/%d/credits", id)), c.ttl.Details)
}

func (c *Client) Videos(ctx context.Context, id int) (*Videos, error) {
	return getJSON[Videos](ctx, c, newRequest(fmt.Sprintf("/movie/%d/videos", id)), c.ttl.Details)
}

func (c *Client) Similar(ctx context.Context, id int) (*MovieList, error) {
	return getJSON[MovieList](ctx, c, newRequest(fmt.Sprintf("/movie/%d/similar", id)), c.ttl.Default)
}

// Discover returns /discover/movie. vote_count.gte and vote_average.gte are
// sent only when positive.
func (c *Client) Discover(ctx context.Context, p DiscoverParams) (*MovieList, error) {
	sortBy := p.SortBy
	if sortBy == "" {
		sortBy = "popularity.desc"
	}
	r := newRequest("/discover/movie").
		addIntParam("page", normalizePage(p.Page)).
		addParam("sort_by", sortBy).
		addParam("with_genres", p.WithGenres).
		addIntParam("vote_count.gte", p.VoteCountGTE).
		addFloatParam("vote_average.gte", p.VoteAverageGTE)
	return getJSON[MovieList](ctx, c, r, c.ttl.Default)
}

// ImageURL builds a full image URL. An empty path yields "" and an empty
// size defaults to w500.
func (c *Client) ImageURL(path, size string) string {
	if path == "" {
		return ""
	}
	if size == "" {
		size = "w500"
	}
	return c.imageBaseURL + "/" + size + path
}

func (c *Client) CacheStats() CacheStats {
	return c.fetcher.CacheStats()
}

func (c *Client) ClearCache() {
	c.fetcher.ClearCache()
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}
