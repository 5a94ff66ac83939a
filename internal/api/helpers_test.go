// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/moviesavanna/internal/auth"
	"github.com/tomtom215/moviesavanna/internal/authz"
	"github.com/tomtom215/moviesavanna/internal/cache"
	"github.com/tomtom215/moviesavanna/internal/config"
	"github.com/tomtom215/moviesavanna/internal/favorites"
	"github.com/tomtom215/moviesavanna/internal/policy"
	"github.com/tomtom215/moviesavanna/internal/ratelimit"
	"github.com/tomtom215/moviesavanna/internal/recommend"
	"github.com/tomtom215/moviesavanna/internal/tmdb"
)

const (
	testAPIKey     = "test-api-key"
	testCookieName = "ms_session"
	testImageBase  = "https://image.tmdb.org/t/p"
)

// fakeTMDB serves a small fixed catalog and records the query string of
// the last request per path.
type fakeTMDB struct {
	mu      sync.Mutex
	queries map[string]url.Values
	hits    map[string]int
}

func (f *fakeTMDB) lastQuery(path string) url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[path]
}

func (f *fakeTMDB) hitCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func (f *fakeTMDB) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.queries[r.URL.Path] = r.URL.Query()
	f.hits[r.URL.Path]++
	f.mu.Unlock()

	if r.URL.Query().Get("api_key") != testAPIKey {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status_code":7,"status_message":"Invalid API key: You must be granted a valid key."}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/movie/popular":
		_, _ = w.Write([]byte(movieListJSON(1, 550, 551, 552)))
	case "/search/movie":
		_, _ = w.Write([]byte(movieListJSON(1, 603)))
	case "/discover/movie":
		_, _ = w.Write([]byte(movieListJSON(1, 680, 13)))
	case "/movie/550":
		_, _ = w.Write([]byte(`{"id":550,"title":"Fight Club","poster_path":"/poster.jpg","backdrop_path":"/backdrop.jpg",` +
			`"vote_average":8.4,"genres":[{"id":18,"name":"Drama"}]}`))
	case "/movie/550/credits":
		_, _ = w.Write([]byte(`{"id":550,"cast":[{"id":819,"name":"Edward Norton","character":"The Narrator"}],"crew":[]}`))
	case "/movie/550/videos":
		_, _ = w.Write([]byte(`{"id":550,"results":[{"id":"v1","key":"qtRKdVHc-cE","site":"YouTube","type":"Trailer"}]}`))
	case "/movie/550/similar":
		_, _ = w.Write([]byte(movieListJSON(1, 551, 807)))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"status_code":34,"status_message":"The resource you requested could not be found."}`))
	}
}

func movieListJSON(page int, ids ...int) string {
	type movie struct {
		ID          int     `json:"id"`
		Title       string  `json:"title"`
		VoteAverage float64 `json:"vote_average"`
		GenreIDs    []int   `json:"genre_ids"`
	}
	results := make([]movie, 0, len(ids))
	for _, id := range ids {
		results = append(results, movie{ID: id, Title: "Movie " + strconv.Itoa(id), VoteAverage: 7.5, GenreIDs: []int{18}})
	}
	body, _ := json.Marshal(map[string]interface{}{
		"page":          page,
		"results":       results,
		"total_pages":   1,
		"total_results": len(results),
	})
	return string(body)
}

// fakeIdentity is an in-memory auth.IdentityProvider keyed by access token.
type fakeIdentity struct {
	mu    sync.Mutex
	users map[string]*auth.User

	signUpResult *auth.SignUpResult
	signUpErr    error
	signInUser   *auth.User
	signInTokens *auth.Tokens
	signInErr    error
	signOutErr   error
	resendErr    error

	signUps   int
	signedOut []string
	resent    []string
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{users: make(map[string]*auth.User)}
}

func (f *fakeIdentity) SignUp(_ context.Context, p auth.SignUpParams) (*auth.SignUpResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signUps++
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	if f.signUpResult != nil {
		return f.signUpResult, nil
	}
	return &auth.SignUpResult{User: &auth.User{ID: "new-user", Email: p.Email}}, nil
}

func (f *fakeIdentity) SignIn(_ context.Context, email, _ string) (*auth.User, *auth.Tokens, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signInErr != nil {
		return nil, nil, f.signInErr
	}
	user := f.signInUser
	if user == nil {
		user = &auth.User{ID: "u-login", Email: email}
	}
	tokens := f.signInTokens
	if tokens == nil {
		tokens = &auth.Tokens{AccessToken: "tok-login", RefreshToken: "ref-login"}
	}
	f.users[tokens.AccessToken] = user
	return user, tokens, nil
}

func (f *fakeIdentity) SignOut(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signedOut = append(f.signedOut, token)
	return f.signOutErr
}

func (f *fakeIdentity) GetUser(_ context.Context, token string) (*auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[token]
	if !ok {
		return nil, &auth.ProviderError{Op: "get user", Kind: auth.ErrKindInvalidCredentials, Status: http.StatusUnauthorized}
	}
	return u, nil
}

func (f *fakeIdentity) Refresh(context.Context, string) (*auth.Tokens, error) {
	return nil, &auth.ProviderError{Op: "refresh", Kind: auth.ErrKindInvalidCredentials, Status: http.StatusBadRequest}
}

func (f *fakeIdentity) ResendActivation(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resent = append(f.resent, email)
	return f.resendErr
}

// apiFixture is a fully wired router over in-memory backends and a fake
// TMDB server.
type apiFixture struct {
	t         *testing.T
	cfg       *config.Config
	tmdb      *fakeTMDB
	identity  *fakeIdentity
	store     *auth.MemorySessionStore
	favorites *favorites.MemoryStore
	handler   *Handler
	router    http.Handler
}

func newAPIFixture(t *testing.T, opts ...func(*config.Config)) *apiFixture {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{Environment: "production"},
		Security: config.SecurityConfig{
			RateLimitDisabled:       true,
			SignupAttempts:          3,
			SignupAttemptWindow:     time.Hour,
			ActivationAttempts:      5,
			ActivationAttemptWindow: 15 * time.Minute,
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	upstream := &fakeTMDB{queries: make(map[string]url.Values), hits: make(map[string]int)}
	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	fetcher := tmdb.NewFetcher(
		tmdb.FetcherConfig{BaseURL: srv.URL, APIKey: testAPIKey, Timeout: 5 * time.Second},
		cache.New(30*time.Minute),
		ratelimit.NewSlidingWindow(1000, 10*time.Second),
	)
	client := tmdb.NewClient(fetcher, testImageBase, tmdb.TTLs{})

	recCfg := recommend.DefaultConfig()
	recCfg.Pacing = 0

	identity := newFakeIdentity()
	store := auth.NewMemorySessionStore()
	sessions := auth.NewSessionMiddleware(store, auth.NewResolver(identity, nil), identity, &auth.SessionMiddlewareConfig{
		CookieName: testCookieName,
		SessionTTL: time.Hour,
		CookiePath: "/",
	})

	enforcer, err := authz.NewEnforcer(context.Background(), &authz.EnforcerConfig{})
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	t.Cleanup(enforcer.Close)

	favStore := favorites.NewMemoryStore()
	handler := NewHandler(cfg, Dependencies{
		Movies:      client,
		Favorites:   favStore,
		Recommender: recommend.NewEngine(client, recCfg),
		Identity:    identity,
		Sessions:    sessions,
	})
	router := NewRouter(handler, sessions, policy.NewEngine(policy.WithAdminChecker(enforcer)), enforcer, nil)

	return &apiFixture{
		t:         t,
		cfg:       cfg,
		tmdb:      upstream,
		identity:  identity,
		store:     store,
		favorites: favStore,
		handler:   handler,
		router:    router.SetupChi(),
	}
}

type testUser struct {
	id       string
	email    string
	admin    bool
	verified bool
}

// login registers u with the fake identity provider and returns the cookie
// of a fresh server-side session.
func (f *apiFixture) login(u testUser) *http.Cookie {
	f.t.Helper()

	token := "tok-" + u.id
	user := &auth.User{ID: u.id, Email: u.email}
	if u.admin {
		user.AppMetadata = map[string]interface{}{"role": "admin"}
	}
	if u.verified {
		confirmed := time.Now().Add(-24 * time.Hour)
		user.EmailConfirmedAt = &confirmed
	}
	f.identity.mu.Lock()
	f.identity.users[token] = user
	f.identity.mu.Unlock()

	session := auth.NewSession(u.id, &auth.Tokens{AccessToken: token, RefreshToken: "ref-" + u.id}, time.Hour)
	if err := f.store.Create(context.Background(), session); err != nil {
		f.t.Fatalf("Create session: %v", err)
	}
	return &http.Cookie{Name: testCookieName, Value: session.ID}
}

func (f *apiFixture) do(method, target, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	f.t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("Failed to unmarshal response %q: %v", w.Body.String(), err)
	}
	return v
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == testCookieName {
			return c
		}
	}
	return nil
}

var (
	alice = testUser{id: "u-alice", email: "alice@example.com", verified: true}
	admin = testUser{id: "u-admin", email: "admin@example.com", admin: true, verified: true}
)
