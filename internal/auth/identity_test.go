// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package auth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/goccy/go-json"
)

const (
	testUserID    = "6f1c2d3e-4b5a-4c6d-8e7f-0a1b2c3d4e5f"
	testActivate  = "https://moviesavanna.test/activation"
	testUserJSON  = `{"id":"` + testUserID + `","email":"jane@example.com","email_confirmed_at":"2026-01-02T03:04:05Z","app_metadata":{"provider":"email","role":"admin"},"user_metadata":{"first_name":"Jane"},"created_at":"2026-01-01T00:00:00Z"}`
	testTokenJSON = `{"access_token":"access-1","refresh_token":"refresh-1","token_type":"bearer","expires_in":3600,"expires_at":1893456000,"user":` + testUserJSON + `}`
)

// goTrueRequest is what the fake server saw.
type goTrueRequest struct {
	Path   string
	Query  url.Values
	Auth   string
	APIKey string
	Body   map[string]interface{}
}

// fakeGoTrue serves /auth/v1/* with canned responses per path.
type fakeGoTrue struct {
	mu        sync.Mutex
	requests  []goTrueRequest
	responses map[string]fakeResponse
}

type fakeResponse struct {
	status int
	body   string
}

func newFakeGoTrue(t *testing.T) (*fakeGoTrue, *SupabaseIdentity) {
	t.Helper()
	f := &fakeGoTrue{responses: map[string]fakeResponse{}}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)

	idp, err := NewSupabaseIdentity(SupabaseConfig{
		URL:           srv.URL,
		AnonKey:       "anon-key",
		ActivationURL: testActivate,
	})
	if err != nil {
		t.Fatal(err)
	}
	return f, idp
}

func (f *fakeGoTrue) on(path string, status int, body string) {
	f.mu.Lock()
	f.responses[path] = fakeResponse{status: status, body: body}
	f.mu.Unlock()
}

func (f *fakeGoTrue) last() goTrueRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func (f *fakeGoTrue) serve(w http.ResponseWriter, r *http.Request) {
	req := goTrueRequest{
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Auth:   r.Header.Get("Authorization"),
		APIKey: r.Header.Get("apiKey"),
	}
	if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
		_ = json.Unmarshal(raw, &req.Body)
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	resp, ok := f.responses[r.URL.Path]
	f.mu.Unlock()

	if !ok {
		resp = fakeResponse{status: http.StatusNotFound, body: `{"msg":"not found"}`}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.status)
	_, _ = w.Write([]byte(resp.body))
}

func TestSupabaseIdentity_SignUpRequiresVerification(t *testing.T) {
	f, idp := newFakeGoTrue(t)
	f.on("/auth/v1/signup", http.StatusOK, `{"id":"`+testUserID+`","email":"jane@example.com","app_metadata":{"provider":"email"},"created_at":"2026-01-01T00:00:00Z"}`)

	res, err := idp.SignUp(context.Background(), SignUpParams{
		Email: "jane@example.com", Password: "Password1", FirstName: "Jane", LastName: "Doe",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.VerificationRequired() {
		t.Error("no access token should mean verification required")
	}
	if res.User.ID != testUserID || res.User.Provider() != "email" {
		t.Errorf("user = %+v", res.User)
	}

	req := f.last()
	if req.Query.Get("redirect_to") != testActivate {
		t.Errorf("redirect_to = %q", req.Query.Get("redirect_to"))
	}
	if req.APIKey != "anon-key" {
		t.Errorf("apiKey header = %q", req.APIKey)
	}
	data, _ := req.Body["data"].(map[string]interface{})
	if data["full_name"] != "Jane Doe" || data["display_name"] != "Jane Doe" || data["first_name"] != "Jane" {
		t.Errorf("metadata = %v", data)
	}
}

func TestSupabaseIdentity_SignUpAutoconfirm(t *testing.T) {
	f, idp := newFakeGoTrue(t)
	f.on("/auth/v1/signup", http.StatusOK, testTokenJSON)

	res, err := idp.SignUp(context.Background(), SignUpParams{Email: "jane@example.com", Password: "Password1"})
	if err != nil {
		t.Fatal(err)
	}
	if res.VerificationRequired() {
		t.Error("session returned, verification should not be required")
	}
	if res.User.Email != "jane@example.com" || res.Tokens.RefreshToken != "refresh-1" {
		t.Errorf("result = %+v %+v", res.User, res.Tokens)
	}
}

func TestSupabaseIdentity_SignUpAlreadyRegistered(t *testing.T) {
	f, idp := newFakeGoTrue(t)
	f.on("/auth/v1/signup", http.StatusUnprocessableEntity, `{"code":422,"error_code":"user_already_exists","msg":"User already registered"}`)

	_, err := idp.SignUp(context.Background(), SignUpParams{Email: "jane@example.com", Password: "Password1"})
	if !errors.Is(err, ErrProvider) {
		t.Fatalf("err = %v", err)
	}
	if KindOf(err) != ErrKindAlreadyRegistered {
		t.Errorf("KindOf = %v", KindOf(err))
	}
}

func TestSupabaseIdentity_SignIn(t *testing.T) {
	f, idp := newFakeGoTrue(t)
	f.on("/auth/v1/token", http.StatusOK, testTokenJSON)

	user, tokens, err := idp.SignIn(context.Background(), "jane@example.com", "Password1")
	if err != nil {
		t.Fatal(err)
	}
	if user.ID != testUserID || user.Role() != "admin" || user.EmailConfirmedAt == nil {
		t.Errorf("user = %+v", user)
	}
	if tokens.AccessToken != "access-1" || tokens.ExpiresAt.Unix() != 1893456000 {
		t.Errorf("tokens = %+v", tokens)
	}
	req := f.last()
	if req.Query.Get("grant_type") != "password" {
		t.Errorf("grant_type = %q", req.Query.Get("grant_type"))
	}
	if req.Query.Has("redirect_to") {
		t.Error("redirect_to only belongs on email-sending endpoints")
	}
}

func TestSupabaseIdentity_SignInInvalid(t *testing.T) {
	f, idp := newFakeGoTrue(t)
	f.on("/auth/v1/token", http.StatusBadRequest, `{"error":"invalid_grant","error_description":"Invalid login credentials"}`)

	_, _, err := idp.SignIn(context.Background(), "jane@example.com", "nope")
	if KindOf(err) != ErrKindInvalidCredentials {
		t.Errorf("KindOf(%v) = %v", err, KindOf(err))
	}
}

func TestSupabaseIdentity_GetUserSendsToken(t *testing.T) {
	f, idp := newFakeGoTrue(t)
	f.on("/auth/v1/user", http.StatusOK, testUserJSON)

	user, err := idp.GetUser(context.Background(), "access-1")
	if err != nil {
		t.Fatal(err)
	}
	if user.MetadataString("first_name") != "Jane" {
		t.Errorf("metadata = %v", user.UserMetadata)
	}
	if f.last().Auth != "Bearer access-1" {
		t.Errorf("Authorization = %q", f.last().Auth)
	}

	if _, err := idp.GetUser(context.Background(), ""); err == nil {
		t.Error("empty token should fail without a request")
	}
}

func TestSupabaseIdentity_RefreshAndSignOut(t *testing.T) {
	f, idp := newFakeGoTrue(t)
	f.on("/auth/v1/token", http.StatusOK, testTokenJSON)
	f.on("/auth/v1/logout", http.StatusNoContent, "")

	tokens, err := idp.Refresh(context.Background(), "refresh-0")
	if err != nil {
		t.Fatal(err)
	}
	if tokens.AccessToken != "access-1" {
		t.Errorf("tokens = %+v", tokens)
	}
	req := f.last()
	if req.Query.Get("grant_type") != "refresh_token" || req.Body["refresh_token"] != "refresh-0" {
		t.Errorf("refresh request = %+v", req)
	}

	if err := idp.SignOut(context.Background(), "access-1"); err != nil {
		t.Fatal(err)
	}
	if f.last().Path != "/auth/v1/logout" || f.last().Auth != "Bearer access-1" {
		t.Errorf("logout request = %+v", f.last())
	}
}

func TestSupabaseIdentity_ResendActivation(t *testing.T) {
	f, idp := newFakeGoTrue(t)
	f.on("/auth/v1/otp", http.StatusOK, `{}`)

	if err := idp.ResendActivation(context.Background(), "jane@example.com"); err != nil {
		t.Fatal(err)
	}
	req := f.last()
	if req.Body["email"] != "jane@example.com" || req.Body["create_user"] != false {
		t.Errorf("otp body = %v", req.Body)
	}
	if req.Query.Get("redirect_to") != testActivate {
		t.Errorf("redirect_to = %q", req.Query.Get("redirect_to"))
	}
}

func TestSupabaseIdentity_CanceledContext(t *testing.T) {
	_, idp := newFakeGoTrue(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := idp.GetUser(ctx, "access-1"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestNewSupabaseIdentity_RequiresKey(t *testing.T) {
	if _, err := NewSupabaseIdentity(SupabaseConfig{URL: "http://localhost"}); err == nil {
		t.Error("missing anon key should fail")
	}
}
