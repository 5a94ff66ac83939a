// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/gotrue-go/types"
	"github.com/supabase-community/supabase-go"
)

// User is the identity provider's view of an account.
type User struct {
	ID               string
	Email            string
	Phone            string
	EmailConfirmedAt *time.Time
	AppMetadata      map[string]interface{}
	UserMetadata     map[string]interface{}
	CreatedAt        time.Time
}

// Role returns app_metadata.role, or "".
func (u *User) Role() string {
	s, _ := u.AppMetadata["role"].(string)
	return s
}

// Provider returns app_metadata.provider, defaulting to "email".
func (u *User) Provider() string {
	if s, ok := u.AppMetadata["provider"].(string); ok && s != "" {
		return s
	}
	return "email"
}

// MetadataString returns a string value from user_metadata.
func (u *User) MetadataString(key string) string {
	s, _ := u.UserMetadata[key].(string)
	return s
}

// Tokens are the provider session credentials kept server-side.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// SignUpParams is a new account request.
type SignUpParams struct {
	Email     string
	Password  string
	Phone     string
	FirstName string
	LastName  string
}

// SignUpResult is returned by SignUp. Tokens is nil when the provider
// requires email verification before the first sign-in.
type SignUpResult struct {
	User   *User
	Tokens *Tokens
}

// VerificationRequired reports whether the account must be activated
// before it can sign in.
func (r *SignUpResult) VerificationRequired() bool {
	return r.Tokens == nil || r.Tokens.AccessToken == ""
}

// IdentityProvider is the account backend.
type IdentityProvider interface {
	SignUp(ctx context.Context, params SignUpParams) (*SignUpResult, error)
	SignIn(ctx context.Context, email, password string) (*User, *Tokens, error)
	SignOut(ctx context.Context, accessToken string) error
	// GetUser validates accessToken with the provider.
	GetUser(ctx context.Context, accessToken string) (*User, error)
	Refresh(ctx context.Context, refreshToken string) (*Tokens, error)
	// ResendActivation sends a new confirmation link to an existing account.
	ResendActivation(ctx context.Context, email string) error
}

// SupabaseConfig configures SupabaseIdentity.
type SupabaseConfig struct {
	URL     string
	AnonKey string
	// ActivationURL is where the confirmation email links to.
	ActivationURL string
	Timeout       time.Duration
	// Transport overrides the HTTP transport, for tests.
	Transport http.RoundTripper
}

// SupabaseIdentity implements IdentityProvider over GoTrue.
type SupabaseIdentity struct {
	base          gotrue.Client
	activationURL string
	timeout       time.Duration
	transport     http.RoundTripper
}

var _ IdentityProvider = (*SupabaseIdentity)(nil)

// NewSupabaseIdentity builds the adapter from the project URL and anon key.
func NewSupabaseIdentity(cfg SupabaseConfig) (*SupabaseIdentity, error) {
	client, err := supabase.NewClient(strings.TrimRight(cfg.URL, "/"), cfg.AnonKey, nil)
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Transport == nil {
		cfg.Transport = http.DefaultTransport
	}
	return &SupabaseIdentity{
		base:          client.Auth,
		activationURL: cfg.ActivationURL,
		timeout:       cfg.Timeout,
		transport:     cfg.Transport,
	}, nil
}

// client returns a GoTrue client whose requests are bound to ctx.
// WithClient and WithToken return copies, so this is safe per call.
func (s *SupabaseIdentity) client(ctx context.Context) gotrue.Client {
	return s.base.WithClient(http.Client{
		Timeout: s.timeout,
		Transport: &requestTransport{
			ctx:        ctx,
			base:       s.transport,
			redirectTo: s.activationURL,
		},
	})
}

func (s *SupabaseIdentity) SignUp(ctx context.Context, p SignUpParams) (*SignUpResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fullName := strings.TrimSpace(p.FirstName + " " + p.LastName)
	resp, err := s.client(ctx).Signup(types.SignupRequest{
		Email:    p.Email,
		Password: p.Password,
		Phone:    p.Phone,
		Data: map[string]interface{}{
			"first_name":   p.FirstName,
			"last_name":    p.LastName,
			"full_name":    fullName,
			"display_name": fullName,
		},
	})
	if err != nil {
		return nil, classify("signup", err)
	}

	res := &SignUpResult{User: fromGoTrueUser(&resp.User)}
	if resp.AccessToken != "" {
		res.Tokens = tokensFrom(&resp.Session)
	}
	return res, nil
}

func (s *SupabaseIdentity) SignIn(ctx context.Context, email, password string) (*User, *Tokens, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	resp, err := s.client(ctx).SignInWithEmailPassword(email, password)
	if err != nil {
		return nil, nil, classify("sign in", err)
	}
	return fromGoTrueUser(&resp.User), tokensFrom(&resp.Session), nil
}

func (s *SupabaseIdentity) SignOut(ctx context.Context, accessToken string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.client(ctx).WithToken(accessToken).Logout(); err != nil {
		return classify("sign out", err)
	}
	return nil
}

func (s *SupabaseIdentity) GetUser(ctx context.Context, accessToken string) (*User, error) {
	if accessToken == "" {
		return nil, &ProviderError{Op: "get user", Kind: ErrKindInvalidCredentials, Status: http.StatusUnauthorized}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := s.client(ctx).WithToken(accessToken).GetUser()
	if err != nil {
		return nil, classify("get user", err)
	}
	return fromGoTrueUser(&resp.User), nil
}

func (s *SupabaseIdentity) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	if refreshToken == "" {
		return nil, &ProviderError{Op: "refresh", Kind: ErrKindInvalidCredentials, Err: errors.New("no refresh token")}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := s.client(ctx).RefreshToken(refreshToken)
	if err != nil {
		return nil, classify("refresh", err)
	}
	return tokensFrom(&resp.Session), nil
}

// ResendActivation sends a confirmation link through /otp without
// creating an account for unknown addresses.
func (s *SupabaseIdentity) ResendActivation(ctx context.Context, email string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.client(ctx).OTP(types.OTPRequest{Email: email, CreateUser: false}); err != nil {
		return classify("resend activation", err)
	}
	return nil
}

func fromGoTrueUser(u *types.User) *User {
	return &User{
		ID:               u.ID.String(),
		Email:            u.Email,
		Phone:            u.Phone,
		EmailConfirmedAt: u.EmailConfirmedAt,
		AppMetadata:      u.AppMetadata,
		UserMetadata:     u.UserMetadata,
		CreatedAt:        u.CreatedAt,
	}
}

func tokensFrom(s *types.Session) *Tokens {
	t := &Tokens{AccessToken: s.AccessToken, RefreshToken: s.RefreshToken}
	switch {
	case s.ExpiresAt > 0:
		t.ExpiresAt = time.Unix(s.ExpiresAt, 0)
	case s.ExpiresIn > 0:
		t.ExpiresAt = time.Now().Add(time.Duration(s.ExpiresIn) * time.Second)
	}
	return t
}

// requestTransport binds gotrue-go requests to the caller's context and
// adds the activation redirect to the endpoints that send email.
type requestTransport struct {
	ctx        context.Context
	base       http.RoundTripper
	redirectTo string
}

func (t *requestTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(t.ctx)
	if t.redirectTo != "" && sendsEmail(r.URL.Path) {
		q := r.URL.Query()
		q.Set("redirect_to", t.redirectTo)
		r.URL.RawQuery = q.Encode()
	}
	return t.base.RoundTrip(r)
}

func sendsEmail(path string) bool {
	return strings.HasSuffix(path, "/signup") || strings.HasSuffix(path, "/otp")
}
