// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package auth

import (
	"context"
	"errors"
	"sync"
	"time"
)

// fakeIdentity is an in-memory IdentityProvider keyed by access token.
type fakeIdentity struct {
	mu        sync.Mutex
	users     map[string]*User
	refreshes map[string]*Tokens
	getErr    error
	calls     map[string]int
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{
		users:     make(map[string]*User),
		refreshes: make(map[string]*Tokens),
		calls:     make(map[string]int),
	}
}

func (f *fakeIdentity) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeIdentity) record(op string) {
	f.mu.Lock()
	f.calls[op]++
	f.mu.Unlock()
}

func (f *fakeIdentity) SignUp(_ context.Context, p SignUpParams) (*SignUpResult, error) {
	f.record("signup")
	return &SignUpResult{User: &User{ID: "new-user", Email: p.Email}}, nil
}

func (f *fakeIdentity) SignIn(_ context.Context, email, _ string) (*User, *Tokens, error) {
	f.record("signin")
	return &User{ID: "u1", Email: email}, &Tokens{AccessToken: "a1", RefreshToken: "r1"}, nil
}

func (f *fakeIdentity) SignOut(context.Context, string) error {
	f.record("signout")
	return nil
}

func (f *fakeIdentity) GetUser(_ context.Context, token string) (*User, error) {
	f.record("getuser")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[token]
	if !ok {
		return nil, &ProviderError{Op: "get user", Kind: ErrKindInvalidCredentials, Status: 401}
	}
	return u, nil
}

func (f *fakeIdentity) Refresh(_ context.Context, refreshToken string) (*Tokens, error) {
	f.record("refresh")
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.refreshes[refreshToken]
	if !ok {
		return nil, &ProviderError{Op: "refresh", Kind: ErrKindInvalidCredentials, Status: 400}
	}
	return t, nil
}

func (f *fakeIdentity) ResendActivation(context.Context, string) error {
	f.record("resend")
	return nil
}

// fakeProfiles is a ProfileReader backed by a map.
type fakeProfiles struct {
	profiles map[string]*Profile
	err      error
}

func (f *fakeProfiles) GetProfile(_ context.Context, userID string) (*Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.profiles[userID], nil
}

var errProfileDown = errors.New("profiles unavailable")

func confirmedAt() *time.Time {
	t := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &t
}
