// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package auth

import (
	"context"

	"github.com/tomtom215/moviesavanna/internal/logging"
)

// Resolver turns an access token into a Context.
type Resolver struct {
	identity IdentityProvider
	profiles ProfileReader
}

// NewResolver creates a Resolver. profiles may be nil, in which case only
// the provider's own fields drive IsAdmin and IsVerified.
func NewResolver(identity IdentityProvider, profiles ProfileReader) *Resolver {
	return &Resolver{identity: identity, profiles: profiles}
}

// Resolve validates accessToken with the identity provider and enriches
// the result from the profile row. It never returns an error: any
// provider failure yields the zero Context.
func (r *Resolver) Resolve(ctx context.Context, accessToken string) Context {
	if accessToken == "" || r.identity == nil {
		return Context{}
	}

	user, err := r.identity.GetUser(ctx, accessToken)
	if err != nil || user == nil || user.ID == "" {
		if err != nil {
			logging.Ctx(ctx).Debug().Err(err).Msg("Access token rejected")
		}
		return Context{}
	}

	ac := Context{
		Authenticated: true,
		UserID:        user.ID,
		Email:         user.Email,
		User:          user,
		IsAdmin:       user.Role() == "admin",
		IsVerified:    user.EmailConfirmedAt != nil,
	}

	if r.profiles == nil {
		return ac
	}
	profile, err := r.profiles.GetProfile(ctx, user.ID)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("user_id", logging.SanitizeUserID(user.ID)).Msg("Profile lookup failed")
		return ac
	}
	if profile != nil {
		ac.IsAdmin = ac.IsAdmin || profile.Role == "admin"
		ac.IsVerified = ac.IsVerified || profile.EmailVerified
	}
	return ac
}
