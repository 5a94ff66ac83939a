// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/supabase-community/supabase-go"
)

// Profile is the application row for an account.
type Profile struct {
	ID            string `json:"id"`
	Role          string `json:"role"`
	EmailVerified bool   `json:"email_verified"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
}

// ProfileReader looks up profiles. A missing row is (nil, nil).
type ProfileReader interface {
	GetProfile(ctx context.Context, userID string) (*Profile, error)
}

const (
	profilesTable   = "profiles"
	profileColumns  = "id,role,email_verified,first_name,last_name"
	pgrstNoRowsCode = "(PGRST116)"
)

// SupabaseProfileReader reads profiles through PostgREST.
type SupabaseProfileReader struct {
	client *supabase.Client
}

// NewSupabaseProfileReader uses key for PostgREST. With the service role
// key the read bypasses row level security; the query always filters by id.
func NewSupabaseProfileReader(url, key string) (*SupabaseProfileReader, error) {
	client, err := supabase.NewClient(strings.TrimRight(url, "/"), key, nil)
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return &SupabaseProfileReader{client: client}, nil
}

func (r *SupabaseProfileReader) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var p Profile
	_, err := r.client.From(profilesTable).
		Select(profileColumns, "", false).
		Eq("id", userID).
		Single().
		ExecuteTo(&p)
	if err != nil {
		if strings.Contains(err.Error(), pgrstNoRowsCode) {
			return nil, nil
		}
		return nil, fmt.Errorf("read profile: %w", err)
	}
	return &p, nil
}
