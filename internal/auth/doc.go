// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

/*
Package auth resolves who is making a request.

Identity lives in Supabase. The service never stores passwords or trusts
token claims: every request that carries a session has its access token
checked against GoTrue's /user endpoint by the Resolver, which then reads
the caller's profile row to decide admin and verified status. Any failure
yields the zero Context (unauthenticated).

# Components

  - IdentityProvider: signup, sign-in, sign-out, user lookup, token
    refresh and activation resend. SupabaseIdentity is the gotrue-go
    adapter. Provider failures are returned as *ProviderError carrying a
    closed ErrorKind with a stable user-facing message.
  - ProfileReader: reads the PostgREST profiles table.
  - Resolver: access token in, Context out.
  - SessionStore: maps an opaque cookie value to the Supabase tokens.
    MemorySessionStore for development, BadgerSessionStore for
    persistence across restarts.
  - SessionMiddleware: loads the session, refreshes tokens close to
    expiry, resolves the Context and stores it on the request.

Handlers read the result with FromContext.
*/
package auth
