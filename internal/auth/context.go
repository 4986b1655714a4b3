// ABOUTME: Authentication context for tracking the caller through request handlers
// ABOUTME: Provides WithAuth/FromContext and a principal accessor for audit records

package auth

import (
	"context"
)

// AuthContext holds the authenticated identity extracted from a request.
type AuthContext struct {
	PrincipalID string   // "sub" claim of the bearer token
	ExpiresAt   int64    // unix seconds, zero when the token carries no exp claim
	Scopes      []string // optional "scope" claim split on spaces
}

// ScopeToolsCall grants tools/call to a token that carries a scope claim.
const ScopeToolsCall = "tools:call"

// HasScope reports whether the token was granted scope.
func (a *AuthContext) HasScope(scope string) bool {
	for _, s := range a.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Allows reports whether the caller may use scope. Anonymous callers and
// tokens without a scope claim are unrestricted.
func (a *AuthContext) Allows(scope string) bool {
	if a == nil || len(a.Scopes) == 0 {
		return true
	}
	return a.HasScope(scope)
}

// authContextKey is the key type for storing AuthContext in context.Context.
type authContextKey struct{}

// WithAuth returns a new context with the AuthContext attached.
func WithAuth(ctx context.Context, auth *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, auth)
}

// FromContext retrieves the AuthContext from the context, returning nil if not present.
func FromContext(ctx context.Context) *AuthContext {
	auth, _ := ctx.Value(authContextKey{}).(*AuthContext)
	return auth
}

// PrincipalFromContext returns the authenticated principal ID, or "" for
// anonymous requests.
func PrincipalFromContext(ctx context.Context) string {
	if auth := FromContext(ctx); auth != nil {
		return auth.PrincipalID
	}
	return ""
}
