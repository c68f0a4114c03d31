// Package auth provides authentication context helpers.
//
// This package is imported by both middleware and handler packages without
// causing import cycles.
package auth

import (
	"context"
	"net/http"

	"github.com/DukeRupert/tradeslink/internal/domain"
)

type contextKey string

const (
	userContextKey  contextKey = "user"
	tokenContextKey contextKey = "session_token"
)

// GetUser retrieves the authenticated user from the context.
// Returns nil if no user is authenticated.
func GetUser(ctx context.Context) *domain.User {
	user, ok := ctx.Value(userContextKey).(*domain.User)
	if !ok {
		return nil
	}
	return user
}

// SetUser stores a user in the context.
func SetUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// AuthContext returns the caller's authorization context. Requests without
// a user resolve to the anonymous context.
func AuthContext(ctx context.Context) domain.AuthContext {
	return GetUser(ctx).AuthContext()
}

// FromRequest is AuthContext for a request.
func FromRequest(r *http.Request) domain.AuthContext {
	return AuthContext(r.Context())
}

// SessionToken returns the raw session token the user authenticated with.
func SessionToken(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey).(string)
	return token
}

// SetSessionToken stores the raw session token in the context so logout can
// revoke it.
func SetSessionToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey, token)
}
