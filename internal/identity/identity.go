// Package identity resolves opaque session tokens to player identities.
//
// Token issuing, registration and password flows live in an external auth
// service; this package only reads what that service already wrote.
package identity

import (
	"context"
	"strings"
)

// PlayerID is a stable, comparable player identity.
type PlayerID string

func (p PlayerID) String() string { return string(p) }

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }

// ErrUnauthorized means the token is unknown, expired or malformed.
var ErrUnauthorized = errf("unauthorized")

// Resolver maps a token to a player or fails with ErrUnauthorized.
// Backend failures are returned as other errors.
type Resolver interface {
	Resolve(ctx context.Context, token string) (PlayerID, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, token string) (PlayerID, error)

func (f ResolverFunc) Resolve(ctx context.Context, token string) (PlayerID, error) {
	return f(ctx, token)
}

// BearerToken extracts the token from an "Authorization: Bearer x" value.
// A bare token without the scheme is accepted too.
func BearerToken(header string) string {
	h := strings.TrimSpace(header)
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return h
}

// Redact keeps a short token prefix for logs.
func Redact(token string) string {
	if len(token) <= 6 {
		return "***"
	}
	return token[:6] + "..."
}
