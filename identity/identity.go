// Package identity carries the authenticated caller through a request and verifies bearer tokens.
package identity

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Role is the authorization role of a caller.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

var (
	ErrMissingToken = errors.New("authentication token is missing")
	ErrInvalidToken = errors.New("authentication token is invalid or expired")
)

// Identity is the verified caller of a request.
type Identity struct {
	UserID    int64
	Username  string
	Role      Role
	ExpiresAt time.Time
}

// IsAdmin reports whether the caller has the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// CanAccessUser reports whether the caller may see data of userID: its own, or anyone's as admin.
func (i Identity) CanAccessUser(userID int64) bool {
	return i.IsAdmin() || i.UserID == userID
}

// Verifier turns a bearer token into an Identity. Unknown, malformed, and expired tokens
// fail with ErrInvalidToken.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

type contextKey struct{}

// WithIdentity returns a copy of ctx that carries id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity stored by WithIdentity.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

// TokenFromAuthorizationHeader extracts the token of a "Bearer <token>" header value.
// A bare token without the scheme is accepted as well.
func TokenFromAuthorizationHeader(header string) (string, error) {
	fields := strings.Fields(header)

	switch {
	case len(fields) == 0:
		return "", ErrMissingToken
	case len(fields) == 1 && strings.EqualFold(fields[0], "bearer"):
		return "", ErrMissingToken
	case len(fields) == 1:
		return fields[0], nil
	case len(fields) == 2 && strings.EqualFold(fields[0], "bearer"):
		return fields[1], nil
	default:
		return "", ErrInvalidToken
	}
}
