package identity

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrEmptySecret = errors.New("jwt secret must not be empty")

type tokenClaims struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// JWTVerifier verifies HMAC signed tokens with a shared secret, without a remote call.
type JWTVerifier struct {
	secret []byte
	now    func() time.Time
}

// NewJWTVerifier creates a verifier for tokens signed with secret.
func NewJWTVerifier(secret string) (*JWTVerifier, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}

	return &JWTVerifier{secret: []byte(secret), now: time.Now}, nil
}

// WithTimeFunc returns a copy of the verifier that checks expiry against now.
func (v *JWTVerifier) WithTimeFunc(now func() time.Time) *JWTVerifier {
	clone := *v
	clone.now = now

	return &clone
}

// Verify checks signature and expiry. The token must carry an expiry and a user id;
// the username falls back to the subject.
func (v *JWTVerifier) Verify(_ context.Context, token string) (Identity, error) {
	claims := &tokenClaims{}

	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil || !parsed.Valid {
		return Identity{}, errors.Join(ErrInvalidToken, err)
	}

	if claims.UserID <= 0 {
		return Identity{}, errors.Join(ErrInvalidToken, errors.New("user id claim missing"))
	}

	username := claims.Username
	if username == "" {
		username = claims.Subject
	}

	role := Role(claims.Role)
	if role == "" {
		role = RoleUser
	}

	return Identity{
		UserID:    claims.UserID,
		Username:  username,
		Role:      role,
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}, nil
}
