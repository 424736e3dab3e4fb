package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-lending/identity"
)

const secret = "library-lending-test-secret-of-sufficient-length"

func signToken(t *testing.T, key string, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(key))
	require.NoError(t, err, "error in arranging test token")

	return token
}

func Test_JWTVerifier_Verify(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	verifier, err := identity.NewJWTVerifier(secret)
	require.NoError(t, err)
	verifier = verifier.WithTimeFunc(func() time.Time { return now })

	validClaims := func() jwt.MapClaims {
		return jwt.MapClaims{
			"userId":   7,
			"username": "ada",
			"role":     "ADMIN",
			"exp":      now.Add(time.Hour).Unix(),
		}
	}

	t.Run("valid token", func(t *testing.T) {
		// act
		id, verifyErr := verifier.Verify(context.Background(), signToken(t, secret, jwt.SigningMethodHS256, validClaims()))

		// assert
		require.NoError(t, verifyErr)
		assert.Equal(t, int64(7), id.UserID)
		assert.Equal(t, "ada", id.Username)
		assert.True(t, id.IsAdmin())
		assert.True(t, now.Add(time.Hour).Equal(id.ExpiresAt))
	})

	t.Run("subject is the fallback username and USER the default role", func(t *testing.T) {
		claims := validClaims()
		delete(claims, "username")
		delete(claims, "role")
		claims["sub"] = "grace"

		id, verifyErr := verifier.Verify(context.Background(), signToken(t, secret, jwt.SigningMethodHS512, claims))

		require.NoError(t, verifyErr)
		assert.Equal(t, "grace", id.Username)
		assert.Equal(t, identity.RoleUser, id.Role)
	})

	invalid := map[string]func() string{
		"expired": func() string {
			claims := validClaims()
			claims["exp"] = now.Add(-time.Minute).Unix()
			return signToken(t, secret, jwt.SigningMethodHS256, claims)
		},
		"no expiry": func() string {
			claims := validClaims()
			delete(claims, "exp")
			return signToken(t, secret, jwt.SigningMethodHS256, claims)
		},
		"wrong secret": func() string {
			return signToken(t, "another-secret-another-secret-another", jwt.SigningMethodHS256, validClaims())
		},
		"no user id": func() string {
			claims := validClaims()
			delete(claims, "userId")
			return signToken(t, secret, jwt.SigningMethodHS256, claims)
		},
		"garbage": func() string {
			return "not.a.token"
		},
	}

	for name, token := range invalid {
		t.Run(name, func(t *testing.T) {
			_, verifyErr := verifier.Verify(context.Background(), token())
			assert.ErrorIs(t, verifyErr, identity.ErrInvalidToken)
		})
	}
}

func Test_NewJWTVerifier_When_SecretIsEmpty(t *testing.T) {
	_, err := identity.NewJWTVerifier("")
	assert.ErrorIs(t, err, identity.ErrEmptySecret)
}

func Test_TokenFromAuthorizationHeader(t *testing.T) {
	token, err := identity.TokenFromAuthorizationHeader("Bearer abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)

	token, err = identity.TokenFromAuthorizationHeader("bearer   xyz ")
	require.NoError(t, err)
	assert.Equal(t, "xyz", token)

	_, err = identity.TokenFromAuthorizationHeader("Bearer ")
	assert.ErrorIs(t, err, identity.ErrMissingToken)

	_, err = identity.TokenFromAuthorizationHeader("")
	assert.ErrorIs(t, err, identity.ErrMissingToken)
}

func Test_Context_It_Should_CarryTheIdentity(t *testing.T) {
	_, ok := identity.FromContext(context.Background())
	assert.False(t, ok)

	ctx := identity.WithIdentity(context.Background(), identity.Identity{UserID: 3, Role: identity.RoleUser})
	id, ok := identity.FromContext(ctx)

	require.True(t, ok)
	assert.Equal(t, int64(3), id.UserID)
	assert.True(t, id.CanAccessUser(3))
	assert.False(t, id.CanAccessUser(4))
}
