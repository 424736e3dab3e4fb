package downstream

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/AntonStoeckl/library-lending/identity"
	"github.com/AntonStoeckl/library-lending/shell"
)

const (
	codeUnauthorized = 401
	codeTokenInvalid = 2001
	codeTokenMissing = 2003
)

type verifyResponse struct {
	Valid      bool   `json:"valid"`
	UserID     int64  `json:"userId"`
	Username   string `json:"username"`
	Role       string `json:"role"`
	Expiration int64  `json:"expiration"`
}

// IdentityClient verifies bearer tokens against the identity service. Valid results are cached
// per token, never beyond the token's own expiration.
type IdentityClient struct {
	transport transport
	breaker   *Breaker
	cache     *expirable.LRU[string, identity.Identity]
	clock     shell.Clock
}

// NewIdentityClient creates a client for the identity service at baseURL.
func NewIdentityClient(baseURL string, opts ...ClientOption) *IdentityClient {
	cfg := buildConfig(identityBreakerName, opts)

	client := &IdentityClient{
		transport: newTransport(baseURL, cfg),
		breaker:   cfg.breaker,
		clock:     cfg.clock,
	}

	if cfg.cacheSize > 0 {
		client.cache = expirable.NewLRU[string, identity.Identity](cfg.cacheSize, nil, cfg.cacheTTL)
	}

	return client
}

// Verify implements identity.Verifier.
func (c *IdentityClient) Verify(ctx context.Context, token string) (identity.Identity, error) {
	if token == "" {
		return identity.Identity{}, identity.ErrMissingToken
	}

	if id, ok := c.cached(token); ok {
		return id, nil
	}

	id, err := Call(ctx, c.breaker, func(ctx context.Context) (identity.Identity, error) {
		var resp verifyResponse
		err := c.transport.do(ctx, request{
			Method:        http.MethodGet,
			Path:          "/auth/verify",
			Authorization: "Bearer " + token,
			Out:           &resp,
		})
		if err != nil {
			return identity.Identity{}, mapIdentityError(err)
		}

		return toIdentity(resp)
	})
	if err != nil {
		return identity.Identity{}, err
	}

	if c.cache != nil {
		c.cache.Add(token, id)
	}

	return id, nil
}

func (c *IdentityClient) cached(token string) (identity.Identity, bool) {
	if c.cache == nil {
		return identity.Identity{}, false
	}

	id, ok := c.cache.Get(token)
	if !ok {
		return identity.Identity{}, false
	}

	if !c.clock().Before(id.ExpiresAt) {
		c.cache.Remove(token)
		return identity.Identity{}, false
	}

	return id, true
}

func toIdentity(resp verifyResponse) (identity.Identity, error) {
	if !resp.Valid || resp.UserID <= 0 {
		return identity.Identity{}, identity.ErrInvalidToken
	}

	role := identity.Role(resp.Role)
	if role != identity.RoleAdmin {
		role = identity.RoleUser
	}

	return identity.Identity{
		UserID:    resp.UserID,
		Username:  resp.Username,
		Role:      role,
		ExpiresAt: time.UnixMilli(resp.Expiration).UTC(),
	}, nil
}

func mapIdentityError(err error) error {
	var remote *RemoteError
	if !errors.As(err, &remote) {
		return err
	}

	switch remote.Code {
	case codeUnauthorized, codeTokenInvalid:
		return identity.ErrInvalidToken
	case codeTokenMissing:
		return identity.ErrMissingToken
	default:
		return errors.Join(ErrRemoteRejected, err)
	}
}
