package web

import (
	"crypto/subtle"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/AntonStoeckl/library-lending/downstream"
	"github.com/AntonStoeckl/library-lending/identity"
	"github.com/AntonStoeckl/library-lending/shell"
)

const (
	logMsgHTTP       = "http"
	logAttrMethod    = "method"
	logAttrLatencyMS = "latency_ms"
	logAttrIP        = "ip"
	logAttrUserAgent = "ua"
)

// RegisterMiddlewares installs recovery, request ids and the access log.
func RegisterMiddlewares(e *echo.Echo, logger shell.ContextualLogger) {
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))
	e.Use(AccessLog(logger))
}

// AccessLog writes one record per request.
func AccessLog(logger shell.ContextualLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			if logger != nil {
				logger.InfoContext(c.Request().Context(), logMsgHTTP,
					logAttrMethod, c.Request().Method,
					logAttrPath, c.Path(),
					logAttrStatus, c.Response().Status,
					logAttrLatencyMS, shell.ToMilliseconds(time.Since(start)),
					logAttrRequestID, c.Response().Header().Get(echo.HeaderXRequestID),
					logAttrIP, c.RealIP(),
					logAttrUserAgent, c.Request().UserAgent(),
				)
			}

			return nil
		}
	}
}

// Authenticate verifies the bearer token and stores the caller in the request context.
func Authenticate(verifier identity.Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := identity.TokenFromAuthorizationHeader(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return err
			}

			caller, err := verifier.Verify(c.Request().Context(), token)
			if err != nil {
				return err
			}

			c.SetRequest(c.Request().WithContext(identity.WithIdentity(c.Request().Context(), caller)))

			return next(c)
		}
	}
}

// RequireAdmin rejects callers without the admin role. It must run after Authenticate.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			caller, err := Caller(c)
			if err != nil {
				return err
			}

			if !caller.IsAdmin() {
				return ErrForbidden
			}

			return next(c)
		}
	}
}

// RequireInternalToken guards service-to-service endpoints. An empty token disables the check.
func RequireInternalToken(token string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token == "" {
				return next(c)
			}

			presented := c.Request().Header.Get(downstream.InternalTokenHeader)
			if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				return ErrForbidden
			}

			return next(c)
		}
	}
}

// Caller returns the authenticated caller of the request.
func Caller(c echo.Context) (identity.Identity, error) {
	caller, ok := identity.FromContext(c.Request().Context())
	if !ok {
		return identity.Identity{}, identity.ErrMissingToken
	}

	return caller, nil
}
