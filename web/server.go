package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"
	"github.com/rs/cors"

	"github.com/AntonStoeckl/library-lending/shell"
)

const (
	logMsgServerStarting = "http server starting"
	logMsgServerStopping = "http server shutting down"
	logAttrAddr          = "addr"

	shutdownTimeout = 10 * time.Second
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONSerializer plugs json-iterator into echo.
type JSONSerializer struct{}

// Serialize implements echo.JSONSerializer.
func (JSONSerializer) Serialize(c echo.Context, i any, indent string) error {
	enc := json.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}

	return enc.Encode(i)
}

// Deserialize implements echo.JSONSerializer.
func (JSONSerializer) Deserialize(c echo.Context, i any) error {
	if err := json.NewDecoder(c.Request().Body).Decode(i); err != nil {
		return errors.Join(ErrInvalidRequest, err)
	}

	return nil
}

// Validator adapts go-playground/validator to echo.
type Validator struct {
	v *validator.Validate
}

// NewValidator creates a Validator.
func NewValidator() *Validator {
	return &Validator{v: validator.New()}
}

// Validate implements echo.Validator.
func (v *Validator) Validate(i any) error {
	if err := v.v.Struct(i); err != nil {
		return errors.Join(ErrInvalidRequest, err)
	}

	return nil
}

// BindAndValidate decodes the request body into req and validates it.
func BindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return errors.Join(ErrInvalidRequest, err)
	}

	return c.Validate(req)
}

// NewEcho creates an echo instance with the shared serializer, validator, error handler
// and middleware.
func NewEcho(logger shell.ContextualLogger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = JSONSerializer{}
	e.Validator = NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(logger)

	RegisterMiddlewares(e, logger)

	e.GET("/health", func(c echo.Context) error {
		return OK(c, map[string]string{"status": "ok"})
	})

	return e
}

// WithCORS wraps handler in a CORS policy for the given origins. No origins allows all.
func WithCORS(handler http.Handler, allowedOrigins []string) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"Authorization", "Content-Type", echo.HeaderXRequestID},
		AllowCredentials: len(allowedOrigins) > 0,
	}).Handler(handler)
}

// Serve runs handler on addr until ctx is done, then shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, logger shell.ContextualLogger) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if logger != nil {
			logger.InfoContext(ctx, logMsgServerStarting, logAttrAddr, addr)
		}

		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	if logger != nil {
		logger.InfoContext(context.WithoutCancel(ctx), logMsgServerStopping, logAttrAddr, addr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if err := <-serveErr; !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
