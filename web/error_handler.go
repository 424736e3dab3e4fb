package web

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/AntonStoeckl/library-lending/shell"
)

const (
	logMsgRequestFailed      = "request failed"
	logMsgDependencyDegraded = "request failed, dependency unavailable"
	logAttrRequestID         = "request_id"
	logAttrPath              = "path"
	logAttrStatus            = "status"
	logAttrError             = "error"
)

// NewHTTPErrorHandler renders every error returned by a handler inside the envelope.
// Internal errors are logged with their details, which never reach the client.
func NewHTTPErrorHandler(logger shell.ContextualLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		classification := Classify(err)

		if logger != nil {
			args := []any{
				logAttrRequestID, c.Response().Header().Get(echo.HeaderXRequestID),
				logAttrPath, c.Path(),
				logAttrStatus, classification.Status,
				logAttrError, err.Error(),
			}

			switch {
			case classification.Status == http.StatusServiceUnavailable:
				logger.WarnContext(c.Request().Context(), logMsgDependencyDegraded, args...)
			case classification.Status >= http.StatusInternalServerError:
				logger.ErrorContext(c.Request().Context(), logMsgRequestFailed, args...)
			}
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(classification.Status)
			return
		}

		_ = Fail(c, classification.Status, classification.Code, classification.Message)
	}
}
