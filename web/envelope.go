package web

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Envelope is the uniform response body. Timestamp is in Unix milliseconds.
type Envelope struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Data      any    `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

// OK renders data inside a success envelope.
func OK(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, Envelope{
		Code:      CodeSuccess,
		Message:   "success",
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
}

// Fail renders a failure envelope.
func Fail(c echo.Context, status int, code int, message string) error {
	return c.JSON(status, Envelope{
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UnixMilli(),
	})
}
