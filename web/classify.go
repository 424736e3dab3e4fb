package web

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/AntonStoeckl/library-lending/downstream"
	"github.com/AntonStoeckl/library-lending/identity"
	"github.com/AntonStoeckl/library-lending/inventory"
	"github.com/AntonStoeckl/library-lending/lending/core"
	"github.com/AntonStoeckl/library-lending/lending/sweeper"
)

// Envelope codes.
const (
	CodeSuccess            = 200
	CodeBadRequest         = 400
	CodeUnauthorized       = 401
	CodeForbidden          = 403
	CodeNotFound           = 404
	CodeConflict           = 409
	CodeInternal           = 500
	CodeServiceUnavailable = 503

	CodeTokenInvalid = 2001
	CodeTokenMissing = 2003

	CodeBookNotFound           = 3001
	CodeBookAlreadyExists      = 3002
	CodeBookStockNotEnough     = 3003
	CodeBookStockOverflow      = 3004
	CodeBookNotListed          = 3005
	CodeBookHasOutstandingLoan = 3006

	CodeBorrowRecordNotFound   = 4001
	CodeBookAlreadyBorrowed    = 4002
	CodeBorrowLimitExceeded    = 4003
	CodeBookAlreadyReturned    = 4005
	CodeRenewLimitReached      = 4006
	CodeRenewNotAllowedOverdue = 4007
	CodeConcurrentModification = 4008
)

var (
	// ErrInvalidRequest marks malformed or invalid request input.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrForbidden is returned when the caller lacks the required role.
	ErrForbidden = errors.New("access denied")
)

// Classification is the HTTP rendering of an error.
type Classification struct {
	Status  int
	Code    int
	Message string
}

type rule struct {
	target error
	status int
	code   int
}

// rules are checked in order; the first match wins.
var rules = []rule{
	{ErrInvalidRequest, http.StatusBadRequest, CodeBadRequest},
	{core.ErrInvalidCommand, http.StatusBadRequest, CodeBadRequest},
	{core.ErrEmptyBookTitle, http.StatusBadRequest, CodeBadRequest},
	{inventory.ErrInvalidQuantity, http.StatusBadRequest, CodeBadRequest},
	{inventory.ErrInvalidBook, http.StatusBadRequest, CodeBadRequest},

	{identity.ErrMissingToken, http.StatusUnauthorized, CodeTokenMissing},
	{identity.ErrInvalidToken, http.StatusUnauthorized, CodeTokenInvalid},

	{ErrForbidden, http.StatusForbidden, CodeForbidden},
	{core.ErrNotLoanOwner, http.StatusForbidden, CodeForbidden},
	{core.ErrAccessDenied, http.StatusForbidden, CodeForbidden},

	{inventory.ErrBookNotFound, http.StatusNotFound, CodeBookNotFound},
	{core.ErrLoanNotFound, http.StatusNotFound, CodeBorrowRecordNotFound},

	{inventory.ErrBookAlreadyExists, http.StatusConflict, CodeBookAlreadyExists},
	{inventory.ErrInsufficientStock, http.StatusConflict, CodeBookStockNotEnough},
	{inventory.ErrOverRelease, http.StatusConflict, CodeBookStockOverflow},
	{inventory.ErrStockLimitExceeded, http.StatusConflict, CodeBookStockOverflow},
	{core.ErrBookNotListed, http.StatusConflict, CodeBookNotListed},
	{inventory.ErrBookHasOutstandingLoans, http.StatusConflict, CodeBookHasOutstandingLoan},
	{core.ErrBookAlreadyBorrowed, http.StatusConflict, CodeBookAlreadyBorrowed},
	{core.ErrDuplicateActiveLoan, http.StatusConflict, CodeBookAlreadyBorrowed},
	{core.ErrBorrowLimitExceeded, http.StatusConflict, CodeBorrowLimitExceeded},
	{core.ErrLoanAlreadyReturned, http.StatusConflict, CodeBookAlreadyReturned},
	{core.ErrLoanNotOutstanding, http.StatusConflict, CodeBookAlreadyReturned},
	{core.ErrRenewLimitReached, http.StatusConflict, CodeRenewLimitReached},
	{core.ErrRenewNotAllowedOverdue, http.StatusConflict, CodeRenewNotAllowedOverdue},
	{core.ErrConcurrentModification, http.StatusConflict, CodeConcurrentModification},
	{sweeper.ErrSweepInProgress, http.StatusConflict, CodeConflict},

	{downstream.ErrServiceUnavailable, http.StatusServiceUnavailable, CodeServiceUnavailable},
}

// Classify maps err to its HTTP status, envelope code and client-facing message.
// Unknown errors become a generic 500; their details belong in the logs only.
func Classify(err error) Classification {
	for _, r := range rules {
		if !errors.Is(err, r.target) {
			continue
		}

		message := r.target.Error()
		if r.status == http.StatusBadRequest {
			message = err.Error()
		}

		return Classification{Status: r.status, Code: r.code, Message: message}
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		message := http.StatusText(httpErr.Code)
		if m, ok := httpErr.Message.(string); ok && m != "" {
			message = m
		}

		return Classification{Status: httpErr.Code, Code: httpErr.Code, Message: message}
	}

	return Classification{
		Status:  http.StatusInternalServerError,
		Code:    CodeInternal,
		Message: "internal server error",
	}
}
