// Package httpapi exposes the borrow workflow and the loan queries over HTTP.
package httpapi

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/AntonStoeckl/library-lending/lending/core"
	"github.com/AntonStoeckl/library-lending/lending/features/borrowbook"
	"github.com/AntonStoeckl/library-lending/lending/features/markoverdue"
	"github.com/AntonStoeckl/library-lending/lending/features/query/loans"
	"github.com/AntonStoeckl/library-lending/lending/features/renamebooktitle"
	"github.com/AntonStoeckl/library-lending/lending/features/renewloan"
	"github.com/AntonStoeckl/library-lending/lending/features/returnbook"
	"github.com/AntonStoeckl/library-lending/shell"
	"github.com/AntonStoeckl/library-lending/web"
)

const (
	paramLoanID = "id"
	paramUserID = "userId"
	paramBookID = "bookId"
)

// Handlers are the command and query handlers behind the endpoints.
type Handlers struct {
	Borrow      shell.CoreCommandHandler[borrowbook.Command, core.Loan]
	Return      shell.CoreCommandHandler[returnbook.Command, core.Loan]
	Renew       shell.CoreCommandHandler[renewloan.Command, core.Loan]
	RenameTitle shell.CoreCommandHandler[renamebooktitle.Command, int64]
	GetLoan     shell.CoreQueryHandler[loans.GetLoan, loans.LoanView]
	ListLoans   shell.CoreQueryHandler[loans.ListLoans, loans.LoanViewPage]
	Statistics  shell.CoreQueryHandler[loans.GetStatistics, core.Statistics]
	Count       shell.CoreQueryHandler[loans.CountOutstanding, int64]
}

// ManualSweeper runs the overdue sweep on demand.
type ManualSweeper interface {
	SweepNow(ctx context.Context, trigger string) (int64, error)
}

// Handler serves the lending endpoints.
type Handler struct {
	handlers    Handlers
	sweeper     ManualSweeper
	clock       shell.Clock
	maxPageSize int
}

// Option configures a Handler.
type Option func(*Handler)

// WithClock sets the clock used to render loan views after commands.
func WithClock(clock shell.Clock) Option {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithMaxPageSize caps the page size of loan listings.
func WithMaxPageSize(maxPageSize int) Option {
	return func(h *Handler) {
		h.maxPageSize = maxPageSize
	}
}

// NewHandler creates a Handler.
func NewHandler(handlers Handlers, sweeper ManualSweeper, opts ...Option) *Handler {
	h := &Handler{
		handlers:    handlers,
		sweeper:     sweeper,
		clock:       shell.SystemClock,
		maxPageSize: shell.MaxPageSize,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Register mounts the routes. Everything except the title propagation endpoint needs an
// authenticated caller; internal guards that endpoint instead.
func (h *Handler) Register(e *echo.Echo, authenticate echo.MiddlewareFunc, internal echo.MiddlewareFunc) {
	admin := []echo.MiddlewareFunc{authenticate, web.RequireAdmin()}

	e.POST("/borrow", h.Borrow, authenticate)
	e.POST("/return", h.Return, authenticate)
	e.POST("/renew", h.Renew, authenticate)

	e.GET("/borrow/my", h.ListMine, authenticate)
	e.GET("/borrow/user/:userId", h.ListForUser, authenticate)
	e.GET("/borrow/all", h.ListAll, admin...)
	e.GET("/borrow/statistics", h.MyStatistics, authenticate)
	e.GET("/borrow/statistics/:userId", h.UserStatistics, authenticate)
	e.GET("/borrow/count", h.CountMine, authenticate)
	e.GET("/borrow/:id", h.GetLoan, authenticate)
	e.POST("/borrow/check-overdue", h.CheckOverdue, admin...)

	e.PUT("/internal/borrow/book/:bookId/title", h.UpdateBookTitle, internal)
}

// Borrow handles POST /borrow and answers with the new loan id.
func (h *Handler) Borrow(c echo.Context) error {
	caller, err := web.Caller(c)
	if err != nil {
		return err
	}

	var req borrowRequest
	if err := web.BindAndValidate(c, &req); err != nil {
		return err
	}

	loan, err := h.handlers.Borrow.Handle(
		c.Request().Context(),
		borrowbook.BuildCommand(caller.UserID, caller.Username, req.BookID, req.quantity(), req.BorrowDays, req.Remark),
	)
	if err != nil {
		return err
	}

	return web.OK(c, loan.ID)
}

// Return handles POST /return.
func (h *Handler) Return(c echo.Context) error {
	caller, err := web.Caller(c)
	if err != nil {
		return err
	}

	var req returnRequest
	if err := web.BindAndValidate(c, &req); err != nil {
		return err
	}

	loan, err := h.handlers.Return.Handle(
		c.Request().Context(),
		returnbook.BuildCommand(caller.UserID, req.BorrowID, req.Remark),
	)
	if err != nil {
		return err
	}

	return web.OK(c, loans.ToView(loan, h.clock()))
}

// Renew handles POST /renew.
func (h *Handler) Renew(c echo.Context) error {
	caller, err := web.Caller(c)
	if err != nil {
		return err
	}

	var req renewRequest
	if err := web.BindAndValidate(c, &req); err != nil {
		return err
	}

	loan, err := h.handlers.Renew.Handle(
		c.Request().Context(),
		renewloan.BuildCommand(caller.UserID, req.BorrowID, req.RenewDays),
	)
	if err != nil {
		return err
	}

	return web.OK(c, loans.ToView(loan, h.clock()))
}

// GetLoan handles GET /borrow/:id.
func (h *Handler) GetLoan(c echo.Context) error {
	caller, err := web.Caller(c)
	if err != nil {
		return err
	}

	view, err := h.handlers.GetLoan.Handle(c.Request().Context(), loans.GetLoan{Caller: caller, LoanID: c.Param(paramLoanID)})
	if err != nil {
		return err
	}

	return web.OK(c, view)
}

// ListMine handles GET /borrow/my.
func (h *Handler) ListMine(c echo.Context) error {
	caller, err := web.Caller(c)
	if err != nil {
		return err
	}

	userID := caller.UserID

	return h.list(c, &userID)
}

// ListForUser handles GET /borrow/user/:userId.
func (h *Handler) ListForUser(c echo.Context) error {
	userID, err := web.PathInt64(c, paramUserID)
	if err != nil {
		return err
	}

	return h.list(c, &userID)
}

// ListAll handles GET /borrow/all.
func (h *Handler) ListAll(c echo.Context) error {
	return h.list(c, nil)
}

func (h *Handler) list(c echo.Context, userID *int64) error {
	caller, err := web.Caller(c)
	if err != nil {
		return err
	}

	filter, err := parseLoanFilter(c, h.maxPageSize)
	if err != nil {
		return err
	}

	filter.UserID = userID

	page, err := h.handlers.ListLoans.Handle(c.Request().Context(), loans.ListLoans{Caller: caller, Filter: filter})
	if err != nil {
		return err
	}

	return web.OK(c, page)
}

// MyStatistics handles GET /borrow/statistics.
func (h *Handler) MyStatistics(c echo.Context) error {
	caller, err := web.Caller(c)
	if err != nil {
		return err
	}

	return h.statistics(c, caller.UserID)
}

// UserStatistics handles GET /borrow/statistics/:userId.
func (h *Handler) UserStatistics(c echo.Context) error {
	userID, err := web.PathInt64(c, paramUserID)
	if err != nil {
		return err
	}

	return h.statistics(c, userID)
}

func (h *Handler) statistics(c echo.Context, userID int64) error {
	caller, err := web.Caller(c)
	if err != nil {
		return err
	}

	stats, err := h.handlers.Statistics.Handle(c.Request().Context(), loans.GetStatistics{Caller: caller, UserID: userID})
	if err != nil {
		return err
	}

	return web.OK(c, stats)
}

// CountMine handles GET /borrow/count.
func (h *Handler) CountMine(c echo.Context) error {
	caller, err := web.Caller(c)
	if err != nil {
		return err
	}

	count, err := h.handlers.Count.Handle(c.Request().Context(), loans.CountOutstanding{Caller: caller, UserID: caller.UserID})
	if err != nil {
		return err
	}

	return web.OK(c, count)
}

// CheckOverdue handles POST /borrow/check-overdue.
func (h *Handler) CheckOverdue(c echo.Context) error {
	marked, err := h.sweeper.SweepNow(c.Request().Context(), markoverdue.TriggerManual)
	if err != nil {
		return err
	}

	return web.OK(c, marked)
}

// UpdateBookTitle handles PUT /internal/borrow/book/:bookId/title and answers with the
// number of rewritten loans.
func (h *Handler) UpdateBookTitle(c echo.Context) error {
	var req titleRequest
	if err := web.BindAndValidate(c, &req); err != nil {
		return err
	}

	updated, err := h.handlers.RenameTitle.Handle(
		c.Request().Context(),
		renamebooktitle.BuildCommand(c.Param(paramBookID), req.Title),
	)
	if err != nil {
		return err
	}

	return web.OK(c, updated)
}
