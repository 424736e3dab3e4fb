// Package httpapi exposes the catalog and the stock ledger over HTTP.
package httpapi

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/AntonStoeckl/library-lending/downstream"
	"github.com/AntonStoeckl/library-lending/inventory"
	"github.com/AntonStoeckl/library-lending/shell"
	"github.com/AntonStoeckl/library-lending/web"
)

const (
	logMsgTitlePropagated      = "book title propagated to borrow records"
	logMsgTitlePropagationLost = "book title propagation failed, borrow records keep the old title"
	logAttrBookID              = "book_id"
	logAttrUpdated             = "updated"
	logAttrAttempts            = "attempts"
	logAttrError               = "error"
	paramBookID                = "id"
	queryQuantity              = "quantity"
)

// Ledger is the inventory the handlers operate on.
type Ledger interface {
	CreateBook(ctx context.Context, input inventory.NewBook) (inventory.Book, error)
	GetBook(ctx context.Context, bookID string) (inventory.Book, error)
	ListBooks(ctx context.Context, query inventory.BookQuery, maxPageSize int) (inventory.BookPage, error)
	UpdateBook(ctx context.Context, bookID string, changes inventory.BookChanges) (inventory.Book, string, error)
	SetStatus(ctx context.Context, bookID string, status inventory.BookStatus) error
	DeleteBook(ctx context.Context, bookID string) error
	CheckAvailable(ctx context.Context, bookID string, quantity int) (bool, error)
	Reserve(ctx context.Context, bookID string, quantity int) (inventory.Stock, error)
	Release(ctx context.Context, bookID string, quantity int) (inventory.Stock, error)
	AddStock(ctx context.Context, bookID string, quantity int) (inventory.Stock, error)
	ReduceStock(ctx context.Context, bookID string, quantity int) (inventory.Stock, error)
}

// TitlePropagator pushes a renamed title to the lending service.
type TitlePropagator interface {
	UpdateBookTitle(ctx context.Context, bookID string, title string) (int64, error)
}

// Handler serves the inventory endpoints.
type Handler struct {
	ledger       Ledger
	propagator   TitlePropagator
	maxPageSize  int
	logger       shell.ContextualLogger
	retryOptions []shell.RetryOption
	inFlight     sync.WaitGroup
}

// Option configures a Handler.
type Option func(*Handler)

// WithTitlePropagator enables title propagation after renames.
func WithTitlePropagator(propagator TitlePropagator) Option {
	return func(h *Handler) {
		h.propagator = propagator
	}
}

// WithMaxPageSize caps the catalog page size.
func WithMaxPageSize(maxPageSize int) Option {
	return func(h *Handler) {
		h.maxPageSize = maxPageSize
	}
}

// WithLogger sets the logger for title propagation outcomes.
func WithLogger(logger shell.ContextualLogger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithPropagationRetry overrides the retry schedule of title propagation.
func WithPropagationRetry(options ...shell.RetryOption) Option {
	return func(h *Handler) {
		h.retryOptions = options
	}
}

// NewHandler creates a Handler.
func NewHandler(ledger Ledger, opts ...Option) *Handler {
	h := &Handler{
		ledger:      ledger,
		maxPageSize: shell.MaxPageSize,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Register mounts the routes. authenticate verifies callers of the admin routes and
// internal guards the stock endpoints the lending service calls.
func (h *Handler) Register(e *echo.Echo, authenticate echo.MiddlewareFunc, internal echo.MiddlewareFunc) {
	books := e.Group("/books")

	books.GET("", h.ListBooks)
	books.GET("/:id", h.GetBook)

	books.GET("/:id/stock/check", h.CheckAvailable, internal)
	books.POST("/:id/stock/borrow", h.Reserve, internal)
	books.POST("/:id/stock/return", h.Release, internal)

	admin := []echo.MiddlewareFunc{authenticate, web.RequireAdmin()}
	books.POST("", h.CreateBook, admin...)
	books.PUT("/:id", h.UpdateBook, admin...)
	books.PUT("/:id/status", h.SetStatus, admin...)
	books.DELETE("/:id", h.DeleteBook, admin...)
	books.POST("/:id/stock/add", h.AddStock, admin...)
	books.POST("/:id/stock/reduce", h.ReduceStock, admin...)
}

// Wait blocks until all title propagations started so far have finished.
func (h *Handler) Wait() {
	h.inFlight.Wait()
}

// ListBooks handles GET /books.
func (h *Handler) ListBooks(c echo.Context) error {
	page, err := web.ParsePage(c, h.maxPageSize)
	if err != nil {
		return err
	}

	query := inventory.BookQuery{
		Keyword:  c.QueryParam("keyword"),
		Author:   c.QueryParam("author"),
		HasStock: c.QueryParam("hasStock") == "true",
		Page:     page,
	}

	if raw := c.QueryParam("status"); raw != "" {
		value, err := strconv.Atoi(raw)
		status := inventory.BookStatus(value)
		if err != nil || !status.Valid() {
			return errors.Join(web.ErrInvalidRequest, errors.New("status must be 0 or 1"))
		}

		query.Status = &status
	}

	result, err := h.ledger.ListBooks(c.Request().Context(), query, h.maxPageSize)
	if err != nil {
		return err
	}

	return web.OK(c, result)
}

// GetBook handles GET /books/:id.
func (h *Handler) GetBook(c echo.Context) error {
	book, err := h.ledger.GetBook(c.Request().Context(), c.Param(paramBookID))
	if err != nil {
		return err
	}

	return web.OK(c, book)
}

// CreateBook handles POST /books.
func (h *Handler) CreateBook(c echo.Context) error {
	var req createBookRequest
	if err := web.BindAndValidate(c, &req); err != nil {
		return err
	}

	book, err := h.ledger.CreateBook(c.Request().Context(), req.toNewBook())
	if err != nil {
		return err
	}

	return web.OK(c, book)
}

// UpdateBook handles PUT /books/:id and propagates a changed title.
func (h *Handler) UpdateBook(c echo.Context) error {
	var req updateBookRequest
	if err := web.BindAndValidate(c, &req); err != nil {
		return err
	}

	bookID := c.Param(paramBookID)

	book, previousTitle, err := h.ledger.UpdateBook(c.Request().Context(), bookID, req.toChanges())
	if err != nil {
		return err
	}

	if book.Title != previousTitle {
		h.propagateTitle(c.Request().Context(), bookID, book.Title)
	}

	return web.OK(c, book)
}

// SetStatus handles PUT /books/:id/status.
func (h *Handler) SetStatus(c echo.Context) error {
	var req setStatusRequest
	if err := web.BindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.ledger.SetStatus(c.Request().Context(), c.Param(paramBookID), inventory.BookStatus(*req.Status)); err != nil {
		return err
	}

	return web.OK(c, nil)
}

// DeleteBook handles DELETE /books/:id.
func (h *Handler) DeleteBook(c echo.Context) error {
	if err := h.ledger.DeleteBook(c.Request().Context(), c.Param(paramBookID)); err != nil {
		return err
	}

	return web.OK(c, nil)
}

// CheckAvailable handles GET /books/:id/stock/check.
func (h *Handler) CheckAvailable(c echo.Context) error {
	quantity, err := web.QueryInt(c, queryQuantity)
	if err != nil {
		return err
	}

	available, err := h.ledger.CheckAvailable(c.Request().Context(), c.Param(paramBookID), quantity)
	if err != nil {
		return err
	}

	return web.OK(c, available)
}

// Reserve handles POST /books/:id/stock/borrow.
func (h *Handler) Reserve(c echo.Context) error {
	return h.mutateStock(c, h.ledger.Reserve)
}

// Release handles POST /books/:id/stock/return.
func (h *Handler) Release(c echo.Context) error {
	return h.mutateStock(c, h.ledger.Release)
}

// AddStock handles POST /books/:id/stock/add.
func (h *Handler) AddStock(c echo.Context) error {
	return h.mutateStock(c, h.ledger.AddStock)
}

// ReduceStock handles POST /books/:id/stock/reduce.
func (h *Handler) ReduceStock(c echo.Context) error {
	return h.mutateStock(c, h.ledger.ReduceStock)
}

func (h *Handler) mutateStock(
	c echo.Context,
	mutate func(ctx context.Context, bookID string, quantity int) (inventory.Stock, error),
) error {
	quantity, err := web.QueryInt(c, queryQuantity)
	if err != nil {
		return err
	}

	stock, err := mutate(c.Request().Context(), c.Param(paramBookID), quantity)
	if err != nil {
		return err
	}

	return web.OK(c, stock)
}

// propagateTitle runs in the background; the rename is committed whatever happens here.
func (h *Handler) propagateTitle(ctx context.Context, bookID string, title string) {
	if h.propagator == nil {
		return
	}

	ctx = context.WithoutCancel(ctx)
	options := append([]shell.RetryOption{shell.WithRetryableErrors(downstream.ErrServiceUnavailable)}, h.retryOptions...)

	h.inFlight.Add(1)
	go func() {
		defer h.inFlight.Done()

		var updated int64
		meta, err := shell.RetryWithExponentialBackoff(ctx, func(ctx context.Context) error {
			var callErr error
			updated, callErr = h.propagator.UpdateBookTitle(ctx, bookID, title)
			return callErr
		}, options...)

		if h.logger == nil {
			return
		}

		if err != nil {
			h.logger.WarnContext(ctx, logMsgTitlePropagationLost,
				logAttrBookID, bookID,
				logAttrAttempts, meta.Attempts,
				logAttrError, err.Error(),
			)
			return
		}

		h.logger.InfoContext(ctx, logMsgTitlePropagated,
			logAttrBookID, bookID,
			logAttrUpdated, updated,
			logAttrAttempts, meta.Attempts,
		)
	}()
}
