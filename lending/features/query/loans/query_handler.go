package loans

import (
	"context"

	"github.com/AntonStoeckl/library-lending/lending/core"
	"github.com/AntonStoeckl/library-lending/shell"
)

// LoanReader defines the loan store operations the query handlers need.
type LoanReader interface {
	Get(ctx context.Context, loanID string) (core.Loan, error)
	List(ctx context.Context, query core.LoanQuery, maxPageSize int) (core.LoanPage, error)
	Statistics(ctx context.Context, userID int64) (core.Statistics, error)
	CountOutstanding(ctx context.Context, userID int64) (int64, error)
}

// Option configures the query handlers.
type Option func(*settings)

type settings struct {
	clock       shell.Clock
	maxPageSize int
}

// WithClock overrides the time source for the overdue fields.
func WithClock(clock shell.Clock) Option {
	return func(s *settings) {
		s.clock = clock
	}
}

// WithMaxPageSize caps the page size of listings.
func WithMaxPageSize(maxPageSize int) Option {
	return func(s *settings) {
		s.maxPageSize = maxPageSize
	}
}

func buildSettings(opts []Option) settings {
	s := settings{clock: shell.SystemClock, maxPageSize: shell.MaxPageSize}
	for _, opt := range opts {
		opt(&s)
	}

	return s
}

// GetLoanHandler answers GetLoan.
type GetLoanHandler struct {
	loans LoanReader
	settings
}

// NewGetLoanHandler creates a GetLoanHandler.
func NewGetLoanHandler(loans LoanReader, opts ...Option) GetLoanHandler {
	return GetLoanHandler{loans: loans, settings: buildSettings(opts)}
}

// Handle returns the loan if the caller owns it or is an administrator.
func (h GetLoanHandler) Handle(ctx context.Context, query GetLoan) (LoanView, error) {
	loan, err := h.loans.Get(ctx, query.LoanID)
	if err != nil {
		return LoanView{}, err
	}

	if !query.Caller.CanAccessUser(loan.UserID) {
		return LoanView{}, core.ErrNotLoanOwner
	}

	return ToView(loan, h.clock()), nil
}

// ListLoansHandler answers ListLoans.
type ListLoansHandler struct {
	loans LoanReader
	settings
}

// NewListLoansHandler creates a ListLoansHandler.
func NewListLoansHandler(loans LoanReader, opts ...Option) ListLoansHandler {
	return ListLoansHandler{loans: loans, settings: buildSettings(opts)}
}

// Handle returns one page of loans, newest first.
func (h ListLoansHandler) Handle(ctx context.Context, query ListLoans) (LoanViewPage, error) {
	if query.Filter.UserID == nil && !query.Caller.IsAdmin() {
		return LoanViewPage{}, core.ErrAccessDenied
	}

	if query.Filter.UserID != nil && !query.Caller.CanAccessUser(*query.Filter.UserID) {
		return LoanViewPage{}, core.ErrAccessDenied
	}

	page, err := h.loans.List(ctx, query.Filter, h.maxPageSize)
	if err != nil {
		return LoanViewPage{}, err
	}

	now := h.clock()

	return shell.MapPageResult(page, func(loan core.Loan) LoanView {
		return ToView(loan, now)
	}), nil
}

// StatisticsHandler answers GetStatistics.
type StatisticsHandler struct {
	loans LoanReader
}

// NewStatisticsHandler creates a StatisticsHandler.
func NewStatisticsHandler(loans LoanReader) StatisticsHandler {
	return StatisticsHandler{loans: loans}
}

// Handle returns the counts of the requested user.
func (h StatisticsHandler) Handle(ctx context.Context, query GetStatistics) (core.Statistics, error) {
	if !query.Caller.CanAccessUser(query.UserID) {
		return core.Statistics{}, core.ErrAccessDenied
	}

	return h.loans.Statistics(ctx, query.UserID)
}

// CountOutstandingHandler answers CountOutstanding.
type CountOutstandingHandler struct {
	loans LoanReader
}

// NewCountOutstandingHandler creates a CountOutstandingHandler.
func NewCountOutstandingHandler(loans LoanReader) CountOutstandingHandler {
	return CountOutstandingHandler{loans: loans}
}

// Handle returns the number of outstanding loans.
func (h CountOutstandingHandler) Handle(ctx context.Context, query CountOutstanding) (int64, error) {
	if !query.Caller.CanAccessUser(query.UserID) {
		return 0, core.ErrAccessDenied
	}

	return h.loans.CountOutstanding(ctx, query.UserID)
}
