package borrowbook

import (
	"context"
	"errors"

	"github.com/AntonStoeckl/library-lending/inventory"
	"github.com/AntonStoeckl/library-lending/lending/core"
	"github.com/AntonStoeckl/library-lending/shell"
)

const (
	logMsgCompensationFailed = "borrow: releasing the reservation failed, stock stays reduced"
	logAttrBookID            = "book_id"
	logAttrQuantity          = "quantity"
	logAttrUserID            = "user_id"
	logAttrCause             = "cause"
	logAttrError             = "error"
)

// LoanStore defines the loan store operations needed by the CommandHandler.
type LoanStore interface {
	CountOutstanding(ctx context.Context, userID int64) (int64, error)
	HasOutstandingLoan(ctx context.Context, userID int64, bookID string) (bool, error)
	Create(ctx context.Context, loan core.Loan) (core.Loan, error)
}

// Inventory defines the stock operations needed by the CommandHandler.
type Inventory interface {
	GetBook(ctx context.Context, bookID string) (inventory.Book, error)
	CheckAvailable(ctx context.Context, bookID string, quantity int) (bool, error)
	Reserve(ctx context.Context, bookID string, quantity int) (inventory.Stock, error)
	Release(ctx context.Context, bookID string, quantity int) (inventory.Stock, error)
}

// CommandHandler runs the borrow workflow: reader checks, book checks, reserve, write the loan.
// External wrappers handle metrics, tracing and lifecycle logging.
type CommandHandler struct {
	loans     LoanStore
	inventory Inventory
	policy    core.Policy
	clock     shell.Clock
	logger    shell.ContextualLogger
}

// Option configures a CommandHandler.
type Option func(*CommandHandler)

// WithPolicy overrides the default lending policy.
func WithPolicy(policy core.Policy) Option {
	return func(h *CommandHandler) {
		h.policy = policy
	}
}

// WithClock overrides the time source for borrow and due times.
func WithClock(clock shell.Clock) Option {
	return func(h *CommandHandler) {
		h.clock = clock
	}
}

// WithLogger sets the logger that reports failed compensations.
func WithLogger(logger shell.ContextualLogger) Option {
	return func(h *CommandHandler) {
		h.logger = logger
	}
}

// NewCommandHandler creates a new CommandHandler with optional configuration.
func NewCommandHandler(loans LoanStore, stock Inventory, opts ...Option) CommandHandler {
	handler := CommandHandler{
		loans:     loans,
		inventory: stock,
		policy:    core.DefaultPolicy(),
		clock:     shell.SystemClock,
	}

	for _, opt := range opts {
		opt(&handler)
	}

	return handler
}

// Handle borrows the book and returns the created loan.
func (h CommandHandler) Handle(ctx context.Context, command Command) (core.Loan, error) {
	if err := Validate(command); err != nil {
		return core.Loan{}, err
	}

	outstanding, err := h.loans.CountOutstanding(ctx, command.UserID)
	if err != nil {
		return core.Loan{}, err
	}

	hasLoanForBook, err := h.loans.HasOutstandingLoan(ctx, command.UserID, command.BookID)
	if err != nil {
		return core.Loan{}, err
	}

	state := ReaderState{OutstandingLoans: outstanding, HasOutstandingLoanForBook: hasLoanForBook}
	if err = DecideReader(state, command, h.policy); err != nil {
		return core.Loan{}, err
	}

	book, err := h.inventory.GetBook(ctx, command.BookID)
	if err != nil {
		return core.Loan{}, err
	}

	if err = DecideBook(book); err != nil {
		return core.Loan{}, err
	}

	available, err := h.inventory.CheckAvailable(ctx, command.BookID, command.Quantity)
	if err != nil {
		return core.Loan{}, err
	}

	if !available {
		return core.Loan{}, inventory.ErrInsufficientStock
	}

	if _, err = h.inventory.Reserve(ctx, command.BookID, command.Quantity); err != nil {
		return core.Loan{}, err
	}

	created, err := h.loans.Create(ctx, BuildLoan(command, book, h.clock(), h.policy))
	if err != nil {
		h.releaseReservation(ctx, command, err)

		if errors.Is(err, core.ErrDuplicateActiveLoan) {
			return core.Loan{}, core.ErrBookAlreadyBorrowed
		}

		return core.Loan{}, err
	}

	return created, nil
}

// releaseReservation undoes the Reserve after the loan could not be written.
// It must run even when the request context is already canceled.
func (h CommandHandler) releaseReservation(ctx context.Context, command Command, cause error) {
	_, err := h.inventory.Release(context.WithoutCancel(ctx), command.BookID, command.Quantity)
	if err == nil || h.logger == nil {
		return
	}

	h.logger.ErrorContext(ctx, logMsgCompensationFailed,
		logAttrUserID, command.UserID,
		logAttrBookID, command.BookID,
		logAttrQuantity, command.Quantity,
		logAttrCause, cause.Error(),
		logAttrError, errors.Join(core.ErrCompensationFailed, err).Error(),
	)
}
