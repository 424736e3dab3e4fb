package returnbook

import (
	"context"
	"errors"
	"time"

	"github.com/AntonStoeckl/library-lending/inventory"
	"github.com/AntonStoeckl/library-lending/lending/core"
	"github.com/AntonStoeckl/library-lending/shell"
)

const (
	logMsgCompensationFailed = "return: reserving the released copies again failed, stock stays raised"
	logAttrLoanID            = "borrow_id"
	logAttrBookID            = "book_id"
	logAttrQuantity          = "quantity"
	logAttrCause             = "cause"
	logAttrError             = "error"
)

// LoanStore defines the loan store operations needed by the CommandHandler.
type LoanStore interface {
	Get(ctx context.Context, loanID string) (core.Loan, error)
	MarkReturned(ctx context.Context, loanID string, returnTime time.Time, remark string) error
}

// Inventory defines the stock operations needed by the CommandHandler.
type Inventory interface {
	Reserve(ctx context.Context, bookID string, quantity int) (inventory.Stock, error)
	Release(ctx context.Context, bookID string, quantity int) (inventory.Stock, error)
}

// CommandHandler runs the return workflow.
type CommandHandler struct {
	loans     LoanStore
	inventory Inventory
	clock     shell.Clock
	logger    shell.ContextualLogger
}

// Option configures a CommandHandler.
type Option func(*CommandHandler)

// WithClock overrides the time source for the return time.
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
		clock:     shell.SystemClock,
	}

	for _, opt := range opts {
		opt(&handler)
	}

	return handler
}

// Handle returns the loan and gives its copies back to the inventory.
// It returns the loan as it was stored after the transition.
func (h CommandHandler) Handle(ctx context.Context, command Command) (core.Loan, error) {
	if err := Validate(command); err != nil {
		return core.Loan{}, err
	}

	loan, err := h.loans.Get(ctx, command.LoanID)
	if err != nil {
		return core.Loan{}, err
	}

	if err = Decide(loan, command); err != nil {
		return core.Loan{}, err
	}

	if _, err = h.inventory.Release(ctx, loan.BookID, loan.Quantity); err != nil {
		return core.Loan{}, err
	}

	if err = h.loans.MarkReturned(ctx, loan.ID, h.clock(), command.Remark); err != nil {
		h.reserveAgain(ctx, loan, err)

		if errors.Is(err, core.ErrLoanNotOutstanding) {
			return core.Loan{}, core.ErrLoanAlreadyReturned
		}

		return core.Loan{}, err
	}

	return h.loans.Get(ctx, loan.ID)
}

// reserveAgain undoes the Release after the loan could not be closed.
func (h CommandHandler) reserveAgain(ctx context.Context, loan core.Loan, cause error) {
	_, err := h.inventory.Reserve(context.WithoutCancel(ctx), loan.BookID, loan.Quantity)
	if err == nil || h.logger == nil {
		return
	}

	h.logger.ErrorContext(ctx, logMsgCompensationFailed,
		logAttrLoanID, loan.ID,
		logAttrBookID, loan.BookID,
		logAttrQuantity, loan.Quantity,
		logAttrCause, cause.Error(),
		logAttrError, errors.Join(core.ErrCompensationFailed, err).Error(),
	)
}
