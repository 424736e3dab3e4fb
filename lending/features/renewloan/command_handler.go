package renewloan

import (
	"context"
	"time"

	"github.com/AntonStoeckl/library-lending/lending/core"
	"github.com/AntonStoeckl/library-lending/shell"
)

// LoanStore defines the loan store operations needed by the CommandHandler.
type LoanStore interface {
	Get(ctx context.Context, loanID string) (core.Loan, error)
	Renew(ctx context.Context, loanID string, observedRenewCount int, newDueTime time.Time) error
}

// CommandHandler runs the renew workflow.
type CommandHandler struct {
	loans  LoanStore
	policy core.Policy
	clock  shell.Clock
}

// Option configures a CommandHandler.
type Option func(*CommandHandler)

// WithPolicy overrides the default lending policy.
func WithPolicy(policy core.Policy) Option {
	return func(h *CommandHandler) {
		h.policy = policy
	}
}

// WithClock overrides the time source for the overdue check.
func WithClock(clock shell.Clock) Option {
	return func(h *CommandHandler) {
		h.clock = clock
	}
}

// NewCommandHandler creates a new CommandHandler with optional configuration.
func NewCommandHandler(loans LoanStore, opts ...Option) CommandHandler {
	handler := CommandHandler{
		loans:  loans,
		policy: core.DefaultPolicy(),
		clock:  shell.SystemClock,
	}

	for _, opt := range opts {
		opt(&handler)
	}

	return handler
}

// Handle extends the loan and returns it as stored after the renewal.
func (h CommandHandler) Handle(ctx context.Context, command Command) (core.Loan, error) {
	if err := Validate(command); err != nil {
		return core.Loan{}, err
	}

	loan, err := h.loans.Get(ctx, command.LoanID)
	if err != nil {
		return core.Loan{}, err
	}

	if err = Decide(loan, command, h.clock(), h.policy); err != nil {
		return core.Loan{}, err
	}

	if err = h.loans.Renew(ctx, loan.ID, loan.RenewCount, NewDueTime(loan, command, h.policy)); err != nil {
		return core.Loan{}, err
	}

	return h.loans.Get(ctx, loan.ID)
}
