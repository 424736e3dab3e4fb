package markoverdue

import (
	"context"
	"time"

	"github.com/AntonStoeckl/library-lending/shell"
)

const (
	logMsgSwept     = "overdue sweep finished"
	logAttrTrigger  = "trigger"
	logAttrMarked   = "marked_overdue"
	logAttrSweepNow = "now"
)

// LoanStore defines the loan store operation needed by the CommandHandler.
type LoanStore interface {
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
}

// CommandHandler runs one overdue sweep.
type CommandHandler struct {
	loans  LoanStore
	clock  shell.Clock
	logger shell.ContextualLogger
}

// Option configures a CommandHandler.
type Option func(*CommandHandler)

// WithClock overrides the time source of the sweep.
func WithClock(clock shell.Clock) Option {
	return func(h *CommandHandler) {
		h.clock = clock
	}
}

// WithLogger sets the logger that reports the number of marked loans.
func WithLogger(logger shell.ContextualLogger) Option {
	return func(h *CommandHandler) {
		h.logger = logger
	}
}

// NewCommandHandler creates a new CommandHandler with optional configuration.
func NewCommandHandler(loans LoanStore, opts ...Option) CommandHandler {
	handler := CommandHandler{
		loans: loans,
		clock: shell.SystemClock,
	}

	for _, opt := range opts {
		opt(&handler)
	}

	return handler
}

// Handle marks the overdue loans and returns how many changed.
func (h CommandHandler) Handle(ctx context.Context, command Command) (int64, error) {
	now := h.clock()

	marked, err := h.loans.MarkOverdue(ctx, now)
	if err != nil {
		return 0, err
	}

	if h.logger != nil {
		h.logger.InfoContext(ctx, logMsgSwept,
			logAttrTrigger, command.Trigger,
			logAttrMarked, marked,
			logAttrSweepNow, now,
		)
	}

	return marked, nil
}
