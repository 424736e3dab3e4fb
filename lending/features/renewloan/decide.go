package renewloan

import (
	"errors"
	"strings"
	"time"

	"github.com/AntonStoeckl/library-lending/lending/core"
)

// Validate rejects malformed commands.
func Validate(command Command) error {
	switch {
	case strings.TrimSpace(command.LoanID) == "":
		return errors.Join(core.ErrInvalidCommand, errors.New("borrow id is required"))
	case command.RenewDays < 0:
		return errors.Join(core.ErrInvalidCommand, errors.New("renew days must be at least 1"))
	}

	return nil
}

// Decide checks ownership, the renew limit and the due time, in that order.
// A loan exactly at its due time may still be renewed.
func Decide(loan core.Loan, command Command, now time.Time, policy core.Policy) error {
	if !loan.IsOwnedBy(command.UserID) {
		return core.ErrNotLoanOwner
	}

	if loan.Status == core.StatusReturned {
		return core.ErrLoanAlreadyReturned
	}

	if loan.RenewCount >= policy.MaxRenewCount {
		return core.ErrRenewLimitReached
	}

	if loan.Status == core.StatusOverdue || now.After(loan.DueTime) {
		return core.ErrRenewNotAllowedOverdue
	}

	return nil
}

// NewDueTime extends the current due time by the requested calendar days.
func NewDueTime(loan core.Loan, command Command, policy core.Policy) time.Time {
	return loan.DueTime.AddDate(0, 0, policy.RenewDaysOrDefault(command.RenewDays))
}
