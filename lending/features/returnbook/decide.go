package returnbook

import (
	"errors"
	"strings"

	"github.com/AntonStoeckl/library-lending/lending/core"
)

// Validate rejects malformed commands.
func Validate(command Command) error {
	if strings.TrimSpace(command.LoanID) == "" {
		return errors.Join(core.ErrInvalidCommand, errors.New("borrow id is required"))
	}

	return nil
}

// Decide checks that the reader owns the loan and that it is still outstanding.
func Decide(loan core.Loan, command Command) error {
	if !loan.IsOwnedBy(command.UserID) {
		return core.ErrNotLoanOwner
	}

	if loan.Status == core.StatusReturned {
		return core.ErrLoanAlreadyReturned
	}

	return nil
}
