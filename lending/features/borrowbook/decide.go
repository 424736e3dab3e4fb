package borrowbook

import (
	"errors"
	"strings"
	"time"

	"github.com/AntonStoeckl/library-lending/inventory"
	"github.com/AntonStoeckl/library-lending/lending/core"
)

// ReaderState is what the loan store knows about the reader before any stock is touched.
type ReaderState struct {
	OutstandingLoans          int64
	HasOutstandingLoanForBook bool
}

// Validate rejects malformed commands.
func Validate(command Command) error {
	switch {
	case command.UserID <= 0:
		return errors.Join(core.ErrInvalidCommand, errors.New("user id is required"))
	case strings.TrimSpace(command.BookID) == "":
		return errors.Join(core.ErrInvalidCommand, errors.New("book id is required"))
	case inventory.ValidateQuantity(command.Quantity) != nil:
		return errors.Join(core.ErrInvalidCommand, inventory.ErrInvalidQuantity)
	case command.BorrowDays < 0:
		return errors.Join(core.ErrInvalidCommand, errors.New("borrow days must be at least 1"))
	}

	return nil
}

// DecideReader enforces the borrow quota and the one-outstanding-loan-per-book rule.
func DecideReader(state ReaderState, command Command, policy core.Policy) error {
	if int64(command.Quantity) > int64(policy.MaxBorrowCount)-state.OutstandingLoans {
		return core.ErrBorrowLimitExceeded
	}

	if state.HasOutstandingLoanForBook {
		return core.ErrBookAlreadyBorrowed
	}

	return nil
}

// DecideBook rejects books that are not listed for borrowing.
func DecideBook(book inventory.Book) error {
	if book.Status != inventory.StatusListed {
		return core.ErrBookNotListed
	}

	return nil
}

// BuildLoan creates the new outstanding loan. The due time is borrowDays calendar days after now.
func BuildLoan(command Command, book inventory.Book, now time.Time, policy core.Policy) core.Loan {
	return core.Loan{
		UserID:     command.UserID,
		Username:   command.Username,
		BookID:     book.ID,
		BookISBN:   book.ISBN,
		BookTitle:  book.Title,
		Quantity:   command.Quantity,
		BorrowTime: now,
		DueTime:    now.AddDate(0, 0, policy.BorrowDaysOrDefault(command.BorrowDays)),
		RenewCount: 0,
		Status:     core.StatusBorrowing,
		Remark:     command.Remark,
	}
}
