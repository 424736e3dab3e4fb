package fixtures

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-lending/lending/core"
)

// LoanCreator is the part of the loan store needed to arrange borrow records.
type LoanCreator interface {
	Create(ctx context.Context, loan core.Loan) (core.Loan, error)
}

// FixtureLoan returns an outstanding 30 day loan of one copy.
func FixtureLoan(userID int64, bookID string, borrowTime time.Time) core.Loan {
	return core.Loan{
		UserID:     userID,
		Username:   "reader-" + uuid.NewString()[:8],
		BookID:     bookID,
		BookISBN:   "978-0000000000",
		BookTitle:  "Learning Domain-Driven Design",
		Quantity:   1,
		BorrowTime: borrowTime,
		DueTime:    borrowTime.AddDate(0, 0, 30),
		Status:     core.StatusBorrowing,
	}
}

// GivenLoanWasCreated stores loan as is.
func GivenLoanWasCreated(t testing.TB, ctx context.Context, store LoanCreator, loan core.Loan) core.Loan {
	t.Helper()

	created, err := store.Create(ctx, loan)
	require.NoError(t, err, "error in arranging test data")

	return created
}

// GivenOutstandingLoanWasCreated stores a fresh 30 day loan for a random book.
func GivenOutstandingLoanWasCreated(t testing.TB, ctx context.Context, store LoanCreator, userID int64, borrowTime time.Time) core.Loan {
	t.Helper()

	return GivenLoanWasCreated(t, ctx, store, FixtureLoan(userID, uuid.NewString(), borrowTime))
}
