package borrowbook_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/library-lending/inventory"
	"github.com/AntonStoeckl/library-lending/lending/core"
	"github.com/AntonStoeckl/library-lending/lending/features/borrowbook"
)

func Test_Validate(t *testing.T) {
	valid := borrowbook.BuildCommand(7, "ada", "book-1", 1, 0, "")
	assert.NoError(t, borrowbook.Validate(valid))

	invalid := map[string]borrowbook.Command{
		"no user":           borrowbook.BuildCommand(0, "ada", "book-1", 1, 0, ""),
		"no book":           borrowbook.BuildCommand(7, "ada", " ", 1, 0, ""),
		"zero quantity":     borrowbook.BuildCommand(7, "ada", "book-1", 0, 0, ""),
		"negative days":     borrowbook.BuildCommand(7, "ada", "book-1", 1, -3, ""),
		"negative quantity": borrowbook.BuildCommand(7, "ada", "book-1", -1, 10, ""),
		"huge quantity":     borrowbook.BuildCommand(7, "ada", "book-1", math.MaxInt, 10, ""),
	}

	for name, command := range invalid {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, borrowbook.Validate(command), core.ErrInvalidCommand)
		})
	}
}

func Test_DecideReader(t *testing.T) {
	policy := core.DefaultPolicy()

	testCases := []struct {
		name     string
		state    borrowbook.ReaderState
		quantity int
		expected error
	}{
		{name: "first loan", state: borrowbook.ReaderState{}, quantity: 1, expected: nil},
		{name: "exactly at the limit", state: borrowbook.ReaderState{OutstandingLoans: 8}, quantity: 2, expected: nil},
		{name: "nine out, two more", state: borrowbook.ReaderState{OutstandingLoans: 9}, quantity: 2, expected: core.ErrBorrowLimitExceeded},
		{name: "ten out", state: borrowbook.ReaderState{OutstandingLoans: 10}, quantity: 1, expected: core.ErrBorrowLimitExceeded},
		{name: "quantity near max int", state: borrowbook.ReaderState{OutstandingLoans: 1}, quantity: math.MaxInt, expected: core.ErrBorrowLimitExceeded},
		{
			name:     "same book still out",
			state:    borrowbook.ReaderState{OutstandingLoans: 1, HasOutstandingLoanForBook: true},
			quantity: 1,
			expected: core.ErrBookAlreadyBorrowed,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := borrowbook.DecideReader(tc.state, borrowbook.BuildCommand(7, "ada", "book-1", tc.quantity, 0, ""), policy)

			if tc.expected == nil {
				assert.NoError(t, err)
				return
			}

			assert.ErrorIs(t, err, tc.expected)
		})
	}
}

func Test_DecideBook(t *testing.T) {
	assert.NoError(t, borrowbook.DecideBook(inventory.Book{Status: inventory.StatusListed}))
	assert.ErrorIs(t, borrowbook.DecideBook(inventory.Book{Status: inventory.StatusUnlisted}), core.ErrBookNotListed)
}

func Test_BuildLoan_It_Should_SetTheDueTimeInCalendarDays(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	book := inventory.Book{ID: "book-1", ISBN: "978-1-098-10013-1", Title: "Learning Domain-Driven Design"}

	loan := borrowbook.BuildLoan(borrowbook.BuildCommand(7, "ada", "book-1", 2, 30, "gift"), book, now, core.DefaultPolicy())

	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), loan.DueTime)
	assert.Equal(t, now, loan.BorrowTime)
	assert.Equal(t, core.StatusBorrowing, loan.Status)
	assert.Equal(t, book.Title, loan.BookTitle)
	assert.Equal(t, book.ISBN, loan.BookISBN)
	assert.Equal(t, 2, loan.Quantity)
	assert.Equal(t, "gift", loan.Remark)

	defaulted := borrowbook.BuildLoan(borrowbook.BuildCommand(7, "ada", "book-1", 1, 0, ""), book, now, core.DefaultPolicy())
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), defaulted.DueTime)
}
