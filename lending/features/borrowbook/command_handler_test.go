package borrowbook_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-lending/inventory"
	"github.com/AntonStoeckl/library-lending/lending/core"
	"github.com/AntonStoeckl/library-lending/lending/features/borrowbook"
	"github.com/AntonStoeckl/library-lending/lending/loanstore"
	"github.com/AntonStoeckl/library-lending/shell"
	"github.com/AntonStoeckl/library-lending/testutil/fixtures"
	"github.com/AntonStoeckl/library-lending/testutil/lendingtest"
	"github.com/AntonStoeckl/library-lending/testutil/testdoubles"
)

var jan1 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// failingCreateStore writes nothing and fails every Create.
type failingCreateStore struct {
	*loanstore.Store
	err error
}

func (s failingCreateStore) Create(context.Context, core.Loan) (core.Loan, error) {
	return core.Loan{}, s.err
}

func Test_CommandHandler_Handle_When_BookIsAvailable_It_Should_CreateTheLoanAndReserveStock(t *testing.T) {
	// setup
	ctx := context.Background()
	env := lendingtest.NewEnvironment(t, shell.FixedClock(jan1))
	handler := borrowbook.NewCommandHandler(env.Loans, env.Ledger, borrowbook.WithClock(shell.FixedClock(jan1)))

	// arrange
	book := fixtures.GivenBookWasCreated(t, ctx, env.Ledger, 3)

	// act
	loan, err := handler.Handle(ctx, borrowbook.BuildCommand(7, "ada", book.ID, 1, 0, "first"))

	// assert
	require.NoError(t, err)
	assert.NotEmpty(t, loan.ID)
	assert.Equal(t, core.StatusBorrowing, loan.Status)
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), loan.DueTime)
	assert.Equal(t, book.Title, loan.BookTitle)

	stored, err := env.Loans.Get(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, loan.ID, stored.ID)

	reloaded, err := env.Ledger.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.AvailableStock)
	assert.Equal(t, 3, reloaded.TotalStock)
}

func Test_CommandHandler_Handle_When_NoCopyIsAvailable_It_Should_RejectWithInsufficientStock(t *testing.T) {
	// setup
	ctx := context.Background()
	env := lendingtest.NewEnvironment(t, shell.FixedClock(jan1))
	handler := borrowbook.NewCommandHandler(env.Loans, env.Ledger, borrowbook.WithClock(shell.FixedClock(jan1)))

	// arrange
	book := fixtures.GivenBookWasCreated(t, ctx, env.Ledger, 3)
	_, err := env.Ledger.Reserve(ctx, book.ID, 3)
	require.NoError(t, err, "error in arranging test data")

	// act
	_, err = handler.Handle(ctx, borrowbook.BuildCommand(7, "ada", book.ID, 1, 0, ""))

	// assert
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)

	count, err := env.Loans.CountOutstanding(ctx, 7)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func Test_CommandHandler_Handle_When_TheSameBookIsBorrowedTwice_It_Should_RejectTheSecondBorrow(t *testing.T) {
	// setup
	ctx := context.Background()
	env := lendingtest.NewEnvironment(t, shell.FixedClock(jan1))
	stock := testdoubles.NewInventoryStub(env.Ledger)
	handler := borrowbook.NewCommandHandler(env.Loans, stock, borrowbook.WithClock(shell.FixedClock(jan1)))

	// arrange
	book := fixtures.GivenBookWasCreated(t, ctx, env.Ledger, 3)
	_, err := handler.Handle(ctx, borrowbook.BuildCommand(7, "ada", book.ID, 1, 0, ""))
	require.NoError(t, err, "error in arranging test data")

	// act
	_, err = handler.Handle(ctx, borrowbook.BuildCommand(7, "ada", book.ID, 1, 0, ""))

	// assert
	assert.ErrorIs(t, err, core.ErrBookAlreadyBorrowed)
	assert.Len(t, stock.ReserveCalls(), 1, "the rejected borrow must not touch the stock")

	reloaded, err := env.Ledger.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.AvailableStock)
}

func Test_CommandHandler_Handle_When_TheBookIsUnlisted_It_Should_Reject(t *testing.T) {
	// setup
	ctx := context.Background()
	env := lendingtest.NewEnvironment(t, shell.FixedClock(jan1))
	handler := borrowbook.NewCommandHandler(env.Loans, env.Ledger)

	// arrange
	book := fixtures.GivenUnlistedBookWasCreated(t, ctx, env.Ledger, 3)

	// act
	_, err := handler.Handle(ctx, borrowbook.BuildCommand(7, "ada", book.ID, 1, 0, ""))

	// assert
	assert.ErrorIs(t, err, core.ErrBookNotListed)
}

func Test_CommandHandler_Handle_When_TheQuotaIsExhausted_It_Should_RejectBeforeTouchingStock(t *testing.T) {
	// setup
	ctx := context.Background()
	env := lendingtest.NewEnvironment(t, shell.FixedClock(jan1))
	stock := testdoubles.NewInventoryStub(env.Ledger)
	handler := borrowbook.NewCommandHandler(env.Loans, stock, borrowbook.WithPolicy(core.Policy{
		MaxBorrowCount:    2,
		MaxRenewCount:     2,
		DefaultBorrowDays: 30,
		DefaultRenewDays:  15,
	}))

	// arrange
	fixtures.GivenOutstandingLoanWasCreated(t, ctx, env.Loans, 7, jan1)
	book := fixtures.GivenBookWasCreated(t, ctx, env.Ledger, 3)

	// act
	_, err := handler.Handle(ctx, borrowbook.BuildCommand(7, "ada", book.ID, 2, 0, ""))

	// assert
	assert.ErrorIs(t, err, core.ErrBorrowLimitExceeded)
	assert.Empty(t, stock.ReserveCalls())
}

func Test_CommandHandler_Handle_When_WritingTheLoanFails_It_Should_ReleaseTheReservation(t *testing.T) {
	// setup
	ctx := context.Background()
	env := lendingtest.NewEnvironment(t, shell.FixedClock(jan1))
	stock := testdoubles.NewInventoryStub(env.Ledger)
	writeErr := errors.New("disk full")
	handler := borrowbook.NewCommandHandler(failingCreateStore{Store: env.Loans, err: writeErr}, stock)

	// arrange
	book := fixtures.GivenBookWasCreated(t, ctx, env.Ledger, 3)

	// act
	_, err := handler.Handle(ctx, borrowbook.BuildCommand(7, "ada", book.ID, 2, 0, ""))

	// assert
	assert.ErrorIs(t, err, writeErr)
	assert.Equal(t, []testdoubles.StockCall{{BookID: book.ID, Quantity: 2}}, stock.ReleaseCalls())

	reloaded, err := env.Ledger.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, reloaded.AvailableStock, "stock must be restored")
}

func Test_CommandHandler_Handle_When_CreateHitsADuplicate_It_Should_ReleaseAndReportAlreadyBorrowed(t *testing.T) {
	// setup
	ctx := context.Background()
	env := lendingtest.NewEnvironment(t, shell.FixedClock(jan1))
	stock := testdoubles.NewInventoryStub(env.Ledger)
	handler := borrowbook.NewCommandHandler(failingCreateStore{Store: env.Loans, err: core.ErrDuplicateActiveLoan}, stock)

	// arrange
	book := fixtures.GivenBookWasCreated(t, ctx, env.Ledger, 1)

	// act
	_, err := handler.Handle(ctx, borrowbook.BuildCommand(7, "ada", book.ID, 1, 0, ""))

	// assert
	assert.ErrorIs(t, err, core.ErrBookAlreadyBorrowed)
	assert.Len(t, stock.ReleaseCalls(), 1)
}

func Test_CommandHandler_Handle_When_TheCompensationFails_It_Should_LogAtErrorLevel(t *testing.T) {
	// setup
	ctx := context.Background()
	env := lendingtest.NewEnvironment(t, shell.FixedClock(jan1))
	stock := testdoubles.NewInventoryStub(env.Ledger)
	stock.ReleaseErr = errors.New("inventory unreachable")
	logger := testdoubles.NewContextualLoggerSpy(true)
	writeErr := errors.New("disk full")
	handler := borrowbook.NewCommandHandler(
		failingCreateStore{Store: env.Loans, err: writeErr},
		stock,
		borrowbook.WithLogger(logger),
	)

	// arrange
	book := fixtures.GivenBookWasCreated(t, ctx, env.Ledger, 3)

	// act
	_, err := handler.Handle(ctx, borrowbook.BuildCommand(7, "ada", book.ID, 1, 0, ""))

	// assert
	assert.ErrorIs(t, err, writeErr, "the original failure is reported, not the compensation failure")
	assert.Equal(t, 1, logger.CountLogs("error"))
}

func Test_CommandHandler_Handle_When_TheInventoryIsUnavailable_It_Should_PassTheErrorThrough(t *testing.T) {
	// setup
	ctx := context.Background()
	env := lendingtest.NewEnvironment(t, shell.FixedClock(jan1))
	stock := testdoubles.NewInventoryStub(env.Ledger)
	unavailable := errors.New("inventory service unavailable")
	stock.GetBookErr = unavailable
	handler := borrowbook.NewCommandHandler(env.Loans, stock)

	// act
	_, err := handler.Handle(ctx, borrowbook.BuildCommand(7, "ada", "book-1", 1, 0, ""))

	// assert
	assert.ErrorIs(t, err, unavailable)
	assert.Empty(t, stock.ReserveCalls())
}

func Test_CommandHandler_Handle_When_TheCommandIsInvalid_It_Should_RejectIt(t *testing.T) {
	// setup
	ctx := context.Background()
	env := lendingtest.NewEnvironment(t, shell.FixedClock(jan1))
	handler := borrowbook.NewCommandHandler(env.Loans, env.Ledger)

	// act
	_, err := handler.Handle(ctx, borrowbook.BuildCommand(7, "ada", "book-1", 0, 0, ""))

	// assert
	assert.ErrorIs(t, err, core.ErrInvalidCommand)
}
