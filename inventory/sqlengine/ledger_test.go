package sqlengine_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-lending/inventory"
	. "github.com/AntonStoeckl/library-lending/inventory/sqlengine"
	. "github.com/AntonStoeckl/library-lending/testutil/fixtures"
	"github.com/AntonStoeckl/library-lending/testutil/sqlitetest"
)

func newSQLiteLedger(t *testing.T, options ...Option) *Ledger {
	t.Helper()

	ledger, err := NewLedgerFromSQLX(sqlitetest.OpenDB(t), options...)
	require.NoError(t, err, "creating the ledger failed")

	return ledger
}

func Test_Reserve_When_EnoughStockIsAvailable_It_Should_DecrementAvailableOnly(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ledger := newSQLiteLedger(t)

	// arrange
	book := GivenBookWasCreated(t, ctx, ledger, 3)

	// act
	stock, err := ledger.Reserve(ctx, book.ID, 2)

	// assert
	require.NoError(t, err)
	assert.Equal(t, inventory.Stock{Total: 3, Available: 1}, stock)
}

func Test_Reserve_When_NotEnoughStockIsAvailable_It_Should_FailWithInsufficientStock(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ledger := newSQLiteLedger(t)

	// arrange
	book := GivenBookWasCreated(t, ctx, ledger, 3)
	_, err := ledger.Reserve(ctx, book.ID, 3)
	require.NoError(t, err, "error in arranging test data")

	// act
	_, err = ledger.Reserve(ctx, book.ID, 1)

	// assert
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)
	reloaded, getErr := ledger.GetBook(ctx, book.ID)
	require.NoError(t, getErr)
	assert.Equal(t, 3, reloaded.TotalStock)
	assert.Equal(t, 0, reloaded.AvailableStock)
}

func Test_Reserve_When_BookDoesNotExist_It_Should_FailWithBookNotFound(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ledger := newSQLiteLedger(t)

	// act
	_, err := ledger.Reserve(ctx, "no-such-book", 1)

	// assert
	assert.ErrorIs(t, err, inventory.ErrBookNotFound)
}

func Test_StockMutations_When_QuantityIsBelowOne_It_Should_FailWithInvalidQuantity(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ledger := newSQLiteLedger(t)

	// arrange
	book := GivenBookWasCreated(t, ctx, ledger, 3)

	mutations := map[string]func(context.Context, string, int) (inventory.Stock, error){
		"reserve": ledger.Reserve,
		"release": ledger.Release,
		"add":     ledger.AddStock,
		"reduce":  ledger.ReduceStock,
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			// act
			_, err := mutate(ctx, book.ID, 0)

			// assert
			assert.ErrorIs(t, err, inventory.ErrInvalidQuantity)
		})
	}

	_, err := ledger.CheckAvailable(ctx, book.ID, -1)
	assert.ErrorIs(t, err, inventory.ErrInvalidQuantity)
}

func Test_Release_When_ItWouldExceedTotalStock_It_Should_FailAndLeaveStockUnchanged(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ledger := newSQLiteLedger(t)

	// arrange
	book := GivenBookWasCreated(t, ctx, ledger, 5)
	_, err := ledger.Reserve(ctx, book.ID, 2)
	require.NoError(t, err, "error in arranging test data")

	// act
	_, err = ledger.Release(ctx, book.ID, 3)

	// assert
	assert.ErrorIs(t, err, inventory.ErrOverRelease)
	reloaded, getErr := ledger.GetBook(ctx, book.ID)
	require.NoError(t, getErr)
	assert.Equal(t, 5, reloaded.TotalStock)
	assert.Equal(t, 3, reloaded.AvailableStock)
}

func Test_Release_When_CopiesAreOut_It_Should_IncrementAvailable(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ledger := newSQLiteLedger(t)

	// arrange
	book := GivenBookWasCreated(t, ctx, ledger, 5)
	_, err := ledger.Reserve(ctx, book.ID, 2)
	require.NoError(t, err, "error in arranging test data")

	// act
	stock, err := ledger.Release(ctx, book.ID, 2)

	// assert
	require.NoError(t, err)
	assert.Equal(t, inventory.Stock{Total: 5, Available: 5}, stock)
}

func Test_AddStock_It_Should_RaiseTotalAndAvailableTogether(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ledger := newSQLiteLedger(t)

	// arrange
	book := GivenBookWasCreated(t, ctx, ledger, 2)
	_, err := ledger.Reserve(ctx, book.ID, 1)
	require.NoError(t, err, "error in arranging test data")

	// act
	stock, err := ledger.AddStock(ctx, book.ID, 4)

	// assert
	require.NoError(t, err)
	assert.Equal(t, inventory.Stock{Total: 6, Available: 5}, stock)
}

func Test_AddStock_When_TotalWouldPassTheStockLimit_It_Should_FailAndLeaveStockUnchanged(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ledger := newSQLiteLedger(t)

	// arrange
	book := GivenBookWasCreated(t, ctx, ledger, inventory.MaxStock-1)
	stock, err := ledger.AddStock(ctx, book.ID, 1)
	require.NoError(t, err, "error in arranging test data")
	require.Equal(t, inventory.Stock{Total: inventory.MaxStock, Available: inventory.MaxStock}, stock)

	// act
	_, err = ledger.AddStock(ctx, book.ID, 1)

	// assert
	assert.ErrorIs(t, err, inventory.ErrStockLimitExceeded)

	reloaded, getErr := ledger.GetBook(ctx, book.ID)
	require.NoError(t, getErr)
	assert.Equal(t, inventory.MaxStock, reloaded.TotalStock)
	assert.Equal(t, inventory.MaxStock, reloaded.AvailableStock)
}

func Test_AddStock_When_QuantityIsBeyondTheStockLimit_It_Should_FailWithInvalidQuantity(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ledger := newSQLiteLedger(t)

	// arrange
	book := GivenBookWasCreated(t, ctx, ledger, 3)

	// act
	_, err := ledger.AddStock(ctx, book.ID, math.MaxInt)

	// assert
	assert.ErrorIs(t, err, inventory.ErrInvalidQuantity)

	reloaded, getErr := ledger.GetBook(ctx, book.ID)
	require.NoError(t, getErr)
	assert.Equal(t, 3, reloaded.TotalStock)
}

func Test_ReduceStock_When_CopiesAreOnTheShelf_It_Should_LowerTotalAndAvailableTogether(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ledger := newSQLiteLedger(t)

	// arrange
	book := GivenBookWasCreated(t, ctx, ledger, 5)

	// act
	stock, err := ledger.ReduceStock(ctx, book.ID, 2)

	// assert
	require.NoError(t, err)
	assert.Equal(t, inventory.Stock{Total: 3, Available: 3}, stock)
}

func Test_ReduceStock_When_CopiesAreLent_It_Should_FailWithInsufficientStock(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ledger := newSQLiteLedger(t)

	// arrange
	book := GivenBookWasCreated(t, ctx, ledger, 3)
	_, err := ledger.Reserve(ctx, book.ID, 3)
	require.NoError(t, err, "error in arranging test data")

	// act
	_, err = ledger.ReduceStock(ctx, book.ID, 1)

	// assert
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)
}

func Test_CheckAvailable(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ledger := newSQLiteLedger(t)

	// arrange
	book := GivenBookWasCreated(t, ctx, ledger, 2)

	testCases := []struct {
		name     string
		bookID   string
		quantity int
		expected bool
	}{
		{name: "enough copies", bookID: book.ID, quantity: 2, expected: true},
		{name: "too few copies", bookID: book.ID, quantity: 3, expected: false},
		{name: "unknown book", bookID: "no-such-book", quantity: 1, expected: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			available, err := ledger.CheckAvailable(ctx, tc.bookID, tc.quantity)

			// assert
			require.NoError(t, err)
			assert.Equal(t, tc.expected, available)
		})
	}
}

func Test_CheckAvailable_When_BookWasDeleted_It_Should_ReportFalse(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ledger := newSQLiteLedger(t)

	// arrange
	book := GivenBookWasCreated(t, ctx, ledger, 2)
	require.NoError(t, ledger.DeleteBook(ctx, book.ID), "error in arranging test data")

	// act
	available, err := ledger.CheckAvailable(ctx, book.ID, 1)

	// assert
	require.NoError(t, err)
	assert.False(t, available)
}

func Test_Reserve_When_ManyCallersCompeteForTheLastCopies_It_Should_LetExactlyTheAvailableCountSucceed(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	ledger := newSQLiteLedger(t)

	const callers = 20
	const available = 7

	// arrange
	book := GivenBookWasCreated(t, ctx, ledger, available)

	var succeeded, rejected, failed atomic.Int32
	var wg sync.WaitGroup

	// act
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := ledger.Reserve(ctx, book.ID, 1)
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, inventory.ErrInsufficientStock):
				rejected.Add(1)
			default:
				failed.Add(1)
			}
		}()
	}
	wg.Wait()

	// assert
	assert.Equal(t, int32(available), succeeded.Load())
	assert.Equal(t, int32(callers-available), rejected.Load())
	assert.Equal(t, int32(0), failed.Load())

	reloaded, err := ledger.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.AvailableStock)
	assert.Equal(t, available, reloaded.TotalStock)
}

func Test_StockMutations_When_ReservesAndReleasesInterleave_It_Should_KeepAvailableWithinTotal(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	ledger := newSQLiteLedger(t)

	const total = 4
	const workers = 8
	const roundsPerWorker = 10

	// arrange
	book := GivenBookWasCreated(t, ctx, ledger, total)

	var reserved, released atomic.Int32
	var wg sync.WaitGroup

	// act
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for round := range roundsPerWorker {
				var err error
				if (w+round)%2 == 0 {
					if _, err = ledger.Reserve(ctx, book.ID, 1); err == nil {
						reserved.Add(1)
					}
				} else {
					if _, err = ledger.Release(ctx, book.ID, 1); err == nil {
						released.Add(1)
					}
				}

				if err != nil && !errors.Is(err, inventory.ErrInsufficientStock) && !errors.Is(err, inventory.ErrOverRelease) {
					t.Errorf("unexpected error: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	// assert
	reloaded, err := ledger.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, total, reloaded.TotalStock)
	assert.GreaterOrEqual(t, reloaded.AvailableStock, 0)
	assert.LessOrEqual(t, reloaded.AvailableStock, reloaded.TotalStock)
	assert.Equal(t, total-int(reserved.Load())+int(released.Load()), reloaded.AvailableStock)
}
