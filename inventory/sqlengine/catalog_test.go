package sqlengine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-lending/inventory"
	. "github.com/AntonStoeckl/library-lending/inventory/sqlengine"
	"github.com/AntonStoeckl/library-lending/shell"
	. "github.com/AntonStoeckl/library-lending/testutil/fixtures"
)

func Test_CreateBook_It_Should_StartWithAllCopiesAvailableAndListed(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	fakeClock := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	ledger := newSQLiteLedger(t, WithClock(shell.FixedClock(fakeClock)))
	input := FixtureNewBook(4)

	// act
	book, err := ledger.CreateBook(ctx, input)

	// assert
	require.NoError(t, err)
	assert.NotEmpty(t, book.ID)
	assert.Equal(t, 4, book.TotalStock)
	assert.Equal(t, 4, book.AvailableStock)
	assert.Equal(t, inventory.StatusListed, book.Status)

	reloaded, err := ledger.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, input.ISBN, reloaded.ISBN)
	assert.Equal(t, input.Title, reloaded.Title)
	assert.True(t, fakeClock.Equal(reloaded.CreatedAt), "created_at should round-trip: %s", reloaded.CreatedAt)
}

func Test_CreateBook_When_ISBNIsTaken_It_Should_FailWithBookAlreadyExists(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ledger := newSQLiteLedger(t)

	// arrange
	existing := GivenBookWasCreated(t, ctx, ledger, 1)
	input := FixtureNewBook(2)
	input.ISBN = existing.ISBN

	// act
	_, err := ledger.CreateBook(ctx, input)

	// assert
	assert.ErrorIs(t, err, inventory.ErrBookAlreadyExists)
}

func Test_CreateBook_When_InputIsInvalid_It_Should_FailWithInvalidBook(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ledger := newSQLiteLedger(t)

	// arrange
	input := FixtureNewBook(-1)
	input.Title = " "

	// act
	_, err := ledger.CreateBook(ctx, input)

	// assert
	assert.ErrorIs(t, err, inventory.ErrInvalidBook)
}

func Test_GetBook_When_BookDoesNotExist_It_Should_FailWithBookNotFound(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ledger := newSQLiteLedger(t)

	// act
	_, err := ledger.GetBook(ctx, "no-such-book")

	// assert
	assert.ErrorIs(t, err, inventory.ErrBookNotFound)
}

func Test_ListBooks_It_Should_FilterAndPaginate(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ledger := newSQLiteLedger(t)

	// arrange
	for range 3 {
		GivenBookWasCreated(t, ctx, ledger, 1)
	}

	special := FixtureNewBook(0)
	special.Title = "Designing Data-Intensive Applications"
	special.Author = "Martin Kleppmann"
	_, err := ledger.CreateBook(ctx, special)
	require.NoError(t, err, "error in arranging test data")

	unlisted := GivenUnlistedBookWasCreated(t, ctx, ledger, 2)
	listed := inventory.StatusListed
	unlistedStatus := inventory.StatusUnlisted

	testCases := []struct {
		name          string
		query         inventory.BookQuery
		expectedTotal int64
		expectedSize  int
	}{
		{
			name:          "all books, first page of two",
			query:         inventory.BookQuery{Page: shell.Page{Num: 1, Size: 2}},
			expectedTotal: 5,
			expectedSize:  2,
		},
		{
			name:          "last page",
			query:         inventory.BookQuery{Page: shell.Page{Num: 3, Size: 2}},
			expectedTotal: 5,
			expectedSize:  1,
		},
		{
			name:          "page beyond the end",
			query:         inventory.BookQuery{Page: shell.Page{Num: 9, Size: 2}},
			expectedTotal: 5,
			expectedSize:  0,
		},
		{
			name:          "keyword matches case-insensitively",
			query:         inventory.BookQuery{Keyword: "data-intensive"},
			expectedTotal: 1,
			expectedSize:  1,
		},
		{
			name:          "author filter",
			query:         inventory.BookQuery{Author: "kleppmann"},
			expectedTotal: 1,
			expectedSize:  1,
		},
		{
			name:          "listed only",
			query:         inventory.BookQuery{Status: &listed},
			expectedTotal: 4,
			expectedSize:  4,
		},
		{
			name:          "unlisted only",
			query:         inventory.BookQuery{Status: &unlistedStatus},
			expectedTotal: 1,
			expectedSize:  1,
		},
		{
			name:          "with stock only",
			query:         inventory.BookQuery{HasStock: true},
			expectedTotal: 4,
			expectedSize:  4,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			page, listErr := ledger.ListBooks(ctx, tc.query, shell.MaxPageSize)

			// assert
			require.NoError(t, listErr)
			assert.Equal(t, tc.expectedTotal, page.Total)
			assert.Len(t, page.Records, tc.expectedSize)
			assert.NotNil(t, page.Records)
		})
	}

	page, err := ledger.ListBooks(ctx, inventory.BookQuery{Status: &unlistedStatus}, shell.MaxPageSize)
	require.NoError(t, err)
	assert.Equal(t, unlisted.ID, page.Records[0].ID)
}

func Test_ListBooks_When_PageSizeExceedsTheCap_It_Should_CapIt(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ledger := newSQLiteLedger(t)

	// arrange
	for range 3 {
		GivenBookWasCreated(t, ctx, ledger, 1)
	}

	// act
	page, err := ledger.ListBooks(ctx, inventory.BookQuery{Page: shell.Page{Num: 1, Size: 500}}, 2)

	// assert
	require.NoError(t, err)
	assert.Equal(t, 2, page.Size)
	assert.Equal(t, int64(2), page.Pages)
	assert.Len(t, page.Records, 2)
}

func Test_UpdateBook_It_Should_ChangeMetadataAndReportThePreviousTitle(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ledger := newSQLiteLedger(t)

	// arrange
	book := GivenBookWasCreated(t, ctx, ledger, 3)
	_, err := ledger.Reserve(ctx, book.ID, 1)
	require.NoError(t, err, "error in arranging test data")
	newTitle := "Learning Domain-Driven Design, 2nd Edition"

	// act
	updated, previousTitle, err := ledger.UpdateBook(ctx, book.ID, inventory.BookChanges{Title: &newTitle})

	// assert
	require.NoError(t, err)
	assert.Equal(t, book.Title, previousTitle)
	assert.Equal(t, newTitle, updated.Title)
	assert.Equal(t, book.Author, updated.Author)
	assert.Equal(t, 2, updated.AvailableStock, "stock must not be touched by metadata updates")
}

func Test_UpdateBook_When_ISBNBelongsToAnotherBook_It_Should_FailWithBookAlreadyExists(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ledger := newSQLiteLedger(t)

	// arrange
	first := GivenBookWasCreated(t, ctx, ledger, 1)
	second := GivenBookWasCreated(t, ctx, ledger, 1)

	// act
	_, _, err := ledger.UpdateBook(ctx, second.ID, inventory.BookChanges{ISBN: &first.ISBN})

	// assert
	assert.ErrorIs(t, err, inventory.ErrBookAlreadyExists)
}

func Test_UpdateBook_When_BookDoesNotExist_It_Should_FailWithBookNotFound(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ledger := newSQLiteLedger(t)
	title := "Anything"

	// act
	_, _, err := ledger.UpdateBook(ctx, "no-such-book", inventory.BookChanges{Title: &title})

	// assert
	assert.ErrorIs(t, err, inventory.ErrBookNotFound)
}

func Test_SetStatus_It_Should_UnlistAndRelistTheBook(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ledger := newSQLiteLedger(t)

	// arrange
	book := GivenBookWasCreated(t, ctx, ledger, 1)

	// act
	err := ledger.SetStatus(ctx, book.ID, inventory.StatusUnlisted)

	// assert
	require.NoError(t, err)
	reloaded, err := ledger.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusUnlisted, reloaded.Status)

	assert.ErrorIs(t, ledger.SetStatus(ctx, book.ID, inventory.BookStatus(7)), inventory.ErrInvalidBook)
	assert.ErrorIs(t, ledger.SetStatus(ctx, "no-such-book", inventory.StatusListed), inventory.ErrBookNotFound)
}

func Test_DeleteBook_When_AllCopiesAreOnTheShelf_It_Should_HideTheBook(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ledger := newSQLiteLedger(t)

	// arrange
	book := GivenBookWasCreated(t, ctx, ledger, 2)

	// act
	err := ledger.DeleteBook(ctx, book.ID)

	// assert
	require.NoError(t, err)
	_, err = ledger.GetBook(ctx, book.ID)
	assert.ErrorIs(t, err, inventory.ErrBookNotFound)
	assert.ErrorIs(t, ledger.DeleteBook(ctx, book.ID), inventory.ErrBookNotFound)

	// the ISBN is free again
	input := FixtureNewBook(1)
	input.ISBN = book.ISBN
	_, err = ledger.CreateBook(ctx, input)
	assert.NoError(t, err)
}

func Test_DeleteBook_When_CopiesAreLent_It_Should_FailWithOutstandingLoans(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ledger := newSQLiteLedger(t)

	// arrange
	book := GivenBookWasCreated(t, ctx, ledger, 2)
	_, err := ledger.Reserve(ctx, book.ID, 1)
	require.NoError(t, err, "error in arranging test data")

	// act
	err = ledger.DeleteBook(ctx, book.ID)

	// assert
	assert.ErrorIs(t, err, inventory.ErrBookHasOutstandingLoans)
	_, err = ledger.GetBook(ctx, book.ID)
	assert.NoError(t, err)
}
