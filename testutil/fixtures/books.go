package fixtures

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-lending/inventory"
)

// BookCreator is the part of the ledger needed to arrange books.
type BookCreator interface {
	CreateBook(ctx context.Context, input inventory.NewBook) (inventory.Book, error)
}

// FixtureNewBook returns valid catalog input with a unique ISBN.
func FixtureNewBook(totalStock int) inventory.NewBook {
	return inventory.NewBook{
		ISBN:        "978-" + uuid.NewString()[:13],
		Title:       "Learning Domain-Driven Design",
		Author:      "Vlad Khononov",
		Publisher:   "O'Reilly Media, Inc.",
		Description: "Aligning software architecture and business strategy",
		TotalStock:  totalStock,
	}
}

// GivenBookWasCreated creates a listed book with the given stock.
func GivenBookWasCreated(t testing.TB, ctx context.Context, ledger BookCreator, totalStock int) inventory.Book {
	t.Helper()

	book, err := ledger.CreateBook(ctx, FixtureNewBook(totalStock))
	require.NoError(t, err, "error in arranging test data")

	return book
}

// GivenUnlistedBookWasCreated creates an unlisted book with the given stock.
func GivenUnlistedBookWasCreated(t testing.TB, ctx context.Context, ledger BookCreator, totalStock int) inventory.Book {
	t.Helper()

	input := FixtureNewBook(totalStock)
	unlisted := inventory.StatusUnlisted
	input.Status = &unlisted

	book, err := ledger.CreateBook(ctx, input)
	require.NoError(t, err, "error in arranging test data")

	return book
}
