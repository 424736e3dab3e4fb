package renamebooktitle_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-lending/lending/core"
	"github.com/AntonStoeckl/library-lending/lending/features/renamebooktitle"
	"github.com/AntonStoeckl/library-lending/shell"
	"github.com/AntonStoeckl/library-lending/testutil/fixtures"
	"github.com/AntonStoeckl/library-lending/testutil/lendingtest"
)

func Test_CommandHandler_Handle_It_Should_RewriteEveryLoanOfTheBook(t *testing.T) {
	// setup
	ctx := context.Background()
	jan1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	env := lendingtest.NewEnvironment(t, shell.FixedClock(jan1))
	handler := renamebooktitle.NewCommandHandler(env.Loans)

	// arrange
	first := fixtures.GivenLoanWasCreated(t, ctx, env.Loans, fixtures.FixtureLoan(7, "book-1", jan1))
	second := fixtures.GivenLoanWasCreated(t, ctx, env.Loans, fixtures.FixtureLoan(8, "book-1", jan1))
	other := fixtures.GivenLoanWasCreated(t, ctx, env.Loans, fixtures.FixtureLoan(7, "book-2", jan1))

	// act
	changed, err := handler.Handle(ctx, renamebooktitle.BuildCommand("book-1", "Learning DDD, 2nd Edition"))

	// assert
	require.NoError(t, err)
	assert.Equal(t, int64(2), changed)

	for _, id := range []string{first.ID, second.ID} {
		stored, err := env.Loans.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Learning DDD, 2nd Edition", stored.BookTitle)
	}

	stored, err := env.Loans.Get(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, "Learning Domain-Driven Design", stored.BookTitle)
}

func Test_CommandHandler_Handle_When_TheTitleIsBlank_It_Should_Reject(t *testing.T) {
	// setup
	env := lendingtest.NewEnvironment(t, shell.SystemClock)
	handler := renamebooktitle.NewCommandHandler(env.Loans)

	// act
	_, err := handler.Handle(context.Background(), renamebooktitle.BuildCommand("book-1", " "))

	// assert
	assert.ErrorIs(t, err, core.ErrInvalidCommand)
	assert.ErrorIs(t, err, core.ErrEmptyBookTitle)
}
