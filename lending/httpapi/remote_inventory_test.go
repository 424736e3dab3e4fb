package httpapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-lending/downstream"
	inventoryapi "github.com/AntonStoeckl/library-lending/inventory/httpapi"
	"github.com/AntonStoeckl/library-lending/lending/httpapi"
	"github.com/AntonStoeckl/library-lending/lending/sweeper"
	"github.com/AntonStoeckl/library-lending/shell"
	"github.com/AntonStoeckl/library-lending/testutil/fixtures"
	"github.com/AntonStoeckl/library-lending/testutil/lendingtest"
	"github.com/AntonStoeckl/library-lending/testutil/testdoubles"
	"github.com/AntonStoeckl/library-lending/web"
)

func Test_Borrow_When_InventoryIsRemote_It_Should_ReserveOverHTTPAndDegradeWhenItIsGone(t *testing.T) {
	// setup
	ctx := context.Background()
	clock := shell.FixedClock(jan1)
	env := lendingtest.NewEnvironment(t, clock)
	logger := testdoubles.NewContextualLoggerSpy(false)

	inventoryEcho := web.NewEcho(logger)
	inventoryapi.NewHandler(env.Ledger).Register(inventoryEcho, web.Authenticate(verifier), web.RequireInternalToken(internalToken))
	inventoryServer := httptest.NewServer(inventoryEcho)
	defer inventoryServer.Close()

	client := downstream.NewInventoryClient(inventoryServer.URL,
		downstream.WithInternalToken(internalToken),
		downstream.WithTimeout(time.Second),
	)

	deps := httpapi.Dependencies{Loans: env.Loans, Inventory: client, Clock: clock}
	handlers, err := httpapi.BuildHandlers(deps)
	require.NoError(t, err)

	sweepHandler, err := httpapi.BuildSweepHandler(deps)
	require.NoError(t, err)

	lendingEcho := web.NewEcho(logger)
	httpapi.NewHandler(handlers, sweeper.New(sweepHandler, nil), httpapi.WithClock(clock)).
		Register(lendingEcho, web.Authenticate(verifier), web.RequireInternalToken(internalToken))

	// arrange
	book := fixtures.GivenBookWasCreated(t, ctx, env.Ledger, 2)
	other := fixtures.GivenBookWasCreated(t, ctx, env.Ledger, 2)

	// act
	status, _, data := do(lendingEcho, http.MethodPost, "/borrow", `{"bookId":"`+book.ID+`","quantity":2}`, ada)

	// assert
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, decode[string](t, data))

	reloaded, err := env.Ledger.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.AvailableStock)

	// act
	status, env2, _ := do(lendingEcho, http.MethodPost, "/borrow", `{"bookId":"`+book.ID+`"}`, bob)

	// assert
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, web.CodeBookStockNotEnough, env2.Code)

	// act
	inventoryServer.Close()
	status, env3, _ := do(lendingEcho, http.MethodPost, "/borrow", `{"bookId":"`+other.ID+`"}`, bob)

	// assert
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, web.CodeServiceUnavailable, env3.Code)
}
