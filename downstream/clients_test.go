package downstream_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-lending/downstream"
	"github.com/AntonStoeckl/library-lending/identity"
	"github.com/AntonStoeckl/library-lending/inventory"
)

func writeEnvelope(w http.ResponseWriter, status int, code int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w).Encode(map[string]any{
		"code":      code,
		"message":   message,
		"data":      data,
		"timestamp": time.Now().UnixMilli(),
	})
}

func Test_InventoryClient_GetBook_When_TheBookExists_It_Should_DecodeIt(t *testing.T) {
	// setup
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/books/book-1", r.URL.Path)
		writeEnvelope(w, http.StatusOK, 200, "success", inventory.Book{
			ID: "book-1", Title: "Learning Domain-Driven Design", TotalStock: 3, AvailableStock: 2, Status: inventory.StatusListed,
		})
	}))
	defer server.Close()
	client := downstream.NewInventoryClient(server.URL)

	// act
	book, err := client.GetBook(context.Background(), "book-1")

	// assert
	require.NoError(t, err)
	assert.Equal(t, "Learning Domain-Driven Design", book.Title)
	assert.Equal(t, 2, book.AvailableStock)
	assert.Equal(t, inventory.StatusListed, book.Status)
}

func Test_InventoryClient_When_TheRemoteReportsABusinessFailure_It_Should_MapItToTheTypedError(t *testing.T) {
	testCases := []struct {
		name     string
		status   int
		code     int
		call     func(client *downstream.InventoryClient) error
		expected error
	}{
		{
			name: "book not found", status: http.StatusNotFound, code: 3001,
			call: func(c *downstream.InventoryClient) error {
				_, err := c.GetBook(context.Background(), "missing")
				return err
			},
			expected: inventory.ErrBookNotFound,
		},
		{
			name: "stock not enough", status: http.StatusConflict, code: 3003,
			call: func(c *downstream.InventoryClient) error {
				_, err := c.Reserve(context.Background(), "book-1", 2)
				return err
			},
			expected: inventory.ErrInsufficientStock,
		},
		{
			name: "stock overflow", status: http.StatusConflict, code: 3004,
			call: func(c *downstream.InventoryClient) error {
				_, err := c.Release(context.Background(), "book-1", 2)
				return err
			},
			expected: inventory.ErrOverRelease,
		},
		{
			name: "bad quantity", status: http.StatusBadRequest, code: 400,
			call: func(c *downstream.InventoryClient) error {
				_, err := c.CheckAvailable(context.Background(), "book-1", 0)
				return err
			},
			expected: inventory.ErrInvalidQuantity,
		},
		{
			name: "server error", status: http.StatusInternalServerError, code: 500,
			call: func(c *downstream.InventoryClient) error {
				_, err := c.GetBook(context.Background(), "book-1")
				return err
			},
			expected: downstream.ErrServiceUnavailable,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				writeEnvelope(w, tc.status, tc.code, "rejected", nil)
			}))
			defer server.Close()

			err := tc.call(downstream.NewInventoryClient(server.URL))

			assert.ErrorIs(t, err, tc.expected)
		})
	}
}

func Test_InventoryClient_Reserve_It_Should_PostTheQuantityWithTheInternalToken(t *testing.T) {
	// setup
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/books/book-1/stock/borrow", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("quantity"))
		assert.Equal(t, "s3cret", r.Header.Get(downstream.InternalTokenHeader))
		writeEnvelope(w, http.StatusOK, 200, "success", inventory.Stock{Total: 3, Available: 1})
	}))
	defer server.Close()
	client := downstream.NewInventoryClient(server.URL, downstream.WithInternalToken("s3cret"))

	// act
	stock, err := client.Reserve(context.Background(), "book-1", 2)

	// assert
	require.NoError(t, err)
	assert.Equal(t, inventory.Stock{Total: 3, Available: 1}, stock)
}

func Test_InventoryClient_When_TheRemoteIsTooSlow_It_Should_TimeOutAsUnavailable(t *testing.T) {
	// setup
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer server.Close()
	client := downstream.NewInventoryClient(server.URL, downstream.WithTimeout(20*time.Millisecond))

	// act
	_, err := client.CheckAvailable(context.Background(), "book-1", 1)

	// assert
	assert.ErrorIs(t, err, downstream.ErrServiceUnavailable)
}

func Test_InventoryClient_When_TheCallerCancels_It_Should_ReturnTheCancellationAndKeepTheCircuitClosed(t *testing.T) {
	// setup
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer server.Close()
	breaker := downstream.NewBreaker(downstream.DefaultBreakerSettings("inventory"), nil)
	client := downstream.NewInventoryClient(server.URL, downstream.WithBreaker(breaker))

	// act
	for range 8 {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		_, err := client.CheckAvailable(ctx, "book-1", 1)
		cancel()

		// assert
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.NotErrorIs(t, err, downstream.ErrServiceUnavailable)
	}

	assert.Equal(t, "closed", breaker.State())
}

func Test_InventoryClient_When_TheRemoteIsDown_It_Should_OpenTheCircuit(t *testing.T) {
	// setup
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()
	breaker := downstream.NewBreaker(downstream.DefaultBreakerSettings("inventory"), nil)
	client := downstream.NewInventoryClient(server.URL, downstream.WithBreaker(breaker))

	// act
	for range 8 {
		_, err := client.GetBook(context.Background(), "book-1")
		assert.ErrorIs(t, err, downstream.ErrServiceUnavailable)
	}

	// assert
	assert.Equal(t, "open", breaker.State())
	assert.Equal(t, int32(5), hits.Load())
}

func Test_IdentityClient_Verify_When_TheTokenIsValid_It_Should_CacheTheIdentity(t *testing.T) {
	// setup
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := now
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/auth/verify", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		writeEnvelope(w, http.StatusOK, 200, "success", map[string]any{
			"valid":      true,
			"userId":     7,
			"username":   "ada",
			"role":       "ADMIN",
			"expiration": now.Add(time.Hour).UnixMilli(),
		})
	}))
	defer server.Close()
	client := downstream.NewIdentityClient(server.URL, downstream.WithClock(func() time.Time { return clock }))

	// act
	first, err := client.Verify(context.Background(), "tok")
	require.NoError(t, err)
	second, err := client.Verify(context.Background(), "tok")
	require.NoError(t, err)

	// assert
	assert.Equal(t, identity.Identity{
		UserID:    7,
		Username:  "ada",
		Role:      identity.RoleAdmin,
		ExpiresAt: now.Add(time.Hour),
	}, first)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), hits.Load())

	clock = now.Add(time.Hour)
	_, err = client.Verify(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load(), "an expired token must be verified again")
}

func Test_IdentityClient_Verify_When_TheTokenIsRejected_It_Should_ReportInvalidToken(t *testing.T) {
	testCases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "valid false",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				writeEnvelope(w, http.StatusOK, 200, "success", map[string]any{"valid": false})
			},
		},
		{
			name: "unauthorized",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				writeEnvelope(w, http.StatusUnauthorized, 2001, "token invalid", nil)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(tc.handler)
			defer server.Close()

			_, err := downstream.NewIdentityClient(server.URL).Verify(context.Background(), "tok")

			assert.ErrorIs(t, err, identity.ErrInvalidToken)
		})
	}
}

func Test_LendingClient_UpdateBookTitle(t *testing.T) {
	t.Run("propagates the title", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Title string `json:"title"`
			}
			require.NoError(t, jsoniter.ConfigCompatibleWithStandardLibrary.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, http.MethodPut, r.Method)
			assert.Equal(t, "/internal/borrow/book/book-1/title", r.URL.Path)
			assert.Equal(t, "New Title", body.Title)
			writeEnvelope(w, http.StatusOK, 200, "success", 4)
		}))
		defer server.Close()

		updated, err := downstream.NewLendingClient(server.URL).UpdateBookTitle(context.Background(), "book-1", "New Title")

		require.NoError(t, err)
		assert.Equal(t, int64(4), updated)
	})

	t.Run("falls back to zero when unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		server.Close()

		updated, err := downstream.NewLendingClient(server.URL).UpdateBookTitle(context.Background(), "book-1", "New Title")

		assert.ErrorIs(t, err, downstream.ErrServiceUnavailable)
		assert.Zero(t, updated)
	})
}

var _ identity.Verifier = (*downstream.IdentityClient)(nil)
