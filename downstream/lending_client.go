package downstream

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/AntonStoeckl/library-lending/shell"
)

const logMsgTitlePropagationFallback = "lending service unavailable, title propagation falls back to 0 updated records"

type updateTitleRequest struct {
	Title string `json:"title"`
}

// LendingClient reaches the lending service's internal endpoints.
type LendingClient struct {
	transport transport
	breaker   *Breaker
	logger    shell.Logger
}

// NewLendingClient creates a client for the lending service at baseURL.
func NewLendingClient(baseURL string, opts ...ClientOption) *LendingClient {
	cfg := buildConfig(lendingBreakerName, opts)

	return &LendingClient{
		transport: newTransport(baseURL, cfg),
		breaker:   cfg.breaker,
		logger:    cfg.logger,
	}
}

// UpdateBookTitle rewrites the title snapshot on the loans of bookID and returns how many
// records changed. When the lending service is unavailable it returns 0 with ErrServiceUnavailable.
func (c *LendingClient) UpdateBookTitle(ctx context.Context, bookID string, title string) (int64, error) {
	updated, err := Call(ctx, c.breaker, func(ctx context.Context) (int64, error) {
		var updated int64
		err := c.transport.do(ctx, request{
			Method: http.MethodPut,
			Path:   "/internal/borrow/book/" + url.PathEscape(bookID) + "/title",
			Body:   updateTitleRequest{Title: title},
			Out:    &updated,
		})

		return updated, err
	})

	if errors.Is(err, ErrServiceUnavailable) {
		if c.logger != nil {
			c.logger.Warn(logMsgTitlePropagationFallback, "book_id", bookID, "error", err.Error())
		}

		return 0, err
	}

	return updated, err
}
