package downstream

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/AntonStoeckl/library-lending/inventory"
)

// Envelope codes of the inventory service.
const (
	codeBadRequest        = 400
	codeNotFound          = 404
	codeBookNotFound      = 3001
	codeStockNotEnough    = 3003
	codeStockOverflow     = 3004
	inventoryBreakerName  = "inventory"
	identityBreakerName   = "identity"
	lendingBreakerName    = "lending"
	quantityQueryParamKey = "quantity"
)

// InventoryClient reaches the inventory service's book and stock endpoints.
type InventoryClient struct {
	transport transport
	breaker   *Breaker
}

// NewInventoryClient creates a client for the inventory service at baseURL.
func NewInventoryClient(baseURL string, opts ...ClientOption) *InventoryClient {
	cfg := buildConfig(inventoryBreakerName, opts)

	return &InventoryClient{
		transport: newTransport(baseURL, cfg),
		breaker:   cfg.breaker,
	}
}

// GetBook fetches one book.
func (c *InventoryClient) GetBook(ctx context.Context, bookID string) (inventory.Book, error) {
	return Call(ctx, c.breaker, func(ctx context.Context) (inventory.Book, error) {
		var book inventory.Book
		err := c.transport.do(ctx, request{
			Method: http.MethodGet,
			Path:   "/books/" + url.PathEscape(bookID),
			Out:    &book,
		})

		return book, mapInventoryError(err)
	})
}

// CheckAvailable asks whether quantity copies are on the shelf.
func (c *InventoryClient) CheckAvailable(ctx context.Context, bookID string, quantity int) (bool, error) {
	return Call(ctx, c.breaker, func(ctx context.Context) (bool, error) {
		var available bool
		err := c.transport.do(ctx, request{
			Method: http.MethodGet,
			Path:   "/books/" + url.PathEscape(bookID) + "/stock/check",
			Query:  quantityQuery(quantity),
			Out:    &available,
		})

		return available, mapInventoryError(err)
	})
}

// Reserve takes quantity copies off the shelf.
func (c *InventoryClient) Reserve(ctx context.Context, bookID string, quantity int) (inventory.Stock, error) {
	return c.mutateStock(ctx, bookID, "borrow", quantity)
}

// Release puts quantity copies back on the shelf.
func (c *InventoryClient) Release(ctx context.Context, bookID string, quantity int) (inventory.Stock, error) {
	return c.mutateStock(ctx, bookID, "return", quantity)
}

func (c *InventoryClient) mutateStock(ctx context.Context, bookID string, action string, quantity int) (inventory.Stock, error) {
	return Call(ctx, c.breaker, func(ctx context.Context) (inventory.Stock, error) {
		var stock inventory.Stock
		err := c.transport.do(ctx, request{
			Method: http.MethodPost,
			Path:   "/books/" + url.PathEscape(bookID) + "/stock/" + action,
			Query:  quantityQuery(quantity),
			Out:    &stock,
		})

		return stock, mapInventoryError(err)
	})
}

func quantityQuery(quantity int) url.Values {
	return url.Values{quantityQueryParamKey: []string{strconv.Itoa(quantity)}}
}

func mapInventoryError(err error) error {
	var remote *RemoteError
	if !errors.As(err, &remote) {
		return err
	}

	switch remote.Code {
	case codeNotFound, codeBookNotFound:
		return inventory.ErrBookNotFound
	case codeStockNotEnough:
		return inventory.ErrInsufficientStock
	case codeStockOverflow:
		return inventory.ErrOverRelease
	case codeBadRequest:
		return inventory.ErrInvalidQuantity
	default:
		return errors.Join(ErrRemoteRejected, err)
	}
}
