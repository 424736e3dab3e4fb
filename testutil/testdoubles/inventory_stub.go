package testdoubles

import (
	"context"
	"sync"

	"github.com/AntonStoeckl/library-lending/inventory"
)

// Inventory is the stock capability the lending workflow depends on.
type Inventory interface {
	GetBook(ctx context.Context, bookID string) (inventory.Book, error)
	CheckAvailable(ctx context.Context, bookID string, quantity int) (bool, error)
	Reserve(ctx context.Context, bookID string, quantity int) (inventory.Stock, error)
	Release(ctx context.Context, bookID string, quantity int) (inventory.Stock, error)
}

// StockCall records one Reserve or Release call.
type StockCall struct {
	BookID   string
	Quantity int
}

// InventoryStub delegates to a real inventory and fails individual operations on demand.
type InventoryStub struct {
	delegate Inventory

	GetBookErr        error
	CheckAvailableErr error
	ReserveErr        error
	ReleaseErr        error

	mu           sync.Mutex
	reserveCalls []StockCall
	releaseCalls []StockCall
}

// NewInventoryStub creates a stub delegating to delegate.
func NewInventoryStub(delegate Inventory) *InventoryStub {
	return &InventoryStub{delegate: delegate}
}

// GetBook implements Inventory.
func (s *InventoryStub) GetBook(ctx context.Context, bookID string) (inventory.Book, error) {
	if s.GetBookErr != nil {
		return inventory.Book{}, s.GetBookErr
	}

	return s.delegate.GetBook(ctx, bookID)
}

// CheckAvailable implements Inventory.
func (s *InventoryStub) CheckAvailable(ctx context.Context, bookID string, quantity int) (bool, error) {
	if s.CheckAvailableErr != nil {
		return false, s.CheckAvailableErr
	}

	return s.delegate.CheckAvailable(ctx, bookID, quantity)
}

// Reserve implements Inventory.
func (s *InventoryStub) Reserve(ctx context.Context, bookID string, quantity int) (inventory.Stock, error) {
	s.mu.Lock()
	s.reserveCalls = append(s.reserveCalls, StockCall{BookID: bookID, Quantity: quantity})
	s.mu.Unlock()

	if s.ReserveErr != nil {
		return inventory.Stock{}, s.ReserveErr
	}

	return s.delegate.Reserve(ctx, bookID, quantity)
}

// Release implements Inventory.
func (s *InventoryStub) Release(ctx context.Context, bookID string, quantity int) (inventory.Stock, error) {
	s.mu.Lock()
	s.releaseCalls = append(s.releaseCalls, StockCall{BookID: bookID, Quantity: quantity})
	s.mu.Unlock()

	if s.ReleaseErr != nil {
		return inventory.Stock{}, s.ReleaseErr
	}

	return s.delegate.Release(ctx, bookID, quantity)
}

// ReserveCalls returns a copy of all recorded Reserve calls.
func (s *InventoryStub) ReserveCalls() []StockCall {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]StockCall(nil), s.reserveCalls...)
}

// ReleaseCalls returns a copy of all recorded Release calls.
func (s *InventoryStub) ReleaseCalls() []StockCall {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]StockCall(nil), s.releaseCalls...)
}
