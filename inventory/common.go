package inventory

import (
	"errors"
	"math"
)

// MaxStock is the largest stock counter the books table can hold.
const MaxStock = math.MaxInt32

// Ledger failures that callers are expected to branch on.
var (
	ErrInvalidQuantity         = errors.New("quantity must be between 1 and 2147483647")
	ErrBookNotFound            = errors.New("book not found")
	ErrInsufficientStock       = errors.New("insufficient stock, no rows were affected")
	ErrOverRelease             = errors.New("release would exceed total stock, no rows were affected")
	ErrStockLimitExceeded      = errors.New("stock would exceed its upper limit, no rows were affected")
	ErrBookAlreadyExists       = errors.New("a book with this isbn already exists")
	ErrBookHasOutstandingLoans = errors.New("book has outstanding loans and cannot be deleted")
	ErrInvalidBook             = errors.New("invalid book")
)

// Infrastructure failures.
var (
	ErrNilDatabaseConnection     = errors.New("database connection must not be nil")
	ErrEmptyTableName            = errors.New("empty table name supplied")
	ErrUnsupportedDialect        = errors.New("unsupported sql dialect")
	ErrBuildingQueryFailed       = errors.New("building query failed")
	ErrQueryingBooksFailed       = errors.New("querying books failed")
	ErrMutatingStockFailed       = errors.New("mutating stock failed")
	ErrWritingBookFailed         = errors.New("writing book failed")
	ErrGettingRowsAffectedFailed = errors.New("getting rows affected failed")
	ErrScanningDBRowFailed       = errors.New("scanning db row failed")
)

// ValidateQuantity rejects quantities below 1 and above MaxStock.
func ValidateQuantity(quantity int) error {
	if quantity < 1 || quantity > MaxStock {
		return ErrInvalidQuantity
	}

	return nil
}
