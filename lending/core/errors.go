package core

import (
	"errors"
)

// Business rejections of the borrow workflow.
var (
	ErrInvalidCommand         = errors.New("invalid command")
	ErrLoanNotFound           = errors.New("borrow record not found")
	ErrNotLoanOwner           = errors.New("borrow record belongs to another user")
	ErrAccessDenied           = errors.New("caller may not read these borrow records")
	ErrBookNotListed          = errors.New("book is not listed for borrowing")
	ErrBookAlreadyBorrowed    = errors.New("book is already borrowed by this user")
	ErrBorrowLimitExceeded    = errors.New("borrow limit exceeded")
	ErrLoanAlreadyReturned    = errors.New("book was already returned")
	ErrRenewLimitReached      = errors.New("renew limit reached")
	ErrRenewNotAllowedOverdue = errors.New("overdue loans cannot be renewed")
	ErrConcurrentModification = errors.New("borrow record was modified concurrently")
	ErrDuplicateActiveLoan    = errors.New("an outstanding loan for this user and book already exists")
	ErrLoanNotOutstanding     = errors.New("borrow record is not outstanding")
	ErrCompensationFailed     = errors.New("compensating stock operation failed")
	ErrEmptyBookTitle         = errors.New("book title must not be empty")
)

// Infrastructure failures of the loan store.
var (
	ErrNilDatabaseConnection     = errors.New("database connection must not be nil")
	ErrEmptyTableName            = errors.New("empty table name supplied")
	ErrBuildingQueryFailed       = errors.New("building query failed")
	ErrQueryingLoansFailed       = errors.New("querying borrow records failed")
	ErrWritingLoanFailed         = errors.New("writing borrow record failed")
	ErrGettingRowsAffectedFailed = errors.New("getting rows affected failed")
)

var businessRejections = []error{
	ErrInvalidCommand,
	ErrLoanNotFound,
	ErrNotLoanOwner,
	ErrAccessDenied,
	ErrBookNotListed,
	ErrBookAlreadyBorrowed,
	ErrBorrowLimitExceeded,
	ErrLoanAlreadyReturned,
	ErrRenewLimitReached,
	ErrRenewNotAllowedOverdue,
	ErrConcurrentModification,
	ErrEmptyBookTitle,
}

// IsBusinessRejection reports whether err is one of the workflow's own rejections.
func IsBusinessRejection(err error) bool {
	for _, target := range businessRejections {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}
