package loans

import (
	"github.com/AntonStoeckl/library-lending/identity"
	"github.com/AntonStoeckl/library-lending/lending/core"
)

// GetLoan asks for one loan.
type GetLoan struct {
	Caller identity.Identity
	LoanID string
}

// QueryType returns the type identifier for this query, used for observability.
func (GetLoan) QueryType() string { return "GetLoan" }

// ListLoans asks for a filtered page of loans. A filter without a user id lists everyone's
// loans and is reserved for administrators.
type ListLoans struct {
	Caller identity.Identity
	Filter core.LoanQuery
}

// QueryType returns the type identifier for this query, used for observability.
func (ListLoans) QueryType() string { return "ListLoans" }

// GetStatistics asks for the aggregate counts of one user.
type GetStatistics struct {
	Caller identity.Identity
	UserID int64
}

// QueryType returns the type identifier for this query, used for observability.
func (GetStatistics) QueryType() string { return "GetStatistics" }

// CountOutstanding asks how many loans the user currently holds.
type CountOutstanding struct {
	Caller identity.Identity
	UserID int64
}

// QueryType returns the type identifier for this query, used for observability.
func (CountOutstanding) QueryType() string { return "CountOutstanding" }
