package core

// Status is the lifecycle state of a loan.
//
//	BORROWING -> RETURNED | OVERDUE | RENEWED
//	RENEWED   -> RETURNED | OVERDUE
//	OVERDUE   -> RETURNED
//
// RETURNED is terminal.
type Status int

const (
	StatusBorrowing Status = 0
	StatusReturned  Status = 1
	StatusOverdue   Status = 2
	StatusRenewed   Status = 3
)

// OutstandingStatuses are the statuses of loans whose copies are still out.
var OutstandingStatuses = []Status{StatusBorrowing, StatusOverdue, StatusRenewed}

// SweepableStatuses are the statuses the overdue sweep moves to StatusOverdue.
var SweepableStatuses = []Status{StatusBorrowing, StatusRenewed}

// Description returns the label rendered as statusDesc.
func (s Status) Description() string {
	switch s {
	case StatusBorrowing:
		return "borrowing"
	case StatusReturned:
		return "returned"
	case StatusOverdue:
		return "overdue"
	case StatusRenewed:
		return "renewed"
	default:
		return "unknown"
	}
}

// Valid reports whether s is one of the four known statuses.
func (s Status) Valid() bool {
	return s >= StatusBorrowing && s <= StatusRenewed
}

// IsOutstanding reports whether the copies of a loan in this status are still out.
func (s Status) IsOutstanding() bool {
	return s == StatusBorrowing || s == StatusOverdue || s == StatusRenewed
}
