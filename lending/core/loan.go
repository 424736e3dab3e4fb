package core

import (
	"time"
)

const day = 24 * time.Hour

// Loan is one borrow record. Title and ISBN are snapshots taken at borrow time
// and later rewritten by title propagation.
type Loan struct {
	ID         string
	UserID     int64
	Username   string
	BookID     string
	BookISBN   string
	BookTitle  string
	Quantity   int
	BorrowTime time.Time
	DueTime    time.Time
	ReturnTime *time.Time
	RenewCount int
	Status     Status
	Remark     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsOwnedBy reports whether userID borrowed the loan.
func (l Loan) IsOwnedBy(userID int64) bool {
	return l.UserID == userID
}

// IsOverdueAt reports whether the loan is, or was returned, past its due time.
// Returned loans are judged by their return time, all others by now.
func (l Loan) IsOverdueAt(now time.Time) bool {
	return l.lateBy(now) > 0
}

// OverdueDaysAt counts the whole days between the due time and now,
// or between the due time and the return time for returned loans.
func (l Loan) OverdueDaysAt(now time.Time) int {
	late := l.lateBy(now)
	if late <= 0 {
		return 0
	}

	return int(late / day)
}

func (l Loan) lateBy(now time.Time) time.Duration {
	if l.Status == StatusReturned {
		if l.ReturnTime == nil {
			return 0
		}

		return l.ReturnTime.Sub(l.DueTime)
	}

	return now.Sub(l.DueTime)
}
