package core

import (
	"time"

	"github.com/AntonStoeckl/library-lending/shell"
)

// LoanQuery filters loan listings. Nil and zero values mean "no filter".
type LoanQuery struct {
	UserID          *int64
	BookID          string
	BookTitle       string
	Status          *Status
	BorrowStartTime *time.Time
	BorrowEndTime   *time.Time
	OverdueOnly     bool
	Page            shell.Page
}

// LoanPage is one page of loans, newest borrow time first.
type LoanPage = shell.PageResult[Loan]

// Statistics aggregates the loans of one user. OverdueCount counts loans that are
// overdue now or were returned after their due time.
type Statistics struct {
	TotalBorrowed    int64 `json:"totalBorrowed"`
	CurrentBorrowing int64 `json:"currentBorrowing"`
	OverdueCount     int64 `json:"overdueCount"`
}
