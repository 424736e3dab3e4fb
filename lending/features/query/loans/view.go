package loans

import (
	"time"

	"github.com/AntonStoeckl/library-lending/lending/core"
	"github.com/AntonStoeckl/library-lending/shell"
)

// LoanView is a loan enriched with the values a client needs for display.
type LoanView struct {
	ID          string     `json:"id"`
	UserID      int64      `json:"userId"`
	Username    string     `json:"username"`
	BookID      string     `json:"bookId"`
	BookISBN    string     `json:"bookIsbn"`
	BookTitle   string     `json:"bookTitle"`
	Quantity    int        `json:"quantity"`
	BorrowTime  time.Time  `json:"borrowTime"`
	DueTime     time.Time  `json:"dueTime"`
	ReturnTime  *time.Time `json:"returnTime"`
	RenewCount  int        `json:"renewCount"`
	Status      int        `json:"status"`
	StatusDesc  string     `json:"statusDesc"`
	Overdue     bool       `json:"overdue"`
	OverdueDays int        `json:"overdueDays"`
	Remark      string     `json:"remark"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// LoanViewPage is one page of loan views.
type LoanViewPage = shell.PageResult[LoanView]

// ToView derives the overdue fields at now.
func ToView(loan core.Loan, now time.Time) LoanView {
	return LoanView{
		ID:          loan.ID,
		UserID:      loan.UserID,
		Username:    loan.Username,
		BookID:      loan.BookID,
		BookISBN:    loan.BookISBN,
		BookTitle:   loan.BookTitle,
		Quantity:    loan.Quantity,
		BorrowTime:  loan.BorrowTime,
		DueTime:     loan.DueTime,
		ReturnTime:  loan.ReturnTime,
		RenewCount:  loan.RenewCount,
		Status:      int(loan.Status),
		StatusDesc:  loan.Status.Description(),
		Overdue:     loan.IsOverdueAt(now),
		OverdueDays: loan.OverdueDaysAt(now),
		Remark:      loan.Remark,
		CreatedAt:   loan.CreatedAt,
		UpdatedAt:   loan.UpdatedAt,
	}
}
