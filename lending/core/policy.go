package core

// Policy holds the lending limits.
type Policy struct {
	MaxBorrowCount    int
	MaxRenewCount     int
	DefaultBorrowDays int
	DefaultRenewDays  int
}

// DefaultPolicy returns the stock limits: 10 outstanding loans, 2 renewals, 30 borrow days, 15 renew days.
func DefaultPolicy() Policy {
	return Policy{
		MaxBorrowCount:    10,
		MaxRenewCount:     2,
		DefaultBorrowDays: 30,
		DefaultRenewDays:  15,
	}
}

// BorrowDaysOrDefault returns days when it is positive, the default otherwise.
func (p Policy) BorrowDaysOrDefault(days int) int {
	if days > 0 {
		return days
	}

	return p.DefaultBorrowDays
}

// RenewDaysOrDefault returns days when it is positive, the default otherwise.
func (p Policy) RenewDaysOrDefault(days int) int {
	if days > 0 {
		return days
	}

	return p.DefaultRenewDays
}
