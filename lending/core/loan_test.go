package core_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/library-lending/lending/core"
)

func Test_Loan_OverdueDaysAt(t *testing.T) {
	due := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	returnedLate := due.Add(3*24*time.Hour + time.Hour)
	returnedEarly := due.Add(-time.Hour)

	testCases := []struct {
		name            string
		loan            core.Loan
		now             time.Time
		expectedOverdue bool
		expectedDays    int
	}{
		{
			name:            "outstanding, not yet due",
			loan:            core.Loan{Status: core.StatusBorrowing, DueTime: due},
			now:             due.Add(-time.Minute),
			expectedOverdue: false,
			expectedDays:    0,
		},
		{
			name:            "outstanding, a few hours past due",
			loan:            core.Loan{Status: core.StatusBorrowing, DueTime: due},
			now:             due.Add(5 * time.Hour),
			expectedOverdue: true,
			expectedDays:    0,
		},
		{
			name:            "overdue for two and a half days",
			loan:            core.Loan{Status: core.StatusOverdue, DueTime: due},
			now:             due.Add(60 * time.Hour),
			expectedOverdue: true,
			expectedDays:    2,
		},
		{
			name:            "returned late, judged by the return time",
			loan:            core.Loan{Status: core.StatusReturned, DueTime: due, ReturnTime: &returnedLate},
			now:             due.Add(100 * 24 * time.Hour),
			expectedOverdue: true,
			expectedDays:    3,
		},
		{
			name:            "returned in time",
			loan:            core.Loan{Status: core.StatusReturned, DueTime: due, ReturnTime: &returnedEarly},
			now:             due.Add(100 * 24 * time.Hour),
			expectedOverdue: false,
			expectedDays:    0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expectedOverdue, tc.loan.IsOverdueAt(tc.now))
			assert.Equal(t, tc.expectedDays, tc.loan.OverdueDaysAt(tc.now))
		})
	}
}

func Test_Policy_Defaults(t *testing.T) {
	policy := core.DefaultPolicy()

	assert.Equal(t, 10, policy.MaxBorrowCount)
	assert.Equal(t, 2, policy.MaxRenewCount)
	assert.Equal(t, 30, policy.BorrowDaysOrDefault(0))
	assert.Equal(t, 7, policy.BorrowDaysOrDefault(7))
	assert.Equal(t, 15, policy.RenewDaysOrDefault(-1))
}

func Test_IsBusinessRejection(t *testing.T) {
	assert.True(t, core.IsBusinessRejection(core.ErrRenewLimitReached))
	assert.False(t, core.IsBusinessRejection(core.ErrQueryingLoansFailed))
}
