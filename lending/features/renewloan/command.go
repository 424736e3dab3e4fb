package renewloan

const (
	commandType = "RenewLoan"
)

// Command represents the intent of a reader to keep a loan longer.
type Command struct {
	UserID    int64
	LoanID    string
	RenewDays int
}

// CommandType returns the type identifier for this command, used for observability.
func (c Command) CommandType() string {
	return commandType
}

// BuildCommand creates a new Command. A renewDays of 0 selects the policy default.
func BuildCommand(userID int64, loanID string, renewDays int) Command {
	return Command{
		UserID:    userID,
		LoanID:    loanID,
		RenewDays: renewDays,
	}
}
