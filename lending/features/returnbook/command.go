package returnbook

const (
	commandType = "ReturnBook"
)

// Command represents the intent of a reader to bring back a loan.
type Command struct {
	UserID int64
	LoanID string
	Remark string
}

// CommandType returns the type identifier for this command, used for observability.
func (c Command) CommandType() string {
	return commandType
}

// BuildCommand creates a new Command.
func BuildCommand(userID int64, loanID string, remark string) Command {
	return Command{
		UserID: userID,
		LoanID: loanID,
		Remark: remark,
	}
}
