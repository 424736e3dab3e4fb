package borrowbook

const (
	commandType = "BorrowBook"
)

// Command represents the intent of a reader to borrow copies of a book.
type Command struct {
	UserID     int64
	Username   string
	BookID     string
	Quantity   int
	BorrowDays int
	Remark     string
}

// CommandType returns the type identifier for this command, used for observability.
func (c Command) CommandType() string {
	return commandType
}

// BuildCommand creates a new Command. A borrowDays of 0 selects the policy default.
func BuildCommand(userID int64, username string, bookID string, quantity int, borrowDays int, remark string) Command {
	return Command{
		UserID:     userID,
		Username:   username,
		BookID:     bookID,
		Quantity:   quantity,
		BorrowDays: borrowDays,
		Remark:     remark,
	}
}
