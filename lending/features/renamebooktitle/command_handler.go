package renamebooktitle

import (
	"context"
)

// LoanStore defines the loan store operation needed by the CommandHandler.
type LoanStore interface {
	UpdateBookTitle(ctx context.Context, bookID string, title string) (int64, error)
}

// CommandHandler propagates a book rename to the borrow records.
type CommandHandler struct {
	loans LoanStore
}

// NewCommandHandler creates a new CommandHandler.
func NewCommandHandler(loans LoanStore) CommandHandler {
	return CommandHandler{loans: loans}
}

// Handle rewrites the title and returns how many records changed.
func (h CommandHandler) Handle(ctx context.Context, command Command) (int64, error) {
	if err := Validate(command); err != nil {
		return 0, err
	}

	return h.loans.UpdateBookTitle(ctx, command.BookID, command.Title)
}
