// Package renamebooktitle rewrites the title snapshot of every loan of a renamed book.
package renamebooktitle

import (
	"errors"
	"strings"

	"github.com/AntonStoeckl/library-lending/lending/core"
)

const (
	commandType = "RenameBookTitle"
)

// Command carries the new title of a book.
type Command struct {
	BookID string
	Title  string
}

// CommandType returns the type identifier for this command, used for observability.
func (c Command) CommandType() string {
	return commandType
}

// BuildCommand creates a new Command.
func BuildCommand(bookID string, title string) Command {
	return Command{
		BookID: bookID,
		Title:  title,
	}
}

// Validate rejects commands without a book id or title.
func Validate(command Command) error {
	if strings.TrimSpace(command.BookID) == "" {
		return errors.Join(core.ErrInvalidCommand, errors.New("book id is required"))
	}

	if strings.TrimSpace(command.Title) == "" {
		return errors.Join(core.ErrInvalidCommand, core.ErrEmptyBookTitle)
	}

	return nil
}
