package inventory

import (
	"errors"
	"strings"
	"time"

	"github.com/AntonStoeckl/library-lending/shell"
)

// BookStatus tells whether a book may be borrowed.
type BookStatus int

const (
	StatusUnlisted BookStatus = 0
	StatusListed   BookStatus = 1
)

// Description returns the human-readable label of the status.
func (s BookStatus) Description() string {
	switch s {
	case StatusListed:
		return "listed"
	case StatusUnlisted:
		return "unlisted"
	default:
		return "unknown"
	}
}

// Valid reports whether s is one of the known statuses.
func (s BookStatus) Valid() bool {
	return s == StatusListed || s == StatusUnlisted
}

// Book is a catalog entry with its stock counters.
type Book struct {
	ID             string     `json:"id"`
	ISBN           string     `json:"isbn"`
	Title          string     `json:"title"`
	Author         string     `json:"author"`
	Publisher      string     `json:"publisher"`
	Description    string     `json:"description"`
	TotalStock     int        `json:"totalStock"`
	AvailableStock int        `json:"availableStock"`
	Status         BookStatus `json:"status"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Stock holds the counters after a ledger mutation.
type Stock struct {
	Total     int `json:"totalStock"`
	Available int `json:"availableStock"`
}

// NewBook carries the input for creating a catalog entry.
type NewBook struct {
	ISBN        string
	Title       string
	Author      string
	Publisher   string
	Description string
	TotalStock  int
	Status      *BookStatus
}

// Validate checks the shape of a new book.
func (b NewBook) Validate() error {
	var errs []error

	if strings.TrimSpace(b.ISBN) == "" {
		errs = append(errs, errors.New("isbn must not be empty"))
	}

	if strings.TrimSpace(b.Title) == "" {
		errs = append(errs, errors.New("title must not be empty"))
	}

	if strings.TrimSpace(b.Author) == "" {
		errs = append(errs, errors.New("author must not be empty"))
	}

	if b.TotalStock < 0 || b.TotalStock > MaxStock {
		errs = append(errs, errors.New("total stock must be between 0 and 2147483647"))
	}

	if b.Status != nil && !b.Status.Valid() {
		errs = append(errs, errors.New("unknown book status"))
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidBook}, errs...)...)
	}

	return nil
}

// BookChanges carries metadata updates. Nil fields are left unchanged.
// Stock only moves through the ledger operations.
type BookChanges struct {
	ISBN        *string
	Title       *string
	Author      *string
	Publisher   *string
	Description *string
}

// Validate rejects blank values for required fields.
func (c BookChanges) Validate() error {
	for _, required := range []*string{c.ISBN, c.Title, c.Author} {
		if required != nil && strings.TrimSpace(*required) == "" {
			return errors.Join(ErrInvalidBook, errors.New("isbn, title and author must not be blank"))
		}
	}

	return nil
}

// IsEmpty reports whether no field is set.
func (c BookChanges) IsEmpty() bool {
	return c.ISBN == nil && c.Title == nil && c.Author == nil && c.Publisher == nil && c.Description == nil
}

// BookQuery filters the catalog listing. Zero values mean "no filter".
type BookQuery struct {
	Keyword  string
	Author   string
	Status   *BookStatus
	HasStock bool
	Page     shell.Page
}

// BookPage is one page of the catalog.
type BookPage = shell.PageResult[Book]
