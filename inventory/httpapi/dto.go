package httpapi

import (
	"github.com/AntonStoeckl/library-lending/inventory"
)

type createBookRequest struct {
	ISBN        string `json:"isbn" validate:"required,max=32"`
	Title       string `json:"title" validate:"required,max=255"`
	Author      string `json:"author" validate:"required,max=255"`
	Publisher   string `json:"publisher" validate:"max=255"`
	Description string `json:"description"`
	TotalStock  int    `json:"totalStock" validate:"gte=0,lte=2147483647"`
	Status      *int   `json:"status" validate:"omitempty,oneof=0 1"`
}

func (r createBookRequest) toNewBook() inventory.NewBook {
	input := inventory.NewBook{
		ISBN:        r.ISBN,
		Title:       r.Title,
		Author:      r.Author,
		Publisher:   r.Publisher,
		Description: r.Description,
		TotalStock:  r.TotalStock,
	}

	if r.Status != nil {
		status := inventory.BookStatus(*r.Status)
		input.Status = &status
	}

	return input
}

type updateBookRequest struct {
	ISBN        *string `json:"isbn" validate:"omitempty,max=32"`
	Title       *string `json:"title" validate:"omitempty,max=255"`
	Author      *string `json:"author" validate:"omitempty,max=255"`
	Publisher   *string `json:"publisher" validate:"omitempty,max=255"`
	Description *string `json:"description"`
}

func (r updateBookRequest) toChanges() inventory.BookChanges {
	return inventory.BookChanges{
		ISBN:        r.ISBN,
		Title:       r.Title,
		Author:      r.Author,
		Publisher:   r.Publisher,
		Description: r.Description,
	}
}

type setStatusRequest struct {
	Status *int `json:"status" validate:"required,oneof=0 1"`
}
