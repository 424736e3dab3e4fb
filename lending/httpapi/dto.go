package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/AntonStoeckl/library-lending/lending/core"
	"github.com/AntonStoeckl/library-lending/web"
)

// queryTimeLayout is accepted next to RFC 3339 for the borrow time filters.
const queryTimeLayout = "2006-01-02 15:04:05"

type borrowRequest struct {
	BookID     string `json:"bookId" validate:"required,max=64"`
	Quantity   *int   `json:"quantity" validate:"omitempty,min=1,max=2147483647"`
	BorrowDays int    `json:"borrowDays" validate:"gte=0,lte=365"`
	Remark     string `json:"remark" validate:"max=500"`
}

func (r borrowRequest) quantity() int {
	if r.Quantity == nil {
		return 1
	}

	return *r.Quantity
}

type returnRequest struct {
	BorrowID string `json:"borrowId" validate:"required"`
	Remark   string `json:"remark" validate:"max=500"`
}

type renewRequest struct {
	BorrowID  string `json:"borrowId" validate:"required"`
	RenewDays int    `json:"renewDays" validate:"gte=0,lte=365"`
}

type titleRequest struct {
	Title string `json:"title"`
}

// parseLoanFilter reads the optional loan filters and the page from the query string.
func parseLoanFilter(c echo.Context, maxPageSize int) (core.LoanQuery, error) {
	page, err := web.ParsePage(c, maxPageSize)
	if err != nil {
		return core.LoanQuery{}, err
	}

	filter := core.LoanQuery{
		BookID:      c.QueryParam("bookId"),
		BookTitle:   c.QueryParam("bookTitle"),
		OverdueOnly: c.QueryParam("overdueOnly") == "true",
		Page:        page,
	}

	if raw := c.QueryParam("status"); raw != "" {
		value, err := strconv.Atoi(raw)
		status := core.Status(value)
		if err != nil || !status.Valid() {
			return core.LoanQuery{}, errors.Join(web.ErrInvalidRequest, errors.New("status must be between 0 and 3"))
		}

		filter.Status = &status
	}

	if filter.BorrowStartTime, err = queryTime(c, "borrowStartTime"); err != nil {
		return core.LoanQuery{}, err
	}

	if filter.BorrowEndTime, err = queryTime(c, "borrowEndTime"); err != nil {
		return core.LoanQuery{}, err
	}

	return filter, nil
}

func queryTime(c echo.Context, name string) (*time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}

	for _, layout := range []string{time.RFC3339, queryTimeLayout} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}

	return nil, errors.Join(web.ErrInvalidRequest, errors.New(name+" must be RFC 3339 or "+queryTimeLayout))
}
