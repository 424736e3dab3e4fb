package web

import (
	"errors"
	"math"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/AntonStoeckl/library-lending/shell"
)

// ParsePage reads pageNum and pageSize. Missing values get defaults and the size is capped
// at maxPageSize. Values that are not numbers or exceed math.MaxInt32 are rejected, which
// keeps the row offset well inside int64.
func ParsePage(c echo.Context, maxPageSize int) (shell.Page, error) {
	num, err := optionalInt(c, "pageNum")
	if err != nil {
		return shell.Page{}, err
	}

	size, err := optionalInt(c, "pageSize")
	if err != nil {
		return shell.Page{}, err
	}

	return shell.Page{Num: num, Size: size}.Normalize(maxPageSize), nil
}

func optionalInt(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Join(ErrInvalidRequest, errors.New(name+" must be a number"))
	}

	if value > math.MaxInt32 {
		return 0, errors.Join(ErrInvalidRequest, errors.New(name+" must be at most 2147483647"))
	}

	return value, nil
}

// QueryInt reads a required integer query parameter between 1 and math.MaxInt32.
func QueryInt(c echo.Context, name string) (int, error) {
	value, err := optionalInt(c, name)
	if err != nil {
		return 0, err
	}

	if value < 1 {
		return 0, errors.Join(ErrInvalidRequest, errors.New(name+" must be at least 1"))
	}

	return value, nil
}

// PathInt64 reads a positive int64 path parameter.
func PathInt64(c echo.Context, name string) (int64, error) {
	value, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || value < 1 {
		return 0, errors.Join(ErrInvalidRequest, errors.New(name+" must be a positive number"))
	}

	return value, nil
}
