package shell

const (
	DefaultPageNum  = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Page is a 1-based page request.
type Page struct {
	Num  int
	Size int
}

// Normalize applies defaults and caps Size at maxSize (MaxPageSize when maxSize <= 0).
func (p Page) Normalize(maxSize int) Page {
	if maxSize <= 0 {
		maxSize = MaxPageSize
	}

	if p.Num < 1 {
		p.Num = DefaultPageNum
	}

	if p.Size < 1 {
		p.Size = DefaultPageSize
	}

	if p.Size > maxSize {
		p.Size = maxSize
	}

	return p
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	return (p.Num - 1) * p.Size
}

// PageResult is one page of records plus the totals needed to render a pager.
type PageResult[T any] struct {
	Current int   `json:"current"`
	Size    int   `json:"size"`
	Total   int64 `json:"total"`
	Pages   int64 `json:"pages"`
	Records []T   `json:"records"`
}

// NewPageResult builds a PageResult, never returning a nil Records slice.
func NewPageResult[T any](page Page, total int64, records []T) PageResult[T] {
	if records == nil {
		records = []T{}
	}

	var pages int64
	if page.Size > 0 {
		pages = (total + int64(page.Size) - 1) / int64(page.Size)
	}

	return PageResult[T]{
		Current: page.Num,
		Size:    page.Size,
		Total:   total,
		Pages:   pages,
		Records: records,
	}
}

// MapPageResult converts the records of a page, keeping the totals.
func MapPageResult[T, U any](in PageResult[T], fn func(T) U) PageResult[U] {
	out := make([]U, 0, len(in.Records))
	for _, record := range in.Records {
		out = append(out, fn(record))
	}

	return PageResult[U]{
		Current: in.Current,
		Size:    in.Size,
		Total:   in.Total,
		Pages:   in.Pages,
		Records: out,
	}
}
