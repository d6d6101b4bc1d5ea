package types

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Page captures offset pagination inputs parsed from the query string.
type Page struct {
	Number int
	Size   int
}

// Normalize clamps the page inputs to sane bounds.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = defaultPageSize
	}
	if p.Size > maxPageSize {
		p.Size = maxPageSize
	}
	return p
}

// Offset returns the row offset for the normalized page.
func (p Page) Offset() int {
	n := p.Normalize()
	return (n.Number - 1) * n.Size
}

// Paginated wraps a result list with total count metadata.
type Paginated[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"total_count"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
}
