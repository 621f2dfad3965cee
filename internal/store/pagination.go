package store

const (
	// DefaultPageSize is the number of entries per page when the client doesn't ask for one.
	DefaultPageSize = 5
	// MaxPageSize caps how many entries a single page may return.
	MaxPageSize = 100
)

// PageParams contains page-number pagination request parameters.
type PageParams struct {
	Page     int // 1-based page number (defaults to 1)
	PageSize int // Items per page (defaults to 5, capped at 100)
}

// PagedResult contains one page of data and paging metadata.
type PagedResult[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// DefaultPageParams returns sensible defaults.
func DefaultPageParams() PageParams {
	return PageParams{
		Page:     1,
		PageSize: DefaultPageSize,
	}
}

// Validate checks and corrects page parameters in place.
// Out-of-range values are clamped rather than rejected.
func (p *PageParams) Validate() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
}

// Offset returns the SQL offset for this page.
func (p PageParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// NewPagedResult assembles a result page with computed metadata.
func NewPagedResult[T any](items []T, params PageParams, total int) *PagedResult[T] {
	totalPages := 0
	if total > 0 {
		totalPages = (total + params.PageSize - 1) / params.PageSize
	}
	return &PagedResult[T]{
		Items:      items,
		Page:       params.Page,
		PageSize:   params.PageSize,
		Total:      total,
		TotalPages: totalPages,
	}
}

// HasMore reports whether pages exist beyond this one.
func (r *PagedResult[T]) HasMore() bool {
	return r.Page < r.TotalPages
}
