package models

// -----------------------------------------------------------------------------

// MPageResult is one page of the cache listing / search results.
// Pagination is 1-indexed; Pages = ceil(Total / PerPage).
type MPageResult struct {
	Stocks  []MStockCacheEntry `json:"stocks"`
	Total   int                `json:"total"`
	Page    int                `json:"page"`
	PerPage int                `json:"per_page"`
	Pages   int                `json:"pages"`
	Query   string             `json:"query,omitempty"`
}
