package models

type Filter struct {
	// Address is the checksummed recipient address.
	Address string
	// Unfinished limits withdrawals to those not yet observed as relayed.
	Unfinished bool
}

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

type Page struct {
	Offset int64
	Limit  int64
}

// NewPage converts a 1-indexed page number and a page size to offset and limit.
// Out of range values fall back to the first page and the default size.
func NewPage(page, limit int64) Page {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return Page{Offset: (page - 1) * limit, Limit: limit}
}

type PaginatedResult struct {
	Items      interface{} `json:"items"`
	TotalItems int64       `json:"totalItems"`
}
