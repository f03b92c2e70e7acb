package helper

import "math"

const (
	DefaultPage      = 1
	PublicPerPage    = 12
	AdminPerPage     = 15
	CategoryPerPage  = 10
	MaxPerPage       = 100
	DirectoryPerPage = 15
)

// Page is a normalised page request.
type Page struct {
	Page    int
	PerPage int
}

// NormalizePage falls back to page 1 and def for anything that is not a
// positive integer, and caps the page size at MaxPerPage.
func NormalizePage(page, perPage, def int) Page {
	if page < 1 {
		page = DefaultPage
	}
	if def < 1 {
		def = PublicPerPage
	}
	if perPage < 1 {
		perPage = def
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return Page{Page: page, PerPage: perPage}
}

func (p Page) Limit() int  { return p.PerPage }
func (p Page) Offset() int { return (p.Page - 1) * p.PerPage }

type Meta struct {
	Page       int   `json:"current_page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"last_page"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

func BuildMeta(total int64, p Page) Meta {
	totalPages := 0
	if total > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(p.PerPage)))
	}
	return Meta{
		Page:       p.Page,
		PerPage:    p.PerPage,
		Total:      total,
		TotalPages: totalPages,
		HasPrev:    p.Page > 1,
		HasNext:    totalPages > 0 && p.Page < totalPages,
	}
}

// Paginated is the list envelope payload.
type Paginated struct {
	Items interface{} `json:"items"`
	Meta  Meta        `json:"meta"`
}
