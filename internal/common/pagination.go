package common

import (
	"net/http"
	"strconv"
)

// Page is a 1-based page request. Zero values are filled in by Clamp.
type Page struct {
	Number  int
	PerPage int
}

// ParsePage reads the page and limit query values. Unparseable values are
// left zero so the service defaults apply.
func ParsePage(r *http.Request) Page {
	q := r.URL.Query()
	n, _ := strconv.Atoi(q.Get("page"))
	per, _ := strconv.Atoi(q.Get("limit"))
	return Page{Number: n, PerPage: per}
}

// Clamp returns p with a page number of at least 1 and a page size within
// [1, maxPerPage], using defaultPerPage when none was requested.
func (p Page) Clamp(defaultPerPage, maxPerPage int) Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.PerPage < 1 {
		p.PerPage = defaultPerPage
	}
	if p.PerPage > maxPerPage {
		p.PerPage = maxPerPage
	}
	return p
}

func (p Page) Limit() int32  { return int32(p.PerPage) }
func (p Page) Offset() int32 { return int32((p.Number - 1) * p.PerPage) }

// Pagination is the list metadata returned next to "data".
type Pagination struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// Of describes p within a result set of total rows.
func (p Page) Of(total int64) Pagination {
	pages := 0
	if p.PerPage > 0 {
		pages = int((total + int64(p.PerPage) - 1) / int64(p.PerPage))
	}
	return Pagination{
		Page:       p.Number,
		PerPage:    p.PerPage,
		TotalItems: total,
		TotalPages: pages,
		HasNext:    p.Number < pages,
	}
}
