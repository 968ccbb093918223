package pagination

import (
	"net/url"
	"strconv"
)

// Query parameter names understood by list endpoints.
const (
	ParamPage     = "page"
	ParamPageSize = "page_size"
)

// DefaultPageSize is used when a loader or endpoint is given no size.
const DefaultPageSize = 20

// Page is one page of a list response: {items, total, pages}.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// State is the client-side pagination position of a list view.
type State struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
	Pages    int `json:"pages"`
}

// NewState returns page 1 with the given size.
func NewState(pageSize int) State {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return State{Page: 1, PageSize: pageSize}
}

// ClampPage bounds page to [1, max(pages, 1)].
func ClampPage(page, pages int) int {
	upper := pages
	if upper < 1 {
		upper = 1
	}
	if page > upper {
		page = upper
	}
	if page < 1 {
		page = 1
	}
	return page
}

// Query builds list query parameters: page and page_size, plus every
// filter with a non-empty value. Filters never override page/page_size.
func Query(page, pageSize int, filters url.Values) url.Values {
	q := url.Values{}
	for key, values := range filters {
		if key == ParamPage || key == ParamPageSize {
			continue
		}
		for _, v := range values {
			if v != "" {
				q.Add(key, v)
			}
		}
	}
	q.Set(ParamPage, strconv.Itoa(page))
	q.Set(ParamPageSize, strconv.Itoa(pageSize))
	return q
}
