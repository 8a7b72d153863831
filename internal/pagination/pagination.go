// Package pagination turns a page number and page size into SQL limits and
// wraps result slices with page metadata.
package pagination

import (
	"math"
	"strconv"
	"strings"
)

// Params is a normalized page request.
type Params struct {
	Page    int
	PerPage int
}

// New normalizes page and perPage to at least 1. Pages so large that their
// offset would overflow are capped, which still lies past any real data.
func New(page, perPage int) Params {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}
	// keep (page-1)*perPage within int so the offset cannot wrap negative
	if maxPage := math.MaxInt / perPage; page > maxPage {
		page = maxPage
	}
	return Params{Page: page, PerPage: perPage}
}

// Parse reads a page number from a query value. Anything that is not a
// positive integer means the first page.
func Parse(raw string, perPage int) Params {
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		page = 1
	}
	return New(page, perPage)
}

func (p Params) Limit() int {
	return p.PerPage
}

func (p Params) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Page is one slice of a larger collection.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

// NewPage wraps items with metadata. A nil slice becomes empty so that JSON
// renders [] rather than null.
func NewPage[T any](items []T, p Params, total int) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if total > 0 {
		pages = (total + p.PerPage - 1) / p.PerPage
	}
	return Page[T]{
		Items:      items,
		Page:       p.Page,
		PerPage:    p.PerPage,
		TotalCount: total,
		TotalPages: pages,
	}
}

// Map converts the items of a page while keeping its metadata.
func Map[T, U any](p Page[T], fn func(T) U) Page[U] {
	out := make([]U, len(p.Items))
	for i := range p.Items {
		out[i] = fn(p.Items[i])
	}
	return Page[U]{
		Items:      out,
		Page:       p.Page,
		PerPage:    p.PerPage,
		TotalCount: p.TotalCount,
		TotalPages: p.TotalPages,
	}
}
