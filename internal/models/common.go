// Package models holds the stored records of the planning model. They are
// plain values; the repository turns them into a planning.Model.
package models

import "errors"

// ErrInvalid is wrapped by every Validate error.
var ErrInvalid = errors.New("invalid record")

// Pagination holds pagination parameters.
type Pagination struct {
	Page     int
	PageSize int
}

// DefaultPagination returns default pagination settings.
func DefaultPagination() Pagination {
	return Pagination{
		Page:     1,
		PageSize: 50,
	}
}

// Offset calculates the SQL offset for the current page.
func (p Pagination) Offset() int {
	if p.Page < 1 {
		p.Page = 1
	}
	return (p.Page - 1) * p.Limit()
}

// Limit returns the page size as limit.
func (p Pagination) Limit() int {
	if p.PageSize < 1 {
		return 50
	}
	if p.PageSize > 500 {
		return 500
	}
	return p.PageSize
}

// TotalPages calculates the total number of pages.
func (p Pagination) TotalPages(total int) int {
	size := p.Limit()
	pages := total / size
	if total%size > 0 {
		pages++
	}
	if pages < 1 {
		return 1
	}
	return pages
}
