// Package query builds the dynamic parts of lead queries: pagination
// arithmetic, allow-listed ORDER BY clauses and full-text search predicates.
package query

import "math"

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 101
)

// TotalPages returns ceil(total / pageSize) using integer arithmetic.
// pageSize must be >= 1; callers validate it before getting here.
func TotalPages(total, pageSize int) int {
	pages := total / pageSize
	if total%pageSize != 0 {
		pages++
	}
	return pages
}

// Offset returns the row offset of a 1-based page. Pages too large to
// address saturate at math.MaxInt, which still selects no rows.
func Offset(page, pageSize int) int {
	if page < 1 || pageSize < 1 {
		return 0
	}
	if page-1 > math.MaxInt/pageSize {
		return math.MaxInt
	}
	return (page - 1) * pageSize
}
