package query

import (
	"fmt"
	"strings"

	"sales_leads_backend/platform/apperr"
)

// Direction is a SQL sort direction.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// TieBreakField is appended to every sort so that pagination is stable.
const TieBreakField = "created_at"

// SortTerm is a single (field, direction) pair.
type SortTerm struct {
	Field     string
	Direction Direction
}

// SortBuilder parses user sort specifications against a fixed allow-list.
// The allow-list maps API field names to SQL column expressions and is
// never modified after construction.
type SortBuilder struct {
	columns map[string]string
}

// NewSortBuilder creates a builder for the given field -> column mapping.
// The tie-break field must be part of the allow-list.
func NewSortBuilder(columns map[string]string) (*SortBuilder, error) {
	if _, ok := columns[TieBreakField]; !ok {
		return nil, fmt.Errorf("sort allow-list must contain %q", TieBreakField)
	}
	copied := make(map[string]string, len(columns))
	for field, column := range columns {
		copied[field] = column
	}
	return &SortBuilder{columns: copied}, nil
}

// MustSortBuilder is like NewSortBuilder but panics on an invalid allow-list.
func MustSortBuilder(columns map[string]string) *SortBuilder {
	b, err := NewSortBuilder(columns)
	if err != nil {
		panic(err)
	}
	return b
}

// Parse turns "-created_at,name" into ordered sort terms. Fields keep the
// order they were given in and (created_at, DESC) is always appended,
// even when created_at was already requested.
func (b *SortBuilder) Parse(expr string) ([]SortTerm, error) {
	terms := make([]SortTerm, 0, 4)

	for _, token := range strings.Split(expr, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}

		direction := Asc
		field := token
		if strings.HasPrefix(token, "-") {
			direction = Desc
			field = strings.TrimSpace(token[1:])
		}

		if _, ok := b.columns[field]; !ok {
			return nil, apperr.Validation("Invalid sort field: " + field)
		}
		terms = append(terms, SortTerm{Field: field, Direction: direction})
	}

	return append(terms, SortTerm{Field: TieBreakField, Direction: Desc}), nil
}

// OrderBy renders terms as an ORDER BY list. Only allow-listed column
// expressions end up in the SQL; unknown fields are an error.
func (b *SortBuilder) OrderBy(terms []SortTerm) (string, error) {
	if len(terms) == 0 {
		terms = []SortTerm{{Field: TieBreakField, Direction: Desc}}
	}

	parts := make([]string, 0, len(terms))
	for _, term := range terms {
		column, ok := b.columns[term.Field]
		if !ok {
			return "", apperr.Validation("Invalid sort field: " + term.Field)
		}
		direction := Asc
		if term.Direction == Desc {
			direction = Desc
		}
		parts = append(parts, column+" "+string(direction))
	}
	return strings.Join(parts, ", "), nil
}
