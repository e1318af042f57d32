package query

import (
	"fmt"
	"strings"
)

// DefaultSearchLanguage is the text search configuration used when none is set.
const DefaultSearchLanguage = "english"

// Predicate is a parameterized SQL boolean expression. Placeholders are
// positional ($n) and Args holds their values in order.
type Predicate struct {
	SQL  string
	Args []any
}

// TextSearch turns free text into a predicate over a precomputed search
// index. Implementations must never splice user input into SQL.
type TextSearch interface {
	// Filter returns the predicate for text, numbering placeholders from
	// nextArg. ok is false when text is empty and no filter applies.
	Filter(text string, nextArg int) (pred Predicate, ok bool)
}

// PostgresTextSearch matches a stored tsvector column with websearch_to_tsquery,
// which tokenizes and stems the input using the given text search config.
type PostgresTextSearch struct {
	Column   string
	Language string
}

// NewPostgresTextSearch creates a search over column. An empty language
// falls back to DefaultSearchLanguage.
func NewPostgresTextSearch(column, language string) PostgresTextSearch {
	language = strings.TrimSpace(language)
	if language == "" {
		language = DefaultSearchLanguage
	}
	return PostgresTextSearch{Column: column, Language: language}
}

// Filter implements TextSearch.
func (s PostgresTextSearch) Filter(text string, nextArg int) (Predicate, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Predicate{}, false
	}
	return Predicate{
		SQL:  fmt.Sprintf("%s @@ websearch_to_tsquery($%d::regconfig, $%d)", s.Column, nextArg, nextArg+1),
		Args: []any{s.Language, text},
	}, true
}
