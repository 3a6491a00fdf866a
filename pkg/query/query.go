// Package query parses "<category> in <location>" search queries.
package query

import (
	"regexp"
	"strings"
)

// Separator divides the category from the location. Matching is
// case-sensitive and only the first occurrence counts.
const Separator = " in "

// Query is a parsed search query.
type Query struct {
	Raw      string
	Category string
	Location string
}

// Parse splits s into category and location. It never fails: without a
// separator the whole string is the category and the location is empty.
func Parse(s string) Query {
	q := Query{Raw: s}
	category, location, found := strings.Cut(s, Separator)
	q.Category = strings.TrimSpace(category)
	if found {
		q.Location = strings.TrimSpace(location)
	}
	return q
}

// String returns the query as it was typed.
func (q Query) String() string {
	return q.Raw
}

var nonWordRun = regexp.MustCompile(`[^\w\-]+`)

// Slug returns a filesystem-safe name for the query. Runs of characters
// outside [A-Za-z0-9_-] collapse into a single underscore.
func (q Query) Slug() string {
	return strings.Trim(nonWordRun.ReplaceAllString(q.Raw, "_"), "_")
}
