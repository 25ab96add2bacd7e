package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FilterCriteria narrows a user query. Nil fields mean "no constraint".
// Name and City are case-insensitive substring matches; MinAge and MaxAge
// are inclusive bounds applied independently. An inverted age range is not
// an error, it simply matches nothing.
type FilterCriteria struct {
	Name   *string `json:"name"`
	City   *string `json:"city"`
	MinAge *int    `json:"min_age"`
	MaxAge *int    `json:"max_age"`
}

// IsEmpty reports whether no constraint is set.
func (f FilterCriteria) IsEmpty() bool {
	return f.Name == nil && f.City == nil && f.MinAge == nil && f.MaxAge == nil
}

// Matches evaluates the criteria against a single user in memory. It mirrors
// the SQL predicates built by the repository.
func (f FilterCriteria) Matches(u User) bool {
	if f.Name != nil && !containsFold(u.Name, *f.Name) {
		return false
	}
	if f.City != nil && !containsFold(u.City, *f.City) {
		return false
	}
	if f.MinAge != nil && u.Age < *f.MinAge {
		return false
	}
	if f.MaxAge != nil && u.Age > *f.MaxAge {
		return false
	}
	return true
}

// Fold lower-cases s for case-insensitive comparisons. A new Caser is used
// per call because cases.Caser is not safe for concurrent use.
func Fold(s string) string {
	return cases.Lower(language.Und).String(s)
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(Fold(haystack), Fold(needle))
}
