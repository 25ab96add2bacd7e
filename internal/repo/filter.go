// Package repo implements the data persistence layer for user records,
// backed by GORM. This file is the query builder: it turns FilterCriteria
// into a list of SQL predicates without touching the database.
package repo

import (
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/go-user-records/internal/domain"
)

// Predicate is one WHERE fragment with a single bound argument.
type Predicate struct {
	Clause string
	Arg    any
}

// likeEscaper makes LIKE metacharacters in user input literal.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// BuildPredicates translates criteria into conjunctive predicates.
//
// Semantics:
//   - Name, City: case-insensitive "contains" match on the folded
//     name_key and city_key columns.
//   - MinAge, MaxAge: inclusive bounds, each applied independently.
//   - Empty strings are treated as absent.
//   - No criteria yields no predicates, i.e. every row matches.
//
// The result depends only on its input.
func BuildPredicates(f domain.FilterCriteria) []Predicate {
	var out []Predicate
	if f.Name != nil && *f.Name != "" {
		out = append(out, containsPredicate("name_key", *f.Name))
	}
	if f.City != nil && *f.City != "" {
		out = append(out, containsPredicate("city_key", *f.City))
	}
	if f.MinAge != nil {
		out = append(out, Predicate{Clause: "age >= ?", Arg: *f.MinAge})
	}
	if f.MaxAge != nil {
		out = append(out, Predicate{Clause: "age <= ?", Arg: *f.MaxAge})
	}
	return out
}

// Scope returns a GORM scope that ANDs every predicate onto the query.
// Because the predicates are combined conjunctively their order never
// changes the result set.
func Scope(preds []Predicate) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		for _, p := range preds {
			db = db.Where(p.Clause, p.Arg)
		}
		return db
	}
}

// containsPredicate matches needle inside a folded column. Both sides go
// through domain.Fold, so non-ASCII letters compare the same way on every
// driver.
func containsPredicate(column, needle string) Predicate {
	return Predicate{
		Clause: column + ` LIKE ? ESCAPE '\'`,
		Arg:    "%" + likeEscaper.Replace(domain.Fold(needle)) + "%",
	}
}
