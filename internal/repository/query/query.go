// Package query renders domain.UserQuery into SQL fragments shared by the
// SQLite and Postgres user repositories.
package query

import (
	"fmt"
	"strings"

	"github.com/msomdec/userdesk/internal/domain"
)

// Placeholder returns the bind marker for the n-th argument (1-based).
type Placeholder func(n int) string

// Question is the SQLite placeholder style.
func Question(int) string { return "?" }

// Dollar is the Postgres placeholder style.
func Dollar(n int) string { return fmt.Sprintf("$%d", n) }

var filterColumns = map[string]string{
	"name":  "name",
	"email": "email",
	"role":  "role",
}

var sortColumns = map[string]string{
	"name":      "name",
	"email":     "email",
	"role":      "role",
	"createdAt": "created_at",
}

// Where renders the WHERE clause (including the keyword, or "" when there are
// no filters) and its arguments. Placeholders are numbered from 1.
func Where(q domain.UserQuery, ph Placeholder) (string, []any, error) {
	if len(q.Filters) == 0 {
		return "", nil, nil
	}

	var (
		conds []string
		args  []any
	)
	for _, f := range q.Filters {
		col, ok := filterColumns[f.Field]
		if !ok {
			return "", nil, domain.Errorf(domain.ErrInvalidInput, "Cannot filter on %s", f.Field)
		}
		if len(f.Values) == 0 {
			continue
		}
		marks := make([]string, len(f.Values))
		for i, v := range f.Values {
			args = append(args, v)
			marks[i] = ph(len(args))
		}
		if len(marks) == 1 {
			conds = append(conds, col+" = "+marks[0])
		} else {
			conds = append(conds, col+" IN ("+strings.Join(marks, ", ")+")")
		}
	}
	if len(conds) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

// OrderBy renders the ORDER BY clause. With no sort fields results are
// newest first. id is always appended so paging is stable.
func OrderBy(q domain.UserQuery) (string, error) {
	if len(q.Sort) == 0 {
		return " ORDER BY created_at DESC, id", nil
	}
	parts := make([]string, 0, len(q.Sort)+1)
	for _, s := range q.Sort {
		col, ok := sortColumns[s.Field]
		if !ok {
			return "", domain.Errorf(domain.ErrInvalidInput, "Cannot sort on %s", s.Field)
		}
		if s.Desc {
			col += " DESC"
		}
		parts = append(parts, col)
	}
	parts = append(parts, "id")
	return " ORDER BY " + strings.Join(parts, ", "), nil
}
