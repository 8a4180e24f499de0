package query_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msomdec/userdesk/internal/domain"
	"github.com/msomdec/userdesk/internal/repository/query"
)

func TestWhere_NoFilters(t *testing.T) {
	clause, args, err := query.Where(domain.UserQuery{}, query.Question)
	require.NoError(t, err)
	assert.Empty(t, clause)
	assert.Empty(t, args)
}

func TestWhere_EqualityAndIn(t *testing.T) {
	q := domain.UserQuery{Filters: []domain.Filter{
		{Field: "name", Values: []string{"Ann"}},
		{Field: "role", Values: []string{"admin", "publisher"}},
	}}

	clause, args, err := query.Where(q, query.Dollar)
	require.NoError(t, err)
	assert.Equal(t, " WHERE name = $1 AND role IN ($2, $3)", clause)
	assert.Equal(t, []any{"Ann", "admin", "publisher"}, args)

	clause, _, err = query.Where(q, query.Question)
	require.NoError(t, err)
	assert.Equal(t, " WHERE name = ? AND role IN (?, ?)", clause)
}

func TestWhere_UnknownField(t *testing.T) {
	q := domain.UserQuery{Filters: []domain.Filter{{Field: "password", Values: []string{"x"}}}}
	_, _, err := query.Where(q, query.Question)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestOrderBy(t *testing.T) {
	clause, err := query.OrderBy(domain.UserQuery{})
	require.NoError(t, err)
	assert.Equal(t, " ORDER BY created_at DESC, id", clause)

	clause, err = query.OrderBy(domain.UserQuery{Sort: []domain.SortField{
		{Field: "role"}, {Field: "createdAt", Desc: true},
	}})
	require.NoError(t, err)
	assert.Equal(t, " ORDER BY role, created_at DESC, id", clause)

	_, err = query.OrderBy(domain.UserQuery{Sort: []domain.SortField{{Field: "photo"}}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
