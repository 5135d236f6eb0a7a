package repository

import (
	"testing"

	"github.com/doug-martin/goqu/v9"
	"github.com/stretchr/testify/assert"
)

func TestQueryBuilderSkipsEmptyValues(t *testing.T) {
	qb := NewQueryBuilder()
	qb.AddCondition("status", "")
	qb.AddCondition("category_id", 0)
	qb.AddCondition("location_id", nil)
	assert.True(t, qb.IsEmpty())

	qb.AddCondition("status", "available")
	qb.AddCondition("category_id", 3)

	conditions := qb.BuildConditions(map[string]string{"status": "a.status"})
	assert.Equal(t, goqu.Ex{"a.status": "available", "category_id": 3}, conditions)
}

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name   string
		limit  int
		offset int
		want   Pagination
	}{
		{"defaults on zero", 0, 0, Pagination{Limit: DefaultLimit, Offset: 0}},
		{"too large limit", 500, 10, Pagination{Limit: DefaultLimit, Offset: 10}},
		{"negative offset", 50, -1, Pagination{Limit: 50, Offset: 0}},
		{"max limit kept", MaxLimit, 5, Pagination{Limit: MaxLimit, Offset: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewPagination(tt.limit, tt.offset))
		})
	}
}

func TestPaginationApply(t *testing.T) {
	ds := goqu.Dialect("postgres").From("assets")
	sql, _, err := NewPagination(10, 20).Apply(ds).ToSQL()
	assert.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "assets" LIMIT 10 OFFSET 20`, sql)
}

func TestLastNumberQueryOrdersByLength(t *testing.T) {
	ds := goqu.Dialect("postgres").From("atk_items")
	sql, _, err := lastNumberQuery(ds, "code", "ATK-").ToSQL()
	assert.NoError(t, err)
	assert.Equal(t,
		`SELECT "code" FROM "atk_items" WHERE ("code" LIKE 'ATK-%') ORDER BY LENGTH("code") DESC, "code" DESC LIMIT 1`,
		sql)
}
