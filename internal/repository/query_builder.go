package repository

import "github.com/doug-martin/goqu/v9"

type QueryBuilder interface {
	AddCondition(key string, value interface{})
	BuildConditions(aliases map[string]string) goqu.Ex
	IsEmpty() bool
}

// Pagination is a limit/offset window applied to list queries.
type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// NewPagination clamps limit to [1, MaxLimit] and offset to >= 0.
func NewPagination(limit, offset int) Pagination {
	if limit < 1 || limit > MaxLimit {
		limit = DefaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	return Pagination{Limit: limit, Offset: offset}
}

func (p Pagination) Apply(ds *goqu.SelectDataset) *goqu.SelectDataset {
	return ds.Limit(uint(p.Limit)).Offset(uint(p.Offset))
}
