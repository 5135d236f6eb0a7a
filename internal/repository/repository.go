package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
)

type Repository struct {
	DB            *sql.DB
	GoquDBWrapper *goqu.Database
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		DB:            db,
		GoquDBWrapper: goqu.New("postgres", db),
	}
}

func WithTransaction(ctx context.Context, db *goqu.Database, fn func(tx *goqu.TxDatabase) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	err = fn(tx)
	return
}

// LastNumber returns the greatest value of column starting with base, or ""
// when none exists.
func LastNumber(ctx context.Context, db *goqu.Database, table, column, base string) (string, error) {
	var last string
	found, err := lastNumberQuery(db.From(table), column, base).
		Executor().ScanValContext(ctx, &last)
	if err != nil {
		return "", fmt.Errorf("failed to read last %s.%s: %w", table, column, err)
	}
	if !found {
		return "", nil
	}
	return last, nil
}

// Sequences outgrow their zero padding (ATK-9999 < ATK-10000 only by
// length), so the longest number of the base wins before lexical order.
func lastNumberQuery(ds *goqu.SelectDataset, column, base string) *goqu.SelectDataset {
	return ds.Select(goqu.C(column)).
		Where(goqu.C(column).Like(base + "%")).
		Order(goqu.Func("LENGTH", goqu.C(column)).Desc(), goqu.C(column).Desc()).
		Limit(1)
}
