package borrowing

import (
	"context"
	"fmt"
	"time"

	"helpdesk/internal/repository"
	custom_error "helpdesk/pkg/errors"

	"github.com/doug-martin/goqu/v9"
)

type BorrowingRepository struct {
	repository *repository.Repository
}

func NewRepository(r *repository.Repository) *BorrowingRepository {
	return &BorrowingRepository{repository: r}
}

func (r *BorrowingRepository) prepareBorrowingQuery() *goqu.SelectDataset {
	return r.repository.GoquDBWrapper.
		From(goqu.T("asset_borrowings").As("b")).
		Join(goqu.T("assets").As("a"), goqu.On(goqu.Ex{"b.asset_id": goqu.I("a.id")})).
		Join(goqu.T("profiles").As("p"), goqu.On(goqu.Ex{"b.borrower_id": goqu.I("p.id")})).
		Select(
			goqu.I("b.id"),
			goqu.I("b.asset_id"),
			goqu.I("a.code").As("asset_code"),
			goqu.I("a.name").As("asset_name"),
			goqu.I("b.borrower_id"),
			goqu.I("p.full_name").As("borrower_name"),
			goqu.I("p.phone").As("borrower_phone"),
			goqu.I("b.purpose"),
			goqu.I("b.borrow_date"),
			goqu.I("b.due_date"),
			goqu.I("b.returned_at"),
			goqu.I("b.status"),
			goqu.I("b.approved_by"),
			goqu.I("b.approved_at"),
			goqu.I("b.notes"),
			goqu.I("b.return_condition"),
			goqu.I("b.rejection_reason"),
			goqu.I("b.created_at"),
			goqu.I("b.updated_at"),
		)
}

func (r *BorrowingRepository) HasActiveBorrowing(ctx context.Context, assetID int) (bool, error) {
	statuses := make([]string, len(ActiveStatuses))
	for i, s := range ActiveStatuses {
		statuses[i] = string(s)
	}

	count, err := r.repository.GoquDBWrapper.From("asset_borrowings").
		Where(goqu.Ex{"asset_id": assetID, "status": statuses}).
		CountContext(ctx)
	if err != nil {
		return false, fmt.Errorf("unable to check active borrowings: %w", err)
	}
	return count > 0, nil
}

func (r *BorrowingRepository) PersistBorrowing(ctx context.Context, b *Borrowing) error {
	query := r.repository.GoquDBWrapper.Insert("asset_borrowings").
		Rows(goqu.Record{
			"asset_id":    b.AssetID,
			"borrower_id": b.BorrowerID,
			"purpose":     b.Purpose,
			"borrow_date": b.BorrowDate,
			"due_date":    b.DueDate,
			"status":      string(b.Status),
			"notes":       b.Notes,
		}).
		Returning("id")

	if _, err := query.Executor().ScanValContext(ctx, &b.ID); err != nil {
		return custom_error.WrapDBError("failed to insert borrowing", err)
	}
	return nil
}

func (r *BorrowingRepository) GetBorrowing(ctx context.Context, id int) (*Borrowing, error) {
	var b Borrowing
	found, err := r.prepareBorrowingQuery().Where(goqu.Ex{"b.id": id}).Executor().ScanStructContext(ctx, &b)
	if err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}
	if !found {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (r *BorrowingRepository) GetBorrowings(ctx context.Context, filter BorrowingFilter) ([]Borrowing, int64, error) {
	qb := repository.NewQueryBuilder()
	qb.AddCondition("status", filter.Status)
	qb.AddCondition("asset_id", filter.AssetID)
	qb.AddCondition("borrower_id", filter.BorrowerID)

	query := r.prepareBorrowingQuery()
	if !qb.IsEmpty() {
		query = query.Where(qb.BuildConditions(map[string]string{
			"status":      "b.status",
			"asset_id":    "b.asset_id",
			"borrower_id": "b.borrower_id",
		}))
	}

	total, err := query.CountContext(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("unable to count borrowings: %w", err)
	}

	borrowings := []Borrowing{}
	if err := filter.Page.Apply(query.Order(goqu.I("b.id").Desc())).Executor().ScanStructsContext(ctx, &borrowings); err != nil {
		return nil, 0, fmt.Errorf("unable to execute SQL: %w", err)
	}
	return borrowings, total, nil
}

// GetOverdue lists borrowed assets whose due date is before today.
func (r *BorrowingRepository) GetOverdue(ctx context.Context, today time.Time) ([]Borrowing, error) {
	borrowings := []Borrowing{}
	query := r.prepareBorrowingQuery().
		Where(
			goqu.I("b.status").Eq(string(StatusBorrowed)),
			goqu.I("b.due_date").Lt(today),
		).
		Order(goqu.I("b.due_date").Asc())

	if err := query.Executor().ScanStructsContext(ctx, &borrowings); err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}
	return borrowings, nil
}

func (r *BorrowingRepository) ApplyTransition(ctx context.Context, id int, t Transition) error {
	record := goqu.Record{"status": string(t.To), "updated_at": time.Now()}
	if t.ApprovedBy != nil {
		record["approved_by"] = *t.ApprovedBy
	}
	if t.ApprovedAt != nil {
		record["approved_at"] = *t.ApprovedAt
	}
	if t.ReturnedAt != nil {
		record["returned_at"] = *t.ReturnedAt
	}
	if t.ReturnCondition != nil {
		record["return_condition"] = *t.ReturnCondition
	}
	if t.RejectionReason != nil {
		record["rejection_reason"] = *t.RejectionReason
	}
	if t.Notes != nil {
		record["notes"] = *t.Notes
	}

	result, err := r.repository.GoquDBWrapper.Update("asset_borrowings").
		Set(record).
		Where(goqu.Ex{"id": id, "status": string(t.From)}).
		Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to update borrowing: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrStale
	}
	return nil
}

func (r *BorrowingRepository) DeleteBorrowing(ctx context.Context, id int) error {
	result, err := r.repository.GoquDBWrapper.Delete("asset_borrowings").
		Where(goqu.Ex{"id": id, "status": string(StatusPending)}).
		Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete borrowing: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotDeletable
	}
	return nil
}
