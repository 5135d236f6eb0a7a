package purchase

import (
	"context"
	"fmt"
	"time"

	"helpdesk/internal/repository"
	custom_error "helpdesk/pkg/errors"

	"github.com/doug-martin/goqu/v9"
)

type PurchaseRepository struct {
	repository *repository.Repository
}

func NewRepository(r *repository.Repository) *PurchaseRepository {
	return &PurchaseRepository{repository: r}
}

var filterAliases = map[string]string{
	"status":       "pr.status",
	"requested_by": "pr.requested_by",
}

func (r *PurchaseRepository) prepareQuery() *goqu.SelectDataset {
	return r.repository.GoquDBWrapper.
		From(goqu.T("atk_purchase_requests").As("pr")).
		Join(goqu.T("profiles").As("p"), goqu.On(goqu.Ex{"pr.requested_by": goqu.I("p.id")})).
		Select(
			goqu.I("pr.id"),
			goqu.I("pr.number"),
			goqu.I("pr.requested_by"),
			goqu.I("p.full_name").As("requested_by_name"),
			goqu.I("pr.supplier"),
			goqu.I("pr.notes"),
			goqu.I("pr.status"),
			goqu.I("pr.total"),
			goqu.I("pr.submitted_at"),
			goqu.I("pr.completed_at"),
			goqu.I("pr.completed_by"),
			goqu.I("pr.created_at"),
			goqu.I("pr.updated_at"),
		)
}

func (r *PurchaseRepository) GetPurchaseRequests(ctx context.Context, filter PurchaseFilter) ([]PurchaseRequest, int64, error) {
	query := r.prepareQuery()
	qb := repository.NewQueryBuilder()
	qb.AddCondition("status", filter.Status)
	qb.AddCondition("requested_by", filter.RequestedBy)
	if !qb.IsEmpty() {
		query = query.Where(qb.BuildConditions(filterAliases))
	}

	total, err := query.ClearSelect().CountContext(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("unable to count purchase requests: %w", err)
	}

	requests := []PurchaseRequest{}
	if err := filter.Page.Apply(query.Order(goqu.I("pr.id").Desc())).Executor().ScanStructsContext(ctx, &requests); err != nil {
		return nil, 0, fmt.Errorf("unable to execute SQL: %w", err)
	}
	return requests, total, nil
}

func (r *PurchaseRepository) GetPurchaseRequest(ctx context.Context, id int) (*PurchaseRequest, error) {
	var pr PurchaseRequest
	found, err := r.prepareQuery().Where(goqu.Ex{"pr.id": id}).Executor().ScanStructContext(ctx, &pr)
	if err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}
	if !found {
		return nil, ErrNotFound
	}

	pr.Items = []Item{}
	items := r.repository.GoquDBWrapper.
		From(goqu.T("atk_purchase_request_items").As("pi")).
		Join(goqu.T("atk_items").As("i"), goqu.On(goqu.Ex{"pi.item_id": goqu.I("i.id")})).
		Select(
			goqu.I("pi.id"),
			goqu.I("pi.purchase_request_id"),
			goqu.I("pi.item_id"),
			goqu.I("i.code").As("item_code"),
			goqu.I("i.name").As("item_name"),
			goqu.I("i.unit"),
			goqu.I("pi.quantity"),
			goqu.I("pi.unit_price"),
		).
		Where(goqu.Ex{"pi.purchase_request_id": id}).
		Order(goqu.I("pi.id").Asc())
	if err := items.Executor().ScanStructsContext(ctx, &pr.Items); err != nil {
		return nil, fmt.Errorf("unable to load purchase request items: %w", err)
	}

	return &pr, nil
}

func (r *PurchaseRepository) LastNumber(ctx context.Context, base string) (string, error) {
	return repository.LastNumber(ctx, r.repository.GoquDBWrapper, "atk_purchase_requests", "number", base)
}

func lineRows(id int, lines []Line) []interface{} {
	rows := make([]interface{}, len(lines))
	for i, line := range lines {
		rows[i] = goqu.Record{
			"purchase_request_id": id,
			"item_id":             line.ItemID,
			"quantity":            line.Quantity,
			"unit_price":          line.UnitPrice,
		}
	}
	return rows
}

func (r *PurchaseRepository) PersistPurchaseRequest(ctx context.Context, pr *PurchaseRequest, lines []Line) error {
	return repository.WithTransaction(ctx, r.repository.GoquDBWrapper, func(tx *goqu.TxDatabase) error {
		if _, err := tx.Insert("atk_purchase_requests").
			Rows(goqu.Record{
				"number":       pr.Number,
				"requested_by": pr.RequestedBy,
				"supplier":     pr.Supplier,
				"notes":        pr.Notes,
				"status":       string(pr.Status),
				"total":        pr.Total,
			}).
			Returning("id").
			Executor().ScanValContext(ctx, &pr.ID); err != nil {
			return custom_error.WrapDBError("failed to insert purchase request", err)
		}

		if _, err := tx.Insert("atk_purchase_request_items").
			Rows(lineRows(pr.ID, lines)...).
			Executor().ExecContext(ctx); err != nil {
			return custom_error.WrapDBError("failed to insert purchase request items", err)
		}
		return nil
	})
}

func (r *PurchaseRepository) UpdatePurchaseRequest(ctx context.Context, pr *PurchaseRequest, lines []Line) error {
	return repository.WithTransaction(ctx, r.repository.GoquDBWrapper, func(tx *goqu.TxDatabase) error {
		result, err := tx.Update("atk_purchase_requests").
			Set(goqu.Record{
				"supplier":   pr.Supplier,
				"notes":      pr.Notes,
				"total":      pr.Total,
				"updated_at": time.Now(),
			}).
			Where(goqu.Ex{"id": pr.ID, "status": string(StatusDraft)}).
			Executor().ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to update purchase request: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return ErrStale
		}

		if _, err := tx.Delete("atk_purchase_request_items").
			Where(goqu.Ex{"purchase_request_id": pr.ID}).
			Executor().ExecContext(ctx); err != nil {
			return fmt.Errorf("failed to clear purchase request items: %w", err)
		}

		if _, err := tx.Insert("atk_purchase_request_items").
			Rows(lineRows(pr.ID, lines)...).
			Executor().ExecContext(ctx); err != nil {
			return custom_error.WrapDBError("failed to insert purchase request items", err)
		}
		return nil
	})
}

// ApplyStatus moves the request from one status to another and stamps the
// matching timestamp.
func (r *PurchaseRepository) ApplyStatus(ctx context.Context, id int, from, to Status, actorID int, at time.Time) error {
	record := goqu.Record{"status": string(to), "updated_at": at}
	switch {
	case to == StatusProcess && from == StatusDraft:
		record["submitted_at"] = at
	case to == StatusProcess:
		record["completed_at"] = nil
		record["completed_by"] = nil
	case to == StatusSuccess:
		record["completed_at"] = at
		record["completed_by"] = actorID
	case to == StatusDraft:
		record["submitted_at"] = nil
	}

	result, err := r.repository.GoquDBWrapper.Update("atk_purchase_requests").
		Set(record).
		Where(goqu.Ex{"id": id, "status": string(from)}).
		Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to update purchase request status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrStale
	}
	return nil
}

func (r *PurchaseRepository) RemovePurchaseRequest(ctx context.Context, id int) error {
	return repository.WithTransaction(ctx, r.repository.GoquDBWrapper, func(tx *goqu.TxDatabase) error {
		if _, err := tx.Delete("atk_purchase_request_items").
			Where(goqu.Ex{"purchase_request_id": id}).
			Executor().ExecContext(ctx); err != nil {
			return fmt.Errorf("failed to delete purchase request items: %w", err)
		}

		result, err := tx.Delete("atk_purchase_requests").
			Where(goqu.Ex{"id": id, "status": string(StatusDraft)}).
			Executor().ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete purchase request: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return ErrStale
		}
		return nil
	})
}
