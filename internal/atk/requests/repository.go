package requests

import (
	"context"
	"fmt"

	"helpdesk/internal/repository"
	custom_error "helpdesk/pkg/errors"

	"github.com/doug-martin/goqu/v9"
)

type RequestRepository struct {
	repository *repository.Repository
}

func NewRepository(r *repository.Repository) *RequestRepository {
	return &RequestRepository{repository: r}
}

var filterAliases = map[string]string{
	"status":       "r.status",
	"requester_id": "r.requester_id",
}

func (r *RequestRepository) prepareQuery() *goqu.SelectDataset {
	return r.repository.GoquDBWrapper.
		From(goqu.T("atk_requests").As("r")).
		Join(goqu.T("profiles").As("p"), goqu.On(goqu.Ex{"r.requester_id": goqu.I("p.id")})).
		Select(
			goqu.I("r.id"),
			goqu.I("r.number"),
			goqu.I("r.requester_id"),
			goqu.I("p.full_name").As("requester_name"),
			goqu.I("p.phone").As("requester_phone"),
			goqu.I("r.department"),
			goqu.I("r.purpose"),
			goqu.I("r.status"),
			goqu.I("r.approved_by"),
			goqu.I("r.approved_at"),
			goqu.I("r.rejection_reason"),
			goqu.I("r.fulfilled_by"),
			goqu.I("r.fulfilled_at"),
			goqu.I("r.created_at"),
			goqu.I("r.updated_at"),
		)
}

func (r *RequestRepository) GetRequests(ctx context.Context, filter RequestFilter) ([]Request, int64, error) {
	query := r.prepareQuery()
	qb := repository.NewQueryBuilder()
	qb.AddCondition("status", filter.Status)
	qb.AddCondition("requester_id", filter.RequesterID)
	if !qb.IsEmpty() {
		query = query.Where(qb.BuildConditions(filterAliases))
	}

	total, err := query.ClearSelect().CountContext(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("unable to count requests: %w", err)
	}

	list := []Request{}
	if err := filter.Page.Apply(query.Order(goqu.I("r.id").Desc())).Executor().ScanStructsContext(ctx, &list); err != nil {
		return nil, 0, fmt.Errorf("unable to execute SQL: %w", err)
	}
	return list, total, nil
}

func (r *RequestRepository) GetRequest(ctx context.Context, id int) (*Request, error) {
	var req Request
	found, err := r.prepareQuery().Where(goqu.Ex{"r.id": id}).Executor().ScanStructContext(ctx, &req)
	if err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}
	if !found {
		return nil, ErrNotFound
	}

	req.Items = []Item{}
	lines := r.repository.GoquDBWrapper.
		From(goqu.T("atk_request_items").As("ri")).
		Join(goqu.T("atk_items").As("i"), goqu.On(goqu.Ex{"ri.item_id": goqu.I("i.id")})).
		Select(
			goqu.I("ri.id"),
			goqu.I("ri.request_id"),
			goqu.I("ri.item_id"),
			goqu.I("i.code").As("item_code"),
			goqu.I("i.name").As("item_name"),
			goqu.I("i.unit"),
			goqu.I("ri.quantity"),
			goqu.I("ri.approved_quantity"),
		).
		Where(goqu.Ex{"ri.request_id": id}).
		Order(goqu.I("ri.id").Asc())
	if err := lines.Executor().ScanStructsContext(ctx, &req.Items); err != nil {
		return nil, fmt.Errorf("unable to load request items: %w", err)
	}

	return &req, nil
}

func (r *RequestRepository) LastNumber(ctx context.Context, base string) (string, error) {
	return repository.LastNumber(ctx, r.repository.GoquDBWrapper, "atk_requests", "number", base)
}

func lineRows(id int, lines []Line) []interface{} {
	rows := make([]interface{}, len(lines))
	for i, line := range lines {
		rows[i] = goqu.Record{"request_id": id, "item_id": line.ItemID, "quantity": line.Quantity}
	}
	return rows
}

func (r *RequestRepository) PersistRequest(ctx context.Context, req *Request, lines []Line) error {
	return repository.WithTransaction(ctx, r.repository.GoquDBWrapper, func(tx *goqu.TxDatabase) error {
		if _, err := tx.Insert("atk_requests").
			Rows(goqu.Record{
				"number":       req.Number,
				"requester_id": req.RequesterID,
				"department":   req.Department,
				"purpose":      req.Purpose,
				"status":       string(req.Status),
			}).
			Returning("id").
			Executor().ScanValContext(ctx, &req.ID); err != nil {
			return custom_error.WrapDBError("failed to insert request", err)
		}

		if _, err := tx.Insert("atk_request_items").
			Rows(lineRows(req.ID, lines)...).
			Executor().ExecContext(ctx); err != nil {
			return custom_error.WrapDBError("failed to insert request items", err)
		}
		return nil
	})
}

func (r *RequestRepository) UpdateRequest(ctx context.Context, req *Request, lines []Line) error {
	return repository.WithTransaction(ctx, r.repository.GoquDBWrapper, func(tx *goqu.TxDatabase) error {
		result, err := tx.Update("atk_requests").
			Set(goqu.Record{"department": req.Department, "purpose": req.Purpose, "updated_at": goqu.L("NOW()")}).
			Where(goqu.Ex{"id": req.ID, "status": string(StatusPending)}).
			Executor().ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to update request: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return ErrStale
		}

		if _, err := tx.Delete("atk_request_items").
			Where(goqu.Ex{"request_id": req.ID}).
			Executor().ExecContext(ctx); err != nil {
			return fmt.Errorf("failed to clear request items: %w", err)
		}

		if _, err := tx.Insert("atk_request_items").
			Rows(lineRows(req.ID, lines)...).
			Executor().ExecContext(ctx); err != nil {
			return custom_error.WrapDBError("failed to insert request items", err)
		}
		return nil
	})
}

// ApplyTransition writes the status change and, on approval, the approved
// quantity of every line, in one transaction guarded by the current status.
func (r *RequestRepository) ApplyTransition(ctx context.Context, id int, t Transition) error {
	record := goqu.Record{"status": string(t.To), "updated_at": t.At}
	switch t.To {
	case StatusApproved:
		record["approved_by"] = t.ActorID
		record["approved_at"] = t.At
	case StatusRejected:
		record["approved_by"] = t.ActorID
		record["approved_at"] = t.At
		record["rejection_reason"] = t.Reason
	case StatusFulfilled:
		record["fulfilled_by"] = t.ActorID
		record["fulfilled_at"] = t.At
	}
	if t.From == StatusFulfilled {
		record["fulfilled_by"] = nil
		record["fulfilled_at"] = nil
	}

	return repository.WithTransaction(ctx, r.repository.GoquDBWrapper, func(tx *goqu.TxDatabase) error {
		result, err := tx.Update("atk_requests").
			Set(record).
			Where(goqu.Ex{"id": id, "status": string(t.From)}).
			Executor().ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to update request status: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return ErrStale
		}

		for lineID, qty := range t.Approved {
			if _, err := tx.Update("atk_request_items").
				Set(goqu.Record{"approved_quantity": qty}).
				Where(goqu.Ex{"id": lineID, "request_id": id}).
				Executor().ExecContext(ctx); err != nil {
				return fmt.Errorf("failed to record approved quantity: %w", err)
			}
		}
		return nil
	})
}

func (r *RequestRepository) RemoveRequest(ctx context.Context, id int) error {
	return repository.WithTransaction(ctx, r.repository.GoquDBWrapper, func(tx *goqu.TxDatabase) error {
		if _, err := tx.Delete("atk_request_items").
			Where(goqu.Ex{"request_id": id}).
			Executor().ExecContext(ctx); err != nil {
			return fmt.Errorf("failed to delete request items: %w", err)
		}

		result, err := tx.Delete("atk_requests").
			Where(goqu.Ex{"id": id, "status": string(StatusPending)}).
			Executor().ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete request: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return ErrStale
		}
		return nil
	})
}
