package distribution

import (
	"context"
	"fmt"
	"time"

	"helpdesk/internal/repository"
	custom_error "helpdesk/pkg/errors"

	"github.com/doug-martin/goqu/v9"
)

type DistributionRepository struct {
	repository *repository.Repository
}

func NewRepository(r *repository.Repository) *DistributionRepository {
	return &DistributionRepository{repository: r}
}

var filterAliases = map[string]string{
	"status":         "d.status",
	"to_location_id": "d.to_location_id",
}

func (r *DistributionRepository) prepareQuery() *goqu.SelectDataset {
	return r.repository.GoquDBWrapper.
		From(goqu.T("asset_distributions").As("d")).
		LeftJoin(goqu.T("locations").As("fl"), goqu.On(goqu.Ex{"d.from_location_id": goqu.I("fl.id")})).
		Join(goqu.T("locations").As("tl"), goqu.On(goqu.Ex{"d.to_location_id": goqu.I("tl.id")})).
		Join(goqu.T("profiles").As("p"), goqu.On(goqu.Ex{"d.created_by": goqu.I("p.id")})).
		Select(
			goqu.I("d.id"),
			goqu.I("d.document_number"),
			goqu.I("d.from_location_id"),
			goqu.I("fl.name").As("from_location_name"),
			goqu.I("d.to_location_id"),
			goqu.I("tl.name").As("to_location_name"),
			goqu.I("d.recipient_name"),
			goqu.I("d.recipient_phone"),
			goqu.I("d.distribution_date"),
			goqu.I("d.notes"),
			goqu.I("d.status"),
			goqu.I("d.document_url"),
			goqu.I("d.created_by"),
			goqu.I("p.full_name").As("created_by_name"),
			goqu.I("d.completed_at"),
			goqu.I("d.created_at"),
			goqu.I("d.updated_at"),
		)
}

func (r *DistributionRepository) GetDistributions(ctx context.Context, filter DistributionFilter) ([]Distribution, int64, error) {
	query := r.prepareQuery()

	qb := repository.NewQueryBuilder()
	qb.AddCondition("status", filter.Status)
	qb.AddCondition("to_location_id", filter.ToLocationID)
	if !qb.IsEmpty() {
		query = query.Where(qb.BuildConditions(filterAliases))
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where(goqu.Or(
			goqu.I("d.document_number").ILike(pattern),
			goqu.I("d.recipient_name").ILike(pattern),
		))
	}

	total, err := query.ClearSelect().CountContext(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("unable to count distributions: %w", err)
	}

	distributions := []Distribution{}
	if err := filter.Page.Apply(query.Order(goqu.I("d.id").Desc())).Executor().ScanStructsContext(ctx, &distributions); err != nil {
		return nil, 0, fmt.Errorf("unable to execute SQL: %w", err)
	}
	return distributions, total, nil
}

func (r *DistributionRepository) GetDistribution(ctx context.Context, id int) (*Distribution, error) {
	var d Distribution
	found, err := r.prepareQuery().Where(goqu.Ex{"d.id": id}).Executor().ScanStructContext(ctx, &d)
	if err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}
	if !found {
		return nil, ErrNotFound
	}

	d.Items = []Item{}
	items := r.repository.GoquDBWrapper.
		From(goqu.T("asset_distribution_items").As("di")).
		Join(goqu.T("assets").As("a"), goqu.On(goqu.Ex{"di.asset_id": goqu.I("a.id")})).
		Select(
			goqu.I("di.id"),
			goqu.I("di.distribution_id"),
			goqu.I("di.asset_id"),
			goqu.I("a.code").As("asset_code"),
			goqu.I("a.name").As("asset_name"),
			goqu.I("a.serial_number"),
			goqu.I("a.condition"),
		).
		Where(goqu.Ex{"di.distribution_id": id}).
		Order(goqu.I("di.id").Asc())
	if err := items.Executor().ScanStructsContext(ctx, &d.Items); err != nil {
		return nil, fmt.Errorf("unable to load distribution items: %w", err)
	}

	return &d, nil
}

func (r *DistributionRepository) LastNumber(ctx context.Context, base string) (string, error) {
	return repository.LastNumber(ctx, r.repository.GoquDBWrapper, "asset_distributions", "document_number", base)
}

func headerRecord(d *Distribution) goqu.Record {
	return goqu.Record{
		"from_location_id":  d.FromLocationID,
		"to_location_id":    d.ToLocationID,
		"recipient_name":    d.RecipientName,
		"recipient_phone":   d.RecipientPhone,
		"distribution_date": d.DistributionDate,
		"notes":             d.Notes,
	}
}

func (r *DistributionRepository) PersistDistribution(ctx context.Context, d *Distribution) error {
	record := headerRecord(d)
	record["document_number"] = d.DocumentNumber
	record["status"] = string(d.Status)
	record["created_by"] = d.CreatedBy

	query := r.repository.GoquDBWrapper.Insert("asset_distributions").Rows(record).Returning("id")
	if _, err := query.Executor().ScanValContext(ctx, &d.ID); err != nil {
		return custom_error.WrapDBError("failed to insert distribution", err)
	}
	return nil
}

func itemRows(distributionID int, assetIDs []int) []interface{} {
	rows := make([]interface{}, len(assetIDs))
	for i, assetID := range assetIDs {
		rows[i] = goqu.Record{"distribution_id": distributionID, "asset_id": assetID}
	}
	return rows
}

func (r *DistributionRepository) PersistItems(ctx context.Context, distributionID int, assetIDs []int) error {
	_, err := r.repository.GoquDBWrapper.Insert("asset_distribution_items").
		Rows(itemRows(distributionID, assetIDs)...).
		Executor().ExecContext(ctx)
	if err != nil {
		return custom_error.WrapDBError("failed to insert distribution items", err)
	}
	return nil
}

// UpdateDistribution rewrites the header and replaces the item list of a
// draft distribution in one transaction.
func (r *DistributionRepository) UpdateDistribution(ctx context.Context, d *Distribution, assetIDs []int) error {
	return repository.WithTransaction(ctx, r.repository.GoquDBWrapper, func(tx *goqu.TxDatabase) error {
		record := headerRecord(d)
		record["updated_at"] = time.Now()

		result, err := tx.Update("asset_distributions").
			Set(record).
			Where(goqu.Ex{"id": d.ID, "status": string(StatusDraft)}).
			Executor().ExecContext(ctx)
		if err != nil {
			return custom_error.WrapDBError("failed to update distribution", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return ErrStale
		}

		if _, err := tx.Delete("asset_distribution_items").
			Where(goqu.Ex{"distribution_id": d.ID}).
			Executor().ExecContext(ctx); err != nil {
			return fmt.Errorf("failed to clear distribution items: %w", err)
		}

		if _, err := tx.Insert("asset_distribution_items").
			Rows(itemRows(d.ID, assetIDs)...).
			Executor().ExecContext(ctx); err != nil {
			return custom_error.WrapDBError("failed to insert distribution items", err)
		}
		return nil
	})
}

// ApplyStatus moves the distribution from one status to another. ErrStale
// means someone else moved it first.
func (r *DistributionRepository) ApplyStatus(ctx context.Context, id int, from, to Status, documentURL *string, completedAt *time.Time) error {
	record := goqu.Record{"status": string(to), "updated_at": time.Now()}
	if documentURL != nil {
		record["document_url"] = *documentURL
	}
	if completedAt != nil {
		record["completed_at"] = *completedAt
	}

	result, err := r.repository.GoquDBWrapper.Update("asset_distributions").
		Set(record).
		Where(goqu.Ex{"id": id, "status": string(from)}).
		Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to update distribution status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrStale
	}
	return nil
}

// RemoveDistribution deletes a draft and its items.
func (r *DistributionRepository) RemoveDistribution(ctx context.Context, id int) error {
	return repository.WithTransaction(ctx, r.repository.GoquDBWrapper, func(tx *goqu.TxDatabase) error {
		if _, err := tx.Delete("asset_distribution_items").
			Where(goqu.Ex{"distribution_id": id}).
			Executor().ExecContext(ctx); err != nil {
			return fmt.Errorf("failed to delete distribution items: %w", err)
		}

		result, err := tx.Delete("asset_distributions").
			Where(goqu.Ex{"id": id}).
			Executor().ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete distribution: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
}
