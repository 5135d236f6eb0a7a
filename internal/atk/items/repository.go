package items

import (
	"context"
	"fmt"
	"time"

	"helpdesk/internal/repository"
	custom_error "helpdesk/pkg/errors"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
)

type ItemRepository struct {
	repository *repository.Repository
}

func NewRepository(r *repository.Repository) *ItemRepository {
	return &ItemRepository{repository: r}
}

var itemColumns = []interface{}{
	"id", "code", "name", "category", "unit", "stock", "min_stock", "price",
	"location", "description", "image_url", "created_at", "updated_at",
}

func (r *ItemRepository) prepareQuery(filter ItemFilter) *goqu.SelectDataset {
	query := r.repository.GoquDBWrapper.From("atk_items").Select(itemColumns...)

	qb := repository.NewQueryBuilder()
	qb.AddCondition("category", filter.Category)
	if !qb.IsEmpty() {
		query = query.Where(qb.BuildConditions(nil))
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where(goqu.Or(goqu.C("code").ILike(pattern), goqu.C("name").ILike(pattern)))
	}
	if filter.LowStock {
		query = query.Where(goqu.C("stock").Lte(goqu.C("min_stock")))
	}
	return query
}

func (r *ItemRepository) GetItems(ctx context.Context, filter ItemFilter) ([]Item, int64, error) {
	query := r.prepareQuery(filter)

	total, err := query.ClearSelect().CountContext(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("unable to count items: %w", err)
	}

	items := []Item{}
	if err := filter.Page.Apply(query.Order(goqu.C("code").Asc())).Executor().ScanStructsContext(ctx, &items); err != nil {
		return nil, 0, fmt.Errorf("unable to execute SQL: %w", err)
	}
	return items, total, nil
}

func (r *ItemRepository) GetLowStock(ctx context.Context) ([]Item, error) {
	items := []Item{}
	query := r.prepareQuery(ItemFilter{LowStock: true}).
		Order(goqu.L("stock - min_stock").Asc(), goqu.C("code").Asc())
	if err := query.Executor().ScanStructsContext(ctx, &items); err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}
	return items, nil
}

func (r *ItemRepository) GetItem(ctx context.Context, id int) (*Item, error) {
	var item Item
	found, err := r.repository.GoquDBWrapper.From("atk_items").
		Select(itemColumns...).
		Where(goqu.Ex{"id": id}).
		Executor().ScanStructContext(ctx, &item)
	if err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}
	if !found {
		return nil, ErrNotFound
	}
	return &item, nil
}

func (r *ItemRepository) LastCode(ctx context.Context, base string) (string, error) {
	return repository.LastNumber(ctx, r.repository.GoquDBWrapper, "atk_items", "code", base)
}

func itemRecord(item *Item) goqu.Record {
	return goqu.Record{
		"name":        item.Name,
		"category":    string(item.Category),
		"unit":        item.Unit,
		"min_stock":   item.MinStock,
		"price":       item.Price,
		"location":    item.Location,
		"description": item.Description,
	}
}

// PersistItem inserts the item with its opening stock. A positive opening
// stock gets an "in" ledger row so history always explains the stock.
func (r *ItemRepository) PersistItem(ctx context.Context, item *Item, createdBy int) error {
	return repository.WithTransaction(ctx, r.repository.GoquDBWrapper, func(tx *goqu.TxDatabase) error {
		record := itemRecord(item)
		record["code"] = item.Code
		record["stock"] = item.Stock

		if _, err := tx.Insert("atk_items").Rows(record).Returning("id").
			Executor().ScanValContext(ctx, &item.ID); err != nil {
			return custom_error.WrapDBError("failed to insert item", err)
		}

		if item.Stock == 0 {
			return nil
		}
		return insertHistory(ctx, tx, &StockHistory{
			ItemID:        item.ID,
			Type:          MovementIn,
			PreviousStock: 0,
			Change:        item.Stock,
			NewStock:      item.Stock,
			ReferenceType: strPtr("initial"),
			CreatedBy:     &createdBy,
		})
	})
}

// UpdateItem never touches stock; stock only moves through ApplyMovements.
func (r *ItemRepository) UpdateItem(ctx context.Context, item *Item) error {
	record := itemRecord(item)
	record["updated_at"] = time.Now()

	result, err := r.repository.GoquDBWrapper.Update("atk_items").
		Set(record).
		Where(goqu.Ex{"id": item.ID}).
		Executor().ExecContext(ctx)
	if err != nil {
		return custom_error.WrapDBError("failed to update item", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ItemRepository) UpdateImage(ctx context.Context, id int, url string) error {
	_, err := r.repository.GoquDBWrapper.Update("atk_items").
		Set(goqu.Record{"image_url": url, "updated_at": time.Now()}).
		Where(goqu.Ex{"id": id}).
		Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to update item image: %w", err)
	}
	return nil
}

func (r *ItemRepository) RemoveItem(ctx context.Context, id int) error {
	result, err := r.repository.GoquDBWrapper.Delete("atk_items").
		Where(goqu.Ex{"id": id}).
		Executor().ExecContext(ctx)
	if err != nil {
		return custom_error.WrapDBError("item is referenced by requests or history", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ItemRepository) GetHistory(ctx context.Context, itemID int, page repository.Pagination) ([]StockHistory, int64, error) {
	query := r.repository.GoquDBWrapper.
		From(goqu.T("atk_stock_history").As("h")).
		LeftJoin(goqu.T("profiles").As("p"), goqu.On(goqu.Ex{"h.created_by": goqu.I("p.id")})).
		Select(
			goqu.I("h.id"),
			goqu.I("h.item_id"),
			goqu.I("h.type"),
			goqu.I("h.previous_stock"),
			goqu.I("h.change"),
			goqu.I("h.new_stock"),
			goqu.I("h.reference_type"),
			goqu.I("h.reference_id"),
			goqu.I("h.notes"),
			goqu.I("h.created_by"),
			goqu.I("p.full_name").As("created_by_name"),
			goqu.I("h.created_at"),
		).
		Where(goqu.Ex{"h.item_id": itemID})

	total, err := query.ClearSelect().CountContext(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("unable to count stock history: %w", err)
	}

	history := []StockHistory{}
	if err := page.Apply(query.Order(goqu.I("h.id").Desc())).Executor().ScanStructsContext(ctx, &history); err != nil {
		return nil, 0, fmt.Errorf("unable to execute SQL: %w", err)
	}
	return history, total, nil
}

// ApplyMovements locks every affected item row, applies the movements in
// order and writes one ledger row each, all in a single transaction.
func (r *ItemRepository) ApplyMovements(ctx context.Context, movements []Movement) ([]StockHistory, error) {
	history := make([]StockHistory, 0, len(movements))

	err := repository.WithTransaction(ctx, r.repository.GoquDBWrapper, func(tx *goqu.TxDatabase) error {
		for _, m := range movements {
			h, err := applyMovement(ctx, tx, m)
			if err != nil {
				return err
			}
			history = append(history, *h)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return history, nil
}

func applyMovement(ctx context.Context, tx *goqu.TxDatabase, m Movement) (*StockHistory, error) {
	var previous int
	found, err := tx.From("atk_items").
		Select("stock").
		Where(goqu.Ex{"id": m.ItemID}).
		ForUpdate(exp.Wait).
		Executor().ScanValContext(ctx, &previous)
	if err != nil {
		return nil, fmt.Errorf("failed to lock item %d: %w", m.ItemID, err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, m.ItemID)
	}

	next, change := m.Apply(previous)
	if _, err := tx.Update("atk_items").
		Set(goqu.Record{"stock": next, "updated_at": time.Now()}).
		Where(goqu.Ex{"id": m.ItemID}).
		Executor().ExecContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to update stock of item %d: %w", m.ItemID, err)
	}

	h := &StockHistory{
		ItemID:        m.ItemID,
		Type:          m.Type,
		PreviousStock: previous,
		Change:        change,
		NewStock:      next,
		Notes:         m.Notes,
	}
	if m.ReferenceType != "" {
		h.ReferenceType = &m.ReferenceType
	}
	if m.ReferenceID != 0 {
		h.ReferenceID = &m.ReferenceID
	}
	if m.CreatedBy != 0 {
		h.CreatedBy = &m.CreatedBy
	}

	if err := insertHistory(ctx, tx, h); err != nil {
		return nil, err
	}
	return h, nil
}

func insertHistory(ctx context.Context, tx *goqu.TxDatabase, h *StockHistory) error {
	_, err := tx.Insert("atk_stock_history").
		Rows(goqu.Record{
			"item_id":        h.ItemID,
			"type":           string(h.Type),
			"previous_stock": h.PreviousStock,
			"change":         h.Change,
			"new_stock":      h.NewStock,
			"reference_type": h.ReferenceType,
			"reference_id":   h.ReferenceID,
			"notes":          h.Notes,
			"created_by":     h.CreatedBy,
		}).
		Returning("id", "created_at").
		Executor().ScanStructContext(ctx, h)
	if err != nil {
		return fmt.Errorf("failed to write stock history: %w", err)
	}
	return nil
}

func strPtr(s string) *string { return &s }
