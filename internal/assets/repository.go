package assets

import (
	"context"
	"fmt"
	"time"

	"helpdesk/internal/repository"
	custom_error "helpdesk/pkg/errors"
	"helpdesk/pkg/metadata"

	"github.com/doug-martin/goqu/v9"
)

type AssetsRepository struct {
	repository *repository.Repository
}

func NewRepository(r *repository.Repository) *AssetsRepository {
	return &AssetsRepository{repository: r}
}

var filterAliases = map[string]string{
	"status":      "a.status",
	"category_id": "a.category_id",
	"location_id": "a.location_id",
}

func (r *AssetsRepository) prepareAssetQuery() *goqu.SelectDataset {
	return r.repository.GoquDBWrapper.
		From(goqu.T("assets").As("a")).
		Join(goqu.T("asset_categories").As("c"), goqu.On(goqu.Ex{"a.category_id": goqu.I("c.id")})).
		LeftJoin(goqu.T("locations").As("l"), goqu.On(goqu.Ex{"a.location_id": goqu.I("l.id")})).
		Select(
			goqu.I("a.id"),
			goqu.I("a.code"),
			goqu.I("a.name"),
			goqu.I("a.category_id"),
			goqu.I("c.code").As("category_code"),
			goqu.I("c.name").As("category_name"),
			goqu.I("a.location_id"),
			goqu.I("l.name").As("location_name"),
			goqu.I("a.brand"),
			goqu.I("a.model"),
			goqu.I("a.serial_number"),
			goqu.I("a.purchase_date"),
			goqu.I("a.purchase_price"),
			goqu.I("a.salvage_value"),
			goqu.I("a.useful_life_months"),
			goqu.I("a.origin"),
			goqu.I("a.status"),
			goqu.I("a.condition"),
			goqu.I("a.image_url"),
			goqu.I("a.notes"),
			goqu.I("a.created_at"),
			goqu.I("a.updated_at"),
		)
}

func applyFilter(query *goqu.SelectDataset, filter AssetFilter) *goqu.SelectDataset {
	qb := repository.NewQueryBuilder()
	qb.AddCondition("status", filter.Status)
	qb.AddCondition("category_id", filter.CategoryID)
	qb.AddCondition("location_id", filter.LocationID)
	if !qb.IsEmpty() {
		query = query.Where(qb.BuildConditions(filterAliases))
	}

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where(goqu.Or(
			goqu.I("a.code").ILike(pattern),
			goqu.I("a.name").ILike(pattern),
			goqu.I("a.serial_number").ILike(pattern),
		))
	}
	return query
}

func (r *AssetsRepository) GetAssets(ctx context.Context, filter AssetFilter) ([]Asset, int64, error) {
	query := applyFilter(r.prepareAssetQuery(), filter)

	total, err := query.ClearSelect().CountContext(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("unable to count assets: %w", err)
	}

	var flat []FlatAssetRecord
	if err := filter.Page.Apply(query.Order(goqu.I("a.id").Desc())).Executor().ScanStructsContext(ctx, &flat); err != nil {
		return nil, 0, fmt.Errorf("unable to execute SQL: %w", err)
	}

	assets := make([]Asset, len(flat))
	for i := range flat {
		assets[i] = flat[i].TransformToAsset()
	}
	return assets, total, nil
}

// GetAllAssets returns every asset matching filter, ignoring pagination.
func (r *AssetsRepository) GetAllAssets(ctx context.Context, filter AssetFilter) ([]Asset, error) {
	var flat []FlatAssetRecord
	query := applyFilter(r.prepareAssetQuery(), filter).Order(goqu.I("a.code").Asc())
	if err := query.Executor().ScanStructsContext(ctx, &flat); err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}

	assets := make([]Asset, len(flat))
	for i := range flat {
		assets[i] = flat[i].TransformToAsset()
	}
	return assets, nil
}

func (r *AssetsRepository) GetAsset(ctx context.Context, id int) (*Asset, error) {
	var flat FlatAssetRecord
	found, err := r.prepareAssetQuery().Where(goqu.Ex{"a.id": id}).Executor().ScanStructContext(ctx, &flat)
	if err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}
	if !found {
		return nil, ErrNotFound
	}

	asset := flat.TransformToAsset()
	return &asset, nil
}

func (r *AssetsRepository) LastCode(ctx context.Context, base string) (string, error) {
	return repository.LastNumber(ctx, r.repository.GoquDBWrapper, "assets", "code", base)
}

func assetRecord(a *Asset) goqu.Record {
	var locationID interface{}
	if a.Location != nil {
		locationID = a.Location.ID
	}

	return goqu.Record{
		"name":               a.Name,
		"category_id":        a.Category.ID,
		"location_id":        locationID,
		"brand":              a.Brand,
		"model":              a.Model,
		"serial_number":      a.SerialNumber,
		"purchase_date":      a.PurchaseDate,
		"purchase_price":     a.PurchasePrice,
		"salvage_value":      a.SalvageValue,
		"useful_life_months": a.UsefulLifeMonths,
		"origin":             string(a.Origin),
		"condition":          string(a.Condition),
		"notes":              a.Notes,
	}
}

func (r *AssetsRepository) PersistAsset(ctx context.Context, a *Asset) error {
	record := assetRecord(a)
	record["code"] = a.Code
	record["status"] = string(a.Status)

	query := r.repository.GoquDBWrapper.Insert("assets").Rows(record).Returning("id")
	if _, err := query.Executor().ScanValContext(ctx, &a.ID); err != nil {
		return custom_error.WrapDBError("failed to insert asset", err)
	}

	return nil
}

func (r *AssetsRepository) UpdateAsset(ctx context.Context, a *Asset) error {
	record := assetRecord(a)
	record["updated_at"] = time.Now()

	result, err := r.repository.GoquDBWrapper.Update("assets").
		Set(record).
		Where(goqu.Ex{"id": a.ID}).
		Executor().ExecContext(ctx)
	if err != nil {
		return custom_error.WrapDBError("failed to update asset", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *AssetsRepository) UpdateImage(ctx context.Context, id int, url string) error {
	_, err := r.repository.GoquDBWrapper.Update("assets").
		Set(goqu.Record{"image_url": url, "updated_at": time.Now()}).
		Where(goqu.Ex{"id": id}).
		Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to update asset image: %w", err)
	}
	return nil
}

func (r *AssetsRepository) UpdateStatus(ctx context.Context, ids []int, status metadata.Status) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := r.repository.GoquDBWrapper.Update("assets").
		Set(goqu.Record{"status": string(status), "updated_at": time.Now()}).
		Where(goqu.Ex{"id": ids}).
		Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to update asset status: %w", err)
	}
	return nil
}

// UpdateCondition records the condition reported when an asset comes back.
func (r *AssetsRepository) UpdateCondition(ctx context.Context, id int, condition metadata.Condition) error {
	_, err := r.repository.GoquDBWrapper.Update("assets").
		Set(goqu.Record{"condition": string(condition), "updated_at": time.Now()}).
		Where(goqu.Ex{"id": id}).
		Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to update asset condition: %w", err)
	}
	return nil
}

func (r *AssetsRepository) UpdateLocation(ctx context.Context, ids []int, locationID int) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := r.repository.GoquDBWrapper.Update("assets").
		Set(goqu.Record{"location_id": locationID, "updated_at": time.Now()}).
		Where(goqu.Ex{"id": ids}).
		Executor().ExecContext(ctx)
	if err != nil {
		return custom_error.WrapDBError("failed to move assets", err)
	}
	return nil
}

// HasOpenReferences reports an active borrowing or a distribution that has
// not reached success.
func (r *AssetsRepository) HasOpenReferences(ctx context.Context, id int) (bool, error) {
	db := r.repository.GoquDBWrapper

	borrowings, err := db.From("asset_borrowings").
		Where(goqu.Ex{"asset_id": id, "status": []string{"pending", "approved", "borrowed"}}).
		CountContext(ctx)
	if err != nil {
		return false, fmt.Errorf("unable to check borrowings: %w", err)
	}
	if borrowings > 0 {
		return true, nil
	}

	distributions, err := db.From(goqu.T("asset_distribution_items").As("di")).
		Join(goqu.T("asset_distributions").As("d"), goqu.On(goqu.Ex{"di.distribution_id": goqu.I("d.id")})).
		Where(goqu.Ex{"di.asset_id": id, "d.status": goqu.Op{"neq": "success"}}).
		CountContext(ctx)
	if err != nil {
		return false, fmt.Errorf("unable to check distributions: %w", err)
	}

	return distributions > 0, nil
}

func (r *AssetsRepository) RemoveAsset(ctx context.Context, id int) error {
	result, err := r.repository.GoquDBWrapper.Delete("assets").
		Where(goqu.Ex{"id": id}).
		Executor().ExecContext(ctx)
	if err != nil {
		return custom_error.WrapDBError("asset is referenced by history records", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AssetsRepository) GetCategories(ctx context.Context) ([]Category, error) {
	categories := []Category{}
	query := r.repository.GoquDBWrapper.Select("id", "code", "name", "description", "created_at").
		From("asset_categories").
		Order(goqu.I("name").Asc())
	if err := query.Executor().ScanStructsContext(ctx, &categories); err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}
	return categories, nil
}

func (r *AssetsRepository) GetCategory(ctx context.Context, id int) (*Category, error) {
	var category Category
	found, err := r.repository.GoquDBWrapper.Select("id", "code", "name", "description", "created_at").
		From("asset_categories").
		Where(goqu.Ex{"id": id}).
		Executor().ScanStructContext(ctx, &category)
	if err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}
	if !found {
		return nil, ErrCategoryNotFound
	}
	return &category, nil
}

func (r *AssetsRepository) PersistCategory(ctx context.Context, c *Category) error {
	query := r.repository.GoquDBWrapper.Insert("asset_categories").
		Rows(goqu.Record{"code": c.Code, "name": c.Name, "description": c.Description}).
		Returning("id")
	if _, err := query.Executor().ScanValContext(ctx, &c.ID); err != nil {
		return custom_error.WrapDBError("category code must be unique", err)
	}
	return nil
}

func (r *AssetsRepository) UpdateCategory(ctx context.Context, c *Category) error {
	result, err := r.repository.GoquDBWrapper.Update("asset_categories").
		Set(goqu.Record{"code": c.Code, "name": c.Name, "description": c.Description}).
		Where(goqu.Ex{"id": c.ID}).
		Executor().ExecContext(ctx)
	if err != nil {
		return custom_error.WrapDBError("category code must be unique", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

func (r *AssetsRepository) RemoveCategory(ctx context.Context, id int) error {
	result, err := r.repository.GoquDBWrapper.Delete("asset_categories").
		Where(goqu.Ex{"id": id}).
		Executor().ExecContext(ctx)
	if err != nil {
		return custom_error.WrapDBError("category still has assets", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrCategoryNotFound
	}
	return nil
}
