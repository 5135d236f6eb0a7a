package locations

import (
	"context"
	"fmt"

	"helpdesk/internal/repository"
	custom_error "helpdesk/pkg/errors"

	"github.com/doug-martin/goqu/v9"
)

type LocationRepository struct {
	Repository *repository.Repository
}

func NewLocationRepository(r *repository.Repository) *LocationRepository {
	return &LocationRepository{Repository: r}
}

func (r *LocationRepository) GetLocations(ctx context.Context) ([]Location, error) {
	locations := []Location{}
	query := r.Repository.GoquDBWrapper.Select("id", "name", "details", "created_at").
		From("locations").
		Order(goqu.I("name").Asc())
	if err := query.Executor().ScanStructsContext(ctx, &locations); err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}

	return locations, nil
}

func (r *LocationRepository) GetLocation(ctx context.Context, id int) (*Location, error) {
	var location Location
	query := r.Repository.GoquDBWrapper.Select("id", "name", "details", "created_at").
		From("locations").
		Where(goqu.Ex{"id": id})

	found, err := query.Executor().ScanStructContext(ctx, &location)
	if err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}
	if !found {
		return nil, ErrNotFound
	}

	return &location, nil
}

func (r *LocationRepository) PersistLocation(ctx context.Context, location *Location) error {
	query := r.Repository.GoquDBWrapper.Insert("locations").
		Rows(goqu.Record{
			"name":    location.Name,
			"details": location.Details,
		}).
		Returning("id")

	if _, err := query.Executor().ScanValContext(ctx, &location.ID); err != nil {
		return custom_error.WrapDBError("could not insert location, name not unique", err)
	}

	return nil
}

func (r *LocationRepository) UpdateLocation(ctx context.Context, location *Location) error {
	result, err := r.Repository.GoquDBWrapper.Update("locations").
		Set(goqu.Record{"name": location.Name, "details": location.Details}).
		Where(goqu.Ex{"id": location.ID}).
		Executor().ExecContext(ctx)
	if err != nil {
		return custom_error.WrapDBError("could not update location", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *LocationRepository) RemoveLocation(ctx context.Context, id int) error {
	result, err := r.Repository.GoquDBWrapper.Delete("locations").
		Where(goqu.Ex{"id": id}).
		Executor().ExecContext(ctx)
	if err != nil {
		return custom_error.WrapDBError("location still holds assets or items", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *LocationRepository) GetLocationAssets(ctx context.Context, id int) ([]LocatedAsset, error) {
	assets := []LocatedAsset{}
	query := r.Repository.GoquDBWrapper.Select("id", "code", "name", "status").
		From("assets").
		Where(goqu.Ex{"location_id": id}).
		Order(goqu.I("code").Asc())

	if err := query.Executor().ScanStructsContext(ctx, &assets); err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}

	return assets, nil
}
