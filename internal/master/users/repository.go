package users

import (
	"context"
	"fmt"
	"time"

	"helpdesk/internal/repository"
	custom_error "helpdesk/pkg/errors"

	"github.com/doug-martin/goqu/v9"
)

type ProfileRepository interface {
	PersistProfile(ctx context.Context, p *Profile) error
	GetProfile(ctx context.Context, id int) (*Profile, error)
	GetProfileByUsername(ctx context.Context, username string) (*Profile, error)
	GetProfiles(ctx context.Context, filter ProfileFilter) ([]Profile, error)
	UpdateProfile(ctx context.Context, id int, changes *ProfileChanges) error
	DeleteProfile(ctx context.Context, id int) error
}

type profileRepositoryImpl struct {
	repository *repository.Repository
}

func NewRepository(r *repository.Repository) ProfileRepository {
	return &profileRepositoryImpl{repository: r}
}

var profileColumns = []interface{}{
	"id", "username", "full_name", "email", "phone", "role", "department",
	"is_active", "password_hash", "created_at", "updated_at",
}

func (r *profileRepositoryImpl) PersistProfile(ctx context.Context, p *Profile) error {
	query := r.repository.GoquDBWrapper.Insert("profiles").
		Rows(goqu.Record{
			"username":      p.Username,
			"full_name":     p.FullName,
			"email":         p.Email,
			"phone":         p.Phone,
			"role":          string(p.Role),
			"department":    p.Department,
			"is_active":     p.IsActive,
			"password_hash": p.PasswordHash,
		}).
		Returning("id", "created_at", "updated_at")

	row := struct {
		ID        int       `db:"id"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}{}
	if _, err := query.Executor().ScanStructContext(ctx, &row); err != nil {
		return custom_error.WrapDBError("failed to insert profile", err)
	}

	p.ID, p.CreatedAt, p.UpdatedAt = row.ID, row.CreatedAt, row.UpdatedAt
	return nil
}

func (r *profileRepositoryImpl) GetProfile(ctx context.Context, id int) (*Profile, error) {
	return r.getBy(ctx, goqu.Ex{"id": id})
}

func (r *profileRepositoryImpl) GetProfileByUsername(ctx context.Context, username string) (*Profile, error) {
	return r.getBy(ctx, goqu.Ex{"username": username})
}

func (r *profileRepositoryImpl) getBy(ctx context.Context, where goqu.Ex) (*Profile, error) {
	var p Profile
	query := r.repository.GoquDBWrapper.Select(profileColumns...).From("profiles").Where(where)

	found, err := query.Executor().ScanStructContext(ctx, &p)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if !found {
		return nil, ErrNotFound
	}

	return &p, nil
}

func (r *profileRepositoryImpl) GetProfiles(ctx context.Context, filter ProfileFilter) ([]Profile, error) {
	qb := repository.NewQueryBuilder()
	qb.AddCondition("role", filter.Role)
	if filter.Active != nil {
		qb.AddCondition("is_active", *filter.Active)
	}

	query := r.repository.GoquDBWrapper.Select(profileColumns...).From("profiles")
	if !qb.IsEmpty() {
		query = query.Where(qb.BuildConditions(nil))
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where(goqu.Or(
			goqu.I("username").ILike(pattern),
			goqu.I("full_name").ILike(pattern),
		))
	}

	profiles := []Profile{}
	if err := query.Order(goqu.I("id").Asc()).Executor().ScanStructsContext(ctx, &profiles); err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}

	return profiles, nil
}

func (r *profileRepositoryImpl) UpdateProfile(ctx context.Context, id int, changes *ProfileChanges) error {
	query := r.repository.GoquDBWrapper.Update("profiles").
		Set(changes.Record(time.Now())).
		Where(goqu.Ex{"id": id})

	result, err := query.Executor().ExecContext(ctx)
	if err != nil {
		return custom_error.WrapDBError("failed to update profile", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *profileRepositoryImpl) DeleteProfile(ctx context.Context, id int) error {
	result, err := r.repository.GoquDBWrapper.Delete("profiles").
		Where(goqu.Ex{"id": id}).
		Executor().ExecContext(ctx)
	if err != nil {
		return custom_error.WrapDBError("failed to delete profile", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	return nil
}
