package assets

import (
	"context"
	"fmt"
	"time"

	"helpdesk/internal/auditlog"
	"helpdesk/internal/cache"
	"helpdesk/internal/storage"
	"helpdesk/pkg/metadata"
	"helpdesk/pkg/numbering"

	"go.uber.org/zap"
)

type Store interface {
	GetAssets(ctx context.Context, filter AssetFilter) ([]Asset, int64, error)
	GetAllAssets(ctx context.Context, filter AssetFilter) ([]Asset, error)
	GetAsset(ctx context.Context, id int) (*Asset, error)
	LastCode(ctx context.Context, base string) (string, error)
	PersistAsset(ctx context.Context, a *Asset) error
	UpdateAsset(ctx context.Context, a *Asset) error
	UpdateImage(ctx context.Context, id int, url string) error
	UpdateStatus(ctx context.Context, ids []int, status metadata.Status) error
	HasOpenReferences(ctx context.Context, id int) (bool, error)
	RemoveAsset(ctx context.Context, id int) error

	GetCategories(ctx context.Context) ([]Category, error)
	GetCategory(ctx context.Context, id int) (*Category, error)
	PersistCategory(ctx context.Context, c *Category) error
	UpdateCategory(ctx context.Context, c *Category) error
	RemoveCategory(ctx context.Context, id int) error
}

type AssetService struct {
	store Store
	files storage.FileStore
	audit auditlog.Recorder
	cache cache.Revalidator
	log   *zap.Logger
	now   func() time.Time
}

func NewAssetService(store Store, files storage.FileStore, audit auditlog.Recorder, revalidator cache.Revalidator, log *zap.Logger) *AssetService {
	return &AssetService{
		store: store,
		files: files,
		audit: audit,
		cache: revalidator,
		log:   log,
		now:   time.Now,
	}
}

func (s *AssetService) List(ctx context.Context, filter AssetFilter) ([]Asset, int64, error) {
	return s.store.GetAssets(ctx, filter)
}

func (s *AssetService) Get(ctx context.Context, id int) (*Asset, error) {
	return s.store.GetAsset(ctx, id)
}

func applyRequest(a *Asset, req AssetRequest, category *Category) {
	origin, _ := metadata.NewOrigin(req.Origin)
	condition, _ := metadata.NewCondition(req.Condition)

	a.Name = req.Name
	a.Category = CategoryRef{ID: category.ID, Code: category.Code, Name: category.Name}
	a.Location = nil
	if req.LocationID != nil && *req.LocationID > 0 {
		a.Location = &LocationRef{ID: *req.LocationID}
	}
	a.Brand = req.Brand
	a.Model = req.Model
	a.SerialNumber = req.SerialNumber
	a.PurchaseDate = req.purchaseDate()
	a.PurchasePrice = req.PurchasePrice
	a.SalvageValue = req.SalvageValue
	a.UsefulLifeMonths = req.UsefulLifeMonths
	a.Origin = origin
	a.Condition = condition
	a.Notes = req.Notes
}

// Create generates the next AST-<CAT>-<YYYY>-<NNNN> code for the category.
func (s *AssetService) Create(ctx context.Context, req AssetRequest, actorID int) (*Asset, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	category, err := s.store.GetCategory(ctx, req.CategoryID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	scheme := numbering.Asset(category.Code)
	last, err := s.store.LastCode(ctx, scheme.Base(now))
	if err != nil {
		return nil, err
	}

	asset := &Asset{Code: scheme.Next(last, now), Status: metadata.StatusAvailable}
	applyRequest(asset, req, category)

	if err := s.store.PersistAsset(ctx, asset); err != nil {
		return nil, err
	}

	s.audit.Log("create", actorID, req, asset)
	s.cache.Revalidate(ctx)
	return s.store.GetAsset(ctx, asset.ID)
}

func (s *AssetService) Update(ctx context.Context, id int, req AssetRequest, actorID int) (*Asset, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	asset, err := s.store.GetAsset(ctx, id)
	if err != nil {
		return nil, err
	}

	category, err := s.store.GetCategory(ctx, req.CategoryID)
	if err != nil {
		return nil, err
	}

	applyRequest(asset, req, category)
	if err := s.store.UpdateAsset(ctx, asset); err != nil {
		return nil, err
	}

	s.audit.Log("update", actorID, req, asset)
	s.cache.Revalidate(ctx)
	return s.store.GetAsset(ctx, id)
}

// ChangeStatus handles manual moves between available, maintenance and
// retired. Borrowing and distribution own the other statuses.
func (s *AssetService) ChangeStatus(ctx context.Context, id int, status metadata.Status, actorID int) error {
	if status == metadata.StatusBorrowed || status == metadata.StatusDistributed {
		return ErrManagedStatus
	}

	asset, err := s.store.GetAsset(ctx, id)
	if err != nil {
		return err
	}
	if asset.Status == metadata.StatusBorrowed || asset.Status == metadata.StatusDistributed {
		return ErrAssetInUse
	}

	if err := s.store.UpdateStatus(ctx, []int{id}, status); err != nil {
		return err
	}

	s.audit.Log("status", actorID, map[string]interface{}{"from": asset.Status, "to": status}, asset)
	s.cache.Revalidate(ctx)
	return nil
}

func (s *AssetService) Delete(ctx context.Context, id int, actorID int) error {
	asset, err := s.store.GetAsset(ctx, id)
	if err != nil {
		return err
	}

	inUse, err := s.store.HasOpenReferences(ctx, id)
	if err != nil {
		return err
	}
	if inUse {
		return ErrAssetInUse
	}

	if err := s.store.RemoveAsset(ctx, id); err != nil {
		return err
	}

	s.audit.Log("delete", actorID, map[string]string{"code": asset.Code}, asset)
	s.cache.Revalidate(ctx)
	return nil
}

func (s *AssetService) UploadImage(ctx context.Context, id int, upload *storage.Upload, actorID int) (*Asset, error) {
	asset, err := s.store.GetAsset(ctx, id)
	if err != nil {
		return nil, err
	}

	key, err := s.files.Save(ctx, "assets", upload.ContentType, upload.Reader())
	if err != nil {
		return nil, fmt.Errorf("failed to store image: %w", err)
	}

	url := s.files.URL(key)
	if err := s.store.UpdateImage(ctx, id, url); err != nil {
		if delErr := s.files.Delete(ctx, key); delErr != nil {
			s.log.Warn("Unable to remove orphaned upload", zap.String("key", key), zap.Error(delErr))
		}
		return nil, err
	}

	asset.ImageURL = &url
	s.audit.Log("upload_image", actorID, map[string]string{"image_url": url}, asset)
	return asset, nil
}

func (s *AssetService) Depreciation(ctx context.Context, id int, asOf time.Time) (*Depreciation, error) {
	asset, err := s.store.GetAsset(ctx, id)
	if err != nil {
		return nil, err
	}
	if asset.PurchaseDate == nil {
		return nil, ErrNoPurchaseDate
	}

	d := CalculateDepreciation(asset.PurchasePrice, asset.SalvageValue, asset.UsefulLifeMonths, *asset.PurchaseDate, asOf)
	d.AssetID = asset.ID
	return &d, nil
}

func (s *AssetService) DepreciationSchedule(ctx context.Context, id int) ([]ScheduleRow, error) {
	asset, err := s.store.GetAsset(ctx, id)
	if err != nil {
		return nil, err
	}
	if asset.PurchaseDate == nil {
		return nil, ErrNoPurchaseDate
	}

	return Schedule(asset.PurchasePrice, asset.SalvageValue, asset.UsefulLifeMonths, *asset.PurchaseDate), nil
}

func (s *AssetService) Categories(ctx context.Context) ([]Category, error) {
	return s.store.GetCategories(ctx)
}

func (s *AssetService) CreateCategory(ctx context.Context, c *Category, actorID int) error {
	if err := s.store.PersistCategory(ctx, c); err != nil {
		return err
	}
	s.audit.Log("create", actorID, c, c)
	return nil
}

func (s *AssetService) UpdateCategory(ctx context.Context, c *Category, actorID int) error {
	if err := s.store.UpdateCategory(ctx, c); err != nil {
		return err
	}
	s.audit.Log("update", actorID, c, c)
	return nil
}

func (s *AssetService) DeleteCategory(ctx context.Context, id int, actorID int) error {
	if err := s.store.RemoveCategory(ctx, id); err != nil {
		return err
	}
	s.audit.Log("delete", actorID, nil, &Category{ID: id})
	return nil
}
