package items

import (
	"context"
	"fmt"
	"time"

	"helpdesk/internal/auditlog"
	"helpdesk/internal/cache"
	"helpdesk/internal/repository"
	"helpdesk/internal/storage"
	"helpdesk/pkg/numbering"

	"go.uber.org/zap"
)

type Store interface {
	GetItems(ctx context.Context, filter ItemFilter) ([]Item, int64, error)
	GetLowStock(ctx context.Context) ([]Item, error)
	GetItem(ctx context.Context, id int) (*Item, error)
	LastCode(ctx context.Context, base string) (string, error)
	PersistItem(ctx context.Context, item *Item, createdBy int) error
	UpdateItem(ctx context.Context, item *Item) error
	UpdateImage(ctx context.Context, id int, url string) error
	RemoveItem(ctx context.Context, id int) error
	GetHistory(ctx context.Context, itemID int, page repository.Pagination) ([]StockHistory, int64, error)
	ApplyMovements(ctx context.Context, movements []Movement) ([]StockHistory, error)
}

type Service struct {
	store Store
	files storage.FileStore
	audit auditlog.Recorder
	cache cache.Revalidator
	log   *zap.Logger
	now   func() time.Time
}

func NewService(store Store, files storage.FileStore, audit auditlog.Recorder, revalidator cache.Revalidator, log *zap.Logger) *Service {
	return &Service{
		store: store,
		files: files,
		audit: audit,
		cache: revalidator,
		log:   log,
		now:   time.Now,
	}
}

func (s *Service) List(ctx context.Context, filter ItemFilter) ([]Item, int64, error) {
	return s.store.GetItems(ctx, filter)
}

func (s *Service) LowStock(ctx context.Context) ([]Item, error) {
	return s.store.GetLowStock(ctx)
}

func (s *Service) Get(ctx context.Context, id int) (*Item, error) {
	return s.store.GetItem(ctx, id)
}

func (s *Service) History(ctx context.Context, id int, page repository.Pagination) ([]StockHistory, int64, error) {
	if _, err := s.store.GetItem(ctx, id); err != nil {
		return nil, 0, err
	}
	return s.store.GetHistory(ctx, id, page)
}

func (s *Service) Create(ctx context.Context, req ItemRequest, actorID int) (*Item, error) {
	category, err := req.Validate()
	if err != nil {
		return nil, err
	}

	now := s.now()
	last, err := s.store.LastCode(ctx, numbering.ATK.Base(now))
	if err != nil {
		return nil, err
	}

	item := &Item{
		Code:        numbering.ATK.Next(last, now),
		Name:        req.Name,
		Category:    category,
		Unit:        req.Unit,
		Stock:       req.Stock,
		MinStock:    req.MinStock,
		Price:       req.Price,
		Location:    req.Location,
		Description: req.Description,
	}
	if err := s.store.PersistItem(ctx, item, actorID); err != nil {
		return nil, err
	}

	s.audit.Log("create", actorID, req, item)
	s.cache.Revalidate(ctx)
	return s.store.GetItem(ctx, item.ID)
}

// Update changes the descriptive fields. The stock in req is ignored; use
// Adjust to correct it.
func (s *Service) Update(ctx context.Context, id int, req ItemRequest, actorID int) (*Item, error) {
	category, err := req.Validate()
	if err != nil {
		return nil, err
	}

	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}

	item.Name = req.Name
	item.Category = category
	item.Unit = req.Unit
	item.MinStock = req.MinStock
	item.Price = req.Price
	item.Location = req.Location
	item.Description = req.Description
	if err := s.store.UpdateItem(ctx, item); err != nil {
		return nil, err
	}

	s.audit.Log("update", actorID, req, item)
	s.cache.Revalidate(ctx)
	return item, nil
}

func (s *Service) Delete(ctx context.Context, id int, actorID int) error {
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.RemoveItem(ctx, id); err != nil {
		return err
	}

	s.audit.Log("delete", actorID, nil, item)
	s.cache.Revalidate(ctx)
	return nil
}

// Adjust records a manual movement against one item.
func (s *Service) Adjust(ctx context.Context, id int, req AdjustStockRequest, actorID int) (*StockHistory, error) {
	m := Movement{
		ItemID:        id,
		Type:          MovementType(req.Type),
		Quantity:      req.Quantity,
		ReferenceType: "manual",
		Notes:         req.Notes,
		CreatedBy:     actorID,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}

	history, err := s.store.ApplyMovements(ctx, []Movement{m})
	if err != nil {
		return nil, err
	}

	h := history[0]
	if h.NewStock <= item.MinStock {
		s.log.Info("Item at or below minimum stock",
			zap.String("code", item.Code), zap.Int("stock", h.NewStock), zap.Int("min_stock", item.MinStock))
	}

	s.audit.Log("adjust_stock", actorID, h, item)
	s.cache.Revalidate(ctx)
	return &h, nil
}

func (s *Service) UploadImage(ctx context.Context, id int, upload *storage.Upload, actorID int) (*Item, error) {
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}

	key, err := s.files.Save(ctx, "atk", upload.ContentType, upload.Reader())
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

	item.ImageURL = &url
	s.audit.Log("upload_image", actorID, map[string]string{"image_url": url}, item)
	return item, nil
}
