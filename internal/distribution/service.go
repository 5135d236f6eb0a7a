package distribution

import (
	"context"
	"fmt"
	"time"

	"helpdesk/internal/assets"
	"helpdesk/internal/auditlog"
	"helpdesk/internal/cache"
	"helpdesk/internal/notification"
	"helpdesk/internal/storage"
	"helpdesk/pkg/metadata"
	"helpdesk/pkg/numbering"

	"go.uber.org/zap"
)

type Store interface {
	GetDistributions(ctx context.Context, filter DistributionFilter) ([]Distribution, int64, error)
	GetDistribution(ctx context.Context, id int) (*Distribution, error)
	LastNumber(ctx context.Context, base string) (string, error)
	PersistDistribution(ctx context.Context, d *Distribution) error
	PersistItems(ctx context.Context, distributionID int, assetIDs []int) error
	UpdateDistribution(ctx context.Context, d *Distribution, assetIDs []int) error
	ApplyStatus(ctx context.Context, id int, from, to Status, documentURL *string, completedAt *time.Time) error
	RemoveDistribution(ctx context.Context, id int) error
}

type AssetStore interface {
	GetAsset(ctx context.Context, id int) (*assets.Asset, error)
	UpdateStatus(ctx context.Context, ids []int, status metadata.Status) error
	UpdateLocation(ctx context.Context, ids []int, locationID int) error
}

type Service struct {
	store    Store
	assets   AssetStore
	files    storage.FileStore
	notifier notification.Publisher
	audit    auditlog.Recorder
	cache    cache.Revalidator
	log      *zap.Logger
	now      func() time.Time
}

func NewService(store Store, assetStore AssetStore, files storage.FileStore, notifier notification.Publisher, audit auditlog.Recorder, revalidator cache.Revalidator, log *zap.Logger) *Service {
	return &Service{
		store:    store,
		assets:   assetStore,
		files:    files,
		notifier: notifier,
		audit:    audit,
		cache:    revalidator,
		log:      log,
		now:      time.Now,
	}
}

func (s *Service) List(ctx context.Context, filter DistributionFilter) ([]Distribution, int64, error) {
	return s.store.GetDistributions(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id int) (*Distribution, error) {
	return s.store.GetDistribution(ctx, id)
}

// checkAssets requires every asset to be available. Assets already on the
// draft being edited are available too, since a draft does not reserve them.
func (s *Service) checkAssets(ctx context.Context, req DistributionRequest) error {
	if err := req.uniqueAssets(); err != nil {
		return err
	}
	for _, id := range req.AssetIDs {
		asset, err := s.assets.GetAsset(ctx, id)
		if err != nil {
			return err
		}
		if asset.Status != metadata.StatusAvailable {
			return fmt.Errorf("%w: %s is %s", ErrAssetUnavailable, asset.Code, asset.Status)
		}
	}
	return nil
}

func applyRequest(d *Distribution, req DistributionRequest, now time.Time) {
	d.FromLocationID = req.FromLocationID
	d.ToLocationID = req.ToLocationID
	d.RecipientName = req.RecipientName
	d.RecipientPhone = req.RecipientPhone
	d.DistributionDate = req.date(now)
	d.Notes = req.Notes
}

// Create writes the header first and the items second. When the items fail
// the header is removed again, best effort.
func (s *Service) Create(ctx context.Context, req DistributionRequest, actorID int) (*Distribution, error) {
	if err := s.checkAssets(ctx, req); err != nil {
		return nil, err
	}

	now := s.now()
	last, err := s.store.LastNumber(ctx, numbering.SBBK.Base(now))
	if err != nil {
		return nil, err
	}

	d := &Distribution{
		DocumentNumber: numbering.SBBK.Next(last, now),
		Status:         StatusDraft,
		CreatedBy:      actorID,
	}
	applyRequest(d, req, now)

	if err := s.store.PersistDistribution(ctx, d); err != nil {
		return nil, err
	}

	if err := s.store.PersistItems(ctx, d.ID, req.AssetIDs); err != nil {
		if rmErr := s.store.RemoveDistribution(ctx, d.ID); rmErr != nil {
			s.log.Error("Unable to remove distribution without items",
				zap.Int("distribution_id", d.ID), zap.Error(rmErr))
		}
		return nil, err
	}

	s.audit.Log("create", actorID, req, d)
	s.cache.Revalidate(ctx)
	return s.store.GetDistribution(ctx, d.ID)
}

func (s *Service) draft(ctx context.Context, id int) (*Distribution, error) {
	d, err := s.store.GetDistribution(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status != StatusDraft {
		return nil, ErrNotEditable
	}
	return d, nil
}

func (s *Service) Update(ctx context.Context, id int, req DistributionRequest, actorID int) (*Distribution, error) {
	d, err := s.draft(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkAssets(ctx, req); err != nil {
		return nil, err
	}

	applyRequest(d, req, s.now())
	if err := s.store.UpdateDistribution(ctx, d, req.AssetIDs); err != nil {
		return nil, err
	}

	s.audit.Log("update", actorID, req, d)
	return s.store.GetDistribution(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int, actorID int) error {
	d, err := s.draft(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.RemoveDistribution(ctx, id); err != nil {
		return err
	}

	s.audit.Log("delete", actorID, nil, d)
	s.cache.Revalidate(ctx)
	return nil
}

// Submit reserves the listed assets by marking them distributed.
func (s *Service) Submit(ctx context.Context, id int, actorID int) (*Distribution, error) {
	d, err := s.store.GetDistribution(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(d.Status, StatusProcess); err != nil {
		return nil, err
	}

	for _, item := range d.Items {
		asset, err := s.assets.GetAsset(ctx, item.AssetID)
		if err != nil {
			return nil, err
		}
		if asset.Status != metadata.StatusAvailable {
			return nil, fmt.Errorf("%w: %s is %s", ErrAssetUnavailable, asset.Code, asset.Status)
		}
	}

	if err := s.store.ApplyStatus(ctx, id, StatusDraft, StatusProcess, nil, nil); err != nil {
		return nil, err
	}
	if err := s.assets.UpdateStatus(ctx, d.AssetIDs(), metadata.StatusDistributed); err != nil {
		return nil, err
	}

	d.Status = StatusProcess
	s.audit.Log("submit", actorID, nil, d)
	s.cache.Revalidate(ctx)
	return d, nil
}

// Complete moves the assets to the destination and keeps the signed
// handover photo when one is given.
func (s *Service) Complete(ctx context.Context, id int, photo *storage.Upload, actorID int) (*Distribution, error) {
	d, err := s.store.GetDistribution(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(d.Status, StatusSuccess); err != nil {
		return nil, err
	}

	var documentURL *string
	var key string
	if photo != nil {
		key, err = s.files.Save(ctx, "distributions", photo.ContentType, photo.Reader())
		if err != nil {
			return nil, fmt.Errorf("failed to store handover document: %w", err)
		}
		url := s.files.URL(key)
		documentURL = &url
	}

	now := s.now()
	if err := s.store.ApplyStatus(ctx, id, StatusProcess, StatusSuccess, documentURL, &now); err != nil {
		if key != "" {
			if delErr := s.files.Delete(ctx, key); delErr != nil {
				s.log.Warn("Unable to remove orphaned upload", zap.String("key", key), zap.Error(delErr))
			}
		}
		return nil, err
	}
	if err := s.assets.UpdateLocation(ctx, d.AssetIDs(), d.ToLocationID); err != nil {
		return nil, err
	}

	d.Status = StatusSuccess
	d.CompletedAt = &now
	if documentURL != nil {
		d.DocumentURL = documentURL
	}

	s.notifier.Notify(d.phone(), fmt.Sprintf(
		"Halo %s, serah terima %d aset dengan dokumen %s ke %s telah selesai.",
		d.RecipientName, len(d.Items), d.DocumentNumber, d.ToLocationName))
	s.audit.Log("complete", actorID, map[string]interface{}{"document_url": documentURL}, d)
	s.cache.Revalidate(ctx)
	return d, nil
}
