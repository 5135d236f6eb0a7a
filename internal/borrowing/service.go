package borrowing

import (
	"context"
	"fmt"
	"time"

	"helpdesk/internal/assets"
	"helpdesk/internal/auditlog"
	"helpdesk/internal/cache"
	"helpdesk/internal/notification"
	"helpdesk/pkg/metadata"

	"go.uber.org/zap"
)

type Store interface {
	HasActiveBorrowing(ctx context.Context, assetID int) (bool, error)
	PersistBorrowing(ctx context.Context, b *Borrowing) error
	GetBorrowing(ctx context.Context, id int) (*Borrowing, error)
	GetBorrowings(ctx context.Context, filter BorrowingFilter) ([]Borrowing, int64, error)
	GetOverdue(ctx context.Context, today time.Time) ([]Borrowing, error)
	ApplyTransition(ctx context.Context, id int, t Transition) error
	DeleteBorrowing(ctx context.Context, id int) error
}

type AssetStore interface {
	GetAsset(ctx context.Context, id int) (*assets.Asset, error)
	UpdateStatus(ctx context.Context, ids []int, status metadata.Status) error
	UpdateCondition(ctx context.Context, id int, condition metadata.Condition) error
}

type Service struct {
	store    Store
	assets   AssetStore
	notifier notification.Publisher
	audit    auditlog.Recorder
	cache    cache.Revalidator
	log      *zap.Logger
	now      func() time.Time
}

func NewService(store Store, assetStore AssetStore, notifier notification.Publisher, audit auditlog.Recorder, revalidator cache.Revalidator, log *zap.Logger) *Service {
	return &Service{
		store:    store,
		assets:   assetStore,
		notifier: notifier,
		audit:    audit,
		cache:    revalidator,
		log:      log,
		now:      time.Now,
	}
}

func (s *Service) List(ctx context.Context, filter BorrowingFilter) ([]Borrowing, int64, error) {
	return s.store.GetBorrowings(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id int) (*Borrowing, error) {
	return s.store.GetBorrowing(ctx, id)
}

// Create refuses when the asset is retired or already has a pending,
// approved or borrowed record. The check and the insert are not atomic.
func (s *Service) Create(ctx context.Context, req CreateBorrowingRequest, borrowerID int, actorID int) (*Borrowing, error) {
	from, due, err := req.period()
	if err != nil {
		return nil, err
	}

	asset, err := s.assets.GetAsset(ctx, req.AssetID)
	if err != nil {
		return nil, err
	}
	if asset.Status == metadata.StatusRetired {
		return nil, ErrAssetUnavailable
	}

	active, err := s.store.HasActiveBorrowing(ctx, req.AssetID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, ErrActiveBorrowing
	}

	b := &Borrowing{
		AssetID:    req.AssetID,
		BorrowerID: borrowerID,
		Purpose:    req.Purpose,
		BorrowDate: from,
		DueDate:    due,
		Status:     StatusPending,
		Notes:      req.Notes,
	}
	if err := s.store.PersistBorrowing(ctx, b); err != nil {
		return nil, err
	}

	s.audit.Log("create", actorID, req, b)
	s.cache.Revalidate(ctx)
	return s.store.GetBorrowing(ctx, b.ID)
}

func (s *Service) transition(ctx context.Context, id int, to Status, actorID int, fill func(b *Borrowing, t *Transition)) (*Borrowing, error) {
	b, err := s.store.GetBorrowing(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.Status.CanTransitionTo(to) {
		return nil, &TransitionError{From: b.Status, To: to}
	}

	t := Transition{From: b.Status, To: to}
	if fill != nil {
		fill(b, &t)
	}
	if err := s.store.ApplyTransition(ctx, id, t); err != nil {
		return nil, err
	}

	b.Status = to
	s.audit.Log(string(to), actorID, t, b)
	return b, nil
}

func (s *Service) Approve(ctx context.Context, id int, actorID int) (*Borrowing, error) {
	now := s.now()
	b, err := s.transition(ctx, id, StatusApproved, actorID, func(_ *Borrowing, t *Transition) {
		t.ApprovedBy = &actorID
		t.ApprovedAt = &now
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(b.phone(), fmt.Sprintf(
		"Halo %s, peminjaman %s (%s) telah disetujui. Silakan ambil aset pada %s.",
		b.BorrowerName, b.AssetName, b.AssetCode, b.BorrowDate.Format(dateLayout)))
	s.cache.Revalidate(ctx)
	return b, nil
}

func (s *Service) Reject(ctx context.Context, id int, reason string, actorID int) (*Borrowing, error) {
	now := s.now()
	b, err := s.transition(ctx, id, StatusRejected, actorID, func(_ *Borrowing, t *Transition) {
		t.ApprovedBy = &actorID
		t.ApprovedAt = &now
		if reason != "" {
			t.RejectionReason = &reason
		}
	})
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("Halo %s, peminjaman %s (%s) ditolak.", b.BorrowerName, b.AssetName, b.AssetCode)
	if reason != "" {
		msg += " Alasan: " + reason
	}
	s.notifier.Notify(b.phone(), msg)
	s.cache.Revalidate(ctx)
	return b, nil
}

// HandOver marks the asset borrowed. The asset has to be available.
func (s *Service) HandOver(ctx context.Context, id int, actorID int) (*Borrowing, error) {
	current, err := s.store.GetBorrowing(ctx, id)
	if err != nil {
		return nil, err
	}
	asset, err := s.assets.GetAsset(ctx, current.AssetID)
	if err != nil {
		return nil, err
	}
	if asset.Status != metadata.StatusAvailable {
		return nil, ErrAssetUnavailable
	}

	b, err := s.transition(ctx, id, StatusBorrowed, actorID, nil)
	if err != nil {
		return nil, err
	}

	if err := s.assets.UpdateStatus(ctx, []int{b.AssetID}, metadata.StatusBorrowed); err != nil {
		return nil, err
	}

	s.notifier.Notify(b.phone(), fmt.Sprintf(
		"Halo %s, aset %s (%s) telah diserahkan. Harap dikembalikan paling lambat %s.",
		b.BorrowerName, b.AssetName, b.AssetCode, b.DueDate.Format(dateLayout)))
	s.cache.Revalidate(ctx)
	return b, nil
}

// Return makes the asset available again with the reported condition.
func (s *Service) Return(ctx context.Context, id int, req ReturnRequest, actorID int) (*Borrowing, error) {
	condition, err := metadata.NewCondition(req.Condition)
	if err != nil {
		return nil, err
	}

	now := s.now()
	b, err := s.transition(ctx, id, StatusReturned, actorID, func(_ *Borrowing, t *Transition) {
		c := string(condition)
		t.ReturnedAt = &now
		t.ReturnCondition = &c
		t.Notes = req.Notes
	})
	if err != nil {
		return nil, err
	}

	if err := s.assets.UpdateStatus(ctx, []int{b.AssetID}, metadata.StatusAvailable); err != nil {
		return nil, err
	}
	if err := s.assets.UpdateCondition(ctx, b.AssetID, condition); err != nil {
		return nil, err
	}

	b.ReturnedAt = &now
	s.notifier.Notify(b.phone(), fmt.Sprintf(
		"Terima kasih %s, pengembalian %s (%s) telah dicatat.", b.BorrowerName, b.AssetName, b.AssetCode))
	s.cache.Revalidate(ctx)
	return b, nil
}

// Delete is allowed only while pending, for the borrower or a technician.
func (s *Service) Delete(ctx context.Context, id int, actorID int, privileged bool) error {
	b, err := s.store.GetBorrowing(ctx, id)
	if err != nil {
		return err
	}
	if b.Status != StatusPending {
		return ErrNotDeletable
	}
	if !privileged && b.BorrowerID != actorID {
		return ErrForbidden
	}

	if err := s.store.DeleteBorrowing(ctx, id); err != nil {
		return err
	}

	s.audit.Log("delete", actorID, nil, b)
	s.cache.Revalidate(ctx)
	return nil
}

func (s *Service) Overdue(ctx context.Context) ([]Borrowing, error) {
	y, m, d := s.now().Date()
	return s.store.GetOverdue(ctx, time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// RemindOverdue messages every borrower with an overdue asset and returns
// how many reminders were queued.
func (s *Service) RemindOverdue(ctx context.Context) (int, error) {
	overdue, err := s.Overdue(ctx)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, b := range overdue {
		if b.phone() == "" {
			continue
		}
		s.notifier.Notify(b.phone(), fmt.Sprintf(
			"Pengingat: %s (%s) seharusnya dikembalikan pada %s. Mohon segera dikembalikan.",
			b.AssetName, b.AssetCode, b.DueDate.Format(dateLayout)))
		sent++
	}

	s.log.Info("Queued overdue reminders", zap.Int("count", sent))
	return sent, nil
}
