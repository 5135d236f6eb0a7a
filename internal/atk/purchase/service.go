package purchase

import (
	"context"
	"fmt"
	"time"

	"helpdesk/internal/atk/items"
	"helpdesk/internal/auditlog"
	"helpdesk/internal/cache"
	"helpdesk/internal/notification"
	"helpdesk/pkg/numbering"
	"helpdesk/pkg/roles"

	"go.uber.org/zap"
)

type Store interface {
	GetPurchaseRequests(ctx context.Context, filter PurchaseFilter) ([]PurchaseRequest, int64, error)
	GetPurchaseRequest(ctx context.Context, id int) (*PurchaseRequest, error)
	LastNumber(ctx context.Context, base string) (string, error)
	PersistPurchaseRequest(ctx context.Context, pr *PurchaseRequest, lines []Line) error
	UpdatePurchaseRequest(ctx context.Context, pr *PurchaseRequest, lines []Line) error
	ApplyStatus(ctx context.Context, id int, from, to Status, actorID int, at time.Time) error
	RemovePurchaseRequest(ctx context.Context, id int) error
}

type StockLedger interface {
	ApplyMovements(ctx context.Context, movements []items.Movement) ([]items.StockHistory, error)
}

type Directory interface {
	PhonesByRole(ctx context.Context, role roles.Role) ([]string, error)
}

type Service struct {
	store     Store
	ledger    StockLedger
	directory Directory
	notifier  notification.Publisher
	audit     auditlog.Recorder
	cache     cache.Revalidator
	log       *zap.Logger
	now       func() time.Time
}

func NewService(store Store, ledger StockLedger, directory Directory, notifier notification.Publisher, audit auditlog.Recorder, revalidator cache.Revalidator, log *zap.Logger) *Service {
	return &Service{
		store:     store,
		ledger:    ledger,
		directory: directory,
		notifier:  notifier,
		audit:     audit,
		cache:     revalidator,
		log:       log,
		now:       time.Now,
	}
}

func (s *Service) List(ctx context.Context, filter PurchaseFilter) ([]PurchaseRequest, int64, error) {
	return s.store.GetPurchaseRequests(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id int) (*PurchaseRequest, error) {
	return s.store.GetPurchaseRequest(ctx, id)
}

func (s *Service) Create(ctx context.Context, body PurchaseRequestBody, actorID int) (*PurchaseRequest, error) {
	total, err := body.Validate()
	if err != nil {
		return nil, err
	}

	now := s.now()
	last, err := s.store.LastNumber(ctx, numbering.PR.Base(now))
	if err != nil {
		return nil, err
	}

	pr := &PurchaseRequest{
		Number:      numbering.PR.Next(last, now),
		RequestedBy: actorID,
		Supplier:    body.Supplier,
		Notes:       body.Notes,
		Status:      StatusDraft,
		Total:       total,
	}
	if err := s.store.PersistPurchaseRequest(ctx, pr, body.Items); err != nil {
		return nil, err
	}

	s.audit.Log("create", actorID, body, pr)
	return s.store.GetPurchaseRequest(ctx, pr.ID)
}

func (s *Service) draft(ctx context.Context, id int) (*PurchaseRequest, error) {
	pr, err := s.store.GetPurchaseRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if pr.Status != StatusDraft {
		return nil, ErrNotEditable
	}
	return pr, nil
}

func (s *Service) Update(ctx context.Context, id int, body PurchaseRequestBody, actorID int) (*PurchaseRequest, error) {
	total, err := body.Validate()
	if err != nil {
		return nil, err
	}

	pr, err := s.draft(ctx, id)
	if err != nil {
		return nil, err
	}

	pr.Supplier = body.Supplier
	pr.Notes = body.Notes
	pr.Total = total
	if err := s.store.UpdatePurchaseRequest(ctx, pr, body.Items); err != nil {
		return nil, err
	}

	s.audit.Log("update", actorID, body, pr)
	return s.store.GetPurchaseRequest(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int, actorID int) error {
	pr, err := s.draft(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.RemovePurchaseRequest(ctx, id); err != nil {
		return err
	}

	s.audit.Log("delete", actorID, nil, pr)
	return nil
}

// Submit sends the request to the admins for purchase.
func (s *Service) Submit(ctx context.Context, id int, actorID int) (*PurchaseRequest, error) {
	pr, err := s.store.GetPurchaseRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if pr.Status != StatusDraft {
		return nil, &TransitionError{From: pr.Status, To: StatusProcess}
	}

	now := s.now()
	if err := s.store.ApplyStatus(ctx, id, StatusDraft, StatusProcess, actorID, now); err != nil {
		return nil, err
	}
	pr.Status = StatusProcess
	pr.SubmittedAt = &now

	phones, err := s.directory.PhonesByRole(ctx, roles.Admin)
	if err != nil {
		s.log.Warn("Unable to look up admins to notify", zap.Int("purchase_request_id", id), zap.Error(err))
	}
	message := fmt.Sprintf("Pengajuan pembelian %s dari %s menunggu persetujuan. Total: Rp %s (%d item).",
		pr.Number, pr.RequestedByName, pr.Total.StringFixed(2), len(pr.Items))
	for _, phone := range phones {
		s.notifier.Notify(phone, message)
	}

	s.audit.Log("submit", actorID, nil, pr)
	return pr, nil
}

// Complete records the goods as received: every line becomes an "in"
// movement. The status is claimed before stock moves and a ledger failure
// hands the request back to process.
func (s *Service) Complete(ctx context.Context, id int, actorID int) (*PurchaseRequest, error) {
	pr, err := s.store.GetPurchaseRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if pr.Status != StatusProcess {
		return nil, &TransitionError{From: pr.Status, To: StatusSuccess}
	}

	now := s.now()
	if err := s.store.ApplyStatus(ctx, id, StatusProcess, StatusSuccess, actorID, now); err != nil {
		return nil, err
	}

	movements := make([]items.Movement, len(pr.Items))
	for i, line := range pr.Items {
		movements[i] = items.Movement{
			ItemID:        line.ItemID,
			Type:          items.MovementIn,
			Quantity:      line.Quantity,
			ReferenceType: "purchase_request",
			ReferenceID:   pr.ID,
			CreatedBy:     actorID,
		}
	}

	if _, err := s.ledger.ApplyMovements(ctx, movements); err != nil {
		if revertErr := s.store.ApplyStatus(ctx, id, StatusSuccess, StatusProcess, actorID, now); revertErr != nil {
			s.log.Error("Unable to revert purchase request after stock failure",
				zap.Int("purchase_request_id", id), zap.Error(revertErr))
		}
		return nil, err
	}

	pr.Status = StatusSuccess
	pr.CompletedAt = &now
	pr.CompletedBy = &actorID

	s.audit.Log("complete", actorID, movements, pr)
	s.cache.Revalidate(ctx)
	return pr, nil
}
