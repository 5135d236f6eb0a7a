package requests

import (
	"context"
	"fmt"
	"time"

	"helpdesk/internal/atk/items"
	"helpdesk/internal/auditlog"
	"helpdesk/internal/cache"
	"helpdesk/internal/notification"
	"helpdesk/pkg/numbering"

	"go.uber.org/zap"
)

type Store interface {
	GetRequests(ctx context.Context, filter RequestFilter) ([]Request, int64, error)
	GetRequest(ctx context.Context, id int) (*Request, error)
	LastNumber(ctx context.Context, base string) (string, error)
	PersistRequest(ctx context.Context, req *Request, lines []Line) error
	UpdateRequest(ctx context.Context, req *Request, lines []Line) error
	ApplyTransition(ctx context.Context, id int, t Transition) error
	RemoveRequest(ctx context.Context, id int) error
}

type StockLedger interface {
	ApplyMovements(ctx context.Context, movements []items.Movement) ([]items.StockHistory, error)
}

type Service struct {
	store    Store
	ledger   StockLedger
	notifier notification.Publisher
	audit    auditlog.Recorder
	cache    cache.Revalidator
	log      *zap.Logger
	now      func() time.Time
}

func NewService(store Store, ledger StockLedger, notifier notification.Publisher, audit auditlog.Recorder, revalidator cache.Revalidator, log *zap.Logger) *Service {
	return &Service{
		store:    store,
		ledger:   ledger,
		notifier: notifier,
		audit:    audit,
		cache:    revalidator,
		log:      log,
		now:      time.Now,
	}
}

func (s *Service) List(ctx context.Context, filter RequestFilter) ([]Request, int64, error) {
	return s.store.GetRequests(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id int) (*Request, error) {
	return s.store.GetRequest(ctx, id)
}

func (s *Service) Create(ctx context.Context, body RequestBody, actorID int) (*Request, error) {
	if err := body.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	last, err := s.store.LastNumber(ctx, numbering.SPB.Base(now))
	if err != nil {
		return nil, err
	}

	req := &Request{
		Number:      numbering.SPB.Next(last, now),
		RequesterID: actorID,
		Department:  body.Department,
		Purpose:     body.Purpose,
		Status:      StatusPending,
	}
	if err := s.store.PersistRequest(ctx, req, body.Items); err != nil {
		return nil, err
	}

	s.audit.Log("create", actorID, body, req)
	s.cache.Revalidate(ctx)
	return s.store.GetRequest(ctx, req.ID)
}

// editable loads a pending request the actor may change: its requester or,
// when privileged, anyone.
func (s *Service) editable(ctx context.Context, id int, actorID int, privileged bool) (*Request, error) {
	req, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusPending {
		return nil, ErrNotEditable
	}
	if !privileged && req.RequesterID != actorID {
		return nil, ErrForbidden
	}
	return req, nil
}

func (s *Service) Update(ctx context.Context, id int, body RequestBody, actorID int, privileged bool) (*Request, error) {
	if err := body.Validate(); err != nil {
		return nil, err
	}

	req, err := s.editable(ctx, id, actorID, privileged)
	if err != nil {
		return nil, err
	}

	req.Department = body.Department
	req.Purpose = body.Purpose
	if err := s.store.UpdateRequest(ctx, req, body.Items); err != nil {
		return nil, err
	}

	s.audit.Log("update", actorID, body, req)
	return s.store.GetRequest(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int, actorID int, privileged bool) error {
	req, err := s.editable(ctx, id, actorID, privileged)
	if err != nil {
		return err
	}
	if err := s.store.RemoveRequest(ctx, id); err != nil {
		return err
	}

	s.audit.Log("delete", actorID, nil, req)
	s.cache.Revalidate(ctx)
	return nil
}

func (s *Service) load(ctx context.Context, id int, to Status) (*Request, error) {
	req, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if !req.Status.CanTransitionTo(to) {
		return nil, &TransitionError{From: req.Status, To: to}
	}
	return req, nil
}

func (s *Service) Approve(ctx context.Context, id int, body ApproveBody, actorID int) (*Request, error) {
	req, err := s.load(ctx, id, StatusApproved)
	if err != nil {
		return nil, err
	}

	approved, err := body.Resolve(req.Items)
	if err != nil {
		return nil, err
	}

	now := s.now()
	t := Transition{From: req.Status, To: StatusApproved, ActorID: actorID, At: now, Approved: approved}
	if err := s.store.ApplyTransition(ctx, id, t); err != nil {
		return nil, err
	}

	req.Status = StatusApproved
	req.ApprovedBy = &actorID
	req.ApprovedAt = &now
	for i := range req.Items {
		qty := approved[req.Items[i].ID]
		req.Items[i].ApprovedQuantity = &qty
	}

	s.notifier.Notify(req.phone(), fmt.Sprintf(
		"Halo %s, permintaan ATK %s telah disetujui dan akan segera disiapkan.", req.RequesterName, req.Number))
	s.audit.Log("approve", actorID, approved, req)
	s.cache.Revalidate(ctx)
	return req, nil
}

func (s *Service) Reject(ctx context.Context, id int, reason string, actorID int) (*Request, error) {
	req, err := s.load(ctx, id, StatusRejected)
	if err != nil {
		return nil, err
	}

	now := s.now()
	t := Transition{From: req.Status, To: StatusRejected, ActorID: actorID, At: now}
	if reason != "" {
		t.Reason = &reason
	}
	if err := s.store.ApplyTransition(ctx, id, t); err != nil {
		return nil, err
	}

	req.Status = StatusRejected
	req.ApprovedBy = &actorID
	req.ApprovedAt = &now
	req.RejectionReason = t.Reason

	msg := fmt.Sprintf("Halo %s, permintaan ATK %s ditolak.", req.RequesterName, req.Number)
	if reason != "" {
		msg += " Alasan: " + reason
	}
	s.notifier.Notify(req.phone(), msg)
	s.audit.Log("reject", actorID, t, req)
	s.cache.Revalidate(ctx)
	return req, nil
}

// Fulfil hands the goods out. Each approved line leaves stock; an item
// never goes below zero.
func (s *Service) Fulfil(ctx context.Context, id int, actorID int) (*Request, []items.StockHistory, error) {
	req, err := s.load(ctx, id, StatusFulfilled)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	t := Transition{From: StatusApproved, To: StatusFulfilled, ActorID: actorID, At: now}
	if err := s.store.ApplyTransition(ctx, id, t); err != nil {
		return nil, nil, err
	}

	history, err := s.ledger.ApplyMovements(ctx, req.Movements(actorID))
	if err != nil {
		revert := Transition{From: StatusFulfilled, To: StatusApproved, ActorID: actorID, At: now}
		if revertErr := s.store.ApplyTransition(ctx, id, revert); revertErr != nil {
			s.log.Error("Unable to revert request after stock failure", zap.Int("request_id", id), zap.Error(revertErr))
		}
		return nil, nil, err
	}

	req.Status = StatusFulfilled
	req.FulfilledBy = &actorID
	req.FulfilledAt = &now

	s.notifier.Notify(req.phone(), fmt.Sprintf(
		"Halo %s, barang untuk permintaan %s sudah dapat diambil.", req.RequesterName, req.Number))
	s.audit.Log("fulfil", actorID, history, req)
	s.cache.Revalidate(ctx)
	return req, history, nil
}
