package tickets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"helpdesk/internal/auditlog"
	"helpdesk/internal/cache"
	"helpdesk/internal/notification"
	"helpdesk/internal/storage"
	"helpdesk/pkg/numbering"

	"go.uber.org/zap"
)

type Store interface {
	GetTickets(ctx context.Context, filter TicketFilter) ([]Ticket, int64, error)
	GetTicket(ctx context.Context, id int) (*Ticket, error)
	LastNumber(ctx context.Context, base string) (string, error)
	PersistTicket(ctx context.Context, t *Ticket) error
	UpdateTicket(ctx context.Context, t *Ticket) error
	UpdateAssignee(ctx context.Context, id int, assigneeID int) error
	UpdateStatus(ctx context.Context, id int, from, to Status, at time.Time) error
	UpdateAttachment(ctx context.Context, id int, url string) error
	RemoveTicket(ctx context.Context, id int) error
	GetWorkload(ctx context.Context) ([]Workload, error)
	PersistComment(ctx context.Context, ticketID, userID int, content string) (int, error)
	GetComment(ctx context.Context, id int) (*Comment, error)
	GetComments(ctx context.Context, ticketID int) ([]Comment, error)
}

type Service struct {
	store    Store
	files    storage.FileStore
	notifier notification.Publisher
	audit    auditlog.Recorder
	cache    cache.Revalidator
	log      *zap.Logger
	now      func() time.Time
}

func NewService(store Store, files storage.FileStore, notifier notification.Publisher, audit auditlog.Recorder, revalidator cache.Revalidator, log *zap.Logger) *Service {
	return &Service{
		store:    store,
		files:    files,
		notifier: notifier,
		audit:    audit,
		cache:    revalidator,
		log:      log,
		now:      time.Now,
	}
}

func (s *Service) List(ctx context.Context, filter TicketFilter) ([]Ticket, int64, error) {
	return s.store.GetTickets(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id int) (*Ticket, error) {
	return s.store.GetTicket(ctx, id)
}

func (s *Service) Workload(ctx context.Context) ([]Workload, error) {
	return s.store.GetWorkload(ctx)
}

func findTechnician(load []Workload, id int) *Workload {
	for i := range load {
		if load[i].TechnicianID == id {
			return &load[i]
		}
	}
	return nil
}

func phoneOf(w *Workload) string {
	if w == nil || w.Phone == nil {
		return ""
	}
	return *w.Phone
}

// Create opens a ticket. Without an explicit assignee it goes to the least
// busy active technician, or stays unassigned when there is none.
func (s *Service) Create(ctx context.Context, req CreateTicketRequest, reporterID int, actorID int) (*Ticket, error) {
	priority, err := NewPriority(req.Priority)
	if err != nil {
		return nil, err
	}
	if !validCategory(req.Category) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, req.Category)
	}

	load, err := s.store.GetWorkload(ctx)
	if err != nil {
		return nil, err
	}

	var assignee *Workload
	if req.AssigneeID != nil && *req.AssigneeID > 0 {
		if assignee = findTechnician(load, *req.AssigneeID); assignee == nil {
			return nil, ErrNotTechnician
		}
	} else {
		assignee = LeastBusy(load)
	}

	now := s.now()
	last, err := s.store.LastNumber(ctx, numbering.TKT.Base(now))
	if err != nil {
		return nil, err
	}

	t := &Ticket{
		Number:      numbering.TKT.Next(last, now),
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Category:    req.Category,
		Priority:    priority,
		Status:      StatusOpen,
		Reporter:    &User{ID: reporterID},
		AssetID:     req.AssetID,
	}
	if assignee != nil {
		t.Assignee = &User{ID: assignee.TechnicianID, FullName: assignee.FullName}
	}

	if err := s.store.PersistTicket(ctx, t); err != nil {
		return nil, err
	}

	if assignee != nil {
		s.notifier.Notify(phoneOf(assignee), fmt.Sprintf(
			"Tiket baru %s ditugaskan kepada Anda: %s (prioritas %s).", t.Number, t.Title, t.Priority))
	} else {
		s.log.Warn("No active technician to assign ticket", zap.String("number", t.Number))
	}

	s.audit.Log("create", actorID, req, t)
	s.cache.Revalidate(ctx)
	return s.store.GetTicket(ctx, t.ID)
}

// Update lets the reporter edit an open ticket; technicians may edit any
// ticket that is not closed.
func (s *Service) Update(ctx context.Context, id int, req UpdateTicketRequest, actorID int, privileged bool) (*Ticket, error) {
	priority, err := NewPriority(req.Priority)
	if err != nil {
		return nil, err
	}
	if !validCategory(req.Category) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, req.Category)
	}

	t, err := s.store.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status == StatusClosed {
		return nil, ErrClosed
	}
	if !privileged && (t.ReporterID() != actorID || t.Status != StatusOpen) {
		return nil, ErrForbidden
	}

	t.Title = strings.TrimSpace(req.Title)
	t.Description = req.Description
	t.Category = req.Category
	t.Priority = priority
	t.AssetID = req.AssetID
	if err := s.store.UpdateTicket(ctx, t); err != nil {
		return nil, err
	}

	s.audit.Log("update", actorID, req, t)
	return s.store.GetTicket(ctx, id)
}

func (s *Service) Assign(ctx context.Context, id int, assigneeID int, actorID int) (*Ticket, error) {
	t, err := s.store.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status == StatusClosed {
		return nil, ErrClosed
	}

	load, err := s.store.GetWorkload(ctx)
	if err != nil {
		return nil, err
	}
	technician := findTechnician(load, assigneeID)
	if technician == nil {
		return nil, ErrNotTechnician
	}

	if err := s.store.UpdateAssignee(ctx, id, assigneeID); err != nil {
		return nil, err
	}

	s.notifier.Notify(phoneOf(technician), fmt.Sprintf(
		"Tiket %s ditugaskan kepada Anda: %s (prioritas %s).", t.Number, t.Title, t.Priority))
	s.audit.Log("assign", actorID, map[string]int{"from": t.AssigneeID(), "to": assigneeID}, t)
	s.cache.Revalidate(ctx)
	return s.store.GetTicket(ctx, id)
}

func (s *Service) ChangeStatus(ctx context.Context, id int, value string, actorID int) (*Ticket, error) {
	to, err := NewStatus(value)
	if err != nil {
		return nil, err
	}

	t, err := s.store.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status == to {
		return t, nil
	}
	if !t.Status.CanTransitionTo(to) {
		return nil, &TransitionError{From: t.Status, To: to}
	}

	now := s.now()
	if err := s.store.UpdateStatus(ctx, id, t.Status, to, now); err != nil {
		return nil, err
	}

	from := t.Status
	t.Status = to
	switch to {
	case StatusResolved:
		t.ResolvedAt = &now
		s.notifier.Notify(t.reporterPhone, fmt.Sprintf(
			"Tiket %s (%s) telah diselesaikan. Balas melalui aplikasi bila masalah masih terjadi.", t.Number, t.Title))
	case StatusClosed:
		t.ClosedAt = &now
	default:
		t.ResolvedAt = nil
		t.ClosedAt = nil
	}

	s.audit.Log("status", actorID, map[string]Status{"from": from, "to": to}, t)
	s.cache.Revalidate(ctx)
	return t, nil
}

// canSee reports whether a staff member may read or comment on t.
func canSee(t *Ticket, actorID int, privileged bool) bool {
	return privileged || t.ReporterID() == actorID
}

func (s *Service) Visible(ctx context.Context, id int, actorID int, privileged bool) (*Ticket, error) {
	t, err := s.store.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canSee(t, actorID, privileged) {
		return nil, ErrForbidden
	}
	return t, nil
}

func (s *Service) Comments(ctx context.Context, id int, actorID int, privileged bool) ([]Comment, error) {
	if _, err := s.Visible(ctx, id, actorID, privileged); err != nil {
		return nil, err
	}
	return s.store.GetComments(ctx, id)
}

// AddComment notifies the other party: the assignee when the reporter
// comments, the reporter otherwise.
func (s *Service) AddComment(ctx context.Context, id int, content string, actorID int, privileged bool) (*Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyComment
	}

	t, err := s.Visible(ctx, id, actorID, privileged)
	if err != nil {
		return nil, err
	}
	if t.Status == StatusClosed {
		return nil, ErrClosed
	}

	commentID, err := s.store.PersistComment(ctx, id, actorID, content)
	if err != nil {
		return nil, err
	}

	phone := t.reporterPhone
	if actorID == t.ReporterID() {
		phone = t.assigneePhone
	}
	s.notifier.Notify(phone, fmt.Sprintf("Komentar baru pada tiket %s: %s", t.Number, content))

	return s.store.GetComment(ctx, commentID)
}

func (s *Service) UploadAttachment(ctx context.Context, id int, upload *storage.Upload, actorID int, privileged bool) (*Ticket, error) {
	t, err := s.Visible(ctx, id, actorID, privileged)
	if err != nil {
		return nil, err
	}

	key, err := s.files.Save(ctx, "tickets", upload.ContentType, upload.Reader())
	if err != nil {
		return nil, fmt.Errorf("failed to store attachment: %w", err)
	}

	url := s.files.URL(key)
	if err := s.store.UpdateAttachment(ctx, id, url); err != nil {
		if delErr := s.files.Delete(ctx, key); delErr != nil {
			s.log.Warn("Unable to remove orphaned upload", zap.String("key", key), zap.Error(delErr))
		}
		return nil, err
	}

	t.AttachmentURL = &url
	s.audit.Log("upload_attachment", actorID, map[string]string{"attachment_url": url}, t)
	return t, nil
}

func (s *Service) Delete(ctx context.Context, id int, actorID int) error {
	t, err := s.store.GetTicket(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.RemoveTicket(ctx, id); err != nil {
		return err
	}

	s.audit.Log("delete", actorID, nil, t)
	s.cache.Revalidate(ctx)
	return nil
}
