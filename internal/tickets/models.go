package tickets

import (
	"errors"
	"fmt"
	"time"

	"helpdesk/internal/auditlog"
	"helpdesk/internal/repository"
)

var (
	ErrNotFound        = errors.New("ticket not found")
	ErrInvalidPriority = errors.New("priority must be low, medium, high or urgent")
	ErrInvalidCategory = errors.New("unknown ticket category")
	ErrInvalidStatus   = errors.New("unknown ticket status")
	ErrNotTechnician   = errors.New("assignee must be an active technician")
	ErrForbidden       = errors.New("not allowed to modify this ticket")
	ErrClosed          = errors.New("ticket is closed")
	ErrEmptyComment    = errors.New("comment must not be empty")
	ErrStale           = errors.New("ticket status changed, reload and retry")
)

type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

// OpenStatuses count towards a technician's workload.
var OpenStatuses = []Status{StatusOpen, StatusInProgress}

var transitions = map[Status][]Status{
	StatusOpen:       {StatusInProgress, StatusResolved, StatusClosed},
	StatusInProgress: {StatusOpen, StatusResolved},
	StatusResolved:   {StatusInProgress, StatusClosed},
}

func NewStatus(value string) (Status, error) {
	s := Status(value)
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return s, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, value)
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot change ticket from %s to %s", e.From, e.To)
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// NewPriority defaults an empty value to medium.
func NewPriority(value string) (Priority, error) {
	if value == "" {
		return PriorityMedium, nil
	}
	p := Priority(value)
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPriority, value)
}

type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

const (
	CategoryHardware = "hardware"
	CategorySoftware = "software"
	CategoryNetwork  = "network"
	CategoryAccess   = "access"
	CategoryOther    = "other"
)

var Categories = []Category{
	{ID: CategoryHardware, Name: "Perangkat keras", Description: "Kerusakan atau gangguan perangkat"},
	{ID: CategorySoftware, Name: "Perangkat lunak", Description: "Instalasi, lisensi atau error aplikasi"},
	{ID: CategoryNetwork, Name: "Jaringan", Description: "Internet, Wi-Fi atau koneksi kantor"},
	{ID: CategoryAccess, Name: "Akses akun", Description: "Reset kata sandi dan hak akses"},
	{ID: CategoryOther, Name: "Lainnya", Description: "Permintaan lain"},
}

func validCategory(id string) bool {
	for _, c := range Categories {
		if c.ID == id {
			return true
		}
	}
	return false
}

type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

type Ticket struct {
	ID            int        `json:"id"`
	Number        string     `json:"number"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Category      string     `json:"category"`
	Priority      Priority   `json:"priority"`
	Status        Status     `json:"status"`
	Reporter      *User      `json:"reporter,omitempty"`
	Assignee      *User      `json:"assignee,omitempty"`
	AssetID       *int       `json:"asset_id,omitempty"`
	AssetCode     *string    `json:"asset_code,omitempty"`
	AttachmentURL *string    `json:"attachment_url,omitempty"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
	ClosedAt      *time.Time `json:"closed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	reporterPhone string
	assigneePhone string
}

func (t *Ticket) CreateLogView() auditlog.Entry {
	return auditlog.Entry{ResourceID: t.ID, ResourceType: "ticket"}
}

func (t *Ticket) ReporterID() int {
	if t.Reporter == nil {
		return 0
	}
	return t.Reporter.ID
}

func (t *Ticket) AssigneeID() int {
	if t.Assignee == nil {
		return 0
	}
	return t.Assignee.ID
}

type FlatTicketRecord struct {
	ID               int        `db:"id"`
	Number           string     `db:"number"`
	Title            string     `db:"title"`
	Description      string     `db:"description"`
	Category         string     `db:"category"`
	Priority         string     `db:"priority"`
	Status           string     `db:"status"`
	ReporterID       int        `db:"reporter_id"`
	ReporterUsername *string    `db:"reporter_username"`
	ReporterFullName *string    `db:"reporter_full_name"`
	ReporterPhone    *string    `db:"reporter_phone"`
	AssigneeID       *int       `db:"assignee_id"`
	AssigneeUsername *string    `db:"assignee_username"`
	AssigneeFullName *string    `db:"assignee_full_name"`
	AssigneePhone    *string    `db:"assignee_phone"`
	AssetID          *int       `db:"asset_id"`
	AssetCode        *string    `db:"asset_code"`
	AttachmentURL    *string    `db:"attachment_url"`
	ResolvedAt       *time.Time `db:"resolved_at"`
	ClosedAt         *time.Time `db:"closed_at"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (f *FlatTicketRecord) TransformToTicket() Ticket {
	t := Ticket{
		ID:            f.ID,
		Number:        f.Number,
		Title:         f.Title,
		Description:   f.Description,
		Category:      f.Category,
		Priority:      Priority(f.Priority),
		Status:        Status(f.Status),
		AssetID:       f.AssetID,
		AssetCode:     f.AssetCode,
		AttachmentURL: f.AttachmentURL,
		ResolvedAt:    f.ResolvedAt,
		ClosedAt:      f.ClosedAt,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
		reporterPhone: deref(f.ReporterPhone),
		assigneePhone: deref(f.AssigneePhone),
	}

	if f.ReporterUsername != nil {
		t.Reporter = &User{ID: f.ReporterID, Username: *f.ReporterUsername, FullName: deref(f.ReporterFullName)}
	}
	if f.AssigneeID != nil {
		t.Assignee = &User{ID: *f.AssigneeID, Username: deref(f.AssigneeUsername), FullName: deref(f.AssigneeFullName)}
	}

	return t
}

type Comment struct {
	ID        int       `json:"id"`
	TicketID  int       `json:"ticket_id"`
	Content   string    `json:"content"`
	User      *User     `json:"user"`
	CreatedAt time.Time `json:"created_at"`
}

type FlatComment struct {
	ID        int       `db:"id"`
	TicketID  int       `db:"ticket_id"`
	Content   string    `db:"content"`
	UserID    int       `db:"user_id"`
	Username  string    `db:"comment_user_username"`
	FullName  string    `db:"comment_user_full_name"`
	CreatedAt time.Time `db:"created_at"`
}

func (f *FlatComment) TransformToComment() Comment {
	return Comment{
		ID:        f.ID,
		TicketID:  f.TicketID,
		Content:   f.Content,
		CreatedAt: f.CreatedAt,
		User:      &User{ID: f.UserID, Username: f.Username, FullName: f.FullName},
	}
}

// Workload is one active technician and their open plus in-progress count.
type Workload struct {
	TechnicianID int     `db:"technician_id"`
	FullName     string  `db:"full_name"`
	Phone        *string `db:"phone"`
	Open         int     `db:"open_tickets"`
}

// LeastBusy picks the technician with the strictly lowest count. On ties the
// first one in the given order wins. It returns nil for an empty list.
func LeastBusy(load []Workload) *Workload {
	var best *Workload
	for i := range load {
		if best == nil || load[i].Open < best.Open {
			best = &load[i]
		}
	}
	return best
}

type CreateTicketRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
	Category    string `json:"category" binding:"required"`
	Priority    string `json:"priority"`
	AssetID     *int   `json:"asset_id"`
	AssigneeID  *int   `json:"assignee_id"`
	ReporterID  int    `json:"reporter_id"`
}

type UpdateTicketRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
	Category    string `json:"category" binding:"required"`
	Priority    string `json:"priority"`
	AssetID     *int   `json:"asset_id"`
}

type AssignRequest struct {
	AssigneeID int `json:"assignee_id" binding:"required"`
}

type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type CommentRequest struct {
	Content string `json:"content" binding:"required"`
}

type TicketFilter struct {
	Status     string
	Priority   string
	Category   string
	AssigneeID int
	ReporterID int
	Search     string
	Page       repository.Pagination
}
