package requests

import (
	"errors"
	"fmt"
	"time"

	"helpdesk/internal/atk/items"
	"helpdesk/internal/auditlog"
	"helpdesk/internal/repository"
)

var (
	ErrNotFound        = errors.New("request not found")
	ErrNotEditable     = errors.New("only pending requests can be changed")
	ErrForbidden       = errors.New("not allowed to modify this request")
	ErrStale           = errors.New("request status changed, reload and retry")
	ErrInvalidLine     = errors.New("each line needs a positive quantity")
	ErrDuplicateItem   = errors.New("item listed more than once")
	ErrInvalidApproval = errors.New("approved quantity must be between 0 and the requested quantity")
	ErrUnknownLine     = errors.New("approval refers to a line not on this request")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusFulfilled Status = "fulfilled"
)

var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusFulfilled},
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
	return fmt.Sprintf("cannot change request from %s to %s", e.From, e.To)
}

type Request struct {
	ID              int        `json:"id" db:"id"`
	Number          string     `json:"number" db:"number"`
	RequesterID     int        `json:"requester_id" db:"requester_id"`
	RequesterName   string     `json:"requester_name" db:"requester_name"`
	RequesterPhone  *string    `json:"-" db:"requester_phone"`
	Department      *string    `json:"department,omitempty" db:"department"`
	Purpose         string     `json:"purpose" db:"purpose"`
	Status          Status     `json:"status" db:"status"`
	ApprovedBy      *int       `json:"approved_by,omitempty" db:"approved_by"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty" db:"approved_at"`
	RejectionReason *string    `json:"rejection_reason,omitempty" db:"rejection_reason"`
	FulfilledBy     *int       `json:"fulfilled_by,omitempty" db:"fulfilled_by"`
	FulfilledAt     *time.Time `json:"fulfilled_at,omitempty" db:"fulfilled_at"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
	Items           []Item     `json:"items" db:"-"`
}

type Item struct {
	ID               int    `json:"id" db:"id"`
	RequestID        int    `json:"-" db:"request_id"`
	ItemID           int    `json:"item_id" db:"item_id"`
	ItemCode         string `json:"item_code" db:"item_code"`
	ItemName         string `json:"item_name" db:"item_name"`
	Unit             string `json:"unit" db:"unit"`
	Quantity         int    `json:"quantity" db:"quantity"`
	ApprovedQuantity *int   `json:"approved_quantity,omitempty" db:"approved_quantity"`
}

func (r *Request) CreateLogView() auditlog.Entry {
	return auditlog.Entry{ResourceID: r.ID, ResourceType: "atk_request"}
}

func (r *Request) phone() string {
	if r.RequesterPhone == nil {
		return ""
	}
	return *r.RequesterPhone
}

// Movements turns the approved quantities into outgoing stock. Lines
// approved at zero move nothing and are skipped.
func (r *Request) Movements(actorID int) []items.Movement {
	movements := make([]items.Movement, 0, len(r.Items))
	for _, line := range r.Items {
		if line.ApprovedQuantity == nil || *line.ApprovedQuantity == 0 {
			continue
		}
		movements = append(movements, items.Movement{
			ItemID:        line.ItemID,
			Type:          items.MovementOut,
			Quantity:      *line.ApprovedQuantity,
			ReferenceType: "atk_request",
			ReferenceID:   r.ID,
			CreatedBy:     actorID,
		})
	}
	return movements
}

type Line struct {
	ItemID   int `json:"item_id" binding:"required"`
	Quantity int `json:"quantity" binding:"required"`
}

type RequestBody struct {
	Department *string `json:"department"`
	Purpose    string  `json:"purpose" binding:"required"`
	Items      []Line  `json:"items" binding:"required,min=1,dive"`
}

func (b *RequestBody) Validate() error {
	seen := make(map[int]bool, len(b.Items))
	for _, line := range b.Items {
		if line.Quantity <= 0 {
			return fmt.Errorf("%w: item %d", ErrInvalidLine, line.ItemID)
		}
		if seen[line.ItemID] {
			return fmt.Errorf("%w: %d", ErrDuplicateItem, line.ItemID)
		}
		seen[line.ItemID] = true
	}
	return nil
}

type Approval struct {
	LineID           int `json:"line_id" binding:"required"`
	ApprovedQuantity int `json:"approved_quantity"`
}

type ApproveBody struct {
	Items []Approval `json:"items"`
}

// Resolve returns the approved quantity per line id. Lines without an
// explicit approval get their full requested quantity.
func (b ApproveBody) Resolve(lines []Item) (map[int]int, error) {
	approved := make(map[int]int, len(lines))
	requested := make(map[int]int, len(lines))
	for _, line := range lines {
		approved[line.ID] = line.Quantity
		requested[line.ID] = line.Quantity
	}

	for _, a := range b.Items {
		limit, ok := requested[a.LineID]
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownLine, a.LineID)
		}
		if a.ApprovedQuantity < 0 || a.ApprovedQuantity > limit {
			return nil, fmt.Errorf("%w: line %d requested %d, approved %d", ErrInvalidApproval, a.LineID, limit, a.ApprovedQuantity)
		}
		approved[a.LineID] = a.ApprovedQuantity
	}
	return approved, nil
}

type RejectBody struct {
	Reason string `json:"reason"`
}

// Transition is the set of columns written by one status change.
type Transition struct {
	From     Status
	To       Status
	ActorID  int
	At       time.Time
	Reason   *string
	Approved map[int]int
}

type RequestFilter struct {
	Status      string
	RequesterID int
	Page        repository.Pagination
}
