package borrowing

import (
	"errors"
	"fmt"
	"time"

	"helpdesk/internal/auditlog"
	"helpdesk/internal/repository"
)

var (
	ErrNotFound         = errors.New("borrowing not found")
	ErrActiveBorrowing  = errors.New("asset already has an active borrowing")
	ErrAssetUnavailable = errors.New("asset cannot be borrowed")
	ErrInvalidPeriod    = errors.New("due_date must not be before borrow_date")
	ErrNotDeletable     = errors.New("only pending borrowings can be deleted")
	ErrForbidden        = errors.New("not allowed to modify this borrowing")
	ErrStale            = errors.New("borrowing status changed, reload and retry")
)

const dateLayout = "2006-01-02"

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusBorrowed Status = "borrowed"
	StatusReturned Status = "returned"
)

// ActiveStatuses block a second borrowing of the same asset.
var ActiveStatuses = []Status{StatusPending, StatusApproved, StatusBorrowed}

var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusBorrowed},
	StatusBorrowed: {StatusReturned},
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
	return fmt.Sprintf("cannot change borrowing from %s to %s", e.From, e.To)
}

type Borrowing struct {
	ID              int        `json:"id" db:"id"`
	AssetID         int        `json:"asset_id" db:"asset_id"`
	AssetCode       string     `json:"asset_code" db:"asset_code"`
	AssetName       string     `json:"asset_name" db:"asset_name"`
	BorrowerID      int        `json:"borrower_id" db:"borrower_id"`
	BorrowerName    string     `json:"borrower_name" db:"borrower_name"`
	BorrowerPhone   *string    `json:"-" db:"borrower_phone"`
	Purpose         string     `json:"purpose" db:"purpose"`
	BorrowDate      time.Time  `json:"borrow_date" db:"borrow_date"`
	DueDate         time.Time  `json:"due_date" db:"due_date"`
	ReturnedAt      *time.Time `json:"returned_at,omitempty" db:"returned_at"`
	Status          Status     `json:"status" db:"status"`
	ApprovedBy      *int       `json:"approved_by,omitempty" db:"approved_by"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty" db:"approved_at"`
	Notes           *string    `json:"notes,omitempty" db:"notes"`
	ReturnCondition *string    `json:"return_condition,omitempty" db:"return_condition"`
	RejectionReason *string    `json:"rejection_reason,omitempty" db:"rejection_reason"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

func (b *Borrowing) CreateLogView() auditlog.Entry {
	return auditlog.Entry{ResourceID: b.ID, ResourceType: "asset_borrowing"}
}

func (b *Borrowing) phone() string {
	if b.BorrowerPhone == nil {
		return ""
	}
	return *b.BorrowerPhone
}

type CreateBorrowingRequest struct {
	AssetID    int     `json:"asset_id" binding:"required"`
	BorrowerID int     `json:"borrower_id"`
	Purpose    string  `json:"purpose" binding:"required"`
	BorrowDate string  `json:"borrow_date" binding:"required,datetime=2006-01-02"`
	DueDate    string  `json:"due_date" binding:"required,datetime=2006-01-02"`
	Notes      *string `json:"notes"`
}

func (r *CreateBorrowingRequest) period() (time.Time, time.Time, error) {
	from, err := time.Parse(dateLayout, r.BorrowDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	due, err := time.Parse(dateLayout, r.DueDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if due.Before(from) {
		return time.Time{}, time.Time{}, ErrInvalidPeriod
	}
	return from, due, nil
}

type ReturnRequest struct {
	Condition string  `json:"condition"`
	Notes     *string `json:"notes"`
}

type RejectRequest struct {
	Reason string `json:"reason"`
}

// Transition is the set of columns written by one status change.
type Transition struct {
	From            Status
	To              Status
	ApprovedBy      *int
	ApprovedAt      *time.Time
	ReturnedAt      *time.Time
	ReturnCondition *string
	RejectionReason *string
	Notes           *string
}

type BorrowingFilter struct {
	Status     string
	AssetID    int
	BorrowerID int
	Page       repository.Pagination
}
