package purchase

import (
	"errors"
	"fmt"
	"time"

	"helpdesk/internal/auditlog"
	"helpdesk/internal/repository"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound     = errors.New("purchase request not found")
	ErrNotEditable  = errors.New("only draft purchase requests can be changed")
	ErrStale        = errors.New("purchase request status changed, reload and retry")
	ErrInvalidLine  = errors.New("each line needs a positive quantity and a non-negative price")
	ErrDuplicateRow = errors.New("item listed more than once")
)

type Status string

const (
	StatusDraft   Status = "draft"
	StatusProcess Status = "process"
	StatusSuccess Status = "success"
)

type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move purchase request from %s to %s", e.From, e.To)
}

type PurchaseRequest struct {
	ID              int             `json:"id" db:"id"`
	Number          string          `json:"number" db:"number"`
	RequestedBy     int             `json:"requested_by" db:"requested_by"`
	RequestedByName string          `json:"requested_by_name" db:"requested_by_name"`
	Supplier        *string         `json:"supplier,omitempty" db:"supplier"`
	Notes           *string         `json:"notes,omitempty" db:"notes"`
	Status          Status          `json:"status" db:"status"`
	Total           decimal.Decimal `json:"total" db:"total"`
	SubmittedAt     *time.Time      `json:"submitted_at,omitempty" db:"submitted_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
	CompletedBy     *int            `json:"completed_by,omitempty" db:"completed_by"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
	Items           []Item          `json:"items" db:"-"`
}

type Item struct {
	ID                int             `json:"id" db:"id"`
	PurchaseRequestID int             `json:"-" db:"purchase_request_id"`
	ItemID            int             `json:"item_id" db:"item_id"`
	ItemCode          string          `json:"item_code" db:"item_code"`
	ItemName          string          `json:"item_name" db:"item_name"`
	Unit              string          `json:"unit" db:"unit"`
	Quantity          int             `json:"quantity" db:"quantity"`
	UnitPrice         decimal.Decimal `json:"unit_price" db:"unit_price"`
}

func (i Item) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (p *PurchaseRequest) CreateLogView() auditlog.Entry {
	return auditlog.Entry{ResourceID: p.ID, ResourceType: "atk_purchase_request"}
}

type Line struct {
	ItemID    int             `json:"item_id" binding:"required"`
	Quantity  int             `json:"quantity" binding:"required"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type PurchaseRequestBody struct {
	Supplier *string `json:"supplier"`
	Notes    *string `json:"notes"`
	Items    []Line  `json:"items" binding:"required,min=1,dive"`
}

// Validate checks the lines and returns the request total.
func (b *PurchaseRequestBody) Validate() (decimal.Decimal, error) {
	total := decimal.Zero
	seen := make(map[int]bool, len(b.Items))
	for _, line := range b.Items {
		if line.Quantity <= 0 || line.UnitPrice.IsNegative() {
			return decimal.Zero, fmt.Errorf("%w: item %d", ErrInvalidLine, line.ItemID)
		}
		if seen[line.ItemID] {
			return decimal.Zero, fmt.Errorf("%w: %d", ErrDuplicateRow, line.ItemID)
		}
		seen[line.ItemID] = true
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total.Round(2), nil
}

type PurchaseFilter struct {
	Status      string
	RequestedBy int
	Page        repository.Pagination
}
