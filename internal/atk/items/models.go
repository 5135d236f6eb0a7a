package items

import (
	"errors"
	"fmt"
	"time"

	"helpdesk/internal/auditlog"
	"helpdesk/internal/repository"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound         = errors.New("item not found")
	ErrInvalidCategory  = errors.New("category must be consumable or sparepart")
	ErrInvalidQuantity  = errors.New("quantity must be positive")
	ErrInvalidMovement  = errors.New("movement type must be in, out or adjustment")
	ErrNegativeMinStock = errors.New("min_stock must not be negative")
	ErrNegativePrice    = errors.New("price must not be negative")
)

type Category string

const (
	CategoryConsumable Category = "consumable"
	CategorySparepart  Category = "sparepart"
)

func NewCategory(value string) (Category, error) {
	c := Category(value)
	switch c {
	case CategoryConsumable, CategorySparepart:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, value)
}

type MovementType string

const (
	MovementIn         MovementType = "in"
	MovementOut        MovementType = "out"
	MovementAdjustment MovementType = "adjustment"
)

type Item struct {
	ID          int             `json:"id" db:"id"`
	Code        string          `json:"code" db:"code"`
	Name        string          `json:"name" db:"name"`
	Category    Category        `json:"category" db:"category"`
	Unit        string          `json:"unit" db:"unit"`
	Stock       int             `json:"stock" db:"stock"`
	MinStock    int             `json:"min_stock" db:"min_stock"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Location    *string         `json:"location,omitempty" db:"location"`
	Description *string         `json:"description,omitempty" db:"description"`
	ImageURL    *string         `json:"image_url,omitempty" db:"image_url"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

func (i *Item) CreateLogView() auditlog.Entry {
	return auditlog.Entry{ResourceID: i.ID, ResourceType: "atk_item"}
}

func (i *Item) IsLowStock() bool {
	return i.Stock <= i.MinStock
}

type StockHistory struct {
	ID            int          `json:"id" db:"id"`
	ItemID        int          `json:"item_id" db:"item_id"`
	Type          MovementType `json:"type" db:"type"`
	PreviousStock int          `json:"previous_stock" db:"previous_stock"`
	Change        int          `json:"change" db:"change"`
	NewStock      int          `json:"new_stock" db:"new_stock"`
	ReferenceType *string      `json:"reference_type,omitempty" db:"reference_type"`
	ReferenceID   *int         `json:"reference_id,omitempty" db:"reference_id"`
	Notes         *string      `json:"notes,omitempty" db:"notes"`
	CreatedBy     *int         `json:"created_by,omitempty" db:"created_by"`
	CreatedByName *string      `json:"created_by_name,omitempty" db:"created_by_name"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
}

// Movement is one requested stock change. For adjustments Quantity is the
// counted stock, for in and out it is the amount moved.
type Movement struct {
	ItemID        int
	Type          MovementType
	Quantity      int
	ReferenceType string
	ReferenceID   int
	Notes         *string
	CreatedBy     int
}

func (m Movement) Validate() error {
	switch m.Type {
	case MovementIn, MovementOut:
		if m.Quantity <= 0 {
			return ErrInvalidQuantity
		}
	case MovementAdjustment:
		if m.Quantity < 0 {
			return ErrInvalidQuantity
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMovement, m.Type)
	}
	return nil
}

// Apply returns the stock after the movement. Outgoing stock never drops
// below zero; the recorded change is what actually left.
func (m Movement) Apply(previous int) (next int, change int) {
	switch m.Type {
	case MovementIn:
		next = previous + m.Quantity
	case MovementOut:
		next = previous - m.Quantity
		if next < 0 {
			next = 0
		}
	default:
		next = m.Quantity
	}
	return next, next - previous
}

type ItemRequest struct {
	Name        string          `json:"name" binding:"required"`
	Category    string          `json:"category" binding:"required"`
	Unit        string          `json:"unit" binding:"required"`
	Stock       int             `json:"stock" binding:"gte=0"`
	MinStock    int             `json:"min_stock"`
	Price       decimal.Decimal `json:"price"`
	Location    *string         `json:"location"`
	Description *string         `json:"description"`
}

func (r *ItemRequest) Validate() (Category, error) {
	if r.MinStock < 0 {
		return "", ErrNegativeMinStock
	}
	if r.Price.IsNegative() {
		return "", ErrNegativePrice
	}
	return NewCategory(r.Category)
}

type AdjustStockRequest struct {
	Type     string  `json:"type" binding:"required"`
	Quantity int     `json:"quantity"`
	Notes    *string `json:"notes"`
}

type ItemFilter struct {
	Category string
	Search   string
	LowStock bool
	Page     repository.Pagination
}
