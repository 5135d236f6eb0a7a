package assets

import (
	"errors"
	"fmt"
	"time"

	"helpdesk/internal/auditlog"
	"helpdesk/internal/repository"
	"helpdesk/pkg/metadata"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound         = errors.New("asset not found")
	ErrCategoryNotFound = errors.New("asset category not found")
	ErrAssetInUse       = errors.New("asset has an active borrowing or an undelivered distribution")
	ErrManagedStatus    = errors.New("borrowed and distributed statuses are set by their workflows")
	ErrNoPurchaseDate   = errors.New("asset has no purchase date")
)

const dateLayout = "2006-01-02"

type CategoryRef struct {
	ID   int    `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

type LocationRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Asset struct {
	ID               int                `json:"id"`
	Code             string             `json:"code"`
	Name             string             `json:"name"`
	Category         CategoryRef        `json:"category"`
	Location         *LocationRef       `json:"location,omitempty"`
	Brand            *string            `json:"brand,omitempty"`
	Model            *string            `json:"model,omitempty"`
	SerialNumber     *string            `json:"serial_number,omitempty"`
	PurchaseDate     *time.Time         `json:"purchase_date,omitempty"`
	PurchasePrice    decimal.Decimal    `json:"purchase_price"`
	SalvageValue     decimal.Decimal    `json:"salvage_value"`
	UsefulLifeMonths int                `json:"useful_life_months"`
	Origin           metadata.Origin    `json:"origin"`
	Status           metadata.Status    `json:"status"`
	Condition        metadata.Condition `json:"condition"`
	ImageURL         *string            `json:"image_url,omitempty"`
	Notes            *string            `json:"notes,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

func (a *Asset) CreateLogView() auditlog.Entry {
	return auditlog.Entry{ResourceID: a.ID, ResourceType: "asset"}
}

func (a *Asset) LocationID() int {
	if a.Location == nil {
		return 0
	}
	return a.Location.ID
}

type FlatAssetRecord struct {
	ID               int             `db:"id"`
	Code             string          `db:"code"`
	Name             string          `db:"name"`
	CategoryID       int             `db:"category_id"`
	CategoryCode     string          `db:"category_code"`
	CategoryName     string          `db:"category_name"`
	LocationID       *int            `db:"location_id"`
	LocationName     *string         `db:"location_name"`
	Brand            *string         `db:"brand"`
	Model            *string         `db:"model"`
	SerialNumber     *string         `db:"serial_number"`
	PurchaseDate     *time.Time      `db:"purchase_date"`
	PurchasePrice    decimal.Decimal `db:"purchase_price"`
	SalvageValue     decimal.Decimal `db:"salvage_value"`
	UsefulLifeMonths int             `db:"useful_life_months"`
	Origin           string          `db:"origin"`
	Status           string          `db:"status"`
	Condition        string          `db:"condition"`
	ImageURL         *string         `db:"image_url"`
	Notes            *string         `db:"notes"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

func (f *FlatAssetRecord) TransformToAsset() Asset {
	a := Asset{
		ID:               f.ID,
		Code:             f.Code,
		Name:             f.Name,
		Category:         CategoryRef{ID: f.CategoryID, Code: f.CategoryCode, Name: f.CategoryName},
		Brand:            f.Brand,
		Model:            f.Model,
		SerialNumber:     f.SerialNumber,
		PurchaseDate:     f.PurchaseDate,
		PurchasePrice:    f.PurchasePrice,
		SalvageValue:     f.SalvageValue,
		UsefulLifeMonths: f.UsefulLifeMonths,
		Origin:           metadata.Origin(f.Origin),
		Status:           metadata.Status(f.Status),
		Condition:        metadata.Condition(f.Condition),
		ImageURL:         f.ImageURL,
		Notes:            f.Notes,
		CreatedAt:        f.CreatedAt,
		UpdatedAt:        f.UpdatedAt,
	}

	if f.LocationID != nil {
		a.Location = &LocationRef{ID: *f.LocationID}
		if f.LocationName != nil {
			a.Location.Name = *f.LocationName
		}
	}

	return a
}

type AssetRequest struct {
	Name             string          `json:"name" binding:"required"`
	CategoryID       int             `json:"category_id" binding:"required"`
	LocationID       *int            `json:"location_id"`
	Brand            *string         `json:"brand"`
	Model            *string         `json:"model"`
	SerialNumber     *string         `json:"serial_number"`
	PurchaseDate     string          `json:"purchase_date" binding:"omitempty,datetime=2006-01-02"`
	PurchasePrice    decimal.Decimal `json:"purchase_price"`
	SalvageValue     decimal.Decimal `json:"salvage_value"`
	UsefulLifeMonths int             `json:"useful_life_months" binding:"gte=0"`
	Origin           string          `json:"origin"`
	Condition        string          `json:"condition"`
	Notes            *string         `json:"notes"`
}

// Validate checks what binding tags cannot express.
func (r *AssetRequest) Validate() error {
	if r.PurchasePrice.IsNegative() || r.SalvageValue.IsNegative() {
		return fmt.Errorf("purchase_price and salvage_value must not be negative")
	}
	if r.SalvageValue.GreaterThan(r.PurchasePrice) {
		return fmt.Errorf("salvage_value must not exceed purchase_price")
	}
	if _, err := metadata.NewOrigin(r.Origin); err != nil {
		return err
	}
	if _, err := metadata.NewCondition(r.Condition); err != nil {
		return err
	}
	return nil
}

func (r *AssetRequest) purchaseDate() *time.Time {
	if r.PurchaseDate == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, r.PurchaseDate)
	if err != nil {
		return nil
	}
	return &t
}

type AssetFilter struct {
	Status     string
	CategoryID int
	LocationID int
	Search     string
	Page       repository.Pagination
}

type Category struct {
	ID          int       `json:"id" db:"id"`
	Code        string    `json:"code" db:"code" binding:"required,alphanum,max=10"`
	Name        string    `json:"name" db:"name" binding:"required"`
	Description *string   `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

func (c *Category) CreateLogView() auditlog.Entry {
	return auditlog.Entry{ResourceID: c.ID, ResourceType: "asset_category"}
}
