package distribution

import (
	"errors"
	"fmt"
	"time"

	"helpdesk/internal/auditlog"
	"helpdesk/internal/repository"
)

var (
	ErrNotFound         = errors.New("distribution not found")
	ErrNotEditable      = errors.New("only draft distributions can be changed")
	ErrAssetUnavailable = errors.New("asset is not available for distribution")
	ErrDuplicateAsset   = errors.New("asset listed more than once")
	ErrStale            = errors.New("distribution status changed, reload and retry")
)

const dateLayout = "2006-01-02"

type Status string

const (
	StatusDraft   Status = "draft"
	StatusProcess Status = "process"
	StatusSuccess Status = "success"
)

var next = map[Status]Status{
	StatusDraft:   StatusProcess,
	StatusProcess: StatusSuccess,
}

type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move distribution from %s to %s", e.From, e.To)
}

func checkTransition(from, to Status) error {
	if next[from] != to {
		return &TransitionError{From: from, To: to}
	}
	return nil
}

type Distribution struct {
	ID               int        `json:"id" db:"id"`
	DocumentNumber   string     `json:"document_number" db:"document_number"`
	FromLocationID   *int       `json:"from_location_id,omitempty" db:"from_location_id"`
	FromLocationName *string    `json:"from_location_name,omitempty" db:"from_location_name"`
	ToLocationID     int        `json:"to_location_id" db:"to_location_id"`
	ToLocationName   string     `json:"to_location_name" db:"to_location_name"`
	RecipientName    string     `json:"recipient_name" db:"recipient_name"`
	RecipientPhone   *string    `json:"recipient_phone,omitempty" db:"recipient_phone"`
	DistributionDate time.Time  `json:"distribution_date" db:"distribution_date"`
	Notes            *string    `json:"notes,omitempty" db:"notes"`
	Status           Status     `json:"status" db:"status"`
	DocumentURL      *string    `json:"document_url,omitempty" db:"document_url"`
	CreatedBy        int        `json:"created_by" db:"created_by"`
	CreatedByName    string     `json:"created_by_name" db:"created_by_name"`
	CompletedAt      *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
	Items            []Item     `json:"items" db:"-"`
}

type Item struct {
	ID             int     `json:"id" db:"id"`
	DistributionID int     `json:"-" db:"distribution_id"`
	AssetID        int     `json:"asset_id" db:"asset_id"`
	AssetCode      string  `json:"asset_code" db:"asset_code"`
	AssetName      string  `json:"asset_name" db:"asset_name"`
	SerialNumber   *string `json:"serial_number,omitempty" db:"serial_number"`
	Condition      string  `json:"condition" db:"condition"`
}

func (d *Distribution) CreateLogView() auditlog.Entry {
	return auditlog.Entry{ResourceID: d.ID, ResourceType: "asset_distribution"}
}

func (d *Distribution) AssetIDs() []int {
	ids := make([]int, len(d.Items))
	for i, item := range d.Items {
		ids[i] = item.AssetID
	}
	return ids
}

func (d *Distribution) phone() string {
	if d.RecipientPhone == nil {
		return ""
	}
	return *d.RecipientPhone
}

type DistributionRequest struct {
	FromLocationID   *int    `json:"from_location_id"`
	ToLocationID     int     `json:"to_location_id" binding:"required"`
	RecipientName    string  `json:"recipient_name" binding:"required"`
	RecipientPhone   *string `json:"recipient_phone"`
	DistributionDate string  `json:"distribution_date" binding:"omitempty,datetime=2006-01-02"`
	Notes            *string `json:"notes"`
	AssetIDs         []int   `json:"asset_ids" binding:"required,min=1,dive,gt=0"`
}

func (r *DistributionRequest) date(now time.Time) time.Time {
	if t, err := time.Parse(dateLayout, r.DistributionDate); err == nil {
		return t
	}
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (r *DistributionRequest) uniqueAssets() error {
	seen := make(map[int]bool, len(r.AssetIDs))
	for _, id := range r.AssetIDs {
		if seen[id] {
			return fmt.Errorf("%w: %d", ErrDuplicateAsset, id)
		}
		seen[id] = true
	}
	return nil
}

type DistributionFilter struct {
	Status       string
	ToLocationID int
	Search       string
	Page         repository.Pagination
}
