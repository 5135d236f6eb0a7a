package locations

import (
	"errors"
	"time"

	"helpdesk/internal/auditlog"
)

var ErrNotFound = errors.New("location not found")

type Location struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name" binding:"required"`
	Details   *string   `json:"details,omitempty" db:"details"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

func (l *Location) CreateLogView() auditlog.Entry {
	return auditlog.Entry{ResourceID: l.ID, ResourceType: "location"}
}

// LocatedAsset is the short asset view listed under a location.
type LocatedAsset struct {
	ID     int    `json:"id" db:"id"`
	Code   string `json:"code" db:"code"`
	Name   string `json:"name" db:"name"`
	Status string `json:"status" db:"status"`
}
