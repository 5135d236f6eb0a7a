package auditlog

import (
	"encoding/json"
	"time"
)

type Entry struct {
	ID           int                    `json:"id" db:"id"`
	ResourceID   int                    `json:"resource_id" db:"resource_id"`
	ResourceType string                 `json:"resource_type" db:"resource_type"`
	Action       string                 `json:"action" db:"action"` // create, update, approve, fulfil, ...
	DataRaw      string                 `json:"-" db:"data"`
	Data         map[string]interface{} `json:"data" db:"-"`
	UserID       *int                   `json:"user_id,omitempty" db:"user_id"`
	Username     *string                `json:"username,omitempty" db:"username"`
	CreatedAt    time.Time              `json:"created_at" db:"created_at"`
}

func (a *Entry) LoadFromDB() {
	if a.DataRaw != "" {
		_ = json.Unmarshal([]byte(a.DataRaw), &a.Data)
	}
}

// Auditable is implemented by every record whose transitions are logged.
type Auditable interface {
	CreateLogView() Entry
}
