package auditlog

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Store interface {
	PersistLog(ctx context.Context, entry Entry, data interface{}) error
	GetResourceLog(ctx context.Context, id int, resourceType string) ([]Entry, error)
}

// Recorder is what feature services log their transitions through.
type Recorder interface {
	Log(action string, userID int, data interface{}, item Auditable)
}

type Auditlog struct {
	store Store
	log   *zap.Logger
	wg    sync.WaitGroup
}

func NewAuditLog(store Store, log *zap.Logger) *Auditlog {
	return &Auditlog{store: store, log: log}
}

// Log persists the entry in the background. Failures are only logged.
func (a *Auditlog) Log(action string, userID int, data interface{}, item Auditable) {
	entry := item.CreateLogView()
	entry.Action = action
	if userID > 0 {
		entry.UserID = &userID
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := a.store.PersistLog(ctx, entry, data); err != nil {
			a.log.Error("Unable to create AuditLog entry",
				zap.String("resource_type", entry.ResourceType),
				zap.Int("resource_id", entry.ResourceID),
				zap.Error(err))
			return
		}

		a.log.Debug("Created AuditLog entry",
			zap.String("resource_type", entry.ResourceType),
			zap.Int("resource_id", entry.ResourceID),
			zap.String("action", action))
	}()
}

func (a *Auditlog) Wait() {
	a.wg.Wait()
}

func (a *Auditlog) ResourceLog(ctx context.Context, id int, resourceType string) ([]Entry, error) {
	return a.store.GetResourceLog(ctx, id, resourceType)
}

// Discard drops every entry.
type Discard struct{}

func (Discard) Log(action string, userID int, data interface{}, item Auditable) {}
