package cache

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

const DashboardSummaryKey = "dashboard:summary"

// Store is a byte cache with per-entry TTL. A miss is (nil, false, nil).
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Revalidator drops cached read models after a write.
type Revalidator interface {
	Revalidate(ctx context.Context)
}

type Invalidator struct {
	store Store
	keys  []string
	log   *zap.Logger
}

func NewInvalidator(store Store, log *zap.Logger, keys ...string) *Invalidator {
	if len(keys) == 0 {
		keys = []string{DashboardSummaryKey}
	}
	return &Invalidator{store: store, keys: keys, log: log}
}

// Revalidate never fails the caller; a stale entry expires with its TTL.
func (i *Invalidator) Revalidate(ctx context.Context) {
	if err := i.store.Delete(ctx, i.keys...); err != nil {
		i.log.Warn("Unable to revalidate cache", zap.Strings("keys", i.keys), zap.Error(err))
	}
}

func GetJSON(ctx context.Context, store Store, key string, dst interface{}) (bool, error) {
	raw, ok, err := store.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, err
	}
	return true, nil
}

func SetJSON(ctx context.Context, store Store, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return store.Set(ctx, key, raw, ttl)
}
