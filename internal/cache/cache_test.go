package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))

	val, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), val)

	now = now.Add(time.Minute)
	_, ok, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	type summary struct {
		Open int `json:"open"`
	}

	var got summary
	ok, err := GetJSON(ctx, store, DashboardSummaryKey, &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, SetJSON(ctx, store, DashboardSummaryKey, summary{Open: 4}, 0))
	ok, err = GetJSON(ctx, store, DashboardSummaryKey, &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 4, got.Open)
}

func TestInvalidatorRevalidate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Set(ctx, DashboardSummaryKey, []byte("{}"), 0))

	NewInvalidator(store, zap.NewNop()).Revalidate(ctx)

	_, ok, _ := store.Get(ctx, DashboardSummaryKey)
	assert.False(t, ok)
}

type failingStore struct{ MemoryStore }

func (f *failingStore) Delete(ctx context.Context, keys ...string) error {
	return errors.New("connection refused")
}

func TestInvalidatorSwallowsErrors(t *testing.T) {
	inv := NewInvalidator(&failingStore{}, zap.NewNop(), "a", "b")
	assert.NotPanics(t, func() { inv.Revalidate(context.Background()) })
}
