package dashboard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"helpdesk/internal/cache"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetSummary(ctx context.Context, today time.Time) (*Summary, error) {
	args := m.Called(today)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	s := *args.Get(0).(*Summary)
	return &s, args.Error(1)
}

var now = time.Date(2026, 5, 20, 14, 30, 0, 0, time.UTC)

func newTestService(store Store, c cache.Store) *Service {
	s := NewService(store, c, time.Minute, zap.NewNop())
	s.now = func() time.Time { return now }
	return s
}

func TestSummaryIsCachedUntilRevalidated(t *testing.T) {
	store := new(MockStore)
	today := time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC)
	store.On("GetSummary", today).Return(&Summary{OpenTickets: 4, LowStockItems: 2}, nil)

	mem := cache.NewMemoryStore()
	s := newTestService(store, mem)

	first, err := s.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), first.OpenTickets)
	assert.Equal(t, now, first.GeneratedAt)

	second, err := s.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.LowStockItems)
	store.AssertNumberOfCalls(t, "GetSummary", 1)

	cache.NewInvalidator(mem, zap.NewNop()).Revalidate(context.Background())

	_, err = s.Summary(context.Background())
	require.NoError(t, err)
	store.AssertNumberOfCalls(t, "GetSummary", 2)
}

type brokenCache struct{}

func (brokenCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, errors.New("connection refused")
}

func (brokenCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errors.New("connection refused")
}

func (brokenCache) Delete(ctx context.Context, keys ...string) error {
	return errors.New("connection refused")
}

func TestSummaryFallsThroughBrokenCache(t *testing.T) {
	store := new(MockStore)
	store.On("GetSummary", mock.Anything).Return(&Summary{PendingBorrowings: 3}, nil)

	summary, err := newTestService(store, brokenCache{}).Summary(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.PendingBorrowings)
}

func TestGetSummaryHandlerError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := new(MockStore)
	store.On("GetSummary", mock.Anything).Return(nil, errors.New("db down"))
	handler := NewHandler(newTestService(store, cache.NewMemoryStore()))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard", nil)

	handler.GetSummary(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
