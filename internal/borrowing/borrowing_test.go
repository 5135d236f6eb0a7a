package borrowing

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"helpdesk/internal/assets"
	"helpdesk/internal/auditlog"
	"helpdesk/internal/cache"
	"helpdesk/pkg/metadata"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) HasActiveBorrowing(ctx context.Context, assetID int) (bool, error) {
	args := m.Called(assetID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) PersistBorrowing(ctx context.Context, b *Borrowing) error {
	args := m.Called(b)
	b.ID = 100
	return args.Error(0)
}

func (m *MockStore) GetBorrowing(ctx context.Context, id int) (*Borrowing, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	// copy so a service mutation does not leak between calls
	b := *args.Get(0).(*Borrowing)
	return &b, args.Error(1)
}

func (m *MockStore) GetBorrowings(ctx context.Context, filter BorrowingFilter) ([]Borrowing, int64, error) {
	args := m.Called(filter)
	return args.Get(0).([]Borrowing), int64(args.Int(1)), args.Error(2)
}

func (m *MockStore) GetOverdue(ctx context.Context, today time.Time) ([]Borrowing, error) {
	args := m.Called(today)
	return args.Get(0).([]Borrowing), args.Error(1)
}

func (m *MockStore) ApplyTransition(ctx context.Context, id int, t Transition) error {
	return m.Called(id, t).Error(0)
}

func (m *MockStore) DeleteBorrowing(ctx context.Context, id int) error {
	return m.Called(id).Error(0)
}

type MockAssetStore struct {
	mock.Mock
}

func (m *MockAssetStore) GetAsset(ctx context.Context, id int) (*assets.Asset, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*assets.Asset), args.Error(1)
}

func (m *MockAssetStore) UpdateStatus(ctx context.Context, ids []int, status metadata.Status) error {
	return m.Called(ids, status).Error(0)
}

func (m *MockAssetStore) UpdateCondition(ctx context.Context, id int, condition metadata.Condition) error {
	return m.Called(id, condition).Error(0)
}

type recordingPublisher struct {
	mu   sync.Mutex
	sent map[string][]string
}

func (r *recordingPublisher) Notify(phone string, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sent == nil {
		r.sent = map[string][]string{}
	}
	r.sent[phone] = append(r.sent[phone], message)
}

var today = time.Date(2026, 5, 20, 14, 30, 0, 0, time.UTC)

func newTestService(store Store, assetStore AssetStore, pub *recordingPublisher) *Service {
	s := NewService(store, assetStore, pub, auditlog.Discard{}, cache.NewInvalidator(cache.NewMemoryStore(), zap.NewNop()), zap.NewNop())
	s.now = func() time.Time { return today }
	return s
}

func phone(s string) *string { return &s }

func validRequest() CreateBorrowingRequest {
	return CreateBorrowingRequest{AssetID: 7, Purpose: "Presentasi klien", BorrowDate: "2026-05-21", DueDate: "2026-05-28"}
}

func TestActiveBorrowingBlocksSecond(t *testing.T) {
	store := new(MockStore)
	assetStore := new(MockAssetStore)
	assetStore.On("GetAsset", 7).Return(&assets.Asset{ID: 7, Status: metadata.StatusAvailable}, nil)
	store.On("HasActiveBorrowing", 7).Return(true, nil)

	_, err := newTestService(store, assetStore, &recordingPublisher{}).Create(context.Background(), validRequest(), 3, 3)

	assert.ErrorIs(t, err, ErrActiveBorrowing)
	store.AssertNotCalled(t, "PersistBorrowing", mock.Anything)
}

func TestCreateBorrowing(t *testing.T) {
	store := new(MockStore)
	assetStore := new(MockAssetStore)
	assetStore.On("GetAsset", 7).Return(&assets.Asset{ID: 7, Status: metadata.StatusAvailable}, nil)
	store.On("HasActiveBorrowing", 7).Return(false, nil)
	store.On("PersistBorrowing", mock.MatchedBy(func(b *Borrowing) bool {
		return b.Status == StatusPending && b.BorrowerID == 3 && b.DueDate.Format(dateLayout) == "2026-05-28"
	})).Return(nil)
	store.On("GetBorrowing", 100).Return(&Borrowing{ID: 100, Status: StatusPending}, nil)

	b, err := newTestService(store, assetStore, &recordingPublisher{}).Create(context.Background(), validRequest(), 3, 3)

	require.NoError(t, err)
	assert.Equal(t, 100, b.ID)
	store.AssertExpectations(t)
}

func TestCreateValidation(t *testing.T) {
	assetStore := new(MockAssetStore)
	assetStore.On("GetAsset", 7).Return(&assets.Asset{ID: 7, Status: metadata.StatusRetired}, nil)
	s := newTestService(new(MockStore), assetStore, &recordingPublisher{})

	req := validRequest()
	req.DueDate = "2026-05-01"
	_, err := s.Create(context.Background(), req, 3, 3)
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	_, err = s.Create(context.Background(), validRequest(), 3, 3)
	assert.ErrorIs(t, err, ErrAssetUnavailable)
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
		allowed  bool
	}{
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusRejected, true},
		{StatusPending, StatusBorrowed, false},
		{StatusApproved, StatusBorrowed, true},
		{StatusApproved, StatusRejected, false},
		{StatusBorrowed, StatusReturned, true},
		{StatusReturned, StatusBorrowed, false},
		{StatusRejected, StatusApproved, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestApproveNotifiesBorrower(t *testing.T) {
	store := new(MockStore)
	store.On("GetBorrowing", 1).Return(&Borrowing{
		ID: 1, Status: StatusPending, BorrowerName: "Sari", BorrowerPhone: phone("081234567890"),
		AssetName: "Proyektor", AssetCode: "AST-PRJ-2026-0001",
	}, nil)
	store.On("ApplyTransition", 1, mock.MatchedBy(func(t Transition) bool {
		return t.From == StatusPending && t.To == StatusApproved && *t.ApprovedBy == 9
	})).Return(nil)

	pub := &recordingPublisher{}
	b, err := newTestService(store, new(MockAssetStore), pub).Approve(context.Background(), 1, 9)

	require.NoError(t, err)
	assert.Equal(t, StatusApproved, b.Status)
	require.Len(t, pub.sent["081234567890"], 1)
	assert.Contains(t, pub.sent["081234567890"][0], "disetujui")
}

func TestApproveTwiceIsRejected(t *testing.T) {
	store := new(MockStore)
	store.On("GetBorrowing", 1).Return(&Borrowing{ID: 1, Status: StatusApproved}, nil)

	_, err := newTestService(store, new(MockAssetStore), &recordingPublisher{}).Approve(context.Background(), 1, 9)

	var te *TransitionError
	assert.ErrorAs(t, err, &te)
}

func TestHandOverAndReturn(t *testing.T) {
	store := new(MockStore)
	assetStore := new(MockAssetStore)
	store.On("GetBorrowing", 2).Return(&Borrowing{ID: 2, AssetID: 7, Status: StatusApproved}, nil).Twice()
	assetStore.On("GetAsset", 7).Return(&assets.Asset{ID: 7, Status: metadata.StatusAvailable}, nil)
	store.On("ApplyTransition", 2, mock.Anything).Return(nil)
	assetStore.On("UpdateStatus", []int{7}, metadata.StatusBorrowed).Return(nil)

	s := newTestService(store, assetStore, &recordingPublisher{})
	_, err := s.HandOver(context.Background(), 2, 9)
	require.NoError(t, err)

	store.On("GetBorrowing", 2).Return(&Borrowing{ID: 2, AssetID: 7, Status: StatusBorrowed}, nil)
	assetStore.On("UpdateStatus", []int{7}, metadata.StatusAvailable).Return(nil)
	assetStore.On("UpdateCondition", 7, metadata.ConditionDamaged).Return(nil)

	b, err := s.Return(context.Background(), 2, ReturnRequest{Condition: "damaged"}, 9)
	require.NoError(t, err)
	assert.Equal(t, StatusReturned, b.Status)
	assert.Equal(t, today, *b.ReturnedAt)
	assetStore.AssertExpectations(t)
}

func TestDeleteOnlyPending(t *testing.T) {
	store := new(MockStore)
	store.On("GetBorrowing", 1).Return(&Borrowing{ID: 1, Status: StatusApproved, BorrowerID: 3}, nil)
	store.On("GetBorrowing", 2).Return(&Borrowing{ID: 2, Status: StatusPending, BorrowerID: 3}, nil)
	store.On("DeleteBorrowing", 2).Return(nil)

	s := newTestService(store, new(MockAssetStore), &recordingPublisher{})

	assert.ErrorIs(t, s.Delete(context.Background(), 1, 3, false), ErrNotDeletable)
	assert.ErrorIs(t, s.Delete(context.Background(), 2, 4, false), ErrForbidden)
	assert.NoError(t, s.Delete(context.Background(), 2, 3, false))
}

func TestOverdueUsesStartOfToday(t *testing.T) {
	store := new(MockStore)
	store.On("GetOverdue", time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC)).Return([]Borrowing{
		{ID: 1, BorrowerPhone: phone("0811"), AssetName: "Laptop"},
		{ID: 2},
	}, nil)

	pub := &recordingPublisher{}
	sent, err := newTestService(store, new(MockAssetStore), pub).RemindOverdue(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Len(t, pub.sent["0811"], 1)
}

func TestCreateBorrowingHandlerConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := new(MockStore)
	assetStore := new(MockAssetStore)
	assetStore.On("GetAsset", 7).Return(&assets.Asset{ID: 7, Status: metadata.StatusAvailable}, nil)
	store.On("HasActiveBorrowing", 7).Return(true, nil)

	handler := NewHandler(newTestService(store, assetStore, &recordingPublisher{}))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("userID", "3")
	c.Set("role", "staff")
	c.Request = httptest.NewRequest(http.MethodPost, "/borrowings",
		bytes.NewBufferString(`{"asset_id":7,"purpose":"Rapat","borrow_date":"2026-05-21","due_date":"2026-05-22"}`))

	handler.CreateBorrowing(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), ErrActiveBorrowing.Error())
}

func TestGetBorrowingsScopesStaff(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		userID interface{}
		code   int
	}{
		{"own records", "3", http.StatusOK},
		{"missing user id", nil, http.StatusUnauthorized},
		{"malformed user id", "abc", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockStore)
			store.On("GetBorrowings", mock.MatchedBy(func(f BorrowingFilter) bool {
				return f.BorrowerID == 3
			})).Return([]Borrowing{}, 0, nil)
			handler := NewHandler(newTestService(store, new(MockAssetStore), &recordingPublisher{}))

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			if tt.userID != nil {
				c.Set("userID", tt.userID)
			}
			c.Set("role", "staff")
			c.Request = httptest.NewRequest(http.MethodGet, "/borrowings", nil)

			handler.GetBorrowings(c)

			assert.Equal(t, tt.code, w.Code)
			if tt.code != http.StatusOK {
				store.AssertNotCalled(t, "GetBorrowings", mock.Anything)
			}
		})
	}
}
