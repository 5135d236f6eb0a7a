package purchase

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"helpdesk/internal/atk/items"
	"helpdesk/internal/auditlog"
	"helpdesk/internal/cache"
	"helpdesk/pkg/roles"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetPurchaseRequests(ctx context.Context, filter PurchaseFilter) ([]PurchaseRequest, int64, error) {
	args := m.Called(filter)
	return args.Get(0).([]PurchaseRequest), int64(args.Int(1)), args.Error(2)
}

func (m *MockStore) GetPurchaseRequest(ctx context.Context, id int) (*PurchaseRequest, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	pr := *args.Get(0).(*PurchaseRequest)
	return &pr, args.Error(1)
}

func (m *MockStore) LastNumber(ctx context.Context, base string) (string, error) {
	args := m.Called(base)
	return args.String(0), args.Error(1)
}

func (m *MockStore) PersistPurchaseRequest(ctx context.Context, pr *PurchaseRequest, lines []Line) error {
	args := m.Called(pr, lines)
	pr.ID = 21
	return args.Error(0)
}

func (m *MockStore) UpdatePurchaseRequest(ctx context.Context, pr *PurchaseRequest, lines []Line) error {
	return m.Called(pr, lines).Error(0)
}

func (m *MockStore) ApplyStatus(ctx context.Context, id int, from, to Status, actorID int, at time.Time) error {
	return m.Called(id, from, to).Error(0)
}

func (m *MockStore) RemovePurchaseRequest(ctx context.Context, id int) error {
	return m.Called(id).Error(0)
}

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) ApplyMovements(ctx context.Context, movements []items.Movement) ([]items.StockHistory, error) {
	args := m.Called(movements)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]items.StockHistory), args.Error(1)
}

type stubDirectory map[roles.Role][]string

func (d stubDirectory) PhonesByRole(ctx context.Context, role roles.Role) ([]string, error) {
	return d[role], nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	phones []string
}

func (r *recordingPublisher) Notify(phone string, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phones = append(r.phones, phone)
}

func newTestService(store Store, ledger StockLedger, pub *recordingPublisher) *Service {
	dir := stubDirectory{roles.Admin: {"0811", "0822"}}
	s := NewService(store, ledger, dir, pub, auditlog.Discard{}, cache.NewInvalidator(cache.NewMemoryStore(), zap.NewNop()), zap.NewNop())
	s.now = func() time.Time { return time.Date(2026, 7, 15, 9, 0, 0, 0, time.UTC) }
	return s
}

func TestValidateComputesTotal(t *testing.T) {
	body := PurchaseRequestBody{Items: []Line{
		{ItemID: 1, Quantity: 3, UnitPrice: decimal.RequireFromString("12500.50")},
		{ItemID: 2, Quantity: 1, UnitPrice: decimal.NewFromInt(7000)},
	}}

	total, err := body.Validate()

	require.NoError(t, err)
	assert.Equal(t, "44501.50", total.StringFixed(2))
}

func TestValidateRejectsBadLines(t *testing.T) {
	_, err := (&PurchaseRequestBody{Items: []Line{{ItemID: 1, Quantity: 0}}}).Validate()
	assert.ErrorIs(t, err, ErrInvalidLine)

	_, err = (&PurchaseRequestBody{Items: []Line{{ItemID: 1, Quantity: 1}, {ItemID: 1, Quantity: 2}}}).Validate()
	assert.ErrorIs(t, err, ErrDuplicateRow)
}

func TestCreateNumbersRequest(t *testing.T) {
	store := new(MockStore)
	store.On("LastNumber", "PR/2026/07/").Return("", nil)
	store.On("PersistPurchaseRequest", mock.MatchedBy(func(pr *PurchaseRequest) bool {
		return pr.Number == "PR/2026/07/0001" && pr.Status == StatusDraft && pr.Total.Equal(decimal.NewFromInt(20000))
	}), mock.Anything).Return(nil)
	store.On("GetPurchaseRequest", 21).Return(&PurchaseRequest{ID: 21, Number: "PR/2026/07/0001"}, nil)

	pr, err := newTestService(store, new(MockLedger), &recordingPublisher{}).Create(context.Background(),
		PurchaseRequestBody{Items: []Line{{ItemID: 1, Quantity: 4, UnitPrice: decimal.NewFromInt(5000)}}}, 3)

	require.NoError(t, err)
	assert.Equal(t, "PR/2026/07/0001", pr.Number)
}

func TestEditOnlyInDraft(t *testing.T) {
	store := new(MockStore)
	store.On("GetPurchaseRequest", 5).Return(&PurchaseRequest{ID: 5, Status: StatusProcess}, nil)
	s := newTestService(store, new(MockLedger), &recordingPublisher{})

	_, err := s.Update(context.Background(), 5, PurchaseRequestBody{Items: []Line{{ItemID: 1, Quantity: 1}}}, 3)
	assert.ErrorIs(t, err, ErrNotEditable)
	assert.ErrorIs(t, s.Delete(context.Background(), 5, 3), ErrNotEditable)
}

func TestSubmitNotifiesAdmins(t *testing.T) {
	store := new(MockStore)
	store.On("GetPurchaseRequest", 5).Return(&PurchaseRequest{ID: 5, Number: "PR/2026/07/0002", Status: StatusDraft}, nil)
	store.On("ApplyStatus", 5, StatusDraft, StatusProcess).Return(nil)

	pub := &recordingPublisher{}
	pr, err := newTestService(store, new(MockLedger), pub).Submit(context.Background(), 5, 3)

	require.NoError(t, err)
	assert.Equal(t, StatusProcess, pr.Status)
	assert.ElementsMatch(t, []string{"0811", "0822"}, pub.phones)
}

func TestCompleteWritesStockIn(t *testing.T) {
	store := new(MockStore)
	ledger := new(MockLedger)
	store.On("GetPurchaseRequest", 5).Return(&PurchaseRequest{ID: 5, Status: StatusProcess, Items: []Item{
		{ItemID: 1, Quantity: 10}, {ItemID: 2, Quantity: 3},
	}}, nil)
	store.On("ApplyStatus", 5, StatusProcess, StatusSuccess).Return(nil)
	ledger.On("ApplyMovements", []items.Movement{
		{ItemID: 1, Type: items.MovementIn, Quantity: 10, ReferenceType: "purchase_request", ReferenceID: 5, CreatedBy: 1},
		{ItemID: 2, Type: items.MovementIn, Quantity: 3, ReferenceType: "purchase_request", ReferenceID: 5, CreatedBy: 1},
	}).Return([]items.StockHistory{}, nil)

	pr, err := newTestService(store, ledger, &recordingPublisher{}).Complete(context.Background(), 5, 1)

	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, pr.Status)
	ledger.AssertExpectations(t)
}

func TestCompleteRevertsWhenLedgerFails(t *testing.T) {
	store := new(MockStore)
	ledger := new(MockLedger)
	store.On("GetPurchaseRequest", 5).Return(&PurchaseRequest{ID: 5, Status: StatusProcess, Items: []Item{{ItemID: 1, Quantity: 1}}}, nil)
	store.On("ApplyStatus", 5, StatusProcess, StatusSuccess).Return(nil)
	store.On("ApplyStatus", 5, StatusSuccess, StatusProcess).Return(nil)
	ledger.On("ApplyMovements", mock.Anything).Return(nil, errors.New("deadlock"))

	_, err := newTestService(store, ledger, &recordingPublisher{}).Complete(context.Background(), 5, 1)

	assert.EqualError(t, err, "deadlock")
	store.AssertCalled(t, "ApplyStatus", 5, StatusSuccess, StatusProcess)
}

func TestCompleteFromDraftIsConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := new(MockStore)
	store.On("GetPurchaseRequest", 5).Return(&PurchaseRequest{ID: 5, Status: StatusDraft}, nil)
	h := NewHandler(newTestService(store, new(MockLedger), &recordingPublisher{}))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("userID", "1")
	c.Params = gin.Params{{Key: "id", Value: "5"}}
	c.Request = httptest.NewRequest(http.MethodPost, "/atk/purchase-requests/5/complete", nil)

	h.Complete(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDocumentRows(t *testing.T) {
	store := new(MockStore)
	store.On("GetPurchaseRequest", 5).Return(&PurchaseRequest{
		ID: 5, Number: "PR/2026/07/0002", Total: decimal.NewFromInt(30000),
		Items: []Item{{ItemCode: "ATK-0001", ItemName: "Pulpen", Unit: "box", Quantity: 2, UnitPrice: decimal.NewFromInt(15000)}},
	}, nil)

	doc, filename, err := newTestService(store, new(MockLedger), &recordingPublisher{}).Document(context.Background(), 5)

	require.NoError(t, err)
	assert.Equal(t, "PR-2026-07-0002.xlsx", filename)
	assert.Equal(t, []interface{}{1, "ATK-0001", "Pulpen", "box", 2, "15000.00", "30000.00"}, doc.Rows[0])
	assert.Equal(t, []string{"Total: Rp 30000.00"}, doc.Footer)
}
