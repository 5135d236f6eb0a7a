package assets

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"helpdesk/internal/auditlog"
	"helpdesk/internal/cache"
	"helpdesk/internal/reports"
	"helpdesk/internal/storage"
	"helpdesk/pkg/metadata"

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

func (m *MockStore) GetAssets(ctx context.Context, filter AssetFilter) ([]Asset, int64, error) {
	args := m.Called(filter)
	return args.Get(0).([]Asset), int64(args.Int(1)), args.Error(2)
}

func (m *MockStore) GetAllAssets(ctx context.Context, filter AssetFilter) ([]Asset, error) {
	args := m.Called(filter)
	return args.Get(0).([]Asset), args.Error(1)
}

func (m *MockStore) GetAsset(ctx context.Context, id int) (*Asset, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Asset), args.Error(1)
}

func (m *MockStore) LastCode(ctx context.Context, base string) (string, error) {
	args := m.Called(base)
	return args.String(0), args.Error(1)
}

func (m *MockStore) PersistAsset(ctx context.Context, a *Asset) error {
	args := m.Called(a)
	a.ID = 42
	return args.Error(0)
}

func (m *MockStore) UpdateAsset(ctx context.Context, a *Asset) error {
	return m.Called(a).Error(0)
}

func (m *MockStore) UpdateImage(ctx context.Context, id int, url string) error {
	return m.Called(id, url).Error(0)
}

func (m *MockStore) UpdateStatus(ctx context.Context, ids []int, status metadata.Status) error {
	return m.Called(ids, status).Error(0)
}

func (m *MockStore) HasOpenReferences(ctx context.Context, id int) (bool, error) {
	args := m.Called(id)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) RemoveAsset(ctx context.Context, id int) error {
	return m.Called(id).Error(0)
}

func (m *MockStore) GetCategories(ctx context.Context) ([]Category, error) {
	args := m.Called()
	return args.Get(0).([]Category), args.Error(1)
}

func (m *MockStore) GetCategory(ctx context.Context, id int) (*Category, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Category), args.Error(1)
}

func (m *MockStore) PersistCategory(ctx context.Context, c *Category) error {
	return m.Called(c).Error(0)
}

func (m *MockStore) UpdateCategory(ctx context.Context, c *Category) error {
	return m.Called(c).Error(0)
}

func (m *MockStore) RemoveCategory(ctx context.Context, id int) error {
	return m.Called(id).Error(0)
}

type MockFileStore struct {
	mock.Mock
}

func (m *MockFileStore) Save(ctx context.Context, folder string, contentType string, r io.Reader) (string, error) {
	args := m.Called(folder, contentType)
	return args.String(0), args.Error(1)
}

func (m *MockFileStore) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	args := m.Called(key)
	return nil, args.String(1), args.Error(2)
}

func (m *MockFileStore) Delete(ctx context.Context, key string) error {
	return m.Called(key).Error(0)
}

func (m *MockFileStore) URL(key string) string {
	return "/files/" + key
}

type stubSheets struct {
	pushed *reports.Document
	err    error
}

func (s *stubSheets) Push(ctx context.Context, doc reports.Document) error {
	s.pushed = &doc
	return s.err
}

func newTestService(store Store, files storage.FileStore) *AssetService {
	s := NewAssetService(store, files, auditlog.Discard{}, cache.NewInvalidator(cache.NewMemoryStore(), zap.NewNop()), zap.NewNop())
	s.now = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }
	return s
}

func TestCreateGeneratesNextCode(t *testing.T) {
	store := new(MockStore)
	store.On("GetCategory", 2).Return(&Category{ID: 2, Code: "LPT", Name: "Laptop"}, nil)
	store.On("LastCode", "AST-LPT-2026-").Return("AST-LPT-2026-0007", nil)
	store.On("PersistAsset", mock.MatchedBy(func(a *Asset) bool {
		return a.Code == "AST-LPT-2026-0008" && a.Status == metadata.StatusAvailable &&
			a.Origin == metadata.OriginPurchase && a.Condition == metadata.ConditionGood
	})).Return(nil)
	store.On("GetAsset", 42).Return(&Asset{ID: 42, Code: "AST-LPT-2026-0008"}, nil)

	asset, err := newTestService(store, nil).Create(context.Background(), AssetRequest{
		Name:          "ThinkPad T14",
		CategoryID:    2,
		PurchaseDate:  "2026-01-05",
		PurchasePrice: decimal.NewFromInt(18000000),
	}, 1)

	require.NoError(t, err)
	assert.Equal(t, "AST-LPT-2026-0008", asset.Code)
	store.AssertExpectations(t)
}

func TestCreateRejectsSalvageAbovePrice(t *testing.T) {
	_, err := newTestService(new(MockStore), nil).Create(context.Background(), AssetRequest{
		Name:          "Printer",
		CategoryID:    1,
		PurchasePrice: decimal.NewFromInt(100),
		SalvageValue:  decimal.NewFromInt(200),
	}, 1)
	assert.ErrorContains(t, err, "salvage_value")
}

func TestDeleteAssetInUse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := new(MockStore)
	store.On("GetAsset", 5).Return(&Asset{ID: 5, Code: "AST-LPT-2026-0001"}, nil)
	store.On("HasOpenReferences", 5).Return(true, nil)

	handler := NewAssetHandler(newTestService(store, nil), &stubSheets{}, 1<<20)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("userID", "1")
	c.Params = gin.Params{{Key: "id", Value: "5"}}
	c.Request = httptest.NewRequest(http.MethodDelete, "/assets/5", nil)

	handler.DeleteAsset(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	store.AssertNotCalled(t, "RemoveAsset", 5)
}

func TestChangeStatus(t *testing.T) {
	store := new(MockStore)
	store.On("GetAsset", 1).Return(&Asset{ID: 1, Status: metadata.StatusAvailable}, nil)
	store.On("GetAsset", 2).Return(&Asset{ID: 2, Status: metadata.StatusBorrowed}, nil)
	store.On("UpdateStatus", []int{1}, metadata.StatusMaintenance).Return(nil)

	s := newTestService(store, nil)

	assert.NoError(t, s.ChangeStatus(context.Background(), 1, metadata.StatusMaintenance, 1))
	assert.ErrorIs(t, s.ChangeStatus(context.Background(), 1, metadata.StatusBorrowed, 1), ErrManagedStatus)
	assert.ErrorIs(t, s.ChangeStatus(context.Background(), 2, metadata.StatusRetired, 1), ErrAssetInUse)
}

func TestDepreciationRequiresPurchaseDate(t *testing.T) {
	purchased := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	store := new(MockStore)
	store.On("GetAsset", 1).Return(&Asset{ID: 1}, nil)
	store.On("GetAsset", 2).Return(&Asset{
		ID: 2, PurchaseDate: &purchased,
		PurchasePrice: decimal.NewFromInt(2400), UsefulLifeMonths: 24,
	}, nil)

	s := newTestService(store, nil)

	_, err := s.Depreciation(context.Background(), 1, time.Now())
	assert.ErrorIs(t, err, ErrNoPurchaseDate)

	d, err := s.Depreciation(context.Background(), 2, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 2, d.AssetID)
	assert.Equal(t, 12, d.MonthsElapsed)
	assert.True(t, decimal.NewFromInt(1200).Equal(d.BookValue))
}

func TestUploadImage(t *testing.T) {
	store := new(MockStore)
	store.On("GetAsset", 3).Return(&Asset{ID: 3}, nil)
	store.On("UpdateImage", 3, "/files/assets/abc.png").Return(nil)

	files := new(MockFileStore)
	files.On("Save", "assets", "image/png").Return("assets/abc.png", nil)

	asset, err := newTestService(store, files).UploadImage(context.Background(), 3,
		&storage.Upload{ContentType: "image/png", Data: []byte("png")}, 1)

	require.NoError(t, err)
	require.NotNil(t, asset.ImageURL)
	assert.Equal(t, "/files/assets/abc.png", *asset.ImageURL)
}

func TestGetAssetsListEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := new(MockStore)
	store.On("GetAssets", mock.MatchedBy(func(f AssetFilter) bool {
		return f.Status == "available" && f.CategoryID == 2 && f.Page.Limit == 5
	})).Return([]Asset{{ID: 1}}, 11, nil)

	handler := NewAssetHandler(newTestService(store, nil), &stubSheets{}, 1<<20)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/assets?status=available&category_id=2&limit=5", nil)

	handler.GetAssets(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":11`)
}

func TestSyncRegister(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := new(MockStore)
	store.On("GetAllAssets", AssetFilter{}).Return([]Asset{
		{Code: "AST-LPT-2026-0001", Name: "ThinkPad", PurchasePrice: decimal.NewFromInt(10)},
	}, nil)

	sheets := &stubSheets{}
	handler := NewAssetHandler(newTestService(store, nil), sheets, 1<<20)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/reports/assets/sync", bytes.NewReader(nil))

	handler.SyncRegister(c)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, sheets.pushed)
	assert.Equal(t, "10.00", sheets.pushed.Rows[0][8])

	sheets.err = reports.ErrSheetsDisabled
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/reports/assets/sync", nil)
	handler.SyncRegister(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
