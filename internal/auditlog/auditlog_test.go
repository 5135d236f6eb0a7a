package auditlog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) PersistLog(ctx context.Context, entry Entry, data interface{}) error {
	args := m.Called(entry, data)
	return args.Error(0)
}

func (m *MockStore) GetResourceLog(ctx context.Context, id int, resourceType string) ([]Entry, error) {
	args := m.Called(id, resourceType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Entry), args.Error(1)
}

type ticketStub struct{ id int }

func (t ticketStub) CreateLogView() Entry {
	return Entry{ResourceID: t.id, ResourceType: "ticket"}
}

func TestLogPersistsInBackground(t *testing.T) {
	store := new(MockStore)
	userID := 7
	store.On("PersistLog", Entry{ResourceID: 3, ResourceType: "ticket", Action: "assign", UserID: &userID}, map[string]int{"assignee": 2}).
		Return(nil).Once()

	a := NewAuditLog(store, zap.NewNop())
	a.Log("assign", 7, map[string]int{"assignee": 2}, ticketStub{id: 3})
	a.Wait()

	store.AssertExpectations(t)
}

func TestLogSwallowsErrors(t *testing.T) {
	store := new(MockStore)
	store.On("PersistLog", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()

	a := NewAuditLog(store, zap.NewNop())
	a.Log("create", 0, nil, ticketStub{id: 1})
	a.Wait()

	store.AssertExpectations(t)
}

func TestEntryLoadFromDB(t *testing.T) {
	e := Entry{DataRaw: `{"status":"approved"}`}
	e.LoadFromDB()
	assert.Equal(t, "approved", e.Data["status"])
}

func TestGetResourceLogHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := new(MockStore)
	store.On("GetResourceLog", 5, "asset").Return([]Entry{{ID: 1, ResourceID: 5, ResourceType: "asset", Action: "create"}}, nil)

	h := NewHandler(NewAuditLog(store, zap.NewNop()))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/audit-logs?resource_type=asset&resource_id=5", nil)

	h.GetResourceLog(c)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Success bool    `json:"success"`
		Data    []Entry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Len(t, body.Data, 1)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/audit-logs?resource_type=asset", nil)
	h.GetResourceLog(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
