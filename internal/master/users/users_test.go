package users

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"helpdesk/internal/auditlog"
	"helpdesk/internal/cache"
	custom_error "helpdesk/pkg/errors"
	"helpdesk/pkg/roles"
	"helpdesk/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) PersistProfile(ctx context.Context, p *Profile) error {
	args := m.Called(p)
	if args.Error(0) == nil {
		p.ID = 10
	}
	return args.Error(0)
}

func (m *MockProfileRepository) GetProfile(ctx context.Context, id int) (*Profile, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Profile), args.Error(1)
}

func (m *MockProfileRepository) GetProfileByUsername(ctx context.Context, username string) (*Profile, error) {
	args := m.Called(username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Profile), args.Error(1)
}

func (m *MockProfileRepository) GetProfiles(ctx context.Context, filter ProfileFilter) ([]Profile, error) {
	args := m.Called(filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Profile), args.Error(1)
}

func (m *MockProfileRepository) UpdateProfile(ctx context.Context, id int, changes *ProfileChanges) error {
	args := m.Called(id, changes)
	return args.Error(0)
}

func (m *MockProfileRepository) DeleteProfile(ctx context.Context, id int) error {
	args := m.Called(id)
	return args.Error(0)
}

func newTestService(repo ProfileRepository) *Service {
	s := NewService(repo, auditlog.Discard{}, cache.NewInvalidator(cache.NewMemoryStore(), zap.NewNop()), zap.NewNop())
	s.hashCost = bcrypt.MinCost
	return s
}

func setupTestContext(userID, role string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("userID", userID)
	c.Set("role", role)
	return c, w
}

func strPtr(s string) *string { return &s }

func TestRegisterUser(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		payload        CreateProfileRequest
		setupMock      func(m *MockProfileRepository)
		expectedStatus int
	}{
		{
			name:    "successful registration",
			payload: CreateProfileRequest{Username: "budi", Password: "rahasia123", FullName: "Budi", Role: roles.Technician},
			setupMock: func(m *MockProfileRepository) {
				m.On("PersistProfile", mock.MatchedBy(func(p *Profile) bool {
					return p.Username == "budi" && p.IsActive &&
						bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte("rahasia123")) == nil
				})).Return(nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "invalid role",
			payload:        CreateProfileRequest{Username: "budi", Password: "rahasia123", FullName: "Budi", Role: "manager"},
			setupMock:      func(m *MockProfileRepository) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "weak password",
			payload:        CreateProfileRequest{Username: "budi", Password: "123", FullName: "Budi", Role: roles.Staff},
			setupMock:      func(m *MockProfileRepository) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:    "duplicate username",
			payload: CreateProfileRequest{Username: "budi", Password: "rahasia123", FullName: "Budi", Role: roles.Staff},
			setupMock: func(m *MockProfileRepository) {
				m.On("PersistProfile", mock.Anything).
					Return(custom_error.WrapDBError("failed to insert profile", &pq.Error{Code: "23505"}))
			},
			expectedStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockProfileRepository)
			tt.setupMock(repo)
			handler := NewHandler(newTestService(repo))
			c, w := setupTestContext("1", "admin")

			body, _ := json.Marshal(tt.payload)
			c.Request = httptest.NewRequest(http.MethodPost, "/users", bytes.NewBuffer(body))

			handler.RegisterUser(c)

			assert.Equal(t, tt.expectedStatus, w.Code)
			repo.AssertExpectations(t)
		})
	}
}

func TestGetUserAccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := new(MockProfileRepository)
	repo.On("GetProfile", 2).Return(&Profile{ID: 2, Username: "sari", Role: roles.Staff}, nil)
	handler := NewHandler(newTestService(repo))

	c, w := setupTestContext("2", "staff")
	c.Params = gin.Params{{Key: "id", Value: "2"}}
	c.Request = httptest.NewRequest(http.MethodGet, "/users/2", nil)
	handler.GetUser(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = setupTestContext("3", "staff")
	c.Params = gin.Params{{Key: "id", Value: "2"}}
	c.Request = httptest.NewRequest(http.MethodGet, "/users/2", nil)
	handler.GetUser(c)
	assert.Equal(t, http.StatusForbidden, w.Code)

	c, w = setupTestContext("3", "technician")
	c.Params = gin.Params{{Key: "id", Value: "2"}}
	c.Request = httptest.NewRequest(http.MethodGet, "/users/2", nil)
	handler.GetUser(c)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUpdateSkipsWhenNothingChanged(t *testing.T) {
	repo := new(MockProfileRepository)
	current := &Profile{ID: 4, Role: roles.Staff}
	repo.On("GetProfile", 4).Return(current, nil).Once()

	role := roles.Staff
	got, err := newTestService(repo).Update(context.Background(), 4, UpdateProfileRequest{Role: &role}, 1)

	require.NoError(t, err)
	assert.Same(t, current, got)
	repo.AssertNotCalled(t, "UpdateProfile", mock.Anything, mock.Anything)
}

func TestChangePassword(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("lama123"), bcrypt.MinCost)
	repo := new(MockProfileRepository)
	repo.On("GetProfile", 5).Return(&Profile{ID: 5, PasswordHash: string(hash)}, nil)
	repo.On("UpdateProfile", 5, mock.MatchedBy(func(c *ProfileChanges) bool { return c.PasswordHash != nil })).Return(nil)

	s := newTestService(repo)

	err := s.ChangePassword(context.Background(), 5, ChangePasswordRequest{CurrentPassword: "salah", NewPassword: "baru1234"})
	assert.ErrorIs(t, err, ErrWrongPassword)

	err = s.ChangePassword(context.Background(), 5, ChangePasswordRequest{CurrentPassword: "lama123", NewPassword: "baru1234"})
	assert.NoError(t, err)
	repo.AssertNumberOfCalls(t, "UpdateProfile", 1)
}

func TestDeleteDeactivatesReferencedProfile(t *testing.T) {
	repo := new(MockProfileRepository)
	repo.On("GetProfile", 6).Return(&Profile{ID: 6, IsActive: true}, nil)
	repo.On("DeleteProfile", 6).Return(custom_error.WrapDBError("failed to delete profile", &pq.Error{Code: "23503"}))
	repo.On("UpdateProfile", 6, mock.MatchedBy(func(c *ProfileChanges) bool {
		return c.IsActive != nil && !*c.IsActive
	})).Return(nil)

	deactivated, err := newTestService(repo).Delete(context.Background(), 6, 1)

	require.NoError(t, err)
	assert.True(t, deactivated)
	repo.AssertExpectations(t)
}

func TestDeleteSelfIsRefused(t *testing.T) {
	_, err := newTestService(new(MockProfileRepository)).Delete(context.Background(), 1, 1)
	assert.ErrorIs(t, err, ErrSelfDelete)
}

func TestPhonesByRole(t *testing.T) {
	repo := new(MockProfileRepository)
	active := true
	repo.On("GetProfiles", ProfileFilter{Role: "admin", Active: &active}).Return([]Profile{
		{ID: 1, Phone: strPtr("0811111111")},
		{ID: 2},
		{ID: 3, Phone: strPtr("")},
	}, nil)

	phones, err := newTestService(repo).PhonesByRole(context.Background(), roles.Admin)

	require.NoError(t, err)
	assert.Equal(t, []string{"0811111111"}, phones)
}

func TestFindCredentials(t *testing.T) {
	repo := new(MockProfileRepository)
	repo.On("GetProfileByUsername", "ghost").Return(nil, ErrNotFound)
	repo.On("GetProfileByUsername", "budi").Return(&Profile{ID: 3, Username: "budi", Role: roles.Admin, IsActive: true, PasswordHash: "h"}, nil)
	repo.On("GetProfileByUsername", "broken").Return(nil, errors.New("db down"))

	s := newTestService(repo)

	_, err := s.FindCredentials(context.Background(), "ghost")
	assert.ErrorIs(t, err, security.ErrInvalidCredentials)

	creds, err := s.FindCredentials(context.Background(), "budi")
	require.NoError(t, err)
	assert.Equal(t, "admin", creds.Role)
	assert.True(t, creds.IsActive)

	_, err = s.FindCredentials(context.Background(), "broken")
	assert.EqualError(t, err, "db down")
}
