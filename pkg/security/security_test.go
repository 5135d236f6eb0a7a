package security

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"helpdesk/internal/rate_limiter"
	"helpdesk/pkg/roles"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)

	token, err := issuer.GenerateJWT(7, "technician", "budi")
	require.NoError(t, err)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, &Claims{UserID: 7, Role: "technician", Username: "budi"}, claims)
}

func TestParseRejectsExpiredAndForeignTokens(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := issuer.GenerateJWT(7, "staff", "budi")
	require.NoError(t, err)

	_, err = NewTokenIssuer("secret", time.Hour).Parse(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	foreign, err := NewTokenIssuer("other", time.Hour).GenerateJWT(7, "admin", "budi")
	require.NoError(t, err)
	_, err = NewTokenIssuer("secret", time.Hour).Parse(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMiddlewareAndAuthorize(t *testing.T) {
	gin.SetMode(gin.TestMode)
	issuer := NewTokenIssuer("secret", time.Hour)

	router := gin.New()
	router.GET("/admin", JWTMiddleware(issuer), Authorize(roles.Admin), func(c *gin.Context) {
		id, _ := GetUserID(c)
		c.JSON(http.StatusOK, gin.H{"id": id})
	})

	tests := []struct {
		name   string
		role   string
		header bool
		want   int
	}{
		{"missing header", "", false, http.StatusUnauthorized},
		{"staff forbidden", "staff", true, http.StatusForbidden},
		{"admin allowed", "admin", true, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.header {
				token, err := issuer.GenerateJWT(3, tt.role, "sari")
				require.NoError(t, err)
				req.Header.Set("Authorization", "Bearer "+token)
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestGetUserID(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, err := GetUserID(c)
	assert.Error(t, err)

	c.Set("userID", "12")
	id, err := GetUserID(c)
	require.NoError(t, err)
	assert.Equal(t, 12, id)
}

type memoryCredentials map[string]*Credentials

func (m memoryCredentials) FindCredentials(ctx context.Context, username string) (*Credentials, error) {
	return m[username], nil
}

func TestAuthenticateUser(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("rahasia"), bcrypt.MinCost)
	require.NoError(t, err)
	store := memoryCredentials{
		"budi": {ID: 1, Username: "budi", PasswordHash: string(hash), Role: "staff", IsActive: true},
		"lama": {ID: 2, Username: "lama", PasswordHash: string(hash), Role: "staff", IsActive: false},
	}

	creds, err := AuthenticateUser(context.Background(), store, "budi", "rahasia")
	require.NoError(t, err)
	assert.Equal(t, 1, creds.ID)

	_, err = AuthenticateUser(context.Background(), store, "budi", "salah")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = AuthenticateUser(context.Background(), store, "lama", "rahasia")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = AuthenticateUser(context.Background(), store, "siapa", "rahasia")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginRateLimited(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := NewLoginHandler(memoryCredentials{}, NewTokenIssuer("secret", time.Hour), rate_limiter.NewRateLimiter(ctx, 1, time.Minute), zap.NewNop())
	router := gin.New()
	handler.RegisterRoutes(router)

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/auth", bytes.NewBufferString(`{"username":"x","password":"y"}`))
		req.Header.Set("X-Forwarded-For", "203.0.113.9")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusUnauthorized, send())
	assert.Equal(t, http.StatusTooManyRequests, send())
}

func TestClientKeyPrivateAddress(t *testing.T) {
	assert.True(t, isPrivateIP("172.20.0.4"))
	assert.False(t, isPrivateIP("172.32.0.4"))
	assert.False(t, isPrivateIP("203.0.113.9"))
}
