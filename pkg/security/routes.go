package security

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"helpdesk/internal/rate_limiter"
	"helpdesk/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	loginAttempts = 10
	loginWindow   = 5 * time.Minute
)

var ErrInvalidCredentials = errors.New("invalid username or password")

// NewLoginRateLimiter allows loginAttempts per client within loginWindow.
func NewLoginRateLimiter(ctx context.Context) *rate_limiter.RateLimiter {
	return rate_limiter.NewRateLimiter(ctx, loginAttempts, loginWindow)
}

type Credentials struct {
	ID           int
	Username     string
	FullName     string
	PasswordHash string
	Role         string
	IsActive     bool
}

type CredentialStore interface {
	FindCredentials(ctx context.Context, username string) (*Credentials, error)
}

type LoginHandler struct {
	store       CredentialStore
	issuer      *TokenIssuer
	rateLimiter *rate_limiter.RateLimiter
	log         *zap.Logger
}

func NewLoginHandler(store CredentialStore, issuer *TokenIssuer, limiter *rate_limiter.RateLimiter, log *zap.Logger) *LoginHandler {
	return &LoginHandler{
		store:       store,
		issuer:      issuer,
		rateLimiter: limiter,
		log:         log,
	}
}

func (l *LoginHandler) RegisterRoutes(router gin.IRouter) {
	router.POST("/auth", l.Login)
}

func (l *LoginHandler) Login(c *gin.Context) {
	clientIP := clientKey(c)

	if !l.rateLimiter.IsAllowed(clientIP) {
		resetAt := time.Now().Add(loginWindow).Format(time.RFC3339)
		c.Header("X-RateLimit-Limit", strconv.Itoa(loginAttempts))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(l.rateLimiter.GetRemainingRequests(clientIP)))
		c.Header("X-RateLimit-Reset", resetAt)
		response.Fail(c, http.StatusTooManyRequests, "Too many login attempts, try again later", nil)
		return
	}

	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	creds, err := AuthenticateUser(c.Request.Context(), l.store, req.Username, req.Password)
	if err != nil {
		l.log.Info("Login rejected", zap.String("username", req.Username), zap.String("client", clientIP))
		response.Fail(c, http.StatusUnauthorized, "Invalid username or password", nil)
		return
	}

	token, err := l.issuer.GenerateJWT(creds.ID, creds.Role, creds.Username)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, "Failed to generate token", err)
		return
	}

	response.OK(c, http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"id":        creds.ID,
			"username":  creds.Username,
			"full_name": creds.FullName,
			"role":      creds.Role,
		},
	})
}

func AuthenticateUser(ctx context.Context, store CredentialStore, username, password string) (*Credentials, error) {
	creds, err := store.FindCredentials(ctx, username)
	if err != nil || creds == nil || !creds.IsActive {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return creds, nil
}

// clientKey prefers proxy headers, and mixes in the user agent for private
// addresses so users behind one NAT do not share a bucket.
func clientKey(c *gin.Context) string {
	clientIP := c.GetHeader("X-Forwarded-For")
	if clientIP == "" {
		clientIP = c.GetHeader("X-Real-IP")
	}
	if clientIP == "" {
		clientIP = c.ClientIP()
	}

	if strings.Contains(clientIP, ",") {
		clientIP = strings.TrimSpace(strings.Split(clientIP, ",")[0])
	}

	if isPrivateIP(clientIP) {
		clientIP = clientIP + ":" + c.GetHeader("User-Agent")
	}

	return clientIP
}

func isPrivateIP(ip string) bool {
	privatePrefixes := []string{
		"10.", "192.168.", "127.", "169.254.", "::1", "fc00::", "fe80::",
	}
	for i := 16; i <= 31; i++ {
		privatePrefixes = append(privatePrefixes, "172."+strconv.Itoa(i)+".")
	}

	for _, prefix := range privatePrefixes {
		if strings.HasPrefix(ip, prefix) {
			return true
		}
	}
	return false
}
