package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthStatus struct {
	Status      string    `json:"status"`
	Database    string    `json:"database"`
	LastChecked time.Time `json:"last_checked"`
	Uptime      string    `json:"uptime"`
	Version     string    `json:"version"`
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthCheck caches the probe result for cacheDuration so load balancers
// polling /health do not hit the database on every call.
type HealthCheck struct {
	mu            sync.Mutex
	db            Pinger
	version       string
	startTime     time.Time
	last          HealthStatus
	lastCode      int
	cacheDuration time.Duration
}

func NewHealthCheck(db Pinger, version string) *HealthCheck {
	return &HealthCheck{
		db:            db,
		version:       version,
		startTime:     time.Now(),
		cacheDuration: 5 * time.Second,
	}
}

func (h *HealthCheck) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		h.mu.Lock()
		defer h.mu.Unlock()

		if time.Since(h.last.LastChecked) < h.cacheDuration && h.lastCode != 0 {
			c.JSON(h.lastCode, h.last)
			return
		}

		status := HealthStatus{
			Status:      "ok",
			Database:    "ok",
			LastChecked: time.Now(),
			Uptime:      time.Since(h.startTime).Round(time.Second).String(),
			Version:     h.version,
		}
		code := http.StatusOK

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			status.Status = "degraded"
			status.Database = err.Error()
			code = http.StatusServiceUnavailable
		}

		h.last = status
		h.lastCode = code
		c.JSON(code, status)
	}
}
