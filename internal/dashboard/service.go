package dashboard

import (
	"context"
	"time"

	"helpdesk/internal/cache"

	"go.uber.org/zap"
)

type Store interface {
	GetSummary(ctx context.Context, today time.Time) (*Summary, error)
}

type Service struct {
	store Store
	cache cache.Store
	ttl   time.Duration
	log   *zap.Logger
	now   func() time.Time
}

func NewService(store Store, c cache.Store, ttl time.Duration, log *zap.Logger) *Service {
	return &Service{store: store, cache: c, ttl: ttl, log: log, now: time.Now}
}

// Summary serves the cached copy when present. Cache errors are logged and
// fall through to the database.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	var cached Summary
	hit, err := cache.GetJSON(ctx, s.cache, cache.DashboardSummaryKey, &cached)
	if err != nil {
		s.log.Warn("Unable to read dashboard cache", zap.Error(err))
	}
	if hit {
		return &cached, nil
	}

	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	summary, err := s.store.GetSummary(ctx, today)
	if err != nil {
		return nil, err
	}
	summary.GeneratedAt = now

	if err := cache.SetJSON(ctx, s.cache, cache.DashboardSummaryKey, summary, s.ttl); err != nil {
		s.log.Warn("Unable to store dashboard cache", zap.Error(err))
	}
	return summary, nil
}
