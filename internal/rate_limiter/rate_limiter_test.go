package rate_limiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterWindow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	current := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(ctx, 2, time.Minute)
	rl.now = func() time.Time { return current }

	assert.True(t, rl.IsAllowed("10.0.0.1"))
	assert.True(t, rl.IsAllowed("10.0.0.1"))
	assert.False(t, rl.IsAllowed("10.0.0.1"))
	assert.Equal(t, 0, rl.GetRemainingRequests("10.0.0.1"))

	assert.True(t, rl.IsAllowed("10.0.0.2"), "keys are independent")

	current = current.Add(61 * time.Second)
	assert.Equal(t, 2, rl.GetRemainingRequests("10.0.0.1"))
	assert.True(t, rl.IsAllowed("10.0.0.1"))
}
