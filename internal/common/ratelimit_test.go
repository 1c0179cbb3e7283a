package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterSlidingWindow(t *testing.T) {
	rl := NewRateLimiter[int64](2, time.Minute)
	defer rl.Close()

	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow(1))
	assert.True(t, rl.Allow(1))
	assert.False(t, rl.Allow(1))
	assert.True(t, rl.Allow(2), "keys are independent")

	now = now.Add(61 * time.Second)
	assert.True(t, rl.Allow(1), "window slid past old requests")
}

func TestRateLimiterStringKeys(t *testing.T) {
	rl := NewRateLimiter[string](1, time.Minute)
	defer rl.Close()
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))

	rl.Close() // повторный вызов безопасен
}
