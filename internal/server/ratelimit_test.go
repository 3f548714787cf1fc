package server

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLimiter returns a limiter whose clock is advanced by the caller.
func fakeLimiter(perMinute, perHour, perDay int, dataPerDay int64) (*RateLimiter, *time.Time) {
	clock := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(perMinute, perHour, perDay, dataPerDay)
	rl.now = func() time.Time { return clock }
	return rl, &clock
}

func TestNewRateLimiter(t *testing.T) {
	rl := NewRateLimiter(10, 100, 1000, 1024*1024)

	assert.Equal(t, 10, rl.requestsPerMinute)
	assert.Equal(t, 100, rl.requestsPerHour)
	assert.Equal(t, 1000, rl.maxRequestsPerDay)
	assert.Equal(t, int64(1024*1024), rl.maxDataPerDay)
	assert.NotNil(t, rl.clients)
}

func TestRateLimiter_NoLimits(t *testing.T) {
	rl, _ := fakeLimiter(0, 0, 0, 0)

	for range 100 {
		require.NoError(t, rl.CheckRateLimit("client", 100))
	}
	usage := rl.GetUsage("client")
	assert.Equal(t, 100, usage.RequestsToday)
	assert.Equal(t, int64(10000), usage.DataToday)
	assert.Equal(t, Usage{}, rl.GetUsage("unknown"))
}

func TestRateLimiter_RequestsPerMinute(t *testing.T) {
	rl, clock := fakeLimiter(2, 0, 0, 0)

	require.NoError(t, rl.CheckRateLimit("c", 0))
	*clock = clock.Add(20 * time.Second)
	require.NoError(t, rl.CheckRateLimit("c", 0))

	err := rl.CheckRateLimit("c", 0)
	var rle *RateLimitError
	require.True(t, errors.As(err, &rle))
	assert.Equal(t, "minute", rle.Type)
	assert.Equal(t, 2, rle.Limit)
	assert.Equal(t, 40*time.Second, rle.RetryAfter)

	// Rejected requests are not counted.
	assert.Equal(t, 2, rl.GetUsage("c").RequestsLastMinute)

	*clock = clock.Add(40 * time.Second)
	require.NoError(t, rl.CheckRateLimit("c", 0))
	assert.Equal(t, 1, rl.GetUsage("c").RequestsLastMinute)
}

func TestRateLimiter_RequestsPerHour(t *testing.T) {
	rl, clock := fakeLimiter(0, 3, 0, 0)

	for range 3 {
		require.NoError(t, rl.CheckRateLimit("c", 0))
		*clock = clock.Add(5 * time.Minute)
	}

	err := rl.CheckRateLimit("c", 0)
	var rle *RateLimitError
	require.True(t, errors.As(err, &rle))
	assert.Equal(t, "hour", rle.Type)
	assert.Equal(t, 45*time.Minute, rle.RetryAfter)

	*clock = clock.Add(45 * time.Minute)
	require.NoError(t, rl.CheckRateLimit("c", 0))
}

func TestRateLimiter_DailyQuotas(t *testing.T) {
	t.Run("requests", func(t *testing.T) {
		rl, clock := fakeLimiter(0, 0, 2, 0)
		require.NoError(t, rl.CheckRateLimit("c", 0))
		require.NoError(t, rl.CheckRateLimit("c", 0))

		err := rl.CheckRateLimit("c", 0)
		var qe *QuotaExceededError
		require.True(t, errors.As(err, &qe))
		assert.Equal(t, "requests", qe.Type)
		assert.Equal(t, int64(2), qe.Used)
		assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), qe.Resets)

		*clock = time.Date(2024, 3, 11, 0, 0, 1, 0, time.UTC)
		require.NoError(t, rl.CheckRateLimit("c", 0))
	})

	t.Run("data", func(t *testing.T) {
		rl, _ := fakeLimiter(0, 0, 0, 1000)
		require.NoError(t, rl.CheckRateLimit("c", 600))

		err := rl.CheckRateLimit("c", 500)
		var qe *QuotaExceededError
		require.True(t, errors.As(err, &qe))
		assert.Equal(t, "data", qe.Type)
		assert.Equal(t, int64(600), qe.Used)
		assert.Contains(t, qe.Error(), "quota exceeded for data")

		require.NoError(t, rl.CheckRateLimit("c", 400))
	})
}

func TestRateLimiter_ClientsAreIndependent(t *testing.T) {
	rl, _ := fakeLimiter(1, 0, 0, 0)
	require.NoError(t, rl.CheckRateLimit("a", 0))
	require.Error(t, rl.CheckRateLimit("a", 0))
	require.NoError(t, rl.CheckRateLimit("b", 0))
}

func TestRateLimitError_Message(t *testing.T) {
	err := &RateLimitError{Type: "minute", Limit: 5, RetryAfter: 30 * time.Second}
	assert.Equal(t, "rate limit exceeded for minute (limit: 5, retry after: 30s)", err.Error())
}
