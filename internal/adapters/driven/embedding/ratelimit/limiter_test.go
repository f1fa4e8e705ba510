package ratelimit

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilLimiter(t *testing.T) {
	var l *Limiter

	assert.NoError(t, l.Wait(context.Background()))
	l.Backoff(time.Second)
	assert.True(t, l.RetryAt().IsZero())
}

func TestLimiter_UnlimitedDoesNotBlock(t *testing.T) {
	l := New(Config{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for i := 0; i < 100; i++ {
		require.NoError(t, l.Wait(ctx))
	}
}

func TestLimiter_Backoff(t *testing.T) {
	now := time.Date(2024, 9, 20, 12, 0, 0, 0, time.UTC)
	l := New(Config{RequestsPerSecond: 10, BurstSize: 2})
	l.now = func() time.Time { return now }

	l.Backoff(30 * time.Second)
	assert.Equal(t, now.Add(30*time.Second), l.RetryAt())

	// Shorter backoff does not shorten the window
	l.Backoff(5 * time.Second)
	assert.Equal(t, now.Add(30*time.Second), l.RetryAt())

	// Zero uses the default
	l2 := New(Config{})
	l2.now = func() time.Time { return now }
	l2.Backoff(0)
	assert.Equal(t, now.Add(DefaultBackoff), l2.RetryAt())
}

func TestLimiter_WaitRespectsContextDuringBackoff(t *testing.T) {
	l := New(Config{})
	l.Backoff(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := l.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 9, 20, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		header string
		want   time.Duration
	}{
		{"missing", "", 0},
		{"seconds", "7", 7 * time.Second},
		{"negative", "-3", 0},
		{"garbage", "soon", 0},
		{"http date", now.Add(90 * time.Second).Format(http.TimeFormat), 90 * time.Second},
		{"past date", now.Add(-time.Minute).Format(http.TimeFormat), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.header != "" {
				h.Set("Retry-After", tt.header)
			}
			assert.Equal(t, tt.want, ParseRetryAfter(h, now))
		})
	}
}
