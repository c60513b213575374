package common

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter(t *testing.T) {
	tests := []struct {
		name        string
		rps         float64
		burst       int
		wantLimited bool
	}{
		{name: "disabled", rps: 0, wantLimited: false},
		{name: "negative disables", rps: -1, wantLimited: false},
		{name: "limited", rps: 5, burst: 1, wantLimited: true},
		{name: "zero burst raised to one", rps: 5, burst: 0, wantLimited: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := NewRateLimiter(tt.rps, tt.burst)
			assert.Equal(t, tt.wantLimited, rl.Limited())
			require.NoError(t, rl.Wait(context.Background()))
		})
	}
}

func TestRateLimiter_WaitHonoursContext(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	require.NoError(t, rl.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, rl.Wait(ctx))
}
