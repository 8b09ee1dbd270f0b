package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRateLimit(t *testing.T) {
	assert.True(t, IsRateLimit(ErrRateLimited))
	assert.True(t, IsRateLimit(fmt.Errorf("batch: %w", ErrRateLimited)))
	assert.True(t, IsRateLimit(errors.New("API returned unexpected status code: 429: Rate limit reached")))
	assert.True(t, IsRateLimit(errors.New("you hit the rate limit")))
	assert.False(t, IsRateLimit(errors.New("API returned unexpected status code: 500")))
	assert.False(t, IsRateLimit(nil))
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limit", ErrRateLimited, true},
		{"marked transient", fmt.Errorf("x: %w", ErrTransient), true},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"net error", &net.OpError{Op: "dial", Err: errors.New("refused")}, true},
		{"server error", errors.New("API returned unexpected status code: 503"), true},
		{"client error", errors.New("API returned unexpected status code: 400: too long"), false},
		{"unknown", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}
