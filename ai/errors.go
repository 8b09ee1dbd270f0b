package ai

import (
	"context"
	"errors"
	"io"
	"net"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrInvalidMaxAttempts is returned when a retry policy allows no attempts.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrBatchTooLarge is returned when a batch exceeds the configured maximum.
	ErrBatchTooLarge = errors.New("embedding batch exceeds maximum size")

	// ErrEmbeddingMismatch is returned when the service returns a different
	// number of vectors than texts were sent.
	ErrEmbeddingMismatch = errors.New("embedding count mismatch")

	// ErrDimensionMismatch is returned when a vector's length differs from
	// the dimension established by earlier responses.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrRateLimited marks a failure caused by the service's rate limit.
	ErrRateLimited = errors.New("embedding service rate limited")

	// ErrTransient marks a failure that is worth retrying.
	ErrTransient = errors.New("transient embedding failure")

	// ErrUnsupportedProvider is returned for an unknown provider name.
	ErrUnsupportedProvider = errors.New("unsupported embedding provider")
)

// langchaingo reports HTTP failures as "API returned unexpected status code: 429: ..."
var statusPattern = regexp.MustCompile(`status code:? (\d{3})`)

func statusCode(err error) int {
	m := statusPattern.FindStringSubmatch(err.Error())
	if m == nil {
		return 0
	}
	code, _ := strconv.Atoi(m[1])
	return code
}

// IsRateLimit reports whether err was caused by the service's rate limit.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	if statusCode(err) == 429 {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "rate limit")
}

// IsTransient reports whether err is worth retrying: rate limits, network
// errors, per-call timeouts and server-side failures.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrTransient) || IsRateLimit(err) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	code := statusCode(err)
	return code >= 500 && code <= 599
}
