package fetcher

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	domainerrors "token-metadata.backend/internal/domain/errors"
)

// HTTPStatusError is a non-2xx response from a metadata host.
type HTTPStatusError struct {
	Host       string
	StatusCode int
	// RetryAfter is zero when the host did not send a usable Retry-After header.
	RetryAfter time.Duration
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("metadata host %s responded %d", e.Host, e.StatusCode)
}

// RateLimited reports whether the host asked us to back off.
func (e *HTTPStatusError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusServiceUnavailable
}

// PenaltyHost is the host to penalize when the response was rate limited.
func (e *HTTPStatusError) PenaltyHost() string { return e.Host }

// PenaltyDuration is the Retry-After the host sent, zero when absent.
func (e *HTTPStatusError) PenaltyDuration() time.Duration { return e.RetryAfter }

func (e *HTTPStatusError) Is(target error) bool {
	switch target {
	case domainerrors.ErrHostRateLimited:
		return e.RateLimited()
	case domainerrors.ErrFetchTransport:
		return !e.RateLimited()
	}
	return false
}

// AsHTTPStatusError unwraps err to an *HTTPStatusError.
func AsHTTPStatusError(err error) (*HTTPStatusError, bool) {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr, true
	}
	return nil, false
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
