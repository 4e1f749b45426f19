package pricefeed

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/B0TMirage/cryptopulse/pkg/apperr"
)

const (
	baseBackoff = 1 * time.Second
	maxBackoff  = 60 * time.Second
)

// RateLimitedError is returned when the provider throttles us. It matches
// apperr.ErrRateLimited.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%v: retry after %s", apperr.ErrRateLimited, e.RetryAfter)
}

func (e *RateLimitedError) Unwrap() error {
	return apperr.ErrRateLimited
}

// backoff returns baseBackoff * 2^n capped at maxBackoff.
func backoff(n int) time.Duration {
	if n < 0 {
		return baseBackoff
	}
	if n > 30 {
		return maxBackoff
	}
	d := baseBackoff * time.Duration(1<<n)
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

// parseRetryAfter reads a Retry-After header given either as seconds or as
// an HTTP date. It returns false when the header is missing or unusable.
func parseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(value); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d, true
		}
		return 0, true
	}
	return 0, false
}
