package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/tubeport/internal/shared"
)

const (
	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryMaxDelay  = 30 * time.Second
)

// httpStatusError is a non-2xx API response.
type httpStatusError struct {
	Service    string
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("%s: http %d: %s", e.Service, e.StatusCode, strings.TrimSpace(e.Body))
}

func (e *httpStatusError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return shared.ErrTokenExpired
	}
	return shared.ErrAPIRequest
}

// retrier retries transient request failures with exponential backoff.
//
// Attempt 1 waits base, attempt 2 waits base*2 and so on, capped at max. A Retry-After
// value on a 429 or 5xx response replaces the computed delay.
type retrier struct {
	attempts int
	base     time.Duration
	max      time.Duration
	sleeper  func(time.Duration) // tests replace the timer
}

func newRetrier() retrier {
	return retrier{attempts: defaultRetryAttempts, base: defaultRetryBaseDelay, max: defaultRetryMaxDelay}
}

// do calls fn until it succeeds, returns a non-retryable error or runs out of attempts.
func (r retrier) do(ctx context.Context, fn func() error) error {
	attempts := r.attempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		delay, retry := r.delay(ctx, err, attempt, attempts)
		if !retry {
			return err
		}
		if err := r.sleep(ctx, delay); err != nil {
			return err
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

func (r retrier) delay(ctx context.Context, err error, attempt, maxAttempts int) (time.Duration, bool) {
	if attempt >= maxAttempts || err == nil || ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= http.StatusInternalServerError:
			if statusErr.RetryAfter > 0 {
				return r.capDelay(statusErr.RetryAfter), true
			}
			return r.backoff(attempt), true
		default:
			return 0, false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return r.backoff(attempt), true
	}
	return 0, false
}

func (r retrier) backoff(attempt int) time.Duration {
	if r.base <= 0 {
		return 0
	}
	delay := r.base
	for i := 1; i < attempt; i++ {
		if r.max > 0 && delay > r.max/2 {
			return r.max
		}
		delay *= 2
	}
	return r.capDelay(delay)
}

func (r retrier) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	if r.max > 0 && delay > r.max {
		return r.max
	}
	return delay
}

func (r retrier) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.sleeper != nil {
		r.sleeper(delay)
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// parseRetryAfter accepts delta seconds or an HTTP date.
func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}
