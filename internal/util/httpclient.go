// Package util holds the HTTP plumbing shared by the RPC and price clients.
package util

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

func NewHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: tr}
}

// Retry runs fn up to attempts times with capped exponential backoff. Errors
// for which retryable returns false end the loop immediately.
func Retry(ctx context.Context, attempts int, initial, max time.Duration, retryable func(error) bool, fn func() error) error {
	if attempts <= 1 {
		return fn()
	}
	d := initial
	for i := 0; i < attempts; i++ {
		if i > 0 {
			t := time.NewTimer(d)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			}
		}
		err := fn()
		if err == nil {
			return nil
		}
		if i == attempts-1 || !retryable(err) {
			return err
		}
		if d < max {
			d *= 2
			if d > max {
				d = max
			}
		}
	}
	return errors.New("retry: exhausted")
}

// StatusError is a non-2xx answer from an HTTP API.
type StatusError struct {
	Service string
	Code    int
}

func (e *StatusError) Error() string {
	if e.Code == http.StatusTooManyRequests {
		return fmt.Sprintf("%s: rate limited (%d)", e.Service, e.Code)
	}
	return fmt.Sprintf("%s: http %d", e.Service, e.Code)
}

// RetryableHTTP retries transport failures, 429 and 5xx. Cancellation and
// other status codes are final.
func RetryableHTTP(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	return true
}
