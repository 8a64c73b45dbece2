// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across stages.
package httputil

import (
	"context"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"
)

// RetryBaseDelay controls the base duration for exponential backoff.
// Tests override this to avoid real sleeps.
var RetryBaseDelay = 1 * time.Second

// MaxBackoff caps a single backoff wait.
var MaxBackoff = 10 * time.Second

const defaultMaxRetries = 3

// DoWithRetry executes an HTTP request and retries on HTTP 429 (Too Many
// Requests) and on transport errors. On a 429 carrying a Retry-After header
// the wait honors the advertised seconds; otherwise the delay starts at
// RetryBaseDelay and doubles each attempt, capped at MaxBackoff.
//
// When maxRetries is 0 the default (3) is used. On each retried 429 the
// response body is drained and closed before sleeping. If the context is
// cancelled during a backoff wait the function returns ctx.Err(). After
// exhausting retries the last response or transport error is returned so
// the caller can treat the endpoint as unavailable.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			if attempt >= maxRetries {
				return nil, err
			}
			if werr := waitBackoff(ctx, backoffDelay(attempt)); werr != nil {
				return nil, werr
			}
			continue
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		// Exhausted retries: return the 429 response as-is.
		if attempt >= maxRetries {
			return resp, nil
		}

		delay := backoffDelay(attempt)
		if ra := retryAfter(resp); ra > 0 {
			delay = ra
		}

		// Drain and close the body before retrying.
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if werr := waitBackoff(ctx, delay); werr != nil {
			return nil, werr
		}
	}
}

func backoffDelay(attempt int) time.Duration {
	d := time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
	if d > MaxBackoff {
		d = MaxBackoff
	}
	return d
}

// retryAfter parses a Retry-After header given in whole seconds. Date-form
// values are ignored.
func retryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func waitBackoff(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
