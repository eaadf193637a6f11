// Package httpclient implements the retrying HTTP transport shared by
// the extractor, the translation provider client, and the asset
// bundler.
//
// Retries apply only to transport-level failures (timeouts, connection
// errors), 429 responses, and 5xx status codes. Other 4xx responses
// fail immediately: a malformed request will not improve on retry.
// Backoff is exponential starting at 2s and capped at 10s.
package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/transflow/transflow/errdefs"
)

const (
	// DefaultTimeout is used when the caller supplies none.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxRetries bounds retry attempts after the first try.
	DefaultMaxRetries = 3

	backoffFloor = 2 * time.Second
	backoffCeil  = 10 * time.Second
)

// Client is a retrying HTTP client. The zero value is not usable;
// construct with New.
type Client struct {
	hc         *http.Client
	maxRetries int
	headers    map[string]string
	log        *slog.Logger

	// sleep is replaceable in tests to avoid real backoff waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Client with the given per-request timeout, retry bound
// and default headers. A nil logger falls back to slog.Default().
func New(timeout time.Duration, maxRetries int, headers map[string]string, log *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		hc:         &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		headers:    headers,
		log:        log,
		sleep:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// backoff returns the wait before retry number attempt (0-based),
// exponential with a floor of 2s and a ceiling of 10s.
func backoff(attempt int) time.Duration {
	d := backoffFloor << attempt
	if d > backoffCeil || d <= 0 {
		return backoffCeil
	}
	return d
}

// statusError reports a non-2xx response that was not retried away.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.status, truncate(e.body, 200))
}

// StatusCode extracts the HTTP status behind err, or 0.
func StatusCode(err error) int {
	var se *statusError
	if errors.As(err, &se) {
		return se.status
	}
	return 0
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// Get performs a GET request. The response body is fully read and
// returned. After exhausting retries the last failure is wrapped in a
// NetworkError carrying the URL and attempt count.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, url, nil, headers)
}

// Post performs a POST request with the given body (typically JSON).
func (c *Client) Post(ctx context.Context, url string, body []byte, headers map[string]string) ([]byte, error) {
	return c.do(ctx, http.MethodPost, url, body, headers)
}

// Download fetches url and writes the body to destPath, creating
// parent directories as needed.
func (c *Client) Download(ctx context.Context, url, destPath string) error {
	data, err := c.Get(ctx, url, nil)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", destPath, err)
	}
	if err := os.WriteFile(destPath, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", destPath, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, headers map[string]string) ([]byte, error) {
	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, errdefs.Validationf("invalid request for %s: %v", url, err)
		}
		for k, v := range c.headers {
			req.Header.Set(k, v)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		attempts++
		c.log.Debug("http request", "method", method, "url", url, "attempt", attempts)

		resp, err := c.hc.Do(req)
		if err != nil {
			lastErr = err
			if attempt < c.maxRetries {
				if serr := c.sleep(ctx, backoff(attempt)); serr != nil {
					return nil, serr
				}
				continue
			}
			break
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			if attempt < c.maxRetries {
				if serr := c.sleep(ctx, backoff(attempt)); serr != nil {
					return nil, serr
				}
				continue
			}
			break
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return respBody, nil
		}

		lastErr = &statusError{status: resp.StatusCode, body: string(respBody)}
		if !retryable(resp.StatusCode) {
			// Client errors fail fast without the NetworkError wrap:
			// the request itself is wrong.
			return nil, fmt.Errorf("%s %s: %w", method, url, lastErr)
		}
		c.log.Warn("retryable status", "url", url, "status", resp.StatusCode, "attempt", attempts)
		if attempt < c.maxRetries {
			if serr := c.sleep(ctx, backoff(attempt)); serr != nil {
				return nil, serr
			}
		}
	}

	return nil, &errdefs.NetworkError{URL: url, Attempts: attempts, Err: lastErr}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
