// Package fetch downloads release files over HTTP with retries. Writes
// are atomic: content lands in a temp file next to the destination and
// is renamed into place only after the body was read completely, so an
// interrupted download never leaves a truncated file behind.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Cnily03/release-viewer/pkg/relview/logging"
)

// DefaultRetries is how often a download is attempted before giving up.
const DefaultRetries = 3

// retryBaseDelay is the backoff unit; attempt n waits n*unit plus
// jitter.
const retryBaseDelay = 500 * time.Millisecond

// ErrBadStatus marks a download rejected by the server.
var ErrBadStatus = errors.New("unexpected HTTP status")

// Fetcher downloads URLs to local paths.
type Fetcher struct {
	client  *http.Client
	retries int
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient replaces the HTTP client, mainly for tests.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithRetries sets the number of attempts per download. Values below 1
// are clamped to 1.
func WithRetries(n int) Option {
	return func(f *Fetcher) {
		if n < 1 {
			n = 1
		}
		f.retries = n
	}
}

// New returns a Fetcher with a 5 minute per-request timeout and
// DefaultRetries attempts.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:  &http.Client{Timeout: 5 * time.Minute},
		retries: DefaultRetries,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads url to destPath, creating parent directories. It
// retries transient failures with linear backoff and jitter, and stops
// early when ctx is cancelled. On success the destination holds the
// complete body.
func (f *Fetcher) Fetch(ctx context.Context, url, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= f.retries; attempt++ {
		if attempt > 1 {
			delay := time.Duration(attempt-1)*retryBaseDelay +
				time.Duration(rand.Int63n(int64(retryBaseDelay)))
			logging.Get("fetch").Debug("retrying download", "url", url, "attempt", attempt, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = f.fetchOnce(ctx, url, destPath)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}
		logging.Get("fetch").Warn("download attempt failed", "url", url, "attempt", attempt, "error", lastErr)
	}
	return fmt.Errorf("failed to download %s after %d attempts: %w", url, f.retries, lastErr)
}

// fetchOnce performs a single download attempt with an atomic write.
func (f *Fetcher) fetchOnce(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s", ErrBadStatus, resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(destPath), "."+filepath.Base(destPath)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write body: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to finalize download: %w", err)
	}
	return nil
}
