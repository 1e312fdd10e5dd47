package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/pkgdepot/pkgdepot/internal/retry"
)

// HTTPTransfer downloads http and https URIs. Transient failures (network
// errors and 5xx responses) are retried with backoff; other failures abort
// immediately.
type HTTPTransfer struct {
	client   *http.Client
	attempts uint64
}

type transientHTTPError struct {
	err error
}

func (e *transientHTTPError) Error() string { return e.err.Error() }
func (e *transientHTTPError) Unwrap() error { return e.err }

func NewHTTPTransfer(timeout time.Duration) *HTTPTransfer {
	return &HTTPTransfer{
		client:   &http.Client{Timeout: timeout},
		attempts: retry.DefaultAttempts,
	}
}

func (t *HTTPTransfer) TransferToLocalFile(ctx context.Context, uri string, dest string) error {
	isTransient := func(err error) bool {
		var te *transientHTTPError
		return errors.As(err, &te)
	}
	return retry.Do(ctx, t.attempts, retry.DefaultInitialInterval, isTransient, func() error {
		return t.fetchOnce(ctx, uri, dest)
	})
}

func (t *HTTPTransfer) fetchOnce(ctx context.Context, uri string, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return &transientHTTPError{err: fmt.Errorf("fetch %s: %w", uri, err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return &transientHTTPError{err: fmt.Errorf("fetch %s: status %d", uri, resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("fetch %s: status %d", uri, resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(dest)
		return &transientHTTPError{err: fmt.Errorf("write %s: %w", dest, err)}
	}
	return f.Close()
}
