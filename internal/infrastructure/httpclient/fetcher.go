package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// maxRetryInterval caps the exponential wait between attempts.
const maxRetryInterval = 60 * time.Second

// Fetcher issues GET requests with bounded exponential retries. Transport
// failures, 429 and 5xx responses retry; any other non-200 status is
// permanent and fails immediately.
type Fetcher struct {
	http        *http.Client
	maxAttempts int
	retryDelay  time.Duration
}

// NewFetcher creates a reusable fetcher. maxAttempts counts the first
// request too, so 3 means at most two retries.
func NewFetcher(timeout time.Duration, maxAttempts int, retryDelay time.Duration) *Fetcher {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Fetcher{
		http:        &http.Client{Timeout: timeout},
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
	}
}

// Get fetches url and returns the response body.
func (f *Fetcher) Get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	var body []byte

	op := func() error {
		b, err := f.fetch(ctx, url, headers)
		if err != nil {
			return err
		}
		body = b
		return nil
	}

	if err := backoff.Retry(op, f.policy(ctx)); err != nil {
		return nil, err
	}
	return body, nil
}

// GetJSON fetches url and decodes the JSON response into v.
func (f *Fetcher) GetJSON(ctx context.Context, url string, headers map[string]string, v any) error {
	body, err := f.Get(ctx, url, headers)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (f *Fetcher) policy(ctx context.Context) backoff.BackOffContext {
	expo := backoff.NewExponentialBackOff()
	if f.retryDelay > 0 {
		expo.InitialInterval = f.retryDelay
	}
	expo.MaxInterval = maxRetryInterval
	expo.MaxElapsedTime = 0

	return backoff.WithContext(backoff.WithMaxRetries(expo, uint64(f.maxAttempts-1)), ctx)
}

func (f *Fetcher) fetch(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("new request: %w", err))
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		statusErr := fmt.Errorf("unexpected status %s", resp.Status)
		if retryableStatus(resp.StatusCode) {
			return nil, statusErr
		}
		return nil, backoff.Permanent(statusErr)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if err := resp.Body.Close(); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("close response body: %w", err))
	}
	return body, nil
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
