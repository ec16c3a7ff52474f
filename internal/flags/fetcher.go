package flags

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"bullion-bell/internal/errors"
)

// maxAssetBytes bounds a single downloaded image.
const maxAssetBytes = 1 << 20

// Fetcher downloads raw image bytes.
type Fetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher fetches images over HTTP. Anything but 200 OK is a failure.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// NewHTTPFetcher creates an HTTPFetcher with the given request timeout.
func NewHTTPFetcher(timeout time.Duration, userAgent string) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// FetchBytes performs a GET and returns the body.
func (f *HTTPFetcher) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", errors.ErrBadStatus, resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxAssetBytes))
}
