// Package provider implements the remote economic calendar provider.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-querystring/query"
	"github.com/rs/zerolog"

	"bullion-bell/internal/errors"
	"bullion-bell/internal/logging"
	"bullion-bell/internal/models"
	"bullion-bell/internal/security"
)

// maxResponseBytes bounds a provider response body.
const maxResponseBytes = 16 << 20

// Config holds HTTP provider configuration.
type Config struct {
	BaseURL   string
	Path      string
	APIKey    string
	UserAgent string
	Timeout   time.Duration
}

// HTTPProvider fetches calendar events with
// GET {base}{path}?from=DD/MM/YYYY&to=DD/MM/YYYY.
type HTTPProvider struct {
	endpoint  string
	apiKey    string
	userAgent string
	client    *http.Client
	logger    zerolog.Logger
}

// NewHTTPProvider creates an HTTPProvider.
func NewHTTPProvider(cfg Config, logger zerolog.Logger) (*HTTPProvider, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		return nil, errors.NewValidationError("base_url", cfg.BaseURL, "provider base URL is required")
	}
	path := cfg.Path
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	endpoint := base + path
	if _, err := url.Parse(endpoint); err != nil {
		return nil, errors.NewValidationError("base_url", endpoint, err.Error())
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &HTTPProvider{
		endpoint:  endpoint,
		apiKey:    cfg.APIKey,
		userAgent: cfg.UserAgent,
		client:    &http.Client{Timeout: timeout},
		logger:    logging.WithComponent(logger, "provider"),
	}, nil
}

// Endpoint returns the URL requests are sent to, without query.
func (p *HTTPProvider) Endpoint() string {
	return p.endpoint
}

// Fetch requests events between from and to inclusive. A null or empty
// body yields no records and no error. Any malformed record fails the
// whole response.
func (p *HTTPProvider) Fetch(ctx context.Context, from, to string) (records []models.EventRecord, err error) {
	start := time.Now()
	defer func() {
		logging.LogAPICall(p.logger, http.MethodGet, p.endpoint, time.Since(start), err)
	}()

	q, err := query.Values(rangeParams{From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("encoding query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}
	if p.apiKey != "" {
		req.Header.Set("X-API-Key", p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting calendar: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d: %s", errors.ErrBadStatus, resp.StatusCode, snippet(body))
	}

	return DecodeRecords(body)
}

// DecodeRecords accepts either a bare JSON array of records or an object
// with a "data" array. Valid JSON that carries no list decodes to no records.
func DecodeRecords(body []byte) ([]models.EventRecord, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, nil
	}

	var items []json.RawMessage
	switch body[0] {
	case '[':
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrMalformedRecord, err)
		}
	case '{':
		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrMalformedRecord, err)
		}
		data := bytes.TrimSpace(envelope.Data)
		if len(data) == 0 || data[0] != '[' {
			return nil, nil
		}
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrMalformedRecord, err)
		}
	default:
		if json.Valid(body) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: unexpected response %s", errors.ErrMalformedRecord, snippet(body))
	}

	records := make([]models.EventRecord, 0, len(items))
	for i, raw := range items {
		rec, err := models.ParseRecord(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", errors.ErrMalformedRecord, i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// rangeParams is the query string of a calendar request.
type rangeParams struct {
	From string `url:"from"`
	To   string `url:"to"`
}

func snippet(b []byte) string {
	const limit = 120
	s := security.MaskSensitive(strings.TrimSpace(string(b)))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
