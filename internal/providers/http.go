package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alex-user-go/hotelsearch/internal/search/types"
)

// HTTPProvider queries the remote hotel REST API.
type HTTPProvider struct {
	name       string
	baseURL    string
	tenantID   string
	httpClient *http.Client
}

// NewHTTPProvider creates a new HTTPProvider.
func NewHTTPProvider(name, baseURL, tenantID string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		name:     name,
		baseURL:  strings.TrimRight(baseURL, "/"),
		tenantID: tenantID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Name returns the provider name.
func (p *HTTPProvider) Name() string {
	return p.name
}

// Search posts the query to the hotel search endpoint.
func (p *HTTPProvider) Search(ctx context.Context, q types.Query) ([]types.Hotel, error) {
	if q.Criteria.Destination.ID <= 0 {
		return nil, fmt.Errorf("destination ID is required")
	}

	u, err := url.Parse(p.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	query := u.Query()
	query.Set("destinationId", strconv.Itoa(q.Criteria.Destination.ID))
	u.RawQuery = query.Encode()

	var resp SearchResponse
	if err := p.post(ctx, u.String(), NewSearchPayload(q), &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch hotels: %w", err)
	}

	return normalizeHotels(resp.Data), nil
}

// LookupDestination posts to the places endpoint.
func (p *HTTPProvider) LookupDestination(ctx context.Context, query string, limit int) ([]types.Destination, error) {
	var resp PlacesResponse
	if err := p.post(ctx, p.baseURL+"/places", NewPlacesPayload(query, limit), &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch destinations: %w", err)
	}
	return resp.Data, nil
}

func (p *HTTPProvider) post(ctx context.Context, endpoint string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	// Create request with context
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.tenantID != "" {
		req.Header.Set("x-tenant-id", p.tenantID)
	}

	// Execute request
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Explicitly ignore close error
	}()

	// Check status code
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: status %d: %s", ErrProviderUnavailable, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	// Parse JSON response
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	return nil
}
