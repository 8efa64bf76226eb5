package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"contentsync/internal/models"
)

// Errors returned by Fetch. ErrEmptyDataset is a soft condition: the run
// has nothing to do, it did not fail.
var (
	ErrMissingToken = errors.New("api token is missing")
	ErrTransport    = errors.New("provider request failed")
	ErrEmptyDataset = errors.New("provider returned no records")
)

// UpstreamStatusError is returned when the provider answers with a non-200
// status.
type UpstreamStatusError struct {
	Code int
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("unexpected provider status: %d", e.Code)
}

const fetchTimeout = 30 * time.Second

// Client fetches finished-run records from the provider endpoint.
type Client struct {
	endpoint string
	client   *http.Client
}

// NewClient creates a Client for the given provider endpoint, e.g.
// "https://api.provider.example/v2/datasets".
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		client:   &http.Client{Timeout: fetchTimeout},
	}
}

// Fetch downloads the latest batch of records for sourceID. The upstream
// API takes the token as a query parameter; that leaks the credential into
// access logs and proxies, but it is the contract the provider exposes, so
// it is preserved here rather than silently changed. The token itself is
// never written to our own logs.
func (c *Client) Fetch(ctx context.Context, token, sourceID string) ([]models.ContentRecord, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	u := fmt.Sprintf("%s/%s/records?token=%s&status=SUCCEEDED",
		c.endpoint, url.PathEscape(sourceID), url.QueryEscape(token))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamStatusError{Code: resp.StatusCode}
	}

	var records []models.ContentRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode provider response: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyDataset
	}
	return records, nil
}
