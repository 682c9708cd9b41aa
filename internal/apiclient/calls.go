package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jonathan/resume-tailor/internal/types"
)

// Search calls POST /api/search.
func (c *Client) Search(ctx context.Context, req types.SearchRequest) (*types.SearchResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid search request: %w", err)
	}

	var resp types.SearchResponse
	if err := c.Do(ctx, http.MethodPost, "/api/search", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Generate calls POST /api/generate.
func (c *Client) Generate(ctx context.Context, req types.GenerateRequest) (*types.GenerateResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid generate request: %w", err)
	}

	var resp types.GenerateResponse
	if err := c.Do(ctx, http.MethodPost, "/api/generate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health calls GET /health without credentials. Anything but 200 is an error.
func (c *Client) Health(ctx context.Context) error {
	url := c.baseURL + "/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Method: http.MethodGet, URL: url, Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return &BackendError{Status: resp.StatusCode, Detail: "backend not ready"}
	}
	return nil
}
