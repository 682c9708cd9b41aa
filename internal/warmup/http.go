package warmup

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// HTTPProber probes GET {base}/health. Anything but 200 is not ready.
type HTTPProber struct {
	url    string
	client *http.Client
}

// NewHTTPProber creates a prober for the backend at baseURL.
func NewHTTPProber(baseURL string, client *http.Client) *HTTPProber {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPProber{url: strings.TrimRight(baseURL, "/") + "/health", client: client}
}

// Probe issues one liveness request.
func (p *HTTPProber) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned %d", resp.StatusCode)
	}
	return nil
}
