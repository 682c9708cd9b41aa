// Package apiclient issues authenticated requests against the resume tailor backend.
//
// Client.Fetch is the single entry point every component uses: it attaches the
// current bearer token, tears the session down on 401 and otherwise hands the
// response back untouched. Search, Generate and Health are typed helpers on top.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/jonathan/resume-tailor/internal/types"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 60 * time.Second

const genericBackendError = "The server could not complete the request."

// Session is the capability the client needs from the auth layer.
type Session interface {
	AccessToken() string
	SignOut(ctx context.Context)
}

// Client issues requests against the backend base URL.
type Client struct {
	baseURL string
	session Session
	http    *http.Client
	limiter *Limiter
	logger  *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLimiter enables client-side throttling.
func WithLimiter(l *Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithLogger sets the debug logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client for baseURL that reads its token from session.
func New(baseURL string, session Session, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		session: session,
		http:    &http.Client{Timeout: DefaultTimeout},
		logger:  log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Fetch sends an authenticated request. path is relative to the base URL
// unless it is already absolute. body may be nil, []byte, an io.Reader, or a
// value to encode as JSON.
//
// Fetch fails with ErrNotAuthenticated when there is no token, ErrSessionExpired
// on 401 (after signing out), a *NetworkError when no response arrives, and a
// *RateLimitError when throttled. Any other response is returned as-is and the
// caller must close its body.
func (c *Client) Fetch(ctx context.Context, method, path string, body any, header http.Header) (*http.Response, error) {
	token := ""
	if c.session != nil {
		token = c.session.AccessToken()
	}
	if token == "" {
		return nil, ErrNotAuthenticated
	}

	if c.limiter != nil {
		if ok, info := c.limiter.Allow(c.endpointPath(path), method); !ok {
			c.logger.Printf("[api] throttled %s %s, retry in %s", method, path, info.RetryAfter)
			return nil, &RateLimitError{Method: method, Path: path, RetryAfter: info.RetryAfter}
		}
	}

	reader, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	url := c.resolve(path)
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Printf("[api] %s %s failed: %v", method, path, err)
		return nil, &NetworkError{Method: method, URL: url, Cause: err}
	}
	c.logger.Printf("[api] %s %s -> %d (%s)", method, path, resp.StatusCode, time.Since(start).Round(time.Millisecond))

	if resp.StatusCode == http.StatusUnauthorized {
		_ = resp.Body.Close()
		c.logger.Printf("[api] unauthorized, signing out")
		c.session.SignOut(ctx)
		return nil, ErrSessionExpired
	}

	return resp, nil
}

func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// endpointPath strips the base URL so throttle rules match on the path alone.
func (c *Client) endpointPath(path string) string {
	p := strings.TrimPrefix(path, c.baseURL)
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

func encodeBody(body any) (io.Reader, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return bytes.NewReader(b), nil
	case string:
		return strings.NewReader(b), nil
	case io.Reader:
		return b, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		return bytes.NewReader(data), nil
	}
}

// CheckResponse returns a *BackendError for non-2xx responses, reading the
// backend's detail message when the body carries one. The body is left open
// for 2xx responses and consumed otherwise.
func CheckResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	detail := genericBackendError

	var body types.ErrorBody
	if err := json.Unmarshal(data, &body); err == nil && strings.TrimSpace(body.Detail) != "" {
		detail = body.Detail
	} else {
		// FastAPI validation errors carry detail as a list of objects.
		var list struct {
			Detail []struct {
				Msg string `json:"msg"`
			} `json:"detail"`
		}
		if err := json.Unmarshal(data, &list); err == nil && len(list.Detail) > 0 && list.Detail[0].Msg != "" {
			detail = list.Detail[0].Msg
		}
	}

	return &BackendError{Status: resp.StatusCode, Detail: detail}
}

// DecodeJSON decodes the response body into v and closes it.
func DecodeJSON(resp *http.Response, v any) error {
	defer func() { _ = resp.Body.Close() }()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Do sends an authenticated request and decodes a 2xx JSON response into out.
// Non-2xx responses become *BackendError. out may be nil.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.Fetch(ctx, method, path, body, nil)
	if err != nil {
		return err
	}
	if err := CheckResponse(resp); err != nil {
		_ = resp.Body.Close()
		return err
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		return nil
	}
	return DecodeJSON(resp, out)
}
