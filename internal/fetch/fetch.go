// Package fetch retrieves job postings from the web and reduces them to their main text.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent is the user agent string for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; ResumeTailor/1.0)"

// maxBodyBytes caps how much of a page is read.
const maxBodyBytes = 5 << 20

// Page holds a fetched job posting.
type Page struct {
	URL        string
	Platform   Platform
	HTML       string
	Text       string
	StatusCode int
	Rendered   bool // Text came from the headless browser
}

// Error represents an error during URL fetching.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Renderer returns the HTML of a page after client-side scripts have run.
type Renderer func(ctx context.Context, url string) (string, error)

// Fetcher downloads job postings and extracts their text.
type Fetcher struct {
	client    *http.Client
	userAgent string
	render    Renderer
	logger    *log.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithRenderer enables the headless browser fallback for pages whose
// static HTML carries too little text.
func WithRenderer(r Renderer) Option {
	return func(f *Fetcher) { f.render = r }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// New creates a Fetcher.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:    &http.Client{Timeout: DefaultTimeout},
		userAgent: DefaultUserAgent,
		logger:    log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// JobPosting fetches a job posting and extracts its description text using
// platform-specific selectors, rendering the page in a browser when the
// static HTML looks like an unrendered single-page app.
func (f *Fetcher) JobPosting(ctx context.Context, urlStr string) (*Page, error) {
	page, err := f.get(ctx, urlStr)
	if err != nil {
		return page, err
	}

	page.Platform = DetectPlatform(urlStr)
	f.logger.Printf("[fetch] %s: platform %s, %d bytes", urlStr, page.Platform, len(page.HTML))

	content, noise := PlatformContentSelectors(page.Platform), PlatformNoiseSelectors(page.Platform)
	page.Text, err = ExtractMainText(page.HTML, content, noise...)
	if err != nil {
		return page, &Error{URL: urlStr, Message: "content extraction failed", Cause: err}
	}

	if f.render != nil && ShouldUseBrowser(page.Text) {
		f.logger.Printf("[fetch] %s: only %d chars, rendering in browser", urlStr, len(page.Text))
		html, err := f.render(ctx, urlStr)
		if err != nil {
			// Keep the static text
			f.logger.Printf("[fetch] browser rendering failed: %v", err)
			return page, nil
		}
		text, err := ExtractMainText(html, content, noise...)
		if err == nil && len(text) > len(page.Text) {
			page.HTML, page.Text, page.Rendered = html, text, true
		}
	}
	return page, nil
}

func (f *Fetcher) get(ctx context.Context, urlStr string) (*Page, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil || (parsedURL.Scheme != "http" && parsedURL.Scheme != "https") || parsedURL.Host == "" {
		return nil, &Error{URL: urlStr, Message: "invalid URL", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "failed to read response body", Cause: err}
	}

	page := &Page{URL: urlStr, HTML: string(body), StatusCode: resp.StatusCode}
	if resp.StatusCode != http.StatusOK {
		return page, &Error{URL: urlStr, Message: fmt.Sprintf("HTTP status %d", resp.StatusCode)}
	}
	return page, nil
}
