package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postingHTML(body string) string {
	return `<html><body><nav>Navigation</nav><div class="job-description">` + body + `</div><footer>Footer</footer></body></html>`
}

func TestJobPosting_ExtractsDescription(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(postingHTML(`<h2>Requirements</h2><ul><li>5 years of Go</li><li>Postgres</li></ul>`)))
	}))
	defer server.Close()

	page, err := New().JobPosting(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, PlatformUnknown, page.Platform)
	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.Equal(t, "Requirements\n- 5 years of Go\n- Postgres", page.Text)
	assert.False(t, page.Rendered)
}

func TestJobPosting_InvalidURL(t *testing.T) {
	for _, u := range []string{"not-a-valid-url", "ftp://example.com/job"} {
		_, err := New().JobPosting(context.Background(), u)
		var fetchErr *Error
		require.ErrorAs(t, err, &fetchErr)
		assert.Contains(t, err.Error(), "invalid URL")
	}
}

func TestJobPosting_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	page, err := New().JobPosting(context.Background(), server.URL)
	require.Error(t, err)
	require.NotNil(t, page)
	assert.Equal(t, http.StatusNotFound, page.StatusCode)
	assert.Contains(t, err.Error(), "404")
}

func TestJobPosting_BrowserFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div id="root">Loading...</div></body></html>`))
	}))
	defer server.Close()

	long := strings.Repeat("Build reliable payment systems in Go. ", 20)
	var rendered string
	f := New(WithRenderer(func(_ context.Context, url string) (string, error) {
		rendered = url
		return postingHTML("<p>" + long + "</p>"), nil
	}))

	page, err := f.JobPosting(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, server.URL, rendered)
	assert.True(t, page.Rendered)
	assert.Equal(t, strings.TrimSpace(long), page.Text)
}

func TestJobPosting_BrowserFailureKeepsStaticText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(postingHTML("<p>Short posting</p>")))
	}))
	defer server.Close()

	f := New(WithRenderer(func(context.Context, string) (string, error) {
		return "", errors.New("chrome not installed")
	}))

	page, err := f.JobPosting(context.Background(), server.URL)
	require.NoError(t, err)
	assert.False(t, page.Rendered)
	assert.Equal(t, "Short posting", page.Text)
}

func TestExtractMainText_RemovesNoise(t *testing.T) {
	html := `
	<html>
		<body>
			<nav>Navigation</nav>
			<main>
				<h1>Main Content</h1>
				<p>This is the   important text.</p>
				<form>Apply now</form>
			</main>
			<footer>Footer</footer>
		</body>
	</html>`

	text, err := ExtractMainText(html, JobPostingSelectors(), PlatformNoiseSelectors(PlatformUnknown)...)
	require.NoError(t, err)
	assert.Equal(t, "Main Content\nThis is the important text.", text)
}

func TestExtractMainText_FallbackToBody(t *testing.T) {
	text, err := ExtractMainText(`<html><body><span>Some content here.</span></body></html>`, []string{".missing"})
	require.NoError(t, err)
	assert.Equal(t, "Some content here.", text)
}

func TestShouldUseBrowser(t *testing.T) {
	assert.True(t, ShouldUseBrowser("   short   "))
	assert.False(t, ShouldUseBrowser(strings.Repeat("x", MinContentLength)))
}
