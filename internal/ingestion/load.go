// Package ingestion loads job descriptions from files, stdin, or job board URLs.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonathan/resume-tailor/internal/fetch"
)

// StdinSource is the source name that reads from standard input.
const StdinSource = "-"

// ErrEmptyDescription is returned when a source yields no text.
var ErrEmptyDescription = errors.New("job description is empty")

// PostingFetcher fetches a job posting page. *fetch.Fetcher satisfies it.
type PostingFetcher interface {
	JobPosting(ctx context.Context, url string) (*fetch.Page, error)
}

// Loader resolves a job description source to cleaned text.
type Loader struct {
	Stdin   io.Reader
	Fetcher PostingFetcher
}

// NewLoader returns a Loader reading stdin from os.Stdin.
func NewLoader(fetcher PostingFetcher) *Loader {
	return &Loader{Stdin: os.Stdin, Fetcher: fetcher}
}

// Load reads source, which is "-" for stdin, an http(s) URL, or a file path.
// Files ending in .pdf or .docx are converted; anything else is read as text.
func (l *Loader) Load(ctx context.Context, source string) (*Document, error) {
	source = strings.TrimSpace(source)
	switch {
	case source == "":
		return nil, fmt.Errorf("no job description source given")
	case source == StdinSource:
		return l.fromStdin()
	case strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://"):
		return l.fromURL(ctx, source)
	default:
		return FromFile(source)
	}
}

// FromText cleans inline text.
func FromText(text string) (*Document, error) {
	return finish(text, "inline", KindText)
}

// FromFile reads and cleans a job description file.
func FromFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %w", err)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err := extractPDFText(data)
		if err != nil {
			return nil, err
		}
		return finish(text, path, KindPDF)
	case ".docx":
		text, err := extractDOCXText(data)
		if err != nil {
			return nil, err
		}
		return finish(text, path, KindDOCX)
	default:
		return finish(string(data), path, KindText)
	}
}

func (l *Loader) fromStdin() (*Document, error) {
	if l.Stdin == nil {
		return nil, fmt.Errorf("stdin is not available")
	}
	data, err := io.ReadAll(l.Stdin)
	if err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	return finish(string(data), StdinSource, KindStdin)
}

func (l *Loader) fromURL(ctx context.Context, url string) (*Document, error) {
	if l.Fetcher == nil {
		return nil, fmt.Errorf("fetching job postings from URLs is not enabled")
	}
	page, err := l.Fetcher.JobPosting(ctx, url)
	if err != nil {
		return nil, err
	}
	doc, err := finish(page.Text, url, KindURL)
	if err != nil {
		return nil, err
	}
	doc.Platform = string(page.Platform)
	return doc, nil
}

func finish(raw, source string, kind Kind) (*Document, error) {
	text := CleanText(raw)
	if text == "" {
		return nil, fmt.Errorf("%s: %w", source, ErrEmptyDescription)
	}
	return newDocument(text, source, kind), nil
}
