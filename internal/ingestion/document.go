package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Kind is where a job description came from.
type Kind string

// Source kinds.
const (
	KindText  Kind = "text"
	KindPDF   Kind = "pdf"
	KindDOCX  Kind = "docx"
	KindStdin Kind = "stdin"
	KindURL   Kind = "url"
)

// Document is a loaded, cleaned job description.
type Document struct {
	Text     string    `json:"text"`
	Source   string    `json:"source"`
	Kind     Kind      `json:"kind"`
	Platform string    `json:"platform,omitempty"`
	Hash     string    `json:"hash"`
	LoadedAt time.Time `json:"loaded_at"`
}

func newDocument(text, source string, kind Kind) *Document {
	sum := sha256.Sum256([]byte(text))
	return &Document{
		Text:     text,
		Source:   source,
		Kind:     kind,
		Hash:     hex.EncodeToString(sum[:]),
		LoadedAt: time.Now().UTC(),
	}
}

// Truncated reports whether Text exceeds max runes, and returns it cut to max.
func (d *Document) Truncated(max int) (string, bool) {
	runes := []rune(d.Text)
	if max <= 0 || len(runes) <= max {
		return d.Text, false
	}
	return string(runes[:max]), true
}
