// Package document keeps the live in-memory text of open documents.
//
// A Store holds at most one Document per URI and reports every open, change
// and close as an Event. Rendered views read from the store but never write
// to it; edits come from text editors through Update and ApplyEdit.
package document

import (
	"errors"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"
)

// Sentinel errors for document operations.
var (
	// ErrNotOpen indicates no document is open for the URI.
	ErrNotOpen = errors.New("document not open")

	// ErrDirty indicates a document has unsaved changes.
	ErrDirty = errors.New("document has unsaved changes")

	// ErrInvalidEditRange is returned when ApplyEdit receives invalid offsets.
	ErrInvalidEditRange = errors.New("invalid edit range")
)

// Document is an open text buffer.
type Document struct {
	mu sync.RWMutex

	uri        string
	languageID string
	text       string
	saved      string
	version    int64
	openedAt   time.Time
	modifiedAt time.Time
	closed     bool
}

// NewDocument creates a document at version 1.
func NewDocument(uri, text string) *Document {
	now := time.Now()
	return &Document{
		uri:        uri,
		languageID: DetectLanguageID(uri),
		text:       text,
		saved:      text,
		version:    1,
		openedAt:   now,
		modifiedAt: now,
	}
}

// URI returns the document URI.
func (d *Document) URI() string {
	return d.uri
}

// LanguageID returns the language identifier derived from the URI extension.
func (d *Document) LanguageID() string {
	return d.languageID
}

// Text returns the current text.
func (d *Document) Text() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.text
}

// Version returns the edit version. It starts at 1 and grows with each edit.
func (d *Document) Version() int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.version
}

// ModifiedAt returns when the text last changed.
func (d *Document) ModifiedAt() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.modifiedAt
}

// IsDirty returns true if the text differs from the last saved text.
func (d *Document) IsDirty() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.text != d.saved
}

// IsClosed returns true once the document has been closed.
func (d *Document) IsClosed() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.closed
}

// setText replaces the text. It reports false when nothing changed.
func (d *Document) setText(text string) (int64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if text == d.text {
		return d.version, false
	}
	d.text = text
	d.version++
	d.modifiedAt = time.Now()
	return d.version, true
}

// applyEdit replaces the byte range [start, end) with newText.
func (d *Document) applyEdit(start, end int, newText string) (string, int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if start < 0 || end < 0 || start > len(d.text) || end > len(d.text) || start > end {
		return "", 0, ErrInvalidEditRange
	}

	d.text = d.text[:start] + newText + d.text[end:]
	d.version++
	d.modifiedAt = time.Now()
	return d.text, d.version, nil
}

// reload replaces the text of a clean document with persisted text.
// It reports false when the document is dirty or nothing changed.
func (d *Document) reload(text string) (int64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed || d.text != d.saved || text == d.text {
		return d.version, false
	}
	d.text = text
	d.saved = text
	d.version++
	d.modifiedAt = time.Now()
	return d.version, true
}

func (d *Document) markSaved() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.saved = d.text
	return d.text
}

func (d *Document) markClosed() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
}

var languageIDs = map[string]string{
	".go":       "go",
	".py":       "python",
	".js":       "javascript",
	".ts":       "typescript",
	".rs":       "rust",
	".java":     "java",
	".c":        "c",
	".cpp":      "cpp",
	".h":        "cpp",
	".html":     "html",
	".htm":      "html",
	".xhtml":    "html",
	".css":      "css",
	".json":     "json",
	".yaml":     "yaml",
	".yml":      "yaml",
	".toml":     "toml",
	".xml":      "xml",
	".md":       "markdown",
	".markdown": "markdown",
	".txt":      "plaintext",
	".lua":      "lua",
	".sh":       "shellscript",
	".sql":      "sql",
}

// DetectLanguageID returns the language identifier for the extension of a
// URI or path. Unknown extensions map to "plaintext".
func DetectLanguageID(uri string) string {
	p := uri
	if u, err := url.Parse(uri); err == nil && u.Path != "" {
		p = u.Path
	}
	if id, ok := languageIDs[strings.ToLower(path.Ext(p))]; ok {
		return id
	}
	return "plaintext"
}
