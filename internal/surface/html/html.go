// Package html renders a surface buffer as an HTML page.
//
// Markdown buffers are converted with goldmark; HTML buffers are shown as
// they are. Handler exposes the page and the raw buffer over HTTP so a
// browser can view and edit it.
package html

import (
	"bytes"
	"context"
	"fmt"
	stdhtml "html"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/dshills/richview/internal/notify"
	"github.com/dshills/richview/internal/surface"
	"github.com/dshills/richview/internal/theme"
)

// Surface is an HTML-rendered surface.
type Surface struct {
	id       string
	lang     string
	readOnly bool
	md       goldmark.Markdown

	mu      sync.RWMutex
	data    string
	theme   theme.Theme
	width   int
	height  int
	version uint64
	closed  bool
	changes *notify.Notifier[struct{}]
}

// Ensure Surface implements the optional capabilities.
var (
	_ surface.Surface = (*Surface)(nil)
	_ surface.Themer  = (*Surface)(nil)
)

// New creates an HTML surface.
func New(opts surface.Options) *Surface {
	return &Surface{
		id:       opts.ID,
		lang:     opts.LanguageID,
		readOnly: opts.ReadOnly,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(gmhtml.WithHardWraps(), gmhtml.WithXHTML()),
		),
		data:    opts.Data,
		theme:   opts.Theme,
		version: 1,
		changes: notify.New[struct{}](),
	}
}

// NewFactory returns a factory building HTML surfaces.
// Every created surface is passed to created when it is non-nil.
func NewFactory(created func(*Surface)) surface.Factory {
	return surface.FactoryFunc(func(ctx context.Context, opts surface.Options) (surface.Surface, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s := New(opts)
		if created != nil {
			created(s)
		}
		return s, nil
	})
}

// ID returns the widget identifier.
func (s *Surface) ID() string {
	return s.id
}

// SetData replaces the buffer.
func (s *Surface) SetData(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.data = text
	s.version++
}

// GetData returns the buffer.
func (s *Surface) GetData() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

// Edit replaces the buffer on behalf of a user and notifies observers.
func (s *Surface) Edit(text string) error {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return surface.ErrClosed
	case s.readOnly:
		s.mu.Unlock()
		return surface.ErrReadOnly
	}
	s.data = text
	s.version++
	s.mu.Unlock()

	s.changes.Notify(struct{}{})
	return nil
}

// OnChange registers fn for user edits.
func (s *Surface) OnChange(fn func()) notify.Subscription {
	return s.changes.Subscribe(func(struct{}) { fn() })
}

// Resize records the viewport size used for the page's max width.
func (s *Surface) Resize(width, height int) {
	s.mu.Lock()
	s.width, s.height = width, height
	s.mu.Unlock()
}

// SetTheme changes the page colors.
func (s *Surface) SetTheme(t theme.Theme) {
	s.mu.Lock()
	s.theme = t
	s.version++
	s.mu.Unlock()
}

// Version increases whenever the rendered page would change.
func (s *Surface) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// ReadOnly reports whether edits are rejected.
func (s *Surface) ReadOnly() bool {
	return s.readOnly
}

// Close stops change notification.
func (s *Surface) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.changes.Close()
	return nil
}

// RenderBody converts the buffer to an HTML fragment.
func (s *Surface) RenderBody() (string, error) {
	s.mu.RLock()
	data := s.data
	s.mu.RUnlock()

	if s.lang == "html" {
		return data, nil
	}

	var buf bytes.Buffer
	if err := s.md.Convert([]byte(data), &buf); err != nil {
		return "", fmt.Errorf("render %s: %w", s.id, err)
	}
	return buf.String(), nil
}

// Render returns a complete HTML page for the buffer.
func (s *Surface) Render() (string, error) {
	body, err := s.RenderBody()
	if err != nil {
		return "", err
	}

	s.mu.RLock()
	t, width := s.theme, s.width
	s.mu.RUnlock()

	maxWidth := "48rem"
	if width > 0 {
		maxWidth = fmt.Sprintf("%dpx", width)
	}

	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&buf, "<title>%s</title>\n", stdhtml.EscapeString(s.id))
	fmt.Fprintf(&buf, "<style>body{color:%s;background:%s;max-width:%s;margin:auto;font-family:sans-serif}a,h1,h2,h3{color:%s}</style>\n",
		t.Foreground, t.Background, maxWidth, t.Accent)
	fmt.Fprintf(&buf, "</head>\n<body class=\"theme-%s\">\n", stdhtml.EscapeString(t.Name))
	buf.WriteString(body)
	buf.WriteString("</body>\n</html>\n")
	return buf.String(), nil
}
