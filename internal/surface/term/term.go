// Package term is a terminal surface built on tcell.
//
// The surface edits its buffer as plain text and toggles, with Ctrl-P,
// into a read-only preview rendered by glamour.
package term

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/gdamore/tcell/v2"

	"github.com/dshills/richview/internal/notify"
	"github.com/dshills/richview/internal/surface"
	"github.com/dshills/richview/internal/theme"
)

// ansiSeq matches terminal escape sequences in glamour output.
var ansiSeq = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)

// Surface draws an editable buffer on a tcell screen.
type Surface struct {
	screen   tcell.Screen
	id       string
	readOnly bool

	mu      sync.Mutex
	buf     []rune
	cursor  int
	top     int
	preview bool
	theme   theme.Theme
	width   int
	height  int
	closed  bool
	changes *notify.Notifier[struct{}]
}

// Ensure Surface implements the optional capabilities.
var (
	_ surface.Surface   = (*Surface)(nil)
	_ surface.Themer    = (*Surface)(nil)
	_ surface.Activator = (*Surface)(nil)
)

// New creates a surface drawing on an initialized screen.
func New(screen tcell.Screen, opts surface.Options) *Surface {
	w, h := screen.Size()
	return &Surface{
		screen:   screen,
		id:       opts.ID,
		readOnly: opts.ReadOnly,
		buf:      []rune(opts.Data),
		theme:    opts.Theme,
		width:    w,
		height:   h,
		changes:  notify.New[struct{}](),
	}
}

// NewFactory returns a factory building surfaces on screen.
// Every created surface is passed to created when it is non-nil.
func NewFactory(screen tcell.Screen, created func(*Surface)) surface.Factory {
	return surface.FactoryFunc(func(ctx context.Context, opts surface.Options) (surface.Surface, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s := New(screen, opts)
		if created != nil {
			created(s)
		}
		s.Draw()
		return s, nil
	})
}

// SetData replaces the buffer and redraws.
func (s *Surface) SetData(text string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.buf = []rune(text)
	if s.cursor > len(s.buf) {
		s.cursor = len(s.buf)
	}
	s.mu.Unlock()

	s.Draw()
}

// GetData returns the buffer.
func (s *Surface) GetData() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.buf)
}

// OnChange registers fn for user edits.
func (s *Surface) OnChange(fn func()) notify.Subscription {
	return s.changes.Subscribe(func(struct{}) { fn() })
}

// Resize sets the drawing area and redraws.
func (s *Surface) Resize(width, height int) {
	s.mu.Lock()
	s.width, s.height = width, height
	s.mu.Unlock()

	s.Draw()
}

// Activate redraws the whole screen.
func (s *Surface) Activate() {
	s.Draw()
	s.screen.Sync()
}

// SetTheme changes colors and the preview style.
func (s *Surface) SetTheme(t theme.Theme) {
	s.mu.Lock()
	s.theme = t
	s.mu.Unlock()

	s.Draw()
}

// Previewing reports whether the rendered preview is shown.
func (s *Surface) Previewing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preview
}

// Cursor returns the cursor position as a rune offset.
func (s *Surface) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Close stops change notification. The screen is owned by the caller.
func (s *Surface) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.changes.Close()
	return nil
}

// Preview renders the buffer with glamour for the current theme and width.
func (s *Surface) Preview() (string, error) {
	s.mu.Lock()
	data, style, width := string(s.buf), s.theme.GlamourStyle, s.width
	s.mu.Unlock()

	if style == "" {
		style = "notty"
	}
	if width <= 0 {
		width = 80
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return r.Render(data)
}

// Draw paints the buffer or the preview and shows the screen.
func (s *Surface) Draw() {
	s.mu.Lock()
	preview := s.preview
	s.mu.Unlock()

	var lines []string
	if preview {
		out, err := s.Preview()
		if err != nil {
			out = "preview failed: " + err.Error()
		}
		lines = strings.Split(ansiSeq.ReplaceAllString(out, ""), "\n")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	style := tcell.StyleDefault
	if s.theme.Foreground != "" {
		style = style.Foreground(tcell.GetColor(s.theme.Foreground))
	}
	if s.theme.Background != "" {
		style = style.Background(tcell.GetColor(s.theme.Background))
	}

	cy, cx := lineCol(s.buf, s.cursor)
	if !preview {
		lines = strings.Split(string(s.buf), "\n")
		s.scrollTo(cy)
	}

	s.screen.Clear()
	for y := 0; y < s.height; y++ {
		row := s.top + y
		x := 0
		if row < len(lines) {
			for _, r := range lines[row] {
				if x >= s.width {
					break
				}
				s.screen.SetContent(x, y, r, nil, style)
				x++
			}
		}
		for ; x < s.width; x++ {
			s.screen.SetContent(x, y, ' ', nil, style)
		}
	}

	if preview || s.readOnly {
		s.screen.HideCursor()
	} else {
		s.screen.ShowCursor(cx, cy-s.top)
	}
	s.screen.Show()
}

// scrollTo keeps line visible. Caller holds s.mu.
func (s *Surface) scrollTo(line int) {
	if line < s.top {
		s.top = line
	}
	if s.height > 0 && line >= s.top+s.height {
		s.top = line - s.height + 1
	}
}
