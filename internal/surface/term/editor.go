package term

import (
	"context"

	"github.com/gdamore/tcell/v2"
)

// HandleEvent applies a screen event. It returns false when the user asked
// to leave (Ctrl-Q or Escape).
func (s *Surface) HandleEvent(ev tcell.Event) bool {
	switch e := ev.(type) {
	case *tcell.EventResize:
		w, h := e.Size()
		s.Resize(w, h)
		return true
	case *tcell.EventKey:
		return s.handleKey(e)
	default:
		return true
	}
}

func (s *Surface) handleKey(e *tcell.EventKey) bool {
	switch e.Key() {
	case tcell.KeyCtrlQ, tcell.KeyEscape:
		return false
	case tcell.KeyCtrlP:
		s.mu.Lock()
		s.preview = !s.preview
		s.top = 0
		s.mu.Unlock()
		s.Draw()
		return true
	}

	s.mu.Lock()
	if s.closed || s.preview {
		s.mu.Unlock()
		return true
	}

	edited := false
	switch e.Key() {
	case tcell.KeyLeft:
		if s.cursor > 0 {
			s.cursor--
		}
	case tcell.KeyRight:
		if s.cursor < len(s.buf) {
			s.cursor++
		}
	case tcell.KeyUp:
		line, col := lineCol(s.buf, s.cursor)
		if line > 0 {
			s.cursor = offsetOf(s.buf, line-1, col)
		}
	case tcell.KeyDown:
		line, col := lineCol(s.buf, s.cursor)
		s.cursor = offsetOf(s.buf, line+1, col)
	case tcell.KeyHome:
		line, _ := lineCol(s.buf, s.cursor)
		s.cursor = offsetOf(s.buf, line, 0)
	case tcell.KeyEnd:
		line, _ := lineCol(s.buf, s.cursor)
		s.cursor = offsetOf(s.buf, line, len(s.buf))
	case tcell.KeyEnter:
		edited = s.insert('\n')
	case tcell.KeyTab:
		edited = s.insert('\t')
	case tcell.KeyRune:
		edited = s.insert(e.Rune())
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if !s.readOnly && s.cursor > 0 {
			s.buf = append(s.buf[:s.cursor-1], s.buf[s.cursor:]...)
			s.cursor--
			edited = true
		}
	case tcell.KeyDelete:
		if !s.readOnly && s.cursor < len(s.buf) {
			s.buf = append(s.buf[:s.cursor], s.buf[s.cursor+1:]...)
			edited = true
		}
	}
	s.mu.Unlock()

	s.Draw()
	if edited {
		s.changes.Notify(struct{}{})
	}
	return true
}

// insert adds r at the cursor. Caller holds s.mu.
func (s *Surface) insert(r rune) bool {
	if s.readOnly {
		return false
	}
	s.buf = append(s.buf, 0)
	copy(s.buf[s.cursor+1:], s.buf[s.cursor:])
	s.buf[s.cursor] = r
	s.cursor++
	return true
}

// Run handles screen events until the user quits or ctx is done.
func (s *Surface) Run(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			_ = s.screen.PostEvent(tcell.NewEventInterrupt(nil)) // best-effort; wakes PollEvent
		case <-done:
		}
	}()

	for {
		ev := s.screen.PollEvent()
		if ev == nil {
			return nil
		}
		if _, ok := ev.(*tcell.EventInterrupt); ok && ctx.Err() != nil {
			return ctx.Err()
		}
		if !s.HandleEvent(ev) {
			return nil
		}
	}
}

// lineCol returns the zero-based line and column of offset.
func lineCol(buf []rune, offset int) (line, col int) {
	for i := 0; i < offset && i < len(buf); i++ {
		if buf[i] == '\n' {
			line++
			col = 0
			continue
		}
		col++
	}
	return line, col
}

// offsetOf returns the offset of line and col, clamped to the line end.
func offsetOf(buf []rune, line, col int) int {
	i := 0
	for l := 0; l < line; l++ {
		for i < len(buf) && buf[i] != '\n' {
			i++
		}
		if i == len(buf) {
			return len(buf)
		}
		i++
	}
	for c := 0; c < col && i < len(buf) && buf[i] != '\n'; c++ {
		i++
	}
	return i
}
