package surface

import (
	"context"
	"sync"

	"github.com/dshills/richview/internal/notify"
	"github.com/dshills/richview/internal/theme"
)

// Memory is a headless surface. Edit simulates a user edit.
type Memory struct {
	mu      sync.Mutex
	opts    Options
	data    string
	theme   theme.Theme
	width   int
	height  int
	sets    []string
	active  int
	closed  bool
	changes *notify.Notifier[struct{}]
}

// Ensure Memory implements the optional capabilities.
var (
	_ Surface   = (*Memory)(nil)
	_ Themer    = (*Memory)(nil)
	_ Activator = (*Memory)(nil)
)

// NewMemory creates a headless surface from opts.
func NewMemory(opts Options) *Memory {
	return &Memory{
		opts:    opts,
		data:    opts.Data,
		theme:   opts.Theme,
		changes: notify.New[struct{}](),
	}
}

// MemoryFactory returns a Factory building Memory surfaces.
// Every created surface is passed to created when it is non-nil.
func MemoryFactory(created func(*Memory)) Factory {
	return FactoryFunc(func(ctx context.Context, opts Options) (Surface, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m := NewMemory(opts)
		if created != nil {
			created(m)
		}
		return m, nil
	})
}

// SetData replaces the buffer.
func (m *Memory) SetData(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.data = text
	m.sets = append(m.sets, text)
}

// GetData returns the buffer.
func (m *Memory) GetData() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data
}

// Edit replaces the buffer as a user would and notifies observers.
func (m *Memory) Edit(text string) {
	m.mu.Lock()
	if m.closed || m.opts.ReadOnly {
		m.mu.Unlock()
		return
	}
	m.data = text
	m.mu.Unlock()

	m.changes.Notify(struct{}{})
}

// OnChange registers fn for user edits.
func (m *Memory) OnChange(fn func()) notify.Subscription {
	return m.changes.Subscribe(func(struct{}) { fn() })
}

// Resize records the layout size.
func (m *Memory) Resize(width, height int) {
	m.mu.Lock()
	m.width, m.height = width, height
	m.mu.Unlock()
}

// Size returns the last layout size.
func (m *Memory) Size() (width, height int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.width, m.height
}

// SetTheme records the presentation theme.
func (m *Memory) SetTheme(t theme.Theme) {
	m.mu.Lock()
	m.theme = t
	m.mu.Unlock()
}

// Theme returns the current presentation theme.
func (m *Memory) Theme() theme.Theme {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.theme
}

// Activate counts activations.
func (m *Memory) Activate() {
	m.mu.Lock()
	m.active++
	m.mu.Unlock()
}

// Activations returns how many times Activate was called.
func (m *Memory) Activations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Options returns the options the surface was created with.
func (m *Memory) Options() Options {
	return m.opts
}

// SetDataCalls returns every text passed to SetData, oldest first.
func (m *Memory) SetDataCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.sets))
	copy(out, m.sets)
	return out
}

// Close stops change notification.
func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.changes.Close()
	return nil
}

// Closed reports whether Close was called.
func (m *Memory) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
