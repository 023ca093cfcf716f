package resource

import (
	"context"
	"net/url"
	"sync"

	"github.com/dshills/richview/internal/notify"
)

// Memory is a resource held in memory, such as a scratch buffer.
// Both SaveContents and SetContents notify change observers.
type Memory struct {
	uri *url.URL

	mu      sync.RWMutex
	text    string
	saves   int
	changes *notify.Notifier[struct{}]
}

// Ensure Memory implements the optional capabilities.
var (
	_ Saver          = (*Memory)(nil)
	_ ChangeNotifier = (*Memory)(nil)
)

// NewMemory creates an in-memory resource with initial text.
func NewMemory(uri *url.URL, text string) *Memory {
	u := *uri
	return &Memory{
		uri:     &u,
		text:    text,
		changes: notify.New[struct{}](),
	}
}

// URI returns the resource URI.
func (m *Memory) URI() *url.URL {
	u := *m.uri
	return &u
}

// ReadContents returns the current text.
func (m *Memory) ReadContents(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.text, nil
}

// SaveContents replaces the text and notifies observers.
func (m *Memory) SaveContents(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return &WriteError{URI: m.uri.String(), Err: err}
	}
	m.mu.Lock()
	m.text = text
	m.saves++
	m.mu.Unlock()

	m.changes.Notify(struct{}{})
	return nil
}

// SetContents simulates an external write.
func (m *Memory) SetContents(text string) {
	m.mu.Lock()
	m.text = text
	m.mu.Unlock()

	m.changes.Notify(struct{}{})
}

// Saves returns how many times SaveContents succeeded.
func (m *Memory) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

// OnDidChangeContents registers fn for content changes.
func (m *Memory) OnDidChangeContents(fn func()) notify.Subscription {
	return m.changes.Subscribe(func(struct{}) { fn() })
}

// ReadOnly returns a view of r without the Saver capability.
// Change notification is kept when r supports it.
func ReadOnly(r Resource) Resource {
	return readOnly{r: r}
}

type readOnly struct {
	r Resource
}

func (r readOnly) URI() *url.URL { return r.r.URI() }

func (r readOnly) ReadContents(ctx context.Context) (string, error) {
	return r.r.ReadContents(ctx)
}

func (r readOnly) OnDidChangeContents(fn func()) notify.Subscription {
	if n, ok := r.r.(ChangeNotifier); ok {
		return n.OnDidChangeContents(fn)
	}
	return notify.Noop
}

func (r readOnly) Close() error {
	if c, ok := r.r.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
