// Package surface defines the rendered editing view a binding drives.
//
// A Surface owns its own buffer: the binding replaces that buffer with
// SetData, reads it back with GetData, and learns about user edits through
// OnChange. SetData never triggers OnChange. Surfaces are built by a Factory,
// and building one may be slow or fail.
package surface

import (
	"context"
	"errors"

	"github.com/dshills/richview/internal/notify"
	"github.com/dshills/richview/internal/theme"
)

// Sentinel errors for surface operations.
var (
	// ErrClosed is returned by operations on a closed surface.
	ErrClosed = errors.New("surface closed")

	// ErrReadOnly is returned when editing a read-only surface.
	ErrReadOnly = errors.New("surface is read-only")
)

// Surface is a rendered editing view.
type Surface interface {
	// SetData replaces the whole buffer.
	SetData(text string)

	// GetData returns the current buffer.
	GetData() string

	// OnChange calls fn after every user edit.
	OnChange(fn func()) notify.Subscription

	// Resize lays the surface out for the given size.
	Resize(width, height int)

	// Close releases the surface. It is safe to call more than once.
	Close() error
}

// Themer is implemented by surfaces that restyle on theme changes.
type Themer interface {
	SetTheme(t theme.Theme)
}

// Activator is implemented by surfaces that react to becoming visible.
type Activator interface {
	Activate()
}

// Options configures a new surface.
type Options struct {
	// ID identifies the widget hosting the surface.
	ID string

	// Data is the initial buffer.
	Data string

	// LanguageID hints at the text format, e.g. "markdown" or "html".
	LanguageID string

	// Theme is the initial presentation theme.
	Theme theme.Theme

	// ReadOnly surfaces should not accept edits.
	ReadOnly bool
}

// Factory builds surfaces.
type Factory interface {
	Create(ctx context.Context, opts Options) (Surface, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(ctx context.Context, opts Options) (Surface, error)

// Create calls f.
func (f FactoryFunc) Create(ctx context.Context, opts Options) (Surface, error) {
	return f(ctx, opts)
}
