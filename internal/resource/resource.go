// Package resource defines persisted text resources and resolves them by URI.
//
// A Resource only has to read its contents. Saving and change notification
// are optional capabilities discovered with type assertions, so a read-only
// resource is simply one that does not implement Saver.
package resource

import (
	"context"
	"net/url"

	"github.com/dshills/richview/internal/notify"
)

// Resource is a persisted text blob identified by a URI.
type Resource interface {
	// URI returns the resource identifier.
	URI() *url.URL

	// ReadContents returns the current persisted text.
	ReadContents(ctx context.Context) (string, error)
}

// Saver is implemented by resources that can be written.
type Saver interface {
	// SaveContents persists text. Failures are reported as *WriteError.
	SaveContents(ctx context.Context, text string) error
}

// ChangeNotifier is implemented by resources that report external changes.
type ChangeNotifier interface {
	// OnDidChangeContents calls fn whenever the persisted contents change.
	OnDidChangeContents(fn func()) notify.Subscription
}

// Provider resolves URIs to resources.
type Provider interface {
	Resolve(ctx context.Context, uri *url.URL) (Resource, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, uri *url.URL) (Resource, error)

// Resolve calls f.
func (f ProviderFunc) Resolve(ctx context.Context, uri *url.URL) (Resource, error) {
	return f(ctx, uri)
}

// CanSave reports whether r implements Saver.
func CanSave(r Resource) bool {
	_, ok := r.(Saver)
	return ok
}
