// Package content decides which text a rendered view should show.
//
// The live document model wins over the persisted resource: when a text
// editor has the URI open, its unsaved buffer is what the view renders.
// Otherwise the resource is read. Source also exposes the notification
// streams that tell a view its text may be stale.
package content

import (
	"context"
	"fmt"

	"github.com/dshills/richview/internal/document"
	"github.com/dshills/richview/internal/notify"
	"github.com/dshills/richview/internal/resource"
	"github.com/dshills/richview/internal/theme"
)

// DocumentLookup finds open documents and reports their lifecycle.
// document.Store implements it.
type DocumentLookup interface {
	Get(uri string) (*document.Document, bool)
	OnDidOpen(fn func(document.Event)) notify.Subscription
	OnDidChange(fn func(document.Event)) notify.Subscription
	OnDidClose(fn func(document.Event)) notify.Subscription
}

// PresentationNotifier reports presentation changes.
// theme.Service implements it.
type PresentationNotifier interface {
	OnChange(fn func(theme.Theme)) notify.Subscription
}

// IOError reports a failed read or save of a resource.
type IOError struct {
	Op  string
	URI string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URI, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Source resolves the current text of a resource.
// Either field may be nil.
type Source struct {
	Documents DocumentLookup
	Theme     PresentationNotifier
}

// Resolve returns the open document's text for res when there is one,
// without any I/O, and the persisted text otherwise.
func (s *Source) Resolve(ctx context.Context, res resource.Resource) (string, error) {
	uri := res.URI().String()
	if s.Documents != nil {
		if doc, ok := s.Documents.Get(uri); ok {
			return doc.Text(), nil
		}
	}

	text, err := res.ReadContents(ctx)
	if err != nil {
		return "", &IOError{Op: "read", URI: uri, Err: err}
	}
	return text, nil
}

// OnDocumentEvent calls fn for opened, changed and closed events affecting
// uri. Events with an empty URI affect every observer.
func (s *Source) OnDocumentEvent(uri string, fn func(document.Event)) notify.Subscription {
	if s.Documents == nil {
		return notify.Noop
	}

	filter := func(ev document.Event) {
		if ev.URI == "" || ev.URI == uri {
			fn(ev)
		}
	}

	var g notify.Group
	g.Add(s.Documents.OnDidOpen(filter))
	g.Add(s.Documents.OnDidChange(filter))
	g.Add(s.Documents.OnDidClose(filter))
	return notify.SubscriptionFunc(g.Dispose)
}

// OnResourceChange calls fn when res reports an external change.
// Resources without change notification return notify.Noop.
func (s *Source) OnResourceChange(res resource.Resource, fn func()) notify.Subscription {
	n, ok := res.(resource.ChangeNotifier)
	if !ok {
		return notify.Noop
	}
	return n.OnDidChangeContents(fn)
}

// OnPresentationChange calls fn when the theme changes.
func (s *Source) OnPresentationChange(fn func(theme.Theme)) notify.Subscription {
	if s.Theme == nil {
		return notify.Noop
	}
	return s.Theme.OnChange(fn)
}
