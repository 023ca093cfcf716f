package document

import (
	"context"
	"io"
	"net/url"

	"github.com/dshills/richview/internal/notify"
	"github.com/dshills/richview/internal/resource"
)

// Track wraps res so that a clean open document for its URI follows the
// persisted text. Saves made through the wrapper and external changes
// reported by res both reload the document. Dirty documents are left
// alone. Closing the wrapper stops tracking and closes res.
func (s *Store) Track(res resource.Resource) resource.Resource {
	t := &tracked{res: res, store: s, uri: res.URI().String(), sub: notify.Noop}
	if cn, ok := res.(resource.ChangeNotifier); ok {
		// Subscribed before any viewer of res, so the document is current
		// by the time they hear of the change.
		t.sub = cn.OnDidChangeContents(t.refresh)
	}
	if saver, ok := res.(resource.Saver); ok {
		return &trackedSaver{tracked: t, saver: saver}
	}
	return t
}

// TrackProvider resolves through p and tracks every resource it returns.
func (s *Store) TrackProvider(p resource.Provider) resource.Provider {
	return resource.ProviderFunc(func(ctx context.Context, uri *url.URL) (resource.Resource, error) {
		res, err := p.Resolve(ctx, uri)
		if err != nil {
			return nil, err
		}
		return s.Track(res), nil
	})
}

type tracked struct {
	res   resource.Resource
	store *Store
	uri   string
	sub   notify.Subscription
}

func (t *tracked) URI() *url.URL {
	return t.res.URI()
}

func (t *tracked) ReadContents(ctx context.Context) (string, error) {
	return t.res.ReadContents(ctx)
}

func (t *tracked) OnDidChangeContents(fn func()) notify.Subscription {
	if cn, ok := t.res.(resource.ChangeNotifier); ok {
		return cn.OnDidChangeContents(fn)
	}
	return notify.Noop
}

func (t *tracked) Close() error {
	t.sub.Unsubscribe()
	if c, ok := t.res.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (t *tracked) refresh() {
	if !t.store.IsOpen(t.uri) {
		return
	}
	text, err := t.res.ReadContents(context.Background())
	if err != nil {
		t.store.log.Debug().Err(err).Str("uri", t.uri).Msg("reload skipped")
		return
	}
	t.store.reload(t.uri, text)
}

type trackedSaver struct {
	*tracked
	saver resource.Saver
}

func (t *trackedSaver) SaveContents(ctx context.Context, text string) error {
	if err := t.saver.SaveContents(ctx, text); err != nil {
		return err
	}
	t.store.reload(t.uri, text)
	return nil
}
