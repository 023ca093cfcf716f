package binding

import (
	"context"
	"io"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/richview/internal/content"
	"github.com/dshills/richview/internal/notify"
	"github.com/dshills/richview/internal/resource"
	"github.com/dshills/richview/internal/surface"
	"github.com/dshills/richview/internal/theme"
)

// ThemeSource supplies the theme a new surface starts with.
type ThemeSource interface {
	Current() theme.Theme
}

// Registry opens bindings and keeps at most one live binding per URI.
type Registry struct {
	provider resource.Provider
	source   *content.Source
	factory  surface.Factory
	themes   ThemeSource
	ids      IDGenerator
	quiet    time.Duration
	log      zerolog.Logger
	errors   *notify.Notifier[BindingError]

	mu       sync.Mutex
	bindings map[string]*Binding
}

// BindingError is a background failure of a binding, such as a save that
// failed after the quiet period.
type BindingError struct {
	Binding *Binding
	Err     error
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger. Each binding logs with its id and URI.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Registry) {
		r.log = log
	}
}

// WithIDGenerator sets the identifier source. The default is UUIDs.
func WithIDGenerator(ids IDGenerator) Option {
	return func(r *Registry) {
		r.ids = ids
	}
}

// WithQuietPeriod sets how long edits must pause before they are saved.
func WithQuietPeriod(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.quiet = d
		}
	}
}

// WithThemeSource sets where new surfaces get their theme.
func WithThemeSource(ts ThemeSource) Option {
	return func(r *Registry) {
		r.themes = ts
	}
}

// NewRegistry creates a registry resolving URIs with provider, reading text
// through source and building surfaces with factory.
func NewRegistry(provider resource.Provider, source *content.Source, factory surface.Factory, opts ...Option) *Registry {
	r := &Registry{
		provider: provider,
		source:   source,
		factory:  factory,
		ids:      UUIDs{},
		quiet:    DefaultQuietPeriod,
		log:      zerolog.Nop(),
		errors:   notify.New[BindingError](),
		bindings: make(map[string]*Binding),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OnError registers fn for background binding failures.
func (r *Registry) OnError(fn func(BindingError)) notify.Subscription {
	return r.errors.Subscribe(fn)
}

// Open returns the live binding for uri, creating and binding a new one
// when there is none.
//
// When the resource cannot be resolved Open fails with *ResolutionError and
// no binding is created. A failure of the first reconcile, such as a read
// error or a *SurfaceInitError, is returned together with the binding,
// which stays registered and usable.
func (r *Registry) Open(ctx context.Context, uri *url.URL) (*Binding, error) {
	requested := uri.String()

	r.mu.Lock()
	if b, ok := r.bindings[requested]; ok {
		r.mu.Unlock()
		return b, nil
	}
	r.mu.Unlock()

	res, err := r.provider.Resolve(ctx, uri)
	if err != nil {
		return nil, &ResolutionError{URI: requested, Err: err}
	}

	// Different spellings of one resource share the binding registered
	// under its canonical URI.
	key := res.URI().String()

	r.mu.Lock()
	if existing, ok := r.bindings[key]; ok {
		r.bindings[requested] = existing
		r.mu.Unlock()
		closeResource(res)
		return existing, nil
	}
	b := r.newBinding(uri, res)
	r.bindings[key] = b
	r.bindings[requested] = b
	r.mu.Unlock()

	b.OnDispose(func() {
		r.mu.Lock()
		for k, v := range r.bindings {
			if v == b {
				delete(r.bindings, k)
			}
		}
		r.mu.Unlock()
		closeResource(res)
	})

	b.log.Info().Msg("binding opened")
	if err := b.Bind(ctx); err != nil {
		return b, err
	}
	return b, nil
}

// Get returns the live binding for uri, under any spelling it was opened
// with.
func (r *Registry) Get(uri *url.URL) (*Binding, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bindings[uri.String()]
	return b, ok
}

// Bindings returns the live bindings ordered by URI.
func (r *Registry) Bindings() []*Binding {
	r.mu.Lock()
	seen := make(map[*Binding]bool, len(r.bindings))
	out := make([]*Binding, 0, len(r.bindings))
	for _, b := range r.bindings {
		if !seen[b] {
			seen[b] = true
			out = append(out, b)
		}
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	return out
}

// Close disposes every binding.
func (r *Registry) Close() {
	for _, b := range r.Bindings() {
		b.Dispose()
	}
	r.errors.Close()
}

func (r *Registry) newBinding(uri *url.URL, res resource.Resource) *Binding {
	id := r.ids.NextID()
	u := *uri
	b := &Binding{
		id:       id,
		widgetID: WidgetIDPrefix + id,
		uri:      &u,
		key:      res.URI().String(),
		res:      res,
		src:      r.source,
		factory:  r.factory,
		themes:   r.themes,
		disposed: notify.New[struct{}](),
	}
	b.log = r.log.With().Str("binding", b.widgetID).Str("uri", b.key).Logger()
	b.report = func(b *Binding, err error) {
		r.errors.Notify(BindingError{Binding: b, Err: err})
	}
	b.debounce = newDebouncer(r.quiet, b.flush)
	return b
}

func closeResource(res resource.Resource) {
	if c, ok := res.(io.Closer); ok {
		_ = c.Close()
	}
}
