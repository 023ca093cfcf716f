// Package binding keeps a persisted resource and a rendered surface in sync.
//
// A Binding pulls text in whenever the resource, the open document or the
// theme changes, and pushes user edits out after a quiet period. The last
// text exchanged with the surface is remembered so that neither direction
// re-applies what the other just produced.
package binding

import (
	"context"
	"errors"
	"net/url"
	"path"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/richview/internal/content"
	"github.com/dshills/richview/internal/document"
	"github.com/dshills/richview/internal/notify"
	"github.com/dshills/richview/internal/resource"
	"github.com/dshills/richview/internal/surface"
	"github.com/dshills/richview/internal/theme"
)

// Widget presentation defaults.
const (
	WidgetClass = "ckeditor-widget"
	IconClass   = "fa fa-eye"
	TitlePrefix = "WYSIWYGing "
)

// DefaultQuietPeriod is how long a surface must stay unedited before the
// edit is saved.
const DefaultQuietPeriod = 500 * time.Millisecond

// Binding couples one resource to one lazily built surface.
type Binding struct {
	id       string
	widgetID string
	uri      *url.URL
	key      string
	res      resource.Resource
	src      *content.Source
	factory  surface.Factory
	themes   ThemeSource
	log      zerolog.Logger
	report   func(*Binding, error)

	debounce *debouncer
	subs     notify.Group
	disposed *notify.Notifier[struct{}]

	mu        sync.Mutex
	state     State
	gen       uint64
	lastKnown *string
	surf      surface.Surface
	surfSub   notify.Subscription
	initErr   error
	width     int
	height    int
	running   bool
	dirty     bool
	idle      chan struct{}
	runErr    error
}

// ID returns the widget identifier.
func (b *Binding) ID() string {
	return b.widgetID
}

// URI returns the URI the binding was opened for.
func (b *Binding) URI() *url.URL {
	u := *b.uri
	return &u
}

// Resource returns the bound resource.
func (b *Binding) Resource() resource.Resource {
	return b.res
}

// Title returns the widget title.
func (b *Binding) Title() string {
	return TitlePrefix + path.Base(b.uri.Path)
}

// Caption returns the widget tooltip.
func (b *Binding) Caption() string {
	return b.Title()
}

// Closable reports whether the host may close the widget.
func (b *Binding) Closable() bool {
	return true
}

// IconClass returns the widget icon class.
func (b *Binding) IconClass() string {
	return IconClass
}

// State returns the lifecycle state.
func (b *Binding) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Degraded returns the *SurfaceInitError of the last failed surface build,
// or nil when the surface is up or not yet attempted.
func (b *Binding) Degraded() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initErr
}

// Surface returns the surface, or nil before it is built.
func (b *Binding) Surface() surface.Surface {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.surf
}

// CreateMoveToURI returns the binding's URI with target's path, keeping the
// scheme and query of the binding.
func (b *Binding) CreateMoveToURI(target *url.URL) *url.URL {
	u := *b.uri
	u.Path = target.Path
	u.RawPath = target.RawPath
	return &u
}

// OnDispose registers fn to run once the binding is disposed.
func (b *Binding) OnDispose(fn func()) notify.Subscription {
	return b.disposed.Subscribe(func(struct{}) { fn() })
}

// Bind subscribes to the resource, document and theme streams and shows
// the first text.
func (b *Binding) Bind(ctx context.Context) error {
	b.mu.Lock()
	switch b.state {
	case Disposed:
		b.mu.Unlock()
		return ErrDisposed
	case Unbound:
		b.state = Loading
	default:
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()

	b.subs.Add(b.src.OnResourceChange(b.res, b.kick))
	b.subs.Add(b.src.OnDocumentEvent(b.key, func(document.Event) { b.kick() }))
	b.subs.Add(b.src.OnPresentationChange(b.onThemeChange))

	return b.Reconcile(ctx)
}

// Reconcile brings the surface up to date with the current text.
//
// Calls are serialized. A call made while another is running marks the
// binding dirty and waits for the running call to finish, and the running
// call then makes another pass against the latest text. Every caller sees
// the error of the final pass.
func (b *Binding) Reconcile(ctx context.Context) error {
	b.mu.Lock()
	if b.state == Disposed {
		b.mu.Unlock()
		return ErrDisposed
	}
	if b.running {
		b.dirty = true
		idle := b.idle
		b.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}

		b.mu.Lock()
		defer b.mu.Unlock()
		return b.runErr
	}
	b.running = true
	b.idle = make(chan struct{})
	b.mu.Unlock()

	// Passes repeated for callers that arrived meanwhile must not inherit
	// this caller's cancellation, or their change would be lost.
	passCtx := ctx
	for {
		err := b.reconcileOnce(passCtx)

		b.mu.Lock()
		if !b.dirty || b.state == Disposed {
			b.dirty = false
			b.running = false
			b.runErr = err
			close(b.idle)
			b.mu.Unlock()
			return err
		}
		b.dirty = false
		b.mu.Unlock()
		passCtx = context.WithoutCancel(ctx)
	}
}

// ForceReconcile forgets the last known text and reconciles, so the surface
// receives the current text even when it has not changed.
func (b *Binding) ForceReconcile(ctx context.Context) error {
	b.mu.Lock()
	b.lastKnown = nil
	b.mu.Unlock()

	return b.Reconcile(ctx)
}

// RetrySurface builds the surface again after a failed build, using the
// latest text. It does nothing when the binding is not degraded.
func (b *Binding) RetrySurface(ctx context.Context) error {
	b.mu.Lock()
	if b.state == Disposed {
		b.mu.Unlock()
		return ErrDisposed
	}
	if b.surf != nil || b.initErr == nil {
		b.mu.Unlock()
		return nil
	}
	b.initErr = nil
	b.lastKnown = nil
	b.mu.Unlock()

	b.log.Info().Msg("retrying surface")
	return b.Reconcile(ctx)
}

// Commit saves the surface text now, cancelling any pending save.
func (b *Binding) Commit(ctx context.Context) error {
	b.debounce.Cancel()
	return b.commit(ctx)
}

// PendingCommit reports whether an edit is waiting for its quiet period.
func (b *Binding) PendingCommit() bool {
	return b.debounce.Pending()
}

// Activate tells the surface it is visible and reconciles.
func (b *Binding) Activate() {
	b.mu.Lock()
	if a, ok := b.surf.(surface.Activator); ok {
		a.Activate()
	}
	b.mu.Unlock()

	b.kick()
}

// Resize lays the surface out. The size is remembered and applied to a
// surface built later.
func (b *Binding) Resize(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.width, b.height = width, height
	if b.surf != nil {
		b.surf.Resize(width, height)
	}
}

// Dispose unsubscribes from every stream, cancels a pending save and closes
// the surface. Work still in flight completes without effect.
func (b *Binding) Dispose() {
	b.mu.Lock()
	if b.state == Disposed {
		b.mu.Unlock()
		return
	}
	b.state = Disposed
	b.gen++
	s, sub := b.surf, b.surfSub
	b.surf, b.surfSub = nil, nil
	b.mu.Unlock()

	b.debounce.Stop()
	b.subs.Dispose()
	if sub != nil {
		sub.Unsubscribe()
	}
	if s != nil {
		if err := s.Close(); err != nil {
			b.log.Warn().Err(err).Msg("surface close failed")
		}
	}

	b.log.Debug().Msg("binding disposed")
	b.disposed.Notify(struct{}{})
	b.disposed.Close()
}

func (b *Binding) reconcileOnce(ctx context.Context) error {
	b.mu.Lock()
	if b.state == Disposed {
		b.mu.Unlock()
		return ErrDisposed
	}
	gen := b.gen
	b.mu.Unlock()

	text, err := b.src.Resolve(ctx, b.res)

	b.mu.Lock()
	if b.gen != gen {
		b.mu.Unlock()
		return ErrDisposed
	}
	if err != nil {
		b.mu.Unlock()
		return err
	}
	// Without a surface there is nothing to echo into, and a surface that
	// failed to build must be tried again.
	if b.surf != nil && b.lastKnown != nil && *b.lastKnown == text {
		b.mu.Unlock()
		b.log.Trace().Msg("text unchanged")
		return nil
	}
	b.lastKnown = &text
	if b.surf != nil {
		b.surf.SetData(text)
		b.mu.Unlock()
		b.log.Debug().Int("bytes", len(text)).Msg("surface updated")
		return nil
	}
	b.mu.Unlock()

	return b.construct(ctx, gen, text)
}

// construct builds the surface with text as its first buffer.
func (b *Binding) construct(ctx context.Context, gen uint64, text string) error {
	opts := surface.Options{
		ID:         b.widgetID,
		Data:       text,
		LanguageID: document.DetectLanguageID(b.uri.Path),
		ReadOnly:   !resource.CanSave(b.res),
	}
	if b.themes != nil {
		opts.Theme = b.themes.Current()
	}

	s, err := b.factory.Create(ctx, opts)

	b.mu.Lock()
	if b.gen != gen {
		b.mu.Unlock()
		if s != nil {
			_ = s.Close()
		}
		return ErrDisposed
	}
	if err != nil {
		initErr := &SurfaceInitError{ID: b.widgetID, Err: err}
		b.initErr = initErr
		b.mu.Unlock()
		b.log.Warn().Err(err).Msg("surface init failed")
		return initErr
	}

	b.surf = s
	b.initErr = nil
	b.state = Bound
	b.surfSub = s.OnChange(b.onSurfaceChange)
	if b.width > 0 || b.height > 0 {
		s.Resize(b.width, b.height)
	}
	b.mu.Unlock()

	b.log.Debug().Str("language", opts.LanguageID).Bool("readOnly", opts.ReadOnly).Msg("surface ready")
	return nil
}

// commit saves the surface text. The text becomes the last known text
// before the save starts, so the change notification the save causes is
// recognized as already applied.
func (b *Binding) commit(ctx context.Context) error {
	b.mu.Lock()
	if b.state == Disposed {
		b.mu.Unlock()
		return ErrDisposed
	}
	if b.surf == nil {
		b.mu.Unlock()
		return nil
	}
	text := b.surf.GetData()
	if b.lastKnown != nil && *b.lastKnown == text {
		b.mu.Unlock()
		return nil
	}
	saver, ok := b.res.(resource.Saver)
	if !ok {
		b.mu.Unlock()
		b.log.Debug().Msg("edit discarded, resource is read-only")
		return nil
	}
	b.lastKnown = &text
	gen := b.gen
	b.mu.Unlock()

	err := saver.SaveContents(ctx, text)

	b.mu.Lock()
	stale := b.gen != gen
	b.mu.Unlock()
	if stale {
		return ErrDisposed
	}
	if err != nil {
		return &content.IOError{Op: "save", URI: b.key, Err: err}
	}

	b.log.Debug().Int("bytes", len(text)).Msg("edit saved")
	return nil
}

// kick reconciles on behalf of a change stream. When a reconcile is
// already running it only marks the binding dirty.
func (b *Binding) kick() {
	b.mu.Lock()
	if b.state == Disposed || b.state == Unbound {
		b.mu.Unlock()
		return
	}
	if b.running {
		b.dirty = true
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()

	if err := b.Reconcile(context.Background()); err != nil {
		b.fail(err)
	}
}

func (b *Binding) onThemeChange(t theme.Theme) {
	b.mu.Lock()
	if th, ok := b.surf.(surface.Themer); ok {
		th.SetTheme(t)
	}
	b.mu.Unlock()

	b.kick()
}

func (b *Binding) onSurfaceChange() {
	b.mu.Lock()
	disposed := b.state == Disposed
	b.mu.Unlock()

	if !disposed {
		b.debounce.Trigger()
	}
}

func (b *Binding) flush() {
	if err := b.commit(context.Background()); err != nil {
		b.fail(err)
	}
}

// fail reports a background error. Errors caused by disposal are dropped.
func (b *Binding) fail(err error) {
	if errors.Is(err, ErrDisposed) {
		return
	}
	b.log.Error().Err(err).Msg("sync failed")
	if b.report != nil {
		b.report(b, err)
	}
}

// lastKnownText returns the last text exchanged with the surface.
func (b *Binding) lastKnownText() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lastKnown == nil {
		return "", false
	}
	return *b.lastKnown, true
}
