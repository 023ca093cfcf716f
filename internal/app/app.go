// Package app wires the richview components together from a Config.
package app

import (
	"context"
	"errors"
	"net/url"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/dshills/richview/internal/binding"
	"github.com/dshills/richview/internal/config"
	"github.com/dshills/richview/internal/content"
	"github.com/dshills/richview/internal/disambig"
	"github.com/dshills/richview/internal/document"
	"github.com/dshills/richview/internal/notify"
	"github.com/dshills/richview/internal/opener"
	"github.com/dshills/richview/internal/plugin/lua"
	"github.com/dshills/richview/internal/resource"
	"github.com/dshills/richview/internal/surface"
	"github.com/dshills/richview/internal/theme"
	"github.com/dshills/richview/internal/vfs"
	"github.com/dshills/richview/internal/watcher"
)

// Application owns every component built from a Config.
type Application struct {
	cfg *config.Config
	log zerolog.Logger

	fs        vfs.VFS
	router    *watcher.Router
	resources *resource.Registry
	documents *document.Store
	themes    *theme.Service
	source    *content.Source
	bindings  *binding.Registry
	handler   *opener.Handler
	commands  *opener.Commands
	predicate *lua.Predicate

	subs   notify.Group
	closed atomic.Bool
	once   sync.Once
}

type options struct {
	fs       vfs.VFS
	watch    bool
	watcher  watcher.Watcher
	editors  opener.EditorManager
	shell    opener.Shell
	ids      binding.IDGenerator
	log      *zerolog.Logger
	readOnly bool
}

// Option configures New.
type Option func(*options)

// WithFS sets the file system. The default is the OS file system.
func WithFS(fsys vfs.VFS) Option {
	return func(o *options) {
		o.fs = fsys
	}
}

// WithWatching enables fsnotify change notification for file resources.
func WithWatching(enabled bool) Option {
	return func(o *options) {
		o.watch = enabled
	}
}

// WithWatcher routes file changes from w instead of a new fsnotify watcher.
func WithWatcher(w watcher.Watcher) Option {
	return func(o *options) {
		o.watcher = w
		o.watch = true
	}
}

// WithEditors sets the host text editor service.
func WithEditors(editors opener.EditorManager) Option {
	return func(o *options) {
		o.editors = editors
	}
}

// WithShell sets the host view placement service.
func WithShell(shell opener.Shell) Option {
	return func(o *options) {
		o.shell = shell
	}
}

// WithIDGenerator sets the widget identifier source.
func WithIDGenerator(ids binding.IDGenerator) Option {
	return func(o *options) {
		o.ids = ids
	}
}

// WithLogger replaces the logger built from the config.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) {
		o.log = &log
	}
}

// WithReadOnly opens every resource read-only.
func WithReadOnly(readOnly bool) Option {
	return func(o *options) {
		o.readOnly = readOnly
	}
}

// New builds an application from cfg, creating surfaces with factory.
func New(ctx context.Context, cfg *config.Config, factory surface.Factory, opts ...Option) (*Application, error) {
	if factory == nil {
		return nil, ErrNoFactory
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	app := &Application{cfg: cfg, fs: o.fs}
	if o.log != nil {
		app.log = *o.log
	} else {
		app.log = NewLogger(cfg.Logging, nil)
	}
	if app.fs == nil {
		app.fs = vfs.NewOSFS()
	}

	if err := app.bootstrap(ctx, factory, o); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

// bootstrap initializes components in dependency order.
func (app *Application) bootstrap(ctx context.Context, factory surface.Factory, o options) error {
	// 1. File change routing
	w := o.watcher
	if o.watch && w == nil {
		fw, err := watcher.NewDirWatcher()
		if err != nil {
			return &InitError{Component: "watcher", Err: err}
		}
		w = watcher.NewDebouncedWatcher(fw, watcher.DefaultDebounceDelay)
	}
	app.router = watcher.NewRouter(w, watcher.WithLogger(app.component("watcher")))

	// 2. Resources
	app.resources = resource.NewRegistry(app.fs,
		resource.WithRouter(app.router),
		resource.WithLogger(app.component("resource")),
		resource.WithReadOnly(o.readOnly),
	)

	// 3. Documents and presentation
	app.documents = document.NewStore(document.WithLogger(app.component("document")))
	app.themes = theme.NewService()
	if err := app.themes.Set(app.cfg.Theme.Name); err != nil {
		return &InitError{Component: "theme", Err: err}
	}
	app.source = &content.Source{Documents: app.documents, Theme: app.themes}

	// 4. Bindings
	bindingOpts := []binding.Option{
		binding.WithLogger(app.component("binding")),
		binding.WithQuietPeriod(app.cfg.Sync.Debounce.Std()),
		binding.WithThemeSource(app.themes),
	}
	if o.ids != nil {
		bindingOpts = append(bindingOpts, binding.WithIDGenerator(o.ids))
	}
	// Open documents follow saves and external changes of clean resources.
	provider := app.documents.TrackProvider(app.resources)
	app.bindings = binding.NewRegistry(provider, app.source, factory, bindingOpts...)
	app.subs.Add(app.bindings.OnError(func(be binding.BindingError) {
		app.log.Error().Err(be.Err).Str("widget", be.Binding.ID()).Msg("binding error")
	}))

	// 5. Opener
	scorer, err := app.newScorer(ctx)
	if err != nil {
		return err
	}
	handlerOpts := []opener.HandlerOption{opener.WithLogger(app.component("opener"))}
	if o.shell != nil {
		handlerOpts = append(handlerOpts, opener.WithShell(o.shell))
	}
	app.handler = opener.NewHandler(scorer, app.bindings, o.editors, handlerOpts...)
	app.commands = opener.NewCommands()
	app.handler.RegisterCommands(app.commands)
	app.handler.RegisterMenus(app.commands)

	app.log.Debug().
		Str("surface", app.cfg.Surface.ID).
		Dur("debounce", app.cfg.Sync.Debounce.Std()).
		Bool("watch", w != nil).
		Msg("application ready")
	return nil
}

func (app *Application) newScorer(ctx context.Context) (*opener.Scorer, error) {
	preds := []opener.Predicate{opener.ExtensionPredicate(app.cfg.Opener.Extensions...)}
	if script := app.cfg.Opener.PredicateScript; script != "" {
		p, err := lua.LoadPredicate(ctx, script, lua.WithLogger(app.component("lua")))
		if err != nil {
			return nil, &InitError{Component: "predicate script", Err: err}
		}
		app.predicate = p
		preds = append(preds, p.Accepts)
	}

	return &opener.Scorer{
		Codec:         disambig.New(app.cfg.Surface.ID),
		Accepts:       opener.All(preds...),
		OpenByDefault: app.cfg.Opener.OpenByDefault,
		SoleHandler:   opener.Score(app.cfg.Opener.SoleHandlerScore),
	}, nil
}

func (app *Application) component(name string) zerolog.Logger {
	return app.log.With().Str("component", name).Logger()
}

// ParseURI parses a URI or a file path. Paths are made absolute and turned
// into file:// URIs.
func (app *Application) ParseURI(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		return u, nil
	}
	path, err := app.fs.Abs(filepath.Clean(raw))
	if err != nil {
		return nil, err
	}
	return resource.FileURI(path), nil
}

// Open opens raw in a binding through the handler.
func (app *Application) Open(ctx context.Context, raw string, opts *opener.Options) (*binding.Binding, error) {
	if app.closed.Load() {
		return nil, ErrClosed
	}
	u, err := app.ParseURI(raw)
	if err != nil {
		return nil, err
	}
	return app.handler.Open(ctx, u, opts)
}

// Score returns the handler's priority for raw against a text editor
// priority of base.
func (app *Application) Score(raw string, base opener.Score) (opener.Score, error) {
	u, err := app.ParseURI(raw)
	if err != nil {
		return 0, err
	}
	return app.handler.Scorer().Score(u, base), nil
}

// Config returns the configuration.
func (app *Application) Config() *config.Config { return app.cfg }

// Logger returns the application logger.
func (app *Application) Logger() zerolog.Logger { return app.log }

// Resources returns the resource provider.
func (app *Application) Resources() *resource.Registry { return app.resources }

// Documents returns the open-document store.
func (app *Application) Documents() *document.Store { return app.documents }

// Themes returns the theme service.
func (app *Application) Themes() *theme.Service { return app.themes }

// Bindings returns the binding registry.
func (app *Application) Bindings() *binding.Registry { return app.bindings }

// Handler returns the open handler.
func (app *Application) Handler() *opener.Handler { return app.handler }

// Commands returns the command registry.
func (app *Application) Commands() *opener.Commands { return app.commands }

// Close disposes every binding and stops file watching.
func (app *Application) Close() error {
	var errs []error
	app.once.Do(func() {
		app.closed.Store(true)
		app.subs.Dispose()
		if app.bindings != nil {
			app.bindings.Close()
		}
		if app.predicate != nil {
			if err := app.predicate.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if app.router != nil {
			if err := app.router.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		app.log.Debug().Msg("application closed")
	})
	return errors.Join(errs...)
}
