package resource

import (
	"context"
	"errors"
	"io/fs"
	"net/url"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dshills/richview/internal/notify"
	"github.com/dshills/richview/internal/vfs"
	"github.com/dshills/richview/internal/watcher"
)

// Scheme names understood by Registry.
const (
	SchemeFile   = "file"
	SchemeMemory = "mem"
)

// Registry resolves file:// URIs against a VFS and mem:// URIs against
// resources registered with AddMemory.
type Registry struct {
	fs       vfs.VFS
	router   *watcher.Router
	log      zerolog.Logger
	maxSize  int64
	readOnly bool

	mu  sync.RWMutex
	mem map[string]*Memory
}

// Option configures a Registry.
type Option func(*Registry)

// WithRouter attaches file change notification to resolved files.
func WithRouter(r *watcher.Router) Option {
	return func(reg *Registry) {
		reg.router = r
	}
}

// WithLogger sets the registry logger.
func WithLogger(log zerolog.Logger) Option {
	return func(reg *Registry) {
		reg.log = log
	}
}

// WithMaxSize limits the size of files that can be resolved (0 = unlimited).
func WithMaxSize(size int64) Option {
	return func(reg *Registry) {
		reg.maxSize = size
	}
}

// WithReadOnly makes every resolved resource read-only.
func WithReadOnly(readOnly bool) Option {
	return func(reg *Registry) {
		reg.readOnly = readOnly
	}
}

// NewRegistry creates a provider backed by fsys.
func NewRegistry(fsys vfs.VFS, opts ...Option) *Registry {
	reg := &Registry{
		fs:      fsys,
		log:     zerolog.Nop(),
		maxSize: 10 * 1024 * 1024, // 10MB default
		mem:     make(map[string]*Memory),
	}
	for _, opt := range opts {
		opt(reg)
	}
	return reg
}

// Ensure Registry implements Provider.
var _ Provider = (*Registry)(nil)

// Resolve returns the resource for uri. The query and fragment are ignored
// for identity, so callers should strip any selection markers first.
func (reg *Registry) Resolve(ctx context.Context, uri *url.URL) (Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		res Resource
		err error
	)
	switch uri.Scheme {
	case SchemeFile, "":
		res, err = reg.resolveFile(uri)
	case SchemeMemory:
		res, err = reg.resolveMemory(uri)
	default:
		err = &Error{Op: "resolve", URI: uri.String(), Err: ErrUnsupportedScheme}
	}
	if err != nil {
		return nil, err
	}

	if reg.readOnly {
		res = ReadOnly(res)
	}
	return res, nil
}

// AddMemory registers an in-memory resource for a mem:// URI.
// Registering the same URI again replaces the text of the existing resource.
func (reg *Registry) AddMemory(raw, text string) (*Memory, error) {
	uri, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if uri.Scheme != SchemeMemory {
		return nil, &Error{Op: "add", URI: raw, Err: ErrUnsupportedScheme}
	}

	key := memoryKey(uri)
	reg.mu.Lock()
	m, ok := reg.mem[key]
	if !ok {
		m = NewMemory(uri, text)
		reg.mem[key] = m
	}
	reg.mu.Unlock()

	if ok {
		m.SetContents(text)
	}
	return m, nil
}

func (reg *Registry) resolveFile(uri *url.URL) (Resource, error) {
	path, err := reg.fs.Abs(filepath.FromSlash(uri.Path))
	if err != nil {
		return nil, &Error{Op: "resolve", URI: uri.String(), Err: err}
	}

	info, err := reg.fs.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &Error{Op: "resolve", URI: uri.String(), Err: ErrNotFound}
		}
		return nil, &Error{Op: "resolve", URI: uri.String(), Err: err}
	}
	if info.IsDir() {
		return nil, &Error{Op: "resolve", URI: uri.String(), Err: ErrIsDirectory}
	}
	if reg.maxSize > 0 && info.Size() > reg.maxSize {
		return nil, &Error{Op: "resolve", URI: uri.String(), Err: ErrTooLarge}
	}

	f := NewFile(reg.fs, path)
	f.maxSize = reg.maxSize

	if reg.router != nil {
		sub, err := reg.router.Subscribe(path, func(ev watcher.Event) {
			if !ev.Op.ChangesContent() {
				return
			}
			reg.log.Debug().Str("path", path).Str("op", ev.Op.String()).Msg("resource changed on disk")
			f.NotifyChanged()
		})
		if err != nil {
			// The file still works without external change notification
			reg.log.Warn().Err(err).Str("path", path).Msg("cannot watch resource")
			sub = notify.Noop
		}
		f.watch = sub
	}

	return f, nil
}

func (reg *Registry) resolveMemory(uri *url.URL) (Resource, error) {
	reg.mu.RLock()
	m, ok := reg.mem[memoryKey(uri)]
	reg.mu.RUnlock()

	if !ok {
		return nil, &Error{Op: "resolve", URI: uri.String(), Err: ErrNotFound}
	}
	return m, nil
}

func memoryKey(uri *url.URL) string {
	return uri.Host + uri.Path
}
