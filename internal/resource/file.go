package resource

import (
	"context"
	"errors"
	"io/fs"
	"net/url"
	"path/filepath"
	"sync"

	"github.com/dshills/richview/internal/notify"
	"github.com/dshills/richview/internal/vfs"
)

// File is a resource stored in a VFS.
//
// A UTF-8 byte order mark seen on read is stripped from the text and
// written back on save.
type File struct {
	uri     *url.URL
	path    string
	fs      vfs.VFS
	maxSize int64

	mu      sync.Mutex
	bom     bool
	closed  bool
	changes *notify.Notifier[struct{}]
	watch   notify.Subscription
}

// Ensure File implements the optional capabilities.
var (
	_ Saver          = (*File)(nil)
	_ ChangeNotifier = (*File)(nil)
)

// NewFile creates a file resource for an absolute path.
func NewFile(fsys vfs.VFS, path string) *File {
	return &File{
		uri:     FileURI(path),
		path:    path,
		fs:      fsys,
		changes: notify.New[struct{}](),
	}
}

// FileURI returns the file:// URI for path.
func FileURI(path string) *url.URL {
	p := filepath.ToSlash(path)
	if len(p) > 0 && p[0] != '/' {
		p = "/" + p
	}
	return &url.URL{Scheme: "file", Path: p}
}

// URI returns the file URI.
func (f *File) URI() *url.URL {
	u := *f.uri
	return &u
}

// Path returns the file system path.
func (f *File) Path() string {
	return f.path
}

// ReadContents reads the file as text.
func (f *File) ReadContents(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := f.fs.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &Error{Op: "read", URI: f.uri.String(), Err: ErrNotFound}
		}
		return "", &Error{Op: "read", URI: f.uri.String(), Err: err}
	}
	if f.maxSize > 0 && int64(len(data)) > f.maxSize {
		return "", &Error{Op: "read", URI: f.uri.String(), Err: ErrTooLarge}
	}
	if vfs.IsBinary(data) {
		return "", &Error{Op: "read", URI: f.uri.String(), Err: ErrBinary}
	}

	data, hadBOM := vfs.StripBOM(data)

	f.mu.Lock()
	f.bom = hadBOM
	f.mu.Unlock()

	return string(data), nil
}

// SaveContents writes text to the file.
func (f *File) SaveContents(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return &WriteError{URI: f.uri.String(), Err: err}
	}

	f.mu.Lock()
	closed, bom := f.closed, f.bom
	f.mu.Unlock()
	if closed {
		return &WriteError{URI: f.uri.String(), Err: ErrClosed}
	}

	data := []byte(text)
	if bom {
		data = vfs.AddBOM(data)
	}
	if err := f.fs.WriteFile(f.path, data, 0644); err != nil {
		return &WriteError{URI: f.uri.String(), Err: err}
	}
	return nil
}

// OnDidChangeContents registers fn for external changes to the file.
func (f *File) OnDidChangeContents(fn func()) notify.Subscription {
	return f.changes.Subscribe(func(struct{}) { fn() })
}

// NotifyChanged reports a change of the underlying file to observers.
func (f *File) NotifyChanged() {
	f.changes.Notify(struct{}{})
}

// Close stops change notifications. It is safe to call more than once.
func (f *File) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	watch := f.watch
	f.watch = nil
	f.mu.Unlock()

	if watch != nil {
		watch.Unsubscribe()
	}
	f.changes.Close()
	return nil
}
