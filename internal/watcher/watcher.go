// Package watcher reports external changes to files backing open resources.
//
// A DirWatcher turns fsnotify events for watched directories into Events,
// a DebouncedWatcher coalesces bursts per path and settles atomic saves
// into a single write, and a Router fans events out to per-file observers
// while watching each parent directory only once.
package watcher

import (
	"errors"
	"strings"
	"time"
)

// Common errors returned by watcher operations.
var (
	ErrWatcherClosed   = errors.New("watcher is closed")
	ErrAlreadyWatching = errors.New("path is already being watched")
	ErrNotWatching     = errors.New("path is not being watched")
	ErrPathNotExist    = errors.New("path does not exist")
	ErrNotDirectory    = errors.New("path is not a directory")

	// ErrOverflow reports that events were lost. Observers should treat
	// every watched file as changed.
	ErrOverflow = errors.New("event queue overflow")
)

// Op is a set of file system operations.
type Op uint32

const (
	// OpCreate indicates a file was created or moved into place.
	OpCreate Op = 1 << iota
	// OpWrite indicates a file was written to.
	OpWrite
	// OpRemove indicates a file was removed.
	OpRemove
	// OpRename indicates a file was moved away.
	OpRename
	// OpChmod indicates file permissions were changed.
	OpChmod
)

// ContentOps are the operations that can change what a file contains.
const ContentOps = OpCreate | OpWrite | OpRemove | OpRename

var opNames = []struct {
	op   Op
	name string
}{
	{OpCreate, "CREATE"},
	{OpWrite, "WRITE"},
	{OpRemove, "REMOVE"},
	{OpRename, "RENAME"},
	{OpChmod, "CHMOD"},
}

// String returns the operation names joined by "|", e.g. "WRITE|CHMOD".
func (op Op) String() string {
	if op == 0 {
		return "NONE"
	}
	var names []string
	for _, n := range opNames {
		if op.Has(n.op) {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "UNKNOWN"
	}
	return strings.Join(names, "|")
}

// Has returns true if the operation includes the given op.
func (op Op) Has(o Op) bool {
	return op&o == o
}

// ChangesContent reports whether op may have changed the file's content.
func (op Op) ChangesContent() bool {
	return op&ContentOps != 0
}

// Event is a change to one file.
type Event struct {
	// Path is the absolute path of the affected file.
	Path string

	// Op is the operation that occurred. Debounced events may combine several.
	Op Op

	// Timestamp is when the (last) change was observed.
	Timestamp time.Time
}

// Watcher monitors directories for file changes.
type Watcher interface {
	// Watch starts watching a directory.
	// Returns ErrAlreadyWatching if the path is already being watched.
	Watch(path string) error

	// Unwatch stops watching a directory.
	// Returns ErrNotWatching if the path isn't being watched.
	Unwatch(path string) error

	// Events returns the channel of file change events.
	// The channel is closed when the watcher is closed.
	Events() <-chan Event

	// Errors returns the channel of watcher errors.
	// The channel is closed when the watcher is closed.
	Errors() <-chan error

	// Close stops the watcher and releases resources.
	Close() error
}

// Config holds watcher settings.
type Config struct {
	// BufferSize is the capacity of the event and error channels.
	BufferSize int

	// Ops selects the operations reported. Others are dropped.
	Ops Op
}

// DefaultConfig reports content changes with a 64 event buffer.
func DefaultConfig() Config {
	return Config{
		BufferSize: 64,
		Ops:        ContentOps,
	}
}

// Option configures a watcher.
type Option func(*Config)

// WithBufferSize sets the channel buffer size.
func WithBufferSize(size int) Option {
	return func(c *Config) {
		c.BufferSize = size
	}
}

// WithOps sets the reported operations.
func WithOps(ops Op) Option {
	return func(c *Config) {
		c.Ops = ops
	}
}
