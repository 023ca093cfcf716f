package watcher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DirWatcher watches directories with fsnotify and reports changes to the
// files inside them.
type DirWatcher struct {
	fsw *fsnotify.Watcher
	ops Op

	mu   sync.Mutex
	dirs map[string]bool

	events  chan Event
	errors  chan error
	dropped atomic.Uint64

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

var _ Watcher = (*DirWatcher)(nil)

// NewDirWatcher creates a directory watcher.
func NewDirWatcher(opts ...Option) (*DirWatcher, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}
	if cfg.Ops == 0 {
		cfg.Ops = ContentOps
	}

	fsw, err := fsnotify.NewBufferedWatcher(uint(cfg.BufferSize))
	if err != nil {
		return nil, err
	}

	w := &DirWatcher{
		fsw:    fsw,
		ops:    cfg.Ops,
		dirs:   make(map[string]bool),
		events: make(chan Event, cfg.BufferSize),
		errors: make(chan error, cfg.BufferSize),
		done:   make(chan struct{}),
	}

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Watch starts watching the directory at path.
func (w *DirWatcher) Watch(path string) error {
	dir, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.dirs == nil {
		return ErrWatcherClosed
	}
	if w.dirs[dir] {
		return ErrAlreadyWatching
	}

	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return ErrPathNotExist
	case err != nil:
		return err
	case !info.IsDir():
		return fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}

	if err := w.fsw.Add(dir); err != nil {
		return err
	}
	w.dirs[dir] = true
	return nil
}

// Unwatch stops watching the directory at path.
func (w *DirWatcher) Unwatch(path string) error {
	dir, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.dirs == nil {
		return ErrWatcherClosed
	}
	if !w.dirs[dir] {
		return ErrNotWatching
	}
	delete(w.dirs, dir)
	return w.fsw.Remove(dir)
}

// Events returns the event channel.
func (w *DirWatcher) Events() <-chan Event {
	return w.events
}

// Errors returns the error channel.
func (w *DirWatcher) Errors() <-chan error {
	return w.errors
}

// Dropped returns how many events were lost because nobody was reading.
func (w *DirWatcher) Dropped() uint64 {
	return w.dropped.Load()
}

// Close stops the watcher. Later calls return the first result.
func (w *DirWatcher) Close() error {
	w.closeOnce.Do(func() {
		w.mu.Lock()
		w.dirs = nil
		w.mu.Unlock()

		close(w.done)
		w.closeErr = w.fsw.Close()
		w.wg.Wait()

		close(w.events)
		close(w.errors)
	})
	return w.closeErr
}

func (w *DirWatcher) loop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case fe, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			op := fromFSNotify(fe.Op) & w.ops
			if op == 0 {
				continue
			}
			w.emit(Event{Path: fe.Name, Op: op, Timestamp: time.Now()})

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				err = fmt.Errorf("%w: %v", ErrOverflow, err)
			}
			w.report(err)
		}
	}
}

// fromFSNotify converts fsnotify.Op to Op.
func fromFSNotify(fop fsnotify.Op) Op {
	var op Op
	for _, m := range []struct {
		from fsnotify.Op
		to   Op
	}{
		{fsnotify.Create, OpCreate},
		{fsnotify.Write, OpWrite},
		{fsnotify.Remove, OpRemove},
		{fsnotify.Rename, OpRename},
		{fsnotify.Chmod, OpChmod},
	} {
		if fop.Has(m.from) {
			op |= m.to
		}
	}
	return op
}

// emit never blocks. A full queue drops the event and reports ErrOverflow
// once per burst.
func (w *DirWatcher) emit(ev Event) {
	select {
	case w.events <- ev:
	default:
		if w.dropped.Add(1) == 1 || len(w.errors) == 0 {
			w.report(fmt.Errorf("%w: dropped %s", ErrOverflow, ev.Path))
		}
	}
}

func (w *DirWatcher) report(err error) {
	select {
	case w.errors <- err:
	default:
	}
}
