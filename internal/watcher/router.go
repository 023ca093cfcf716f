package watcher

import (
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/richview/internal/notify"
)

// Router delivers watcher events to observers of individual files.
//
// Files are observed through their parent directory so that editors which
// save by rename keep producing events. Each directory is watched once and
// unwatched when its last observer goes away. A Router with a nil Watcher
// only delivers events passed to Dispatch.
type Router struct {
	w   Watcher
	log zerolog.Logger

	mu     sync.Mutex
	dirs   map[string]int
	files  map[string]*notify.Notifier[Event]
	closed bool

	done chan struct{}
	wg   sync.WaitGroup
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithLogger sets the logger used for watcher errors.
func WithLogger(log zerolog.Logger) RouterOption {
	return func(r *Router) {
		r.log = log
	}
}

// NewRouter creates a router reading from w.
func NewRouter(w Watcher, opts ...RouterOption) *Router {
	r := &Router{
		w:     w,
		log:   zerolog.Nop(),
		dirs:  make(map[string]int),
		files: make(map[string]*notify.Notifier[Event]),
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	if w != nil {
		r.wg.Add(1)
		go r.loop()
	}
	return r
}

// Subscribe calls fn for every event affecting path.
func (r *Router) Subscribe(path string, fn func(Event)) (notify.Subscription, error) {
	path = filepath.Clean(path)
	dir := filepath.Dir(path)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrWatcherClosed
	}

	if r.w != nil && r.dirs[dir] == 0 {
		if err := r.w.Watch(dir); err != nil && !errors.Is(err, ErrAlreadyWatching) {
			return nil, err
		}
	}
	r.dirs[dir]++

	n, ok := r.files[path]
	if !ok {
		n = notify.New[Event]()
		r.files[path] = n
	}
	inner := n.Subscribe(fn)

	var once sync.Once
	return notify.SubscriptionFunc(func() {
		once.Do(func() {
			inner.Unsubscribe()
			r.release(path, dir)
		})
	}), nil
}

// Dispatch delivers event to the observers of event.Path.
func (r *Router) Dispatch(event Event) {
	path := filepath.Clean(event.Path)

	r.mu.Lock()
	n, ok := r.files[path]
	r.mu.Unlock()

	if ok {
		n.Notify(event)
	}
}

// Close stops routing and closes the underlying watcher.
func (r *Router) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	for path, n := range r.files {
		n.Close()
		delete(r.files, path)
	}
	r.mu.Unlock()

	close(r.done)
	var err error
	if r.w != nil {
		err = r.w.Close()
	}
	r.wg.Wait()
	return err
}

// resync reports a write for every observed file after events were lost.
func (r *Router) resync() {
	r.mu.Lock()
	paths := make([]string, 0, len(r.files))
	for path := range r.files {
		paths = append(paths, path)
	}
	r.mu.Unlock()

	now := time.Now()
	for _, path := range paths {
		r.Dispatch(Event{Path: path, Op: OpWrite, Timestamp: now})
	}
}

func (r *Router) release(path, dir string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	if n, ok := r.files[path]; ok && n.Len() == 0 {
		delete(r.files, path)
	}

	r.dirs[dir]--
	if r.dirs[dir] > 0 {
		return
	}
	delete(r.dirs, dir)
	if r.w != nil {
		if err := r.w.Unwatch(dir); err != nil && !errors.Is(err, ErrNotWatching) {
			r.log.Warn().Err(err).Str("dir", dir).Msg("unwatch failed")
		}
	}
}

func (r *Router) loop() {
	defer r.wg.Done()

	events := r.w.Events()
	errs := r.w.Errors()
	for {
		select {
		case <-r.done:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			r.log.Debug().Str("path", event.Path).Str("op", event.Op.String()).Msg("file event")
			r.Dispatch(event)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			r.log.Warn().Err(err).Msg("watcher error")
			if errors.Is(err, ErrOverflow) {
				r.resync()
			}
		}
	}
}
