package watcher

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultDebounceDelay is the quiet period used when none is given.
const DefaultDebounceDelay = 100 * time.Millisecond

// DebouncedWatcher wraps a Watcher and reports each path once it has been
// quiet for the delay. Operations seen during a burst are merged, and a
// file that was removed or renamed away and then created again, as editors
// do when saving through a temporary file, is reported as OpWrite.
type DebouncedWatcher struct {
	inner Watcher
	delay time.Duration

	events  chan Event
	errors  chan error
	pending atomic.Int64

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

var _ Watcher = (*DebouncedWatcher)(nil)

type pendingEvent struct {
	event Event
	due   time.Time
}

// NewDebouncedWatcher wraps inner. A non-positive delay means
// DefaultDebounceDelay.
func NewDebouncedWatcher(inner Watcher, delay time.Duration) *DebouncedWatcher {
	if delay <= 0 {
		delay = DefaultDebounceDelay
	}

	dw := &DebouncedWatcher{
		inner:  inner,
		delay:  delay,
		events: make(chan Event, DefaultConfig().BufferSize),
		errors: make(chan error, 8),
		done:   make(chan struct{}),
	}

	dw.wg.Add(1)
	go dw.loop()
	return dw
}

// Watch starts watching a directory.
func (dw *DebouncedWatcher) Watch(path string) error {
	return dw.inner.Watch(path)
}

// Unwatch stops watching a directory.
func (dw *DebouncedWatcher) Unwatch(path string) error {
	return dw.inner.Unwatch(path)
}

// Events returns the debounced event channel.
func (dw *DebouncedWatcher) Events() <-chan Event {
	return dw.events
}

// Errors returns the error channel.
func (dw *DebouncedWatcher) Errors() <-chan error {
	return dw.errors
}

// Pending returns how many paths are waiting for their quiet period.
func (dw *DebouncedWatcher) Pending() int {
	return int(dw.pending.Load())
}

// Close drops pending events and closes the wrapped watcher.
func (dw *DebouncedWatcher) Close() error {
	dw.closeOnce.Do(func() {
		close(dw.done)
		dw.wg.Wait()
		dw.pending.Store(0)

		close(dw.events)
		close(dw.errors)
		dw.closeErr = dw.inner.Close()
	})
	return dw.closeErr
}

func (dw *DebouncedWatcher) loop() {
	defer dw.wg.Done()

	pending := make(map[string]*pendingEvent)
	timer := time.NewTimer(dw.delay)
	timer.Stop()

	in, errs := dw.inner.Events(), dw.inner.Errors()
	for {
		select {
		case <-dw.done:
			timer.Stop()
			return

		case ev, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			if p, ok := pending[ev.Path]; ok {
				p.event.Op |= ev.Op
				p.event.Timestamp = ev.Timestamp
				p.due = time.Now().Add(dw.delay)
			} else {
				pending[ev.Path] = &pendingEvent{event: ev, due: time.Now().Add(dw.delay)}
			}
			dw.pending.Store(int64(len(pending)))
			dw.arm(timer, pending)

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			select {
			case dw.errors <- err:
			default:
			}

		case now := <-timer.C:
			for path, p := range pending {
				if p.due.After(now) {
					continue
				}
				delete(pending, path)
				ev := p.event
				ev.Op = settle(ev.Op)
				select {
				case dw.events <- ev:
				case <-dw.done:
					return
				}
			}
			dw.pending.Store(int64(len(pending)))
			dw.arm(timer, pending)
		}
	}
}

// arm resets timer to the earliest due time.
func (dw *DebouncedWatcher) arm(timer *time.Timer, pending map[string]*pendingEvent) {
	var next time.Time
	for _, p := range pending {
		if next.IsZero() || p.due.Before(next) {
			next = p.due
		}
	}
	if next.IsZero() {
		timer.Stop()
		return
	}
	timer.Reset(time.Until(next))
}

// settle folds a remove or rename followed by a create into a write.
func settle(op Op) Op {
	if op.Has(OpCreate) && op&(OpRemove|OpRename) != 0 {
		return op&^(OpCreate|OpRemove|OpRename) | OpWrite
	}
	return op
}
