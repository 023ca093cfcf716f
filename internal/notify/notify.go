// Package notify provides typed change notification streams.
//
// A Notifier fans a value out to every subscribed observer. Observers are
// called synchronously, outside the notifier's lock, in subscription order.
// Subscriptions are cancelled through Unsubscribe, and a Group collects
// several of them so an owner can release everything it registered at once.
package notify

import (
	"sort"
	"sync"
)

// Observer receives a notification value.
type Observer[T any] func(value T)

// Subscription represents an active observer registration.
type Subscription interface {
	// Unsubscribe removes the observer. It is safe to call more than once.
	Unsubscribe()
}

// SubscriptionFunc adapts a function to the Subscription interface.
type SubscriptionFunc func()

// Unsubscribe calls f.
func (f SubscriptionFunc) Unsubscribe() {
	if f != nil {
		f()
	}
}

// Noop is a Subscription that does nothing.
var Noop Subscription = SubscriptionFunc(nil)

// Notifier manages subscriptions for a single stream of values.
type Notifier[T any] struct {
	mu        sync.RWMutex
	observers map[uint64]Observer[T]
	nextID    uint64
	closed    bool
}

// New creates a new Notifier.
func New[T any]() *Notifier[T] {
	return &Notifier[T]{
		observers: make(map[uint64]Observer[T]),
	}
}

// Subscribe registers an observer. Subscribing to a closed notifier
// returns a Subscription that does nothing.
func (n *Notifier[T]) Subscribe(observer Observer[T]) Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed || observer == nil {
		return Noop
	}

	id := n.nextID
	n.nextID++
	n.observers[id] = observer

	var once sync.Once
	return SubscriptionFunc(func() {
		once.Do(func() { n.unsubscribe(id) })
	})
}

// Notify delivers value to all current observers.
func (n *Notifier[T]) Notify(value T) {
	n.mu.RLock()
	if n.closed {
		n.mu.RUnlock()
		return
	}
	ids := make([]uint64, 0, len(n.observers))
	for id := range n.observers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	observers := make([]Observer[T], 0, len(ids))
	for _, id := range ids {
		observers = append(observers, n.observers[id])
	}
	n.mu.RUnlock()

	// Call observers outside the lock
	for _, obs := range observers {
		obs(value)
	}
}

// Len returns the number of active observers.
func (n *Notifier[T]) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.observers)
}

// Close drops all observers. Later notifications are ignored.
// It is safe to call Close multiple times.
func (n *Notifier[T]) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	n.observers = make(map[uint64]Observer[T])
}

func (n *Notifier[T]) unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.observers, id)
}
