package notify

import "sync"

// Group collects subscriptions and releases them together.
type Group struct {
	mu       sync.Mutex
	subs     []Subscription
	disposed bool
}

// Add registers a subscription with the group. Nil subscriptions are
// ignored. Adding to a disposed group unsubscribes immediately.
func (g *Group) Add(sub Subscription) {
	if sub == nil {
		return
	}

	g.mu.Lock()
	if g.disposed {
		g.mu.Unlock()
		sub.Unsubscribe()
		return
	}
	g.subs = append(g.subs, sub)
	g.mu.Unlock()
}

// Len returns the number of held subscriptions.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.subs)
}

// Dispose unsubscribes everything in reverse registration order.
func (g *Group) Dispose() {
	g.mu.Lock()
	subs := g.subs
	g.subs = nil
	g.disposed = true
	g.mu.Unlock()

	for i := len(subs) - 1; i >= 0; i-- {
		subs[i].Unsubscribe()
	}
}

// Disposed reports whether Dispose has been called.
func (g *Group) Disposed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.disposed
}
