package binding

import "context"

// State is the binding lifecycle state.
type State int

const (
	// Unbound is the state of a binding that has not been bound yet.
	Unbound State = iota
	// Loading means the first text is being resolved or the surface built.
	// A binding whose surface failed to build stays Loading.
	Loading
	// Bound means a surface shows the text.
	Bound
	// Disposed is terminal.
	Disposed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Unbound:
		return "unbound"
	case Loading:
		return "loading"
	case Bound:
		return "bound"
	case Disposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Lifecycle is what a host calls as a view is shown, laid out and closed.
type Lifecycle interface {
	// Bind subscribes to change streams and shows the first text.
	Bind(ctx context.Context) error

	// Activate is called when the view becomes visible or focused.
	Activate()

	// Resize is called when the view's container changes size.
	Resize(width, height int)

	// Dispose releases the view. It is safe to call more than once.
	Dispose()
}

// Ensure Binding implements Lifecycle.
var _ Lifecycle = (*Binding)(nil)
