package opener

import (
	"context"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/dshills/richview/internal/binding"
	"github.com/dshills/richview/internal/disambig"
)

// Label is the handler's display name.
const Label = "WYSIWYG"

// Mode says how an opened view is brought forward.
type Mode string

// Open modes.
const (
	// ModeActivate shows and focuses the view.
	ModeActivate Mode = "activate"
	// ModeReveal shows the view without focusing it.
	ModeReveal Mode = "reveal"
	// ModeOpen only opens the view.
	ModeOpen Mode = "open"
)

// Placement says where a view goes relative to WidgetOptions.Ref.
type Placement string

// Placements.
const (
	OpenToRight Placement = "open-to-right"
	OpenToLeft  Placement = "open-to-left"
)

// WidgetOptions are placement hints for the host.
type WidgetOptions struct {
	// Ref is the widget to place the new view next to, such as an Editor
	// or a *binding.Binding.
	Ref  any
	Mode Placement
}

// Options configure Handler.Open.
type Options struct {
	Mode Mode

	// OriginURI names a URI whose open view should be used as Ref.
	OriginURI *url.URL

	WidgetOptions WidgetOptions
}

// Editor is a text editor widget of the host.
type Editor interface {
	URI() *url.URL
}

// EditorManager is the host's text editor service.
type EditorManager interface {
	// CanHandle returns the text editor's priority for u.
	CanHandle(u *url.URL) Score

	// CurrentEditor returns the focused text editor, or nil.
	CurrentEditor() Editor

	// Open opens u in a text editor.
	Open(ctx context.Context, u *url.URL, opts WidgetOptions) (Editor, error)
}

// Shell places views. It is optional.
type Shell interface {
	Show(b *binding.Binding, opts Options)
}

// Handler opens URIs in bindings.
type Handler struct {
	scorer   *Scorer
	bindings *binding.Registry
	editors  EditorManager
	shell    Shell
	log      zerolog.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithShell sets the view placement service.
func WithShell(shell Shell) HandlerOption {
	return func(h *Handler) {
		h.shell = shell
	}
}

// WithLogger sets the handler logger.
func WithLogger(log zerolog.Logger) HandlerOption {
	return func(h *Handler) {
		h.log = log
	}
}

// NewHandler creates a handler.
func NewHandler(scorer *Scorer, bindings *binding.Registry, editors EditorManager, opts ...HandlerOption) *Handler {
	h := &Handler{
		scorer:   scorer,
		bindings: bindings,
		editors:  editors,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ID returns the handler identifier, which is also the codec marker id.
func (h *Handler) ID() string {
	return h.codec().ID
}

// Scorer returns the handler's scorer.
func (h *Handler) Scorer() *Scorer {
	return h.scorer
}

// Label returns the display name.
func (h *Handler) Label() string {
	return Label
}

// CanHandle returns the handler's priority for u.
func (h *Handler) CanHandle(u *url.URL) Score {
	var base Score
	if h.editors != nil {
		base = h.editors.CanHandle(u)
	}
	return h.scorer.Score(u, base)
}

// Open opens or reuses the binding for u. Encoded and plain forms of a URI
// share one binding. Errors from the binding's first reconcile are returned
// with the binding.
func (h *Handler) Open(ctx context.Context, u *url.URL, opts *Options) (*binding.Binding, error) {
	resolved := h.resolveOptions(opts)

	b, err := h.bindings.Open(ctx, h.codec().Decode(u))
	if b == nil {
		return nil, err
	}

	if h.shell != nil {
		h.shell.Show(b, resolved)
	}
	if resolved.Mode == ModeActivate {
		b.Activate()
	}

	h.log.Debug().Str("uri", u.String()).Str("mode", string(resolved.Mode)).Str("widget", b.ID()).Msg("opened")
	return b, err
}

// resolveOptions applies defaults and turns OriginURI into a placement ref.
func (h *Handler) resolveOptions(opts *Options) Options {
	resolved := Options{Mode: ModeActivate}
	if opts != nil {
		resolved = *opts
		if resolved.Mode == "" {
			resolved.Mode = ModeActivate
		}
	}
	if resolved.OriginURI != nil {
		if ref, ok := h.bindings.Get(h.codec().Decode(resolved.OriginURI)); ok {
			resolved.WidgetOptions.Ref = ref
		}
	}
	return resolved
}

func (h *Handler) codec() disambig.Codec {
	return h.scorer.Codec
}
