package document

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dshills/richview/internal/notify"
	"github.com/dshills/richview/internal/resource"
)

// EventKind identifies what happened to a document.
type EventKind int

const (
	// Opened is emitted when a document is added to the store.
	Opened EventKind = iota
	// Changed is emitted when a document's text changes.
	Changed
	// Closed is emitted when a document is removed from the store.
	Closed
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case Opened:
		return "opened"
	case Changed:
		return "changed"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event describes a document lifecycle or content change.
// Text is empty for Closed events.
type Event struct {
	Kind    EventKind
	URI     string
	Text    string
	Version int64
}

// Error describes a failed store operation.
type Error struct {
	Op  string
	URI string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URI, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Store manages open documents keyed by URI string.
// It is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	documents map[string]*Document
	log       zerolog.Logger

	opened  *notify.Notifier[Event]
	changed *notify.Notifier[Event]
	closed  *notify.Notifier[Event]
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) {
		s.log = log
	}
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		documents: make(map[string]*Document),
		log:       zerolog.Nop(),
		opened:    notify.New[Event](),
		changed:   notify.New[Event](),
		closed:    notify.New[Event](),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open adds a document with text. If the URI is already open the existing
// document is returned unchanged.
func (s *Store) Open(uri, text string) *Document {
	s.mu.Lock()
	if doc, ok := s.documents[uri]; ok {
		s.mu.Unlock()
		return doc
	}
	doc := NewDocument(uri, text)
	s.documents[uri] = doc
	s.mu.Unlock()

	s.log.Debug().Str("uri", uri).Str("language", doc.LanguageID()).Msg("document opened")
	s.opened.Notify(Event{Kind: Opened, URI: uri, Text: text, Version: 1})
	return doc
}

// OpenResource opens the document for res, reading its persisted text.
func (s *Store) OpenResource(ctx context.Context, res resource.Resource) (*Document, error) {
	uri := res.URI().String()
	if doc, ok := s.Get(uri); ok {
		return doc, nil
	}

	text, err := res.ReadContents(ctx)
	if err != nil {
		return nil, &Error{Op: "open", URI: uri, Err: err}
	}
	return s.Open(uri, text), nil
}

// Get returns the open document for uri.
func (s *Store) Get(uri string) (*Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[uri]
	return doc, ok
}

// IsOpen returns true if a document is open for uri.
func (s *Store) IsOpen(uri string) bool {
	_, ok := s.Get(uri)
	return ok
}

// Update replaces the whole text of an open document.
// Setting the current text again emits nothing.
func (s *Store) Update(uri, text string) error {
	doc, ok := s.Get(uri)
	if !ok {
		return &Error{Op: "update", URI: uri, Err: ErrNotOpen}
	}

	version, changed := doc.setText(text)
	if changed {
		s.changed.Notify(Event{Kind: Changed, URI: uri, Text: text, Version: version})
	}
	return nil
}

// reload sets the persisted text of a clean open document.
func (s *Store) reload(uri, text string) {
	doc, ok := s.Get(uri)
	if !ok {
		return
	}
	if version, changed := doc.reload(text); changed {
		s.log.Debug().Str("uri", uri).Int64("version", version).Msg("document reloaded")
		s.changed.Notify(Event{Kind: Changed, URI: uri, Text: text, Version: version})
	}
}

// ApplyEdit replaces the byte range [start, end) of an open document.
func (s *Store) ApplyEdit(uri string, start, end int, newText string) error {
	doc, ok := s.Get(uri)
	if !ok {
		return &Error{Op: "edit", URI: uri, Err: ErrNotOpen}
	}

	text, version, err := doc.applyEdit(start, end, newText)
	if err != nil {
		return &Error{Op: "edit", URI: uri, Err: err}
	}
	s.changed.Notify(Event{Kind: Changed, URI: uri, Text: text, Version: version})
	return nil
}

// Save writes the document text through saver and marks it clean.
func (s *Store) Save(ctx context.Context, uri string, saver resource.Saver) error {
	doc, ok := s.Get(uri)
	if !ok {
		return &Error{Op: "save", URI: uri, Err: ErrNotOpen}
	}

	text := doc.Text()
	if err := saver.SaveContents(ctx, text); err != nil {
		return &Error{Op: "save", URI: uri, Err: err}
	}
	doc.markSaved()
	return nil
}

// Close removes a document. A dirty document is only closed when force
// is true.
func (s *Store) Close(uri string, force bool) error {
	s.mu.Lock()
	doc, ok := s.documents[uri]
	if !ok {
		s.mu.Unlock()
		return &Error{Op: "close", URI: uri, Err: ErrNotOpen}
	}
	if !force && doc.IsDirty() {
		s.mu.Unlock()
		return &Error{Op: "close", URI: uri, Err: ErrDirty}
	}
	doc.markClosed()
	delete(s.documents, uri)
	s.mu.Unlock()

	s.log.Debug().Str("uri", uri).Msg("document closed")
	s.closed.Notify(Event{Kind: Closed, URI: uri, Version: doc.Version()})
	return nil
}

// Documents returns all open documents ordered by URI.
func (s *Store) Documents() []*Document {
	s.mu.RLock()
	docs := make([]*Document, 0, len(s.documents))
	for _, doc := range s.documents {
		docs = append(docs, doc)
	}
	s.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool { return docs[i].URI() < docs[j].URI() })
	return docs
}

// OnDidOpen registers fn for opened documents.
func (s *Store) OnDidOpen(fn func(Event)) notify.Subscription {
	return s.opened.Subscribe(fn)
}

// OnDidChange registers fn for text changes.
func (s *Store) OnDidChange(fn func(Event)) notify.Subscription {
	return s.changed.Subscribe(fn)
}

// OnDidClose registers fn for closed documents.
func (s *Store) OnDidClose(fn func(Event)) notify.Subscription {
	return s.closed.Subscribe(fn)
}
