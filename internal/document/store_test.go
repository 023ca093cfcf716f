package document

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/dshills/richview/internal/resource"
)

type recorder struct {
	events []Event
}

func (r *recorder) record(ev Event) {
	r.events = append(r.events, ev)
}

func setupTestStore(t *testing.T) (*Store, *recorder) {
	t.Helper()
	store := NewStore()
	rec := &recorder{}
	store.OnDidOpen(rec.record)
	store.OnDidChange(rec.record)
	store.OnDidClose(rec.record)
	return store, rec
}

func TestStore_Open(t *testing.T) {
	store, rec := setupTestStore(t)

	doc := store.Open("file:///docs/a.md", "# hi")
	if doc.Text() != "# hi" {
		t.Errorf("Text() = %q", doc.Text())
	}
	if doc.Version() != 1 {
		t.Errorf("Version() = %d, want 1", doc.Version())
	}
	if doc.LanguageID() != "markdown" {
		t.Errorf("LanguageID() = %q, want markdown", doc.LanguageID())
	}

	again := store.Open("file:///docs/a.md", "other")
	if again != doc {
		t.Error("opening the same URI twice should return the same document")
	}
	if len(rec.events) != 1 || rec.events[0].Kind != Opened {
		t.Errorf("events = %+v, want one opened event", rec.events)
	}
}

func TestStore_OpenResource(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	res := resource.NewMemory(&url.URL{Scheme: "mem", Path: "/note.html"}, "<p>x</p>")

	doc, err := store.OpenResource(ctx, res)
	if err != nil {
		t.Fatalf("OpenResource() error = %v", err)
	}
	if doc.URI() != "mem:///note.html" {
		t.Errorf("URI() = %q", doc.URI())
	}
	if doc.Text() != "<p>x</p>" {
		t.Errorf("Text() = %q", doc.Text())
	}
	if doc.LanguageID() != "html" {
		t.Errorf("LanguageID() = %q, want html", doc.LanguageID())
	}
}

func TestStore_Update(t *testing.T) {
	store, rec := setupTestStore(t)
	doc := store.Open("file:///a.txt", "one")

	if err := store.Update("file:///a.txt", "two"); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := store.Update("file:///a.txt", "two"); err != nil {
		t.Fatalf("Update() same text error = %v", err)
	}

	if doc.Version() != 2 {
		t.Errorf("Version() = %d, want 2", doc.Version())
	}
	if !doc.IsDirty() {
		t.Error("document should be dirty after Update")
	}
	if len(rec.events) != 2 {
		t.Fatalf("events = %d, want 2", len(rec.events))
	}
	if ev := rec.events[1]; ev.Kind != Changed || ev.Text != "two" || ev.Version != 2 {
		t.Errorf("changed event = %+v", ev)
	}

	err := store.Update("file:///missing", "x")
	if !errors.Is(err, ErrNotOpen) {
		t.Errorf("Update(missing) error = %v, want ErrNotOpen", err)
	}
}

func TestStore_ApplyEdit(t *testing.T) {
	store, rec := setupTestStore(t)
	store.Open("file:///a.txt", "hello world")

	if err := store.ApplyEdit("file:///a.txt", 6, 11, "there"); err != nil {
		t.Fatalf("ApplyEdit() error = %v", err)
	}
	doc, _ := store.Get("file:///a.txt")
	if doc.Text() != "hello there" {
		t.Errorf("Text() = %q, want %q", doc.Text(), "hello there")
	}
	if last := rec.events[len(rec.events)-1]; last.Text != "hello there" {
		t.Errorf("last event text = %q", last.Text)
	}

	tests := []struct {
		name       string
		start, end int
	}{
		{"negative", -1, 2},
		{"past end", 0, 100},
		{"reversed", 5, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.ApplyEdit("file:///a.txt", tt.start, tt.end, "x")
			if !errors.Is(err, ErrInvalidEditRange) {
				t.Errorf("ApplyEdit(%d, %d) error = %v, want ErrInvalidEditRange", tt.start, tt.end, err)
			}
		})
	}
}

func TestStore_SaveAndClose(t *testing.T) {
	store, rec := setupTestStore(t)
	ctx := context.Background()
	res := resource.NewMemory(&url.URL{Scheme: "mem", Path: "/a"}, "one")
	uri := res.URI().String()

	store.Open(uri, "one")
	_ = store.Update(uri, "two")

	err := store.Close(uri, false)
	if !errors.Is(err, ErrDirty) {
		t.Fatalf("Close(dirty) error = %v, want ErrDirty", err)
	}

	if err := store.Save(ctx, uri, res); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if text, _ := res.ReadContents(ctx); text != "two" {
		t.Errorf("saved text = %q, want two", text)
	}

	doc, _ := store.Get(uri)
	if err := store.Close(uri, false); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !doc.IsClosed() {
		t.Error("document should be closed")
	}
	if store.IsOpen(uri) {
		t.Error("store still reports document open")
	}
	if last := rec.events[len(rec.events)-1]; last.Kind != Closed || last.URI != uri {
		t.Errorf("last event = %+v, want closed", last)
	}

	var docErr *Error
	if err := store.Close(uri, true); !errors.As(err, &docErr) || docErr.Op != "close" {
		t.Errorf("Close(closed) error = %v", err)
	}
}

func TestStore_Documents(t *testing.T) {
	store := NewStore()
	store.Open("file:///b", "")
	store.Open("file:///a", "")

	docs := store.Documents()
	if len(docs) != 2 || docs[0].URI() != "file:///a" || docs[1].URI() != "file:///b" {
		t.Errorf("Documents() order wrong: %v, %v", docs[0].URI(), docs[1].URI())
	}
}

func TestDetectLanguageID(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"file:///x/main.go", "go"},
		{"file:///x/README.MD", "markdown"},
		{"file:///x/page.html?open-handler=code-editor-ckeditor", "html"},
		{"/plain/path.yml", "yaml"},
		{"file:///x/noext", "plaintext"},
	}
	for _, tt := range tests {
		if got := DetectLanguageID(tt.uri); got != tt.want {
			t.Errorf("DetectLanguageID(%q) = %q, want %q", tt.uri, got, tt.want)
		}
	}
}
