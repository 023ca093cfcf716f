package resource

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/dshills/richview/internal/vfs"
	"github.com/dshills/richview/internal/watcher"
)

func fileURI(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("url.Parse(%q) error = %v", raw, err)
	}
	return u
}

func TestRegistry_ResolveFile(t *testing.T) {
	ctx := context.Background()
	memfs := vfs.NewMemFS()
	_ = memfs.AddFile("/docs/a.html", "<p>hi</p>")

	reg := NewRegistry(memfs)
	res, err := reg.Resolve(ctx, fileURI(t, "file:///docs/a.html"))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	text, err := res.ReadContents(ctx)
	if err != nil {
		t.Fatalf("ReadContents() error = %v", err)
	}
	if text != "<p>hi</p>" {
		t.Errorf("ReadContents() = %q", text)
	}
	if got := res.URI().String(); got != "file:///docs/a.html" {
		t.Errorf("URI() = %q", got)
	}
	if !CanSave(res) {
		t.Error("file resource should be saveable")
	}
}

func TestRegistry_ResolveErrors(t *testing.T) {
	ctx := context.Background()
	memfs := vfs.NewMemFS()
	_ = memfs.AddFile("/docs/a.html", "x")
	_ = memfs.AddFile("/big.txt", "0123456789")

	reg := NewRegistry(memfs, WithMaxSize(5))

	tests := []struct {
		raw  string
		want error
	}{
		{"file:///missing.txt", ErrNotFound},
		{"file:///docs", ErrIsDirectory},
		{"file:///big.txt", ErrTooLarge},
		{"https://example.com/a", ErrUnsupportedScheme},
		{"mem://scratch/none", ErrNotFound},
	}

	for _, tt := range tests {
		_, err := reg.Resolve(ctx, fileURI(t, tt.raw))
		if !errors.Is(err, tt.want) {
			t.Errorf("Resolve(%q) error = %v, want %v", tt.raw, err, tt.want)
		}
		var resErr *Error
		if !errors.As(err, &resErr) {
			t.Errorf("Resolve(%q) error type = %T, want *Error", tt.raw, err)
		}
	}

	if !IsNotFound(&Error{Op: "read", Err: ErrNotFound}) {
		t.Error("IsNotFound should see through *Error")
	}
}

func TestFile_SaveKeepsBOM(t *testing.T) {
	ctx := context.Background()
	memfs := vfs.NewMemFS()
	_ = memfs.AddFile("/a.txt", "\xEF\xBB\xBFhello")

	f := NewFile(memfs, "/a.txt")
	text, err := f.ReadContents(ctx)
	if err != nil {
		t.Fatalf("ReadContents() error = %v", err)
	}
	if text != "hello" {
		t.Errorf("ReadContents() = %q, want hello", text)
	}

	if err := f.SaveContents(ctx, "bye"); err != nil {
		t.Fatalf("SaveContents() error = %v", err)
	}
	data, _ := memfs.ReadFile("/a.txt")
	if string(data) != "\xEF\xBB\xBFbye" {
		t.Errorf("saved bytes = %q, want BOM + bye", data)
	}
}

func TestFile_ReadBinary(t *testing.T) {
	memfs := vfs.NewMemFS()
	_ = memfs.AddFile("/bin", "a\x00b")

	_, err := NewFile(memfs, "/bin").ReadContents(context.Background())
	if !errors.Is(err, ErrBinary) {
		t.Errorf("ReadContents(binary) error = %v, want ErrBinary", err)
	}
}

func TestFile_SaveFailure(t *testing.T) {
	memfs := vfs.NewMemFS()
	f := NewFile(memfs, "/no/dir/a.txt")

	err := f.SaveContents(context.Background(), "x")
	var werr *WriteError
	if !errors.As(err, &werr) {
		t.Fatalf("SaveContents() error = %v, want *WriteError", err)
	}
	if werr.URI != "file:///no/dir/a.txt" {
		t.Errorf("WriteError.URI = %q", werr.URI)
	}

	_ = f.Close()
	if err := f.SaveContents(context.Background(), "x"); !errors.Is(err, ErrClosed) {
		t.Errorf("SaveContents after Close error = %v, want ErrClosed", err)
	}
}

func TestRegistry_FileChangeNotification(t *testing.T) {
	ctx := context.Background()
	memfs := vfs.NewMemFS()
	_ = memfs.AddFile("/a.txt", "one")

	router := watcher.NewRouter(nil)
	defer router.Close()
	sub := memfs.OnWrite(func(p string) {
		router.Dispatch(watcher.Event{Path: p, Op: watcher.OpWrite})
	})
	defer sub.Unsubscribe()

	reg := NewRegistry(memfs, WithRouter(router))
	res, err := reg.Resolve(ctx, fileURI(t, "file:///a.txt"))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	changes := 0
	res.(ChangeNotifier).OnDidChangeContents(func() { changes++ })

	_ = memfs.WriteFile("/a.txt", []byte("two"), 0644)
	if changes != 1 {
		t.Errorf("changes = %d, want 1", changes)
	}

	_ = res.(*File).Close()
	_ = memfs.WriteFile("/a.txt", []byte("three"), 0644)
	if changes != 1 {
		t.Errorf("changes = %d after Close, want 1", changes)
	}
}

func TestRegistry_Memory(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(vfs.NewMemFS())

	m, err := reg.AddMemory("mem://scratch/note.md", "draft")
	if err != nil {
		t.Fatalf("AddMemory() error = %v", err)
	}
	if _, err := reg.AddMemory("file:///x", ""); !errors.Is(err, ErrUnsupportedScheme) {
		t.Errorf("AddMemory(file) error = %v, want ErrUnsupportedScheme", err)
	}

	res, err := reg.Resolve(ctx, fileURI(t, "mem://scratch/note.md?open-handler=x"))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res != Resource(m) {
		t.Error("Resolve should return the registered memory resource")
	}

	changes := 0
	m.OnDidChangeContents(func() { changes++ })
	if _, err := reg.AddMemory("mem://scratch/note.md", "final"); err != nil {
		t.Fatalf("AddMemory() again error = %v", err)
	}
	text, _ := res.ReadContents(ctx)
	if text != "final" || changes != 1 {
		t.Errorf("after re-add text = %q, changes = %d", text, changes)
	}
}

func TestReadOnly(t *testing.T) {
	m := NewMemory(&url.URL{Scheme: "mem", Path: "/a"}, "x")
	ro := ReadOnly(m)

	if CanSave(ro) {
		t.Error("ReadOnly resource should not be saveable")
	}
	n, ok := ro.(ChangeNotifier)
	if !ok {
		t.Fatal("ReadOnly should keep change notification")
	}

	changed := false
	n.OnDidChangeContents(func() { changed = true })
	m.SetContents("y")
	if !changed {
		t.Error("ReadOnly view did not forward change notification")
	}

	reg := NewRegistry(vfs.NewMemFS(), WithReadOnly(true))
	_, _ = reg.AddMemory("mem://a", "x")
	res, err := reg.Resolve(context.Background(), &url.URL{Scheme: "mem", Host: "a"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if CanSave(res) {
		t.Error("WithReadOnly registry returned a saveable resource")
	}
}
