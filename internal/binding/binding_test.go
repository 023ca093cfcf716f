package binding

import (
	"context"
	"errors"
	"net/url"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/dshills/richview/internal/content"
	"github.com/dshills/richview/internal/document"
	"github.com/dshills/richview/internal/resource"
	"github.com/dshills/richview/internal/surface"
	"github.com/dshills/richview/internal/theme"
)

const testQuiet = 20 * time.Millisecond

// probeResource is a memory resource whose saves can be observed or failed.
type probeResource struct {
	*resource.Memory
	onSave func(text string)
	err    error
}

func (p *probeResource) SaveContents(ctx context.Context, text string) error {
	if p.onSave != nil {
		p.onSave(text)
	}
	if p.err != nil {
		return &resource.WriteError{URI: p.URI().String(), Err: p.err}
	}
	return p.Memory.SaveContents(ctx, text)
}

// surfaces records the memory surfaces a factory built.
type surfaces struct {
	mu   sync.Mutex
	list []*surface.Memory
}

func (s *surfaces) add(m *surface.Memory) {
	s.mu.Lock()
	s.list = append(s.list, m)
	s.mu.Unlock()
}

func (s *surfaces) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.list)
}

func (s *surfaces) last() *surface.Memory {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.list) == 0 {
		return nil
	}
	return s.list[len(s.list)-1]
}

type fixture struct {
	reg      *Registry
	store    *document.Store
	themes   *theme.Service
	res      *probeResource
	surfaces *surfaces
	uri      *url.URL

	mu     sync.Mutex
	errors []error
}

func newFixture(t *testing.T, factory surface.Factory) *fixture {
	t.Helper()

	f := &fixture{
		store:    document.NewStore(),
		themes:   theme.NewService(),
		surfaces: &surfaces{},
		uri:      &url.URL{Scheme: "mem", Host: "test", Path: "/a.html"},
	}
	f.res = &probeResource{Memory: resource.NewMemory(f.uri, "A")}
	if factory == nil {
		factory = surface.MemoryFactory(f.surfaces.add)
	}

	provider := resource.ProviderFunc(func(ctx context.Context, uri *url.URL) (resource.Resource, error) {
		if uri.Host != "test" || path.Clean(uri.Path) != "/a.html" {
			return nil, resource.ErrNotFound
		}
		return f.res, nil
	})
	src := &content.Source{Documents: f.store, Theme: f.themes}

	f.reg = NewRegistry(provider, src, factory,
		WithIDGenerator(&CounterIDs{}),
		WithQuietPeriod(testQuiet),
		WithThemeSource(f.themes),
	)
	f.reg.OnError(func(be BindingError) {
		f.mu.Lock()
		f.errors = append(f.errors, be.Err)
		f.mu.Unlock()
	})
	t.Cleanup(f.reg.Close)
	return f
}

func (f *fixture) open(t *testing.T) *Binding {
	t.Helper()
	b, err := f.reg.Open(context.Background(), f.uri)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return b
}

func (f *fixture) reported() []error {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]error, len(f.errors))
	copy(out, f.errors)
	return out
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestOpen_BindsAndBuildsSurface(t *testing.T) {
	f := newFixture(t, nil)
	b := f.open(t)

	if b.State() != Bound {
		t.Errorf("State() = %v, want bound", b.State())
	}
	if b.ID() != "ckeditor-widget-0" {
		t.Errorf("ID() = %q, want ckeditor-widget-0", b.ID())
	}
	if b.Title() != "WYSIWYGing a.html" || b.Caption() != b.Title() {
		t.Errorf("Title() = %q, Caption() = %q", b.Title(), b.Caption())
	}
	if !b.Closable() || b.IconClass() != IconClass {
		t.Error("widget should be closable with the default icon")
	}

	s := f.surfaces.last()
	if s == nil {
		t.Fatal("no surface built")
	}
	if s.GetData() != "A" {
		t.Errorf("surface data = %q, want A", s.GetData())
	}
	opts := s.Options()
	if opts.ID != b.ID() || opts.LanguageID != "html" || opts.Theme.Name != "dark" || opts.ReadOnly {
		t.Errorf("surface options = %+v", opts)
	}

	again, err := f.reg.Open(context.Background(), f.uri)
	if err != nil || again != b {
		t.Errorf("second Open() = %p, %v; want same binding", again, err)
	}
}

func TestOpen_ResolutionError(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.reg.Open(context.Background(), &url.URL{Scheme: "mem", Host: "other", Path: "/x"})
	var resErr *ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("Open() error = %v, want *ResolutionError", err)
	}
	if !errors.Is(err, resource.ErrNotFound) {
		t.Error("ResolutionError should unwrap to the provider error")
	}
	if f.surfaces.count() != 0 {
		t.Error("no surface should be built for an unresolved URI")
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	f := newFixture(t, nil)
	b := f.open(t)
	ctx := context.Background()

	if err := b.Reconcile(ctx); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if err := b.Reconcile(ctx); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	// The text reached the surface once, as its initial buffer.
	if f.surfaces.count() != 1 {
		t.Errorf("surfaces built = %d, want 1", f.surfaces.count())
	}
	if calls := f.surfaces.last().SetDataCalls(); len(calls) != 0 {
		t.Errorf("SetData calls = %v, want none", calls)
	}
}

func TestReconcile_ExternalChange(t *testing.T) {
	f := newFixture(t, nil)
	f.open(t)

	f.res.SetContents("B")

	calls := f.surfaces.last().SetDataCalls()
	if len(calls) != 1 || calls[0] != "B" {
		t.Errorf("SetData calls = %v, want [B]", calls)
	}
}

func TestReconcile_PrefersOpenDocument(t *testing.T) {
	f := newFixture(t, nil)
	b := f.open(t)
	key := f.uri.String()
	s := f.surfaces.last()

	f.store.Open(key, "doc")
	if s.GetData() != "doc" {
		t.Errorf("after open surface = %q, want doc", s.GetData())
	}

	_ = f.store.Update(key, "doc2")
	if s.GetData() != "doc2" {
		t.Errorf("after change surface = %q, want doc2", s.GetData())
	}

	f.store.Open("mem://test/other.html", "unrelated")
	if s.GetData() != "doc2" {
		t.Errorf("unrelated document changed surface to %q", s.GetData())
	}

	_ = f.store.Close(key, true)
	if s.GetData() != "A" {
		t.Errorf("after close surface = %q, want persisted A", s.GetData())
	}
	if text, _ := b.lastKnownText(); text != "A" {
		t.Errorf("last known = %q, want A", text)
	}
}

func TestForceReconcile(t *testing.T) {
	f := newFixture(t, nil)
	b := f.open(t)

	if err := b.ForceReconcile(context.Background()); err != nil {
		t.Fatalf("ForceReconcile() error = %v", err)
	}
	calls := f.surfaces.last().SetDataCalls()
	if len(calls) != 1 || calls[0] != "A" {
		t.Errorf("SetData calls = %v, want [A]", calls)
	}
}

func TestCommit_AntiEcho(t *testing.T) {
	f := newFixture(t, nil)
	b := f.open(t)
	s := f.surfaces.last()

	var knownAtSave string
	f.res.onSave = func(string) {
		knownAtSave, _ = b.lastKnownText()
	}

	s.Edit("X")
	if err := b.Commit(context.Background()); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	if knownAtSave != "X" {
		t.Errorf("last known during save = %q, want X", knownAtSave)
	}
	if f.res.Saves() != 1 {
		t.Errorf("saves = %d, want 1", f.res.Saves())
	}
	if calls := s.SetDataCalls(); len(calls) != 0 {
		t.Errorf("save echoed back into the surface: %v", calls)
	}
	if b.PendingCommit() {
		t.Error("Commit should cancel the pending save")
	}

	// Nothing new to save.
	if err := b.Commit(context.Background()); err != nil {
		t.Fatalf("Commit() again error = %v", err)
	}
	if f.res.Saves() != 1 {
		t.Errorf("saves after idle commit = %d, want 1", f.res.Saves())
	}
}

func TestDebounce_CoalescesEdits(t *testing.T) {
	f := newFixture(t, nil)
	f.open(t)
	s := f.surfaces.last()

	for _, text := range []string{"e1", "e2", "e3", "e4", "e5"} {
		s.Edit(text)
	}

	waitFor(t, "commit", func() bool { return f.res.Saves() == 1 })
	time.Sleep(3 * testQuiet)

	if f.res.Saves() != 1 {
		t.Errorf("saves = %d, want 1", f.res.Saves())
	}
	text, _ := f.res.ReadContents(context.Background())
	if text != "e5" {
		t.Errorf("saved text = %q, want e5", text)
	}
}

func TestDispose_CancelsPendingCommit(t *testing.T) {
	f := newFixture(t, nil)
	b := f.open(t)
	s := f.surfaces.last()

	s.Edit("late")
	b.Dispose()
	b.Dispose()
	time.Sleep(3 * testQuiet)

	if f.res.Saves() != 0 {
		t.Errorf("saves after dispose = %d, want 0", f.res.Saves())
	}
	if !s.Closed() {
		t.Error("surface should be closed")
	}
	if b.State() != Disposed {
		t.Errorf("State() = %v, want disposed", b.State())
	}
	if _, ok := f.reg.Get(f.uri); ok {
		t.Error("registry still holds the disposed binding")
	}
	if err := b.Reconcile(context.Background()); !errors.Is(err, ErrDisposed) {
		t.Errorf("Reconcile() after dispose = %v, want ErrDisposed", err)
	}
	if err := b.Commit(context.Background()); !errors.Is(err, ErrDisposed) {
		t.Errorf("Commit() after dispose = %v, want ErrDisposed", err)
	}

	f.res.SetContents("external")
	if calls := s.SetDataCalls(); len(calls) != 0 {
		t.Errorf("disposed binding still reconciles: %v", calls)
	}

	next := f.open(t)
	if next == b {
		t.Error("Open after dispose should create a new binding")
	}
}

// gatedFactory blocks Create until release is closed.
type gatedFactory struct {
	entered chan struct{}
	release chan struct{}
	built   *surfaces
}

func newGatedFactory() *gatedFactory {
	return &gatedFactory{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		built:   &surfaces{},
	}
}

func (g *gatedFactory) Create(ctx context.Context, opts surface.Options) (surface.Surface, error) {
	close(g.entered)
	<-g.release
	m := surface.NewMemory(opts)
	g.built.add(m)
	return m, nil
}

func TestReconcile_CoalescedDuringConstruction(t *testing.T) {
	gate := newGatedFactory()
	f := newFixture(t, gate)

	type result struct {
		b   *Binding
		err error
	}
	done := make(chan result, 1)
	go func() {
		b, err := f.reg.Open(context.Background(), f.uri)
		done <- result{b, err}
	}()

	<-gate.entered
	f.res.SetContents("B")
	f.res.SetContents("C")
	close(gate.release)

	r := <-done
	if r.err != nil {
		t.Fatalf("Open() error = %v", r.err)
	}
	s := gate.built.last()
	if s.GetData() != "C" {
		t.Errorf("surface data = %q, want C", s.GetData())
	}
	if calls := s.SetDataCalls(); len(calls) != 1 || calls[0] != "C" {
		t.Errorf("SetData calls = %v, want [C]", calls)
	}
	if gate.built.count() != 1 {
		t.Errorf("surfaces built = %d, want 1", gate.built.count())
	}
}

func TestReconcile_CoalescedAfterCallerCancel(t *testing.T) {
	gate := newGatedFactory()
	f := newFixture(t, gate)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := f.reg.Open(ctx, f.uri)
		done <- err
	}()

	<-gate.entered
	f.res.SetContents("B")
	cancel()
	close(gate.release)

	if err := <-done; err != nil {
		t.Fatalf("Open() error = %v, want nil", err)
	}
	s := gate.built.last()
	if s.GetData() != "B" {
		t.Errorf("surface data = %q, want B", s.GetData())
	}
	if calls := s.SetDataCalls(); len(calls) != 1 || calls[0] != "B" {
		t.Errorf("SetData calls = %v, want [B]", calls)
	}
}

func TestDispose_DuringConstruction(t *testing.T) {
	gate := newGatedFactory()
	f := newFixture(t, gate)

	errc := make(chan error, 1)
	go func() {
		_, err := f.reg.Open(context.Background(), f.uri)
		errc <- err
	}()

	<-gate.entered
	b, ok := f.reg.Get(f.uri)
	if !ok {
		t.Fatal("binding should be registered while its surface is built")
	}
	b.Dispose()
	close(gate.release)

	if err := <-errc; !errors.Is(err, ErrDisposed) {
		t.Errorf("Open() error = %v, want ErrDisposed", err)
	}
	if s := gate.built.last(); s == nil || !s.Closed() {
		t.Error("surface built after dispose should be closed")
	}
	if b.Surface() != nil {
		t.Error("disposed binding kept the late surface")
	}
}

func TestSurfaceInitFailure_Retry(t *testing.T) {
	var (
		mu      sync.Mutex
		failing = true
	)
	built := &surfaces{}
	factory := surface.FactoryFunc(func(ctx context.Context, opts surface.Options) (surface.Surface, error) {
		mu.Lock()
		defer mu.Unlock()
		if failing {
			return nil, errors.New("load error")
		}
		m := surface.NewMemory(opts)
		built.add(m)
		return m, nil
	})
	f := newFixture(t, factory)

	b, err := f.reg.Open(context.Background(), f.uri)
	var initErr *SurfaceInitError
	if !errors.As(err, &initErr) {
		t.Fatalf("Open() error = %v, want *SurfaceInitError", err)
	}
	if b == nil || b.Degraded() == nil {
		t.Fatal("binding should be returned in a degraded state")
	}
	if b.State() != Loading {
		t.Errorf("State() = %v, want loading", b.State())
	}

	b.Resize(80, 24)
	f.res.SetContents("B")
	if text, _ := b.lastKnownText(); text != "B" {
		t.Errorf("last known = %q, want B", text)
	}
	// The inbound change tried the surface again and failed again.
	if len(f.reported()) != 1 {
		t.Errorf("reported errors = %v, want one background surface failure", f.reported())
	}

	mu.Lock()
	failing = false
	mu.Unlock()

	if err := b.RetrySurface(context.Background()); err != nil {
		t.Fatalf("RetrySurface() error = %v", err)
	}
	if b.Degraded() != nil || b.State() != Bound {
		t.Errorf("after retry degraded = %v, state = %v", b.Degraded(), b.State())
	}
	s := built.last()
	if s.GetData() != "B" {
		t.Errorf("surface data = %q, want B", s.GetData())
	}
	if w, h := s.Size(); w != 80 || h != 24 {
		t.Errorf("surface size = %d,%d, want 80,24", w, h)
	}

	if err := b.RetrySurface(context.Background()); err != nil {
		t.Errorf("RetrySurface() when healthy = %v, want nil", err)
	}
	if built.count() != 1 {
		t.Errorf("surfaces built = %d, want 1", built.count())
	}
}

func TestSurfaceInitFailure_ReconcileRecovers(t *testing.T) {
	var (
		mu       sync.Mutex
		attempts int
	)
	built := &surfaces{}
	factory := surface.FactoryFunc(func(ctx context.Context, opts surface.Options) (surface.Surface, error) {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts == 1 {
			return nil, errors.New("load failed")
		}
		m := surface.NewMemory(opts)
		built.add(m)
		return m, nil
	})
	f := newFixture(t, factory)

	b, err := f.reg.Open(context.Background(), f.uri)
	var initErr *SurfaceInitError
	if !errors.As(err, &initErr) {
		t.Fatalf("Open() error = %v, want *SurfaceInitError", err)
	}

	if err := b.Reconcile(context.Background()); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if b.Degraded() != nil || b.State() != Bound {
		t.Errorf("after reconcile degraded = %v, state = %v", b.Degraded(), b.State())
	}
	if built.count() != 1 {
		t.Fatalf("surfaces built = %d, want 1", built.count())
	}
	if got := built.last().GetData(); got != "A" {
		t.Errorf("surface data = %q, want A", got)
	}

	if err := b.Reconcile(context.Background()); err != nil {
		t.Fatalf("second Reconcile() error = %v", err)
	}
	if calls := built.last().SetDataCalls(); len(calls) != 0 {
		t.Errorf("SetData calls = %v, want none", calls)
	}
}

func TestReadOnly_DiscardsEdits(t *testing.T) {
	built := &surfaces{}
	factory := surface.FactoryFunc(func(ctx context.Context, opts surface.Options) (surface.Surface, error) {
		if !opts.ReadOnly {
			t.Error("surface for a read-only resource should be read-only")
		}
		opts.ReadOnly = false
		m := surface.NewMemory(opts)
		built.add(m)
		return m, nil
	})

	mem := resource.NewMemory(&url.URL{Scheme: "mem", Path: "/ro.md"}, "R")
	provider := resource.ProviderFunc(func(ctx context.Context, uri *url.URL) (resource.Resource, error) {
		return resource.ReadOnly(mem), nil
	})
	reg := NewRegistry(provider, &content.Source{}, factory, WithQuietPeriod(testQuiet))
	defer reg.Close()

	b, err := reg.Open(context.Background(), mem.URI())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	built.last().Edit("changed")
	if err := b.Commit(context.Background()); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if mem.Saves() != 0 {
		t.Errorf("saves = %d, want 0", mem.Saves())
	}
	if text, _ := b.lastKnownText(); text != "R" {
		t.Errorf("last known = %q, want R", text)
	}
}

func TestCommit_SaveFailure(t *testing.T) {
	f := newFixture(t, nil)
	b := f.open(t)
	f.res.err = errors.New("disk full")

	f.surfaces.last().Edit("X")
	err := b.Commit(context.Background())

	var ioErr *content.IOError
	if !errors.As(err, &ioErr) || ioErr.Op != "save" {
		t.Fatalf("Commit() error = %v, want save *content.IOError", err)
	}
	var writeErr *resource.WriteError
	if !errors.As(err, &writeErr) {
		t.Error("save error should wrap *resource.WriteError")
	}
	if b.State() != Bound {
		t.Errorf("State() = %v, binding should stay bound", b.State())
	}

	f.surfaces.last().Edit("Y")
	waitFor(t, "background save error", func() bool { return len(f.reported()) == 1 })
}

func TestActivateResizeAndTheme(t *testing.T) {
	f := newFixture(t, nil)
	b := f.open(t)
	s := f.surfaces.last()

	b.Resize(100, 40)
	b.Activate()
	if w, h := s.Size(); w != 100 || h != 40 {
		t.Errorf("surface size = %d,%d, want 100,40", w, h)
	}
	if s.Activations() != 1 {
		t.Errorf("Activations() = %d, want 1", s.Activations())
	}
	if len(s.SetDataCalls()) != 0 {
		t.Error("activation with unchanged text should not push text")
	}

	_ = f.themes.Set("light")
	if s.Theme().Name != "light" {
		t.Errorf("surface theme = %q, want light", s.Theme().Name)
	}
}

func TestCreateMoveToURI(t *testing.T) {
	f := newFixture(t, nil)
	f.uri.RawQuery = "open-handler=code-editor-ckeditor"
	b := f.open(t)

	moved := b.CreateMoveToURI(&url.URL{Scheme: "file", Path: "/docs/b.html"})
	if got := moved.String(); got != "mem://test/docs/b.html?open-handler=code-editor-ckeditor" {
		t.Errorf("CreateMoveToURI() = %q", got)
	}
	if b.URI().Path != "/a.html" {
		t.Error("CreateMoveToURI must not modify the binding URI")
	}
}

func TestRegistry_OpenCanonicalizes(t *testing.T) {
	f := newFixture(t, nil)
	b := f.open(t)

	alias := &url.URL{Scheme: "mem", Host: "test", Path: "/./a.html"}
	other, err := f.reg.Open(context.Background(), alias)
	if err != nil {
		t.Fatalf("Open(alias) error = %v", err)
	}
	if other != b {
		t.Error("Open(alias) created a second binding for one resource")
	}
	if got, ok := f.reg.Get(alias); !ok || got != b {
		t.Error("Get(alias) should return the shared binding")
	}
	if n := len(f.reg.Bindings()); n != 1 {
		t.Errorf("len(Bindings()) = %d, want 1", n)
	}
	if f.surfaces.count() != 1 {
		t.Errorf("surfaces built = %d, want 1", f.surfaces.count())
	}

	b.Dispose()
	if _, ok := f.reg.Get(alias); ok {
		t.Error("alias still registered after dispose")
	}
	if _, ok := f.reg.Get(f.uri); ok {
		t.Error("binding still registered after dispose")
	}
}

func TestRegistry_Bindings(t *testing.T) {
	f := newFixture(t, nil)
	b := f.open(t)

	list := f.reg.Bindings()
	if len(list) != 1 || list[0] != b {
		t.Errorf("Bindings() = %v", list)
	}

	f.reg.Close()
	if b.State() != Disposed {
		t.Error("Close should dispose every binding")
	}
	if len(f.reg.Bindings()) != 0 {
		t.Error("Bindings() should be empty after Close")
	}
}
