package surface

import (
	"context"
	"testing"

	"github.com/dshills/richview/internal/theme"
)

func TestMemory_SetDataDoesNotNotify(t *testing.T) {
	m := NewMemory(Options{Data: "init"})

	changes := 0
	m.OnChange(func() { changes++ })

	m.SetData("a")
	if changes != 0 {
		t.Errorf("SetData notified %d observers, want 0", changes)
	}
	m.Edit("b")
	if changes != 1 {
		t.Errorf("Edit notified %d times, want 1", changes)
	}
	if m.GetData() != "b" {
		t.Errorf("GetData() = %q, want b", m.GetData())
	}

	calls := m.SetDataCalls()
	if len(calls) != 1 || calls[0] != "a" {
		t.Errorf("SetDataCalls() = %v, want [a]", calls)
	}
}

func TestMemory_ReadOnlyIgnoresEdits(t *testing.T) {
	m := NewMemory(Options{Data: "x", ReadOnly: true})
	changes := 0
	m.OnChange(func() { changes++ })

	m.Edit("y")
	if m.GetData() != "x" || changes != 0 {
		t.Errorf("read-only surface accepted edit: data=%q changes=%d", m.GetData(), changes)
	}
}

func TestMemory_Close(t *testing.T) {
	m := NewMemory(Options{})
	changes := 0
	m.OnChange(func() { changes++ })

	_ = m.Close()
	_ = m.Close()
	m.Edit("x")
	m.SetData("y")

	if !m.Closed() || changes != 0 || len(m.SetDataCalls()) != 0 {
		t.Errorf("closed surface still active: changes=%d sets=%v", changes, m.SetDataCalls())
	}
}

func TestMemory_LayoutAndTheme(t *testing.T) {
	m := NewMemory(Options{Theme: theme.Dark})
	m.Resize(80, 24)
	m.Activate()
	m.SetTheme(theme.Light)

	if w, h := m.Size(); w != 80 || h != 24 {
		t.Errorf("Size() = %d,%d, want 80,24", w, h)
	}
	if m.Activations() != 1 {
		t.Errorf("Activations() = %d, want 1", m.Activations())
	}
	if m.Theme().Name != "light" {
		t.Errorf("Theme().Name = %q, want light", m.Theme().Name)
	}
}

func TestMemoryFactory(t *testing.T) {
	var created []*Memory
	f := MemoryFactory(func(m *Memory) { created = append(created, m) })

	s, err := f.Create(context.Background(), Options{ID: "w1", Data: "hello"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if s.GetData() != "hello" {
		t.Errorf("GetData() = %q, want hello", s.GetData())
	}
	if len(created) != 1 || created[0].Options().ID != "w1" {
		t.Errorf("created = %v", created)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.Create(ctx, Options{}); err == nil {
		t.Error("Create() with cancelled context should fail")
	}
}
