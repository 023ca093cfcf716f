package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cfgFile := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(cfgFile, []byte("[logging]\nlevel = \"disabled\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", cfgFile}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestEncodeDecode(t *testing.T) {
	out, err := runCmd(t, "encode", "file:///a.txt?foo=1")
	if err != nil {
		t.Fatalf("encode error = %v", err)
	}
	if got := strings.TrimSpace(out); got != "file:///a.txt?open-handler=code-editor-ckeditor&foo=1" {
		t.Errorf("encode = %q", got)
	}

	out, err = runCmd(t, "decode", "file:///a.txt?open-handler=code-editor-ckeditor&foo=1")
	if err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if got := strings.TrimSpace(out); got != "file:///a.txt?foo=1" {
		t.Errorf("decode = %q", got)
	}
}

func TestEncode_CustomSurface(t *testing.T) {
	out, err := runCmd(t, "--set", "surface.id=mine", "encode", "file:///a.md")
	if err != nil {
		t.Fatalf("encode error = %v", err)
	}
	if got := strings.TrimSpace(out); got != "file:///a.md?open-handler=mine" {
		t.Errorf("encode = %q", got)
	}
}

func TestScore(t *testing.T) {
	out, err := runCmd(t, "score", "/docs/a.html", "/docs/a.bin")
	if err != nil {
		t.Fatalf("score error = %v", err)
	}
	want := "200\t/docs/a.html\n0\t/docs/a.bin\n"
	if out != want {
		t.Errorf("score output = %q, want %q", out, want)
	}

	out, err = runCmd(t, "score", "--base", "10", "file:///a.html?open-handler=code-editor-ckeditor", "/docs/a.html")
	if err != nil {
		t.Fatalf("score error = %v", err)
	}
	want = "20\tfile:///a.html?open-handler=code-editor-ckeditor\n5\t/docs/a.html\n"
	if out != want {
		t.Errorf("score output = %q, want %q", out, want)
	}
}

func TestConfigCmd(t *testing.T) {
	out, err := runCmd(t, "--set", "sync.debounce=750ms", "config")
	if err != nil {
		t.Fatalf("config error = %v", err)
	}
	if !strings.Contains(out, "750ms") || !strings.Contains(out, "disabled") {
		t.Errorf("config output = %q", out)
	}
}

func TestBadOverrides(t *testing.T) {
	if _, err := runCmd(t, "--set", "nonsense", "config"); err == nil {
		t.Error("--set without = should fail")
	}
	if _, err := runCmd(t, "--set", "sync.debounce=0s", "config"); err == nil {
		t.Error("invalid override should fail validation")
	}
	if _, err := runCmd(t, "--log-level", "loud", "config"); err == nil {
		t.Error("invalid log level should fail validation")
	}
}
