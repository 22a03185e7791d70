package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestModuleRoot(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "internal", "pkg")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	gomod := "module example.com/demo\n\ngo 1.23\n"
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte(gomod), 0o644); err != nil {
		t.Fatal(err)
	}

	root, module, err := moduleRoot(sub)
	if err != nil {
		t.Fatal(err)
	}
	if module != "example.com/demo" {
		t.Errorf("module = %q, want example.com/demo", module)
	}
	want, err := filepath.Abs(dir)
	if err != nil {
		t.Fatal(err)
	}
	if root != want {
		t.Errorf("root = %q, want %q", root, want)
	}
}

func TestModuleRoot_NoModule(t *testing.T) {
	if _, _, err := moduleRoot(t.TempDir()); err == nil {
		t.Error("expected error outside any module")
	}
}
