package optionsmodule

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteIfChangedWritesNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "options.zhcopt")
	wrote, _, err := WriteIfChanged(path, "side = host\n")
	if err != nil {
		t.Fatalf("WriteIfChanged: %v", err)
	}
	if !wrote {
		t.Error("expected wrote=true for a file that does not yet exist")
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "side = host\n" {
		t.Errorf("file contents = %q", got)
	}
}

func TestWriteIfChangedSkipsIdenticalContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "options.zhcopt")
	if _, _, err := WriteIfChanged(path, "side = host\n"); err != nil {
		t.Fatalf("first WriteIfChanged: %v", err)
	}
	wrote, diff, err := WriteIfChanged(path, "side = host\n")
	if err != nil {
		t.Fatalf("second WriteIfChanged: %v", err)
	}
	if wrote {
		t.Error("expected wrote=false when contents are unchanged")
	}
	if diff != "" {
		t.Errorf("expected empty diff for unchanged contents, got %q", diff)
	}
}

func TestWriteIfChangedRewritesOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "options.zhcopt")
	if _, _, err := WriteIfChanged(path, "side = host\n"); err != nil {
		t.Fatalf("first WriteIfChanged: %v", err)
	}
	wrote, diff, err := WriteIfChanged(path, "side = device\n")
	if err != nil {
		t.Fatalf("second WriteIfChanged: %v", err)
	}
	if !wrote {
		t.Error("expected wrote=true when contents differ")
	}
	if diff == "" {
		t.Error("expected a non-empty diff when contents differ")
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "side = device\n" {
		t.Errorf("file contents = %q", got)
	}
}
