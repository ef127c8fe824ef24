package input

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandPlainValue(t *testing.T) {
	got, err := Expand("leak under the basin")
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if got != "leak under the basin" {
		t.Errorf("got %q", got)
	}
}

func TestExpandFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "description.txt")
	if err := os.WriteFile(path, []byte("line one\nline two\n"), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	got, err := Expand("@" + path)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if got != "line one\nline two" {
		t.Errorf("got %q", got)
	}
}

func TestExpandMissingFile(t *testing.T) {
	_, err := Expand("@" + filepath.Join(t.TempDir(), "missing.txt"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
