package blob

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPutAndDelete(t *testing.T) {
	dir := t.TempDir()
	store := NewDiskStore(dir)

	url, err := store.Put("task-1/report.txt", []byte("contents"))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if !strings.HasPrefix(url, "file://") {
		t.Errorf("url = %s, want file:// prefix", url)
	}

	data, err := os.ReadFile(filepath.Join(dir, "task-1", "report.txt"))
	if err != nil {
		t.Fatalf("blob not on disk: %v", err)
	}
	if string(data) != "contents" {
		t.Errorf("blob contents = %q", data)
	}

	if err := store.Delete("task-1/report.txt"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	// Deleting again is not an error
	if err := store.Delete("task-1/report.txt"); err != nil {
		t.Errorf("second Delete failed: %v", err)
	}
}

func TestPutRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	store := NewDiskStore(dir)

	// Clean collapses the traversal back under the base dir; the write
	// must land inside it either way.
	url, err := store.Put("../escape.txt", []byte("x"))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if !strings.Contains(url, dir) {
		t.Errorf("blob escaped base dir: %s", url)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(dir), "escape.txt")); err == nil {
		t.Error("traversal wrote outside base dir")
	}
}
