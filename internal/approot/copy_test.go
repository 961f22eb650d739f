package approot_test

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/xuan-brain/xuan-brain/internal/approot"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestCountFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a", "one.txt"), "1")
	writeFile(t, filepath.Join(dir, "a", "b", "two.txt"), "2")
	writeFile(t, filepath.Join(dir, "c", "three.txt"), "3")

	got, err := approot.CountFiles(filepath.Join(dir, "a"), filepath.Join(dir, "c"), filepath.Join(dir, "missing"))
	if err != nil {
		t.Fatalf("CountFiles: %v", err)
	}
	if got != 3 {
		t.Errorf("CountFiles = %d, want 3", got)
	}
}

func TestCountFiles_EmptyAndMissing(t *testing.T) {
	dir := t.TempDir()
	got, err := approot.CountFiles(dir, filepath.Join(dir, "nope"))
	if err != nil {
		t.Fatalf("CountFiles: %v", err)
	}
	if got != 0 {
		t.Errorf("CountFiles = %d, want 0", got)
	}
}

func TestCopyTree_PreservesRelativePaths(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src")
	dst := filepath.Join(t.TempDir(), "dst")
	writeFile(t, filepath.Join(src, "a", "b.pdf"), "pdf-bytes")
	writeFile(t, filepath.Join(src, "top.txt"), "top")
	if err := os.MkdirAll(filepath.Join(src, "empty"), 0755); err != nil {
		t.Fatalf("mkdir empty: %v", err)
	}

	var copied []string
	if err := approot.CopyTree(src, dst, func(rel string) { copied = append(copied, rel) }); err != nil {
		t.Fatalf("CopyTree: %v", err)
	}

	sort.Strings(copied)
	want := []string{filepath.Join("a", "b.pdf"), "top.txt"}
	if len(copied) != len(want) || copied[0] != want[0] || copied[1] != want[1] {
		t.Errorf("copied = %v, want %v", copied, want)
	}

	content, err := os.ReadFile(filepath.Join(dst, "a", "b.pdf"))
	if err != nil {
		t.Fatalf("read copied file: %v", err)
	}
	if string(content) != "pdf-bytes" {
		t.Errorf("content = %q, want %q", content, "pdf-bytes")
	}
	if info, err := os.Stat(filepath.Join(dst, "empty")); err != nil || !info.IsDir() {
		t.Errorf("empty directory not recreated: %v", err)
	}
}

func TestCopyTree_MissingSourceIsNoop(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "dst")
	if err := approot.CopyTree(filepath.Join(t.TempDir(), "missing"), dst, nil); err != nil {
		t.Fatalf("CopyTree: %v", err)
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Errorf("dst should not be created for a missing source, stat err = %v", err)
	}
}

func TestCopyTree_ReportsFailingPath(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src")
	writeFile(t, filepath.Join(src, "doc.txt"), "x")

	// A regular file where the destination directory should go.
	blocker := filepath.Join(t.TempDir(), "blocker")
	writeFile(t, blocker, "not a dir")

	err := approot.CopyTree(src, blocker, nil)
	if err == nil {
		t.Fatal("CopyTree onto a file should fail")
	}
	var pe *os.PathError
	if !errors.As(err, &pe) {
		t.Fatalf("error %v is not *os.PathError", err)
	}
	if pe.Path == "" {
		t.Error("PathError.Path should name the failing entry")
	}
}

func TestCopyFile_Content(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "x.sqlite")
	writeFile(t, src, "sqlite-content")

	dst := filepath.Join(dir, "nested", "copy.sqlite")
	if err := approot.CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile: %v", err)
	}
	content, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read dst: %v", err)
	}
	if string(content) != "sqlite-content" {
		t.Errorf("content = %q, want %q", content, "sqlite-content")
	}
}

func TestCopyFile_MissingSource(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "out")
	if err := approot.CopyFile(filepath.Join(dir, "nope"), dst); err == nil {
		t.Fatal("CopyFile of a missing source should fail")
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Error("no destination file should be left behind")
	}
}
