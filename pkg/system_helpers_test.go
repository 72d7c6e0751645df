package pkg

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
)

func writeTestFile(t *testing.T, fs afero.Fs, path string, size int) {
	t.Helper()

	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fs, path, make([]byte, size), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestDirSizeSumsNestedFiles(t *testing.T) {
	fs := afero.NewMemMapFs()

	writeTestFile(t, fs, "/root/a.bin", 10)
	writeTestFile(t, fs, "/root/nested/b.bin", 20)
	writeTestFile(t, fs, "/root/nested/deeper/still/c.bin", 30)
	fs.MkdirAll("/root/empty/dir", 0755)

	size, err := DirSize(fs, "/root")
	if err != nil {
		t.Fatal("Should not return error", err)
	}

	if size != 60 {
		t.Error("Incorrect size. Expected 60, found", size)
	}
}

func TestDirSizeOfEmptyDirectory(t *testing.T) {
	fs := afero.NewMemMapFs()
	fs.MkdirAll("/root/only/empty/dirs", 0755)

	size, err := DirSize(fs, "/root")
	if err != nil {
		t.Fatal("Should not return error", err)
	}

	if size != 0 {
		t.Error("Incorrect size. Expected 0, found", size)
	}
}

func TestDirSizeMissingRoot(t *testing.T) {
	fs := afero.NewMemMapFs()

	_, err := DirSize(fs, "/does-not-exist")

	var sizeErr *SizeAccountingError
	if !errors.As(err, &sizeErr) {
		t.Fatalf("Expected SizeAccountingError, got %v", err)
	}
	if sizeErr.Path != "/does-not-exist" {
		t.Errorf("Incorrect path in error: %s", sizeErr.Path)
	}
}

func TestDirSizeDoesNotFollowSymlinks(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()

	if err := os.WriteFile(filepath.Join(root, "real.bin"), make([]byte, 100), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(outside, "big.bin"), make([]byte, 5000), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(outside, filepath.Join(root, "linked-dir")); err != nil {
		t.Skip("symlinks not supported", err)
	}
	if err := os.Symlink(filepath.Join(root, "real.bin"), filepath.Join(root, "linked-file")); err != nil {
		t.Fatal(err)
	}

	size, err := DirSize(afero.NewOsFs(), root)
	if err != nil {
		t.Fatal("Should not return error", err)
	}

	if size != 100 {
		t.Error("Incorrect size. Expected 100, found", size)
	}
}

func TestDirSizeUnreadableSubtreeAborts(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}

	root := t.TempDir()
	locked := filepath.Join(root, "locked")

	if err := os.MkdirAll(locked, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(locked, "hidden.bin"), make([]byte, 10), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(locked, 0); err != nil {
		t.Fatal(err)
	}
	defer os.Chmod(locked, 0755)

	size, err := DirSize(afero.NewOsFs(), root)

	var sizeErr *SizeAccountingError
	if !errors.As(err, &sizeErr) {
		t.Fatalf("Expected SizeAccountingError, got %v", err)
	}
	if size != 0 {
		t.Error("Expected no partial size, found", size)
	}
}

func TestFileOrDirSize(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeTestFile(t, fs, "/root/a.bin", 7)
	writeTestFile(t, fs, "/root/b/c.bin", 8)

	fileSize, err := FileOrDirSize(fs, "/root/a.bin")
	if err != nil || fileSize != 7 {
		t.Errorf("Incorrect file size. Expected 7, found %d (%v)", fileSize, err)
	}

	dirSize, err := FileOrDirSize(fs, "/root")
	if err != nil || dirSize != 15 {
		t.Errorf("Incorrect dir size. Expected 15, found %d (%v)", dirSize, err)
	}
}
