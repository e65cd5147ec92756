package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func Test_RealFS_WriteFileAtomic_Replaces_Content_When_File_Exists(t *testing.T) {
	t.Parallel()

	fs := NewReal()
	path := filepath.Join(t.TempDir(), "doc.json")

	if err := os.WriteFile(path, []byte("old content that is longer"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	if err := fs.WriteFileAtomic(path, []byte("new")); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if string(got) != "new" {
		t.Fatalf("content=%q, want=%q", got, "new")
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("dir has %d entries, want 1 (temp file left behind?)", len(entries))
	}
}

func Test_RealFS_WriteFileAtomic_Returns_Error_When_Parent_Missing(t *testing.T) {
	t.Parallel()

	fs := NewReal()
	path := filepath.Join(t.TempDir(), "missing", "doc.json")

	if err := fs.WriteFileAtomic(path, []byte("x")); err == nil {
		t.Fatal("WriteFileAtomic succeeded, want error")
	}
}

func Test_RealFS_WriteFileAtomic_Creates_World_Readable_File(t *testing.T) {
	t.Parallel()

	fs := NewReal()
	path := filepath.Join(t.TempDir(), "doc.json")

	if err := fs.WriteFileAtomic(path, []byte("x")); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}

	if got, want := info.Mode().Perm(), NewFileMode; got != want {
		t.Fatalf("mode=%v, want=%v", got, want)
	}
}

func Test_RealFS_WriteFileAtomic_Keeps_Mode_Of_Replaced_File(t *testing.T) {
	t.Parallel()

	fs := NewReal()
	path := filepath.Join(t.TempDir(), "doc.json")

	if err := os.WriteFile(path, []byte("old"), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}

	// Chmod so the umask does not interfere.
	if err := os.Chmod(path, 0o640); err != nil {
		t.Fatalf("setup: %v", err)
	}

	if err := fs.WriteFileAtomic(path, []byte("new")); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}

	if got, want := info.Mode().Perm(), os.FileMode(0o640); got != want {
		t.Fatalf("mode=%v, want=%v", got, want)
	}
}
