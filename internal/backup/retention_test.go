package backup

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFakeSnapshots(t *testing.T, dir string, names []string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0600); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
}

func remainingNames(t *testing.T, dir string) map[string]bool {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read dir: %v", err)
	}
	names := make(map[string]bool)
	for _, e := range entries {
		names[e.Name()] = true
	}
	return names
}

func TestRotate(t *testing.T) {
	dir := t.TempDir()
	writeFakeSnapshots(t, dir, []string{
		"catalog-20240101-000000.backup",
		"catalog-20240102-000000.backup",
		"catalog-20240103-000000.backup",
		"catalog-20240104-000000.backup",
		"catalog-20240105-000000.backup",
	})

	if err := Rotate(dir, 3); err != nil {
		t.Fatalf("Rotate() error = %v", err)
	}

	names := remainingNames(t, dir)
	if len(names) != 3 {
		t.Fatalf("got %d snapshots after rotate, want 3: %v", len(names), names)
	}
	for _, want := range []string{
		"catalog-20240103-000000.backup",
		"catalog-20240104-000000.backup",
		"catalog-20240105-000000.backup",
	} {
		if !names[want] {
			t.Errorf("newest snapshot %s was deleted", want)
		}
	}
}

func TestRotateUnderLimit(t *testing.T) {
	dir := t.TempDir()
	writeFakeSnapshots(t, dir, []string{
		"catalog-20240101-000000.backup",
		"catalog-20240102-000000.backup",
	})

	if err := Rotate(dir, 5); err != nil {
		t.Fatalf("Rotate() error = %v", err)
	}
	if n := len(remainingNames(t, dir)); n != 2 {
		t.Errorf("got %d snapshots, want 2", n)
	}
}

func TestRotateMissingDir(t *testing.T) {
	if err := Rotate(filepath.Join(t.TempDir(), "nope"), 3); err != nil {
		t.Errorf("Rotate() on a missing dir error = %v", err)
	}
}

func TestRotateIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	writeFakeSnapshots(t, dir, []string{
		"catalog-20240101-000000.backup",
		"catalog-20240102-000000.backup",
		"notes.json",
	})
	if err := os.Mkdir(filepath.Join(dir, "catalog-subdir.backup"), 0700); err != nil {
		t.Fatalf("failed to create subdir: %v", err)
	}

	if err := Rotate(dir, 1); err != nil {
		t.Fatalf("Rotate() error = %v", err)
	}

	names := remainingNames(t, dir)
	if !names["notes.json"] {
		t.Error("rotation deleted an unrelated file")
	}
	if !names["catalog-subdir.backup"] {
		t.Error("rotation deleted a directory")
	}
	if !names["catalog-20240102-000000.backup"] {
		t.Error("rotation deleted the newest snapshot")
	}
	if names["catalog-20240101-000000.backup"] {
		t.Error("rotation kept the oldest snapshot")
	}
}
