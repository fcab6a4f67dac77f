package migrate

import (
	"path/filepath"
	"testing"
)

func TestNewValidatesInputs(t *testing.T) {
	dir := t.TempDir()
	if _, err := New("", dir, nil); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
	if _, err := New("postgres://localhost/archon", "", nil); err == nil {
		t.Fatalf("expected error for empty dir")
	}
	if _, err := New("postgres://localhost/archon", filepath.Join(dir, "missing"), nil); err == nil {
		t.Fatalf("expected error for missing dir")
	}
	runner, err := New("postgres://localhost/archon", dir, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if runner.log == nil {
		t.Fatalf("expected default logger")
	}
}
