package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNewGuard(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name         string
		workspaceDir string
		wantErr      bool
	}{
		{name: "valid existing directory", workspaceDir: tmpDir},
		{name: "current directory", workspaceDir: "."},
		{name: "empty directory", workspaceDir: "", wantErr: true},
		{name: "non-existent directory", workspaceDir: filepath.Join(tmpDir, "missing"), wantErr: true},
		{name: "regular file", workspaceDir: file, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guard, err := NewGuard(tt.workspaceDir)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewGuard() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && guard.Root() == "" {
				t.Error("NewGuard() created guard with empty root")
			}
		})
	}
}

func TestGuard_Resolve(t *testing.T) {
	tmpDir := t.TempDir()
	guard, err := NewGuard(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create guard: %v", err)
	}
	root := guard.Root()

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{name: "app document", path: "index.html", want: filepath.Join(root, "index.html")},
		{name: "screenshot not yet written", path: "jules-scratch/verification/dungeon_verification.png", want: filepath.Join(root, "jules-scratch", "verification", "dungeon_verification.png")},
		{name: "workspace root", path: ".", want: root},
		{name: "absolute inside", path: filepath.Join(root, "a.html"), want: filepath.Join(root, "a.html")},
		{name: "empty path", path: "", wantErr: true},
		{name: "parent traversal", path: "../outside.html", wantErr: true},
		{name: "hidden traversal", path: "sub/../../outside.html", wantErr: true},
		{name: "absolute outside", path: "/etc/passwd", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := guard.Resolve(tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Resolve(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestGuard_BoundaryError(t *testing.T) {
	guard, err := NewGuard(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	_, err = guard.Resolve("../escape.png")
	var boundary *BoundaryError
	if !errors.As(err, &boundary) {
		t.Fatalf("expected *BoundaryError, got %T: %v", err, err)
	}
	if boundary.Path != "../escape.png" {
		t.Errorf("Path = %q, want %q", boundary.Path, "../escape.png")
	}
}

func TestGuard_RequireFile(t *testing.T) {
	tmpDir := t.TempDir()
	guard, err := NewGuard(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "index.html"), []byte("<html></html>"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(tmpDir, "dir"), 0755); err != nil {
		t.Fatal(err)
	}

	if _, err := guard.RequireFile("index.html"); err != nil {
		t.Errorf("RequireFile(index.html) error = %v", err)
	}
	if _, err := guard.RequireFile("missing.html"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("RequireFile(missing.html) error = %v, want not-exist", err)
	}
	if _, err := guard.RequireFile("dir"); err == nil {
		t.Error("RequireFile(dir) should reject a directory")
	}
}

func TestGuard_Allow(t *testing.T) {
	guard, err := NewGuard(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	extra := filepath.Join(t.TempDir(), "history")

	outside := filepath.Join(extra, "history.db")
	if _, err := guard.Resolve(outside); err == nil {
		t.Fatal("expected path outside workspace to be rejected before Allow")
	}

	if err := guard.Allow(extra); err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if _, err := guard.Resolve(outside); err != nil {
		t.Errorf("Resolve() after Allow error = %v", err)
	}
}

func TestGuard_Rel(t *testing.T) {
	guard, err := NewGuard(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	rel, err := guard.Rel(filepath.Join(guard.Root(), "reports", "summary.md"))
	if err != nil {
		t.Fatalf("Rel() error = %v", err)
	}
	if rel != filepath.Join("reports", "summary.md") {
		t.Errorf("Rel() = %q", rel)
	}

	if _, err := guard.Rel("/etc/passwd"); err == nil {
		t.Error("Rel() should reject a path outside the workspace")
	}
}

func TestGuard_SymlinkSecurity(t *testing.T) {
	tmpDir := t.TempDir()
	outsideDir := t.TempDir()

	guard, err := NewGuard(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create guard: %v", err)
	}

	symlinkPath := filepath.Join(tmpDir, "link-to-outside")
	if err := os.Symlink(outsideDir, symlinkPath); err != nil {
		t.Skipf("Cannot create symlink (may need permissions): %v", err)
	}

	if _, err := guard.Resolve("link-to-outside/shot.png"); err == nil {
		t.Error("Resolve() should reject symlink pointing outside workspace")
	}
}
