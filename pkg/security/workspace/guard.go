// Package workspace keeps every path a run reads or writes inside the
// workspace directory: the app under test, the screenshot and the reports.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// BoundaryError reports a path that resolves outside every allowed root.
type BoundaryError struct {
	Path     string
	Resolved string
}

func (e *BoundaryError) Error() string {
	return fmt.Sprintf("path '%s' is outside workspace boundaries (resolves to %s)", e.Path, e.Resolved)
}

// Guard resolves paths against a workspace root and rejects any that escape
// it, including escapes through symlinks.
type Guard struct {
	root  string   // absolute, symlink-free workspace root
	extra []string // additional allowed roots, same form
}

// NewGuard creates a guard for workspaceDir, which must exist.
func NewGuard(workspaceDir string) (*Guard, error) {
	if workspaceDir == "" {
		return nil, fmt.Errorf("workspace directory cannot be empty")
	}
	root, err := canonicalDir(workspaceDir)
	if err != nil {
		return nil, fmt.Errorf("invalid workspace directory: %w", err)
	}
	return &Guard{root: root}, nil
}

func canonicalDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	eval, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(eval)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", eval)
	}
	return eval, nil
}

// Allow adds dir as a second root. It is created if missing.
func (g *Guard) Allow(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create allowed directory: %w", err)
	}
	root, err := canonicalDir(dir)
	if err != nil {
		return fmt.Errorf("invalid allowed directory: %w", err)
	}
	g.extra = append(g.extra, root)
	return nil
}

// Root returns the absolute workspace directory.
func (g *Guard) Root() string {
	return g.root
}

// Resolve turns path into an absolute, symlink-free path and checks it is
// inside an allowed root. Relative paths are taken from the workspace root.
// The path need not exist yet.
func (g *Guard) Resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	abs := filepath.Clean(path)
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(g.root, abs)
	}

	resolved := resolveExisting(abs)
	if !g.Contains(resolved) {
		return "", &BoundaryError{Path: path, Resolved: resolved}
	}
	return resolved, nil
}

// RequireFile resolves path and checks that it names an existing regular file.
func (g *Guard) RequireFile(path string) (string, error) {
	resolved, err := g.Resolve(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", resolved)
	}
	return resolved, nil
}

// Contains reports whether an absolute, resolved path is an allowed root or
// below one.
func (g *Guard) Contains(abs string) bool {
	for _, root := range append([]string{g.root}, g.extra...) {
		if abs == root || strings.HasPrefix(abs, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// Rel returns path relative to the workspace root, for display.
func (g *Guard) Rel(abs string) (string, error) {
	if !g.Contains(abs) {
		return "", &BoundaryError{Path: abs, Resolved: abs}
	}
	return filepath.Rel(g.root, abs)
}

// resolveExisting evaluates symlinks on the longest existing prefix of path
// and re-appends the rest, so paths to files not yet written still resolve.
func resolveExisting(path string) string {
	var tail []string
	current := path
	for {
		if eval, err := filepath.EvalSymlinks(current); err == nil {
			for i := len(tail) - 1; i >= 0; i-- {
				eval = filepath.Join(eval, tail[i])
			}
			return eval
		}
		parent := filepath.Dir(current)
		if parent == current {
			return path
		}
		tail = append(tail, filepath.Base(current))
		current = parent
	}
}
