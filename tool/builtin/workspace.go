package builtin

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrPathRequired         = errors.New("tool path is required")
	ErrPathOutsideWorkspace = errors.New("tool path escapes workspace root")
)

// Workspace confines file tools to a root directory.
type Workspace struct {
	root string
}

// NewWorkspace resolves root to an existing absolute directory.
func NewWorkspace(root string) (Workspace, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return Workspace{}, fmt.Errorf("new workspace: root is required")
	}

	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return Workspace{}, fmt.Errorf("new workspace: resolve root: %w", err)
	}
	rootResolved, err := filepath.EvalSymlinks(rootAbs)
	if err != nil {
		if os.IsNotExist(err) {
			return Workspace{}, fmt.Errorf("new workspace: root does not exist: %q", rootAbs)
		}
		return Workspace{}, fmt.Errorf("new workspace: resolve root symlinks: %w", err)
	}

	info, err := os.Stat(rootResolved)
	if err != nil {
		return Workspace{}, fmt.Errorf("new workspace: stat root: %w", err)
	}
	if !info.IsDir() {
		return Workspace{}, fmt.Errorf("new workspace: root is not a directory: %q", rootResolved)
	}

	return Workspace{root: rootResolved}, nil
}

// Root returns the resolved workspace root.
func (w Workspace) Root() string { return w.root }

// Resolve maps a relative or absolute path to an absolute path inside the
// workspace. Symlinks in the existing prefix are followed before the
// containment check.
func (w Workspace) Resolve(raw string) (string, error) {
	path := strings.TrimSpace(raw)
	if path == "" {
		return "", ErrPathRequired
	}

	var candidate string
	if filepath.IsAbs(path) {
		candidate = filepath.Clean(path)
	} else {
		candidate = filepath.Join(w.root, filepath.Clean(path))
	}

	resolved, err := resolveExistingPrefix(candidate)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", path, err)
	}

	if !hasPathPrefix(w.root, resolved) {
		return "", fmt.Errorf("%w: %q", ErrPathOutsideWorkspace, path)
	}

	return resolved, nil
}

func resolveExistingPrefix(path string) (string, error) {
	current := path
	for {
		resolved, err := filepath.EvalSymlinks(current)
		if err == nil {
			rel, relErr := filepath.Rel(current, path)
			if relErr != nil {
				return "", relErr
			}
			return filepath.Clean(filepath.Join(resolved, rel)), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}
	return filepath.Clean(path), nil
}

func hasPathPrefix(root, candidate string) bool {
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
