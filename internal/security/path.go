// Package security confines file access to the configured document and output
// directories.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ferrors "github.com/a3tai/mcp-legal-forms/internal/errors"
)

// PathValidator checks that paths stay inside a fixed set of root directories.
// The first root is the base for relative paths.
type PathValidator struct {
	roots []string
}

// NewPathValidator creates a validator for the given roots. Roots need not
// exist yet; empty entries after the first are ignored.
func NewPathValidator(base string, extra ...string) (*PathValidator, error) {
	if base == "" {
		return nil, fmt.Errorf("configured directory cannot be empty")
	}

	v := &PathValidator{}
	for _, dir := range append([]string{base}, extra...) {
		if dir == "" {
			continue
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve directory %s: %w", dir, err)
		}
		v.roots = append(v.roots, filepath.Clean(abs))
	}
	return v, nil
}

// BaseDirectory returns the directory relative paths are resolved against
func (v *PathValidator) BaseDirectory() string {
	return v.roots[0]
}

// Roots returns every allowed root
func (v *PathValidator) Roots() []string {
	out := make([]string, len(v.roots))
	copy(out, v.roots)
	return out
}

// Resolve returns the absolute form of path, resolving relative paths against
// the base directory, and rejects paths outside every root
func (v *PathValidator) Resolve(path string) (string, error) {
	path = strings.ReplaceAll(path, "\x00", "")
	if path == "" {
		return "", ferrors.New(ferrors.ErrorTypePathViolation, "path cannot be empty")
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(v.roots[0], path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", ferrors.Wrap(ferrors.ErrorTypePathViolation, "failed to resolve path", err).WithPath(path)
	}

	if !v.IsWithin(abs) {
		return "", ferrors.New(ferrors.ErrorTypePathViolation, "path is outside the configured directories").WithPath(path)
	}
	return abs, nil
}

// ValidatePath rejects paths outside every root
func (v *PathValidator) ValidatePath(path string) error {
	_, err := v.Resolve(path)
	return err
}

// ValidateDirectory checks that dir is inside a root and, when it exists, is a
// directory
func (v *PathValidator) ValidateDirectory(dir string) (string, error) {
	abs, err := v.Resolve(dir)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return abs, nil
		}
		return "", ferrors.Wrap(ferrors.ErrorTypePathViolation, "cannot access directory", err).WithPath(dir)
	}
	if !info.IsDir() {
		return "", ferrors.New(ferrors.ErrorTypePathViolation, "path is not a directory").WithPath(dir)
	}
	return abs, nil
}

// IsWithin reports whether an absolute path lies inside one of the roots. A
// path that exists is also checked after resolving symlinks.
func (v *PathValidator) IsWithin(abs string) bool {
	clean := filepath.Clean(abs)
	resolvedPath := clean
	if resolved, err := filepath.EvalSymlinks(clean); err == nil {
		resolvedPath = resolved
	}

	for _, root := range v.roots {
		realRoot := root
		if resolved, err := filepath.EvalSymlinks(root); err == nil {
			realRoot = resolved
		}
		if (under(clean, root) || under(clean, realRoot)) && (under(resolvedPath, root) || under(resolvedPath, realRoot)) {
			return true
		}
	}
	return false
}

func under(path, dir string) bool {
	if path == dir {
		return true
	}
	withSep := dir
	if !strings.HasSuffix(withSep, string(filepath.Separator)) {
		withSep += string(filepath.Separator)
	}
	return strings.HasPrefix(path, withSep)
}
