// Package security keeps file access of the tool surface inside the
// configured workspace directory.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathValidator resolves caller-supplied paths against the workspace
// directory and rejects anything that escapes it, symlinks included.
type PathValidator struct {
	directory string
}

// NewPathValidator creates a validator rooted at directory. The directory
// does not have to exist yet; paths are rejected until it does.
func NewPathValidator(directory string) (*PathValidator, error) {
	if directory == "" {
		return nil, fmt.Errorf("configured directory cannot be empty")
	}
	abs, err := filepath.Abs(directory)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve configured directory: %w", err)
	}
	return &PathValidator{directory: filepath.Clean(abs)}, nil
}

// Directory returns the absolute workspace directory.
func (v *PathValidator) Directory() string {
	return v.directory
}

// Resolve returns the absolute path of an existing file inside the workspace.
// Relative paths are taken relative to the workspace.
func (v *PathValidator) Resolve(path string) (string, error) {
	abs, err := v.absolute(path)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(abs)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("file does not exist: %s", path)
	}
	if err != nil {
		return "", fmt.Errorf("cannot access file: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("path is a directory, not a file: %s", path)
	}

	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	if !v.contains(real) {
		return "", fmt.Errorf("path is outside configured directory: %s", path)
	}
	return abs, nil
}

// OutputPath returns where a file called name is written: the base name
// joined to the workspace directory.
func (v *PathValidator) OutputPath(name string) (string, error) {
	name = strings.ReplaceAll(name, "\x00", "")
	base := filepath.Base(name)
	if base == "." || base == ".." || base == string(filepath.Separator) {
		return "", fmt.Errorf("invalid output name: %q", name)
	}
	if _, err := v.realDirectory(); err != nil {
		return "", err
	}
	return filepath.Join(v.directory, base), nil
}

func (v *PathValidator) absolute(path string) (string, error) {
	path = strings.ReplaceAll(path, "\x00", "")
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(v.directory, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	if !v.contains(abs) {
		return "", fmt.Errorf("path is outside configured directory: %s", path)
	}
	return abs, nil
}

func (v *PathValidator) realDirectory() (string, error) {
	real, err := filepath.EvalSymlinks(v.directory)
	if err != nil {
		return "", fmt.Errorf("configured directory is not accessible: %w", err)
	}
	return real, nil
}

// contains reports whether path lies inside the workspace, comparing against
// both the configured and the symlink-resolved directory.
func (v *PathValidator) contains(path string) bool {
	path = filepath.Clean(path)
	dirs := []string{v.directory}
	if real, err := v.realDirectory(); err == nil && real != v.directory {
		dirs = append(dirs, real)
	}
	for _, dir := range dirs {
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			continue
		}
		if rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
