package handlers

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var ErrPathNotAllowed = errors.New("path is outside the allowed roots")

// PathPolicy confines server-side folders named in requests to a fixed set
// of roots. Symlinks are resolved where the path exists.
type PathPolicy struct {
	roots []string
}

// NewPathPolicy resolves roots to absolute paths. Empty entries are ignored;
// a policy without roots rejects every path.
func NewPathPolicy(roots ...string) (*PathPolicy, error) {
	p := &PathPolicy{}
	for _, root := range roots {
		if strings.TrimSpace(root) == "" {
			continue
		}
		abs, err := resolvePath(root)
		if err != nil {
			return nil, fmt.Errorf("invalid root %q: %w", root, err)
		}
		p.roots = append(p.roots, abs)
	}
	return p, nil
}

// Resolve returns the cleaned absolute form of path when it lies inside one
// of the roots. Only absolute paths are accepted.
func (p *PathPolicy) Resolve(path string) (string, error) {
	if !filepath.IsAbs(path) {
		return "", fmt.Errorf("%w: %s is not absolute", ErrPathNotAllowed, path)
	}
	abs, err := resolvePath(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPathNotAllowed, err)
	}
	for _, root := range p.roots {
		if within(root, abs) {
			return abs, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrPathNotAllowed, path)
}

func resolvePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real, nil
	}
	return abs, nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
