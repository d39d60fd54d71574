package router

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/feichai0017/idrouter/internal/utils/validator"
	"github.com/feichai0017/idrouter/pkg/logger"
)

// UnidentifiedDir is the fallback bucket for documents without a valid identifier.
const UnidentifiedDir = "unidentified"

// ErrInvalidIdentifier is returned when a path is requested for an identifier
// that does not pass the checksum.
var ErrInvalidIdentifier = errors.New("invalid identifier")

var unsafeChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// Router computes destination paths under a root directory. It never
// returns a path that exists at the time of the call.
type Router struct {
	root   string
	logger logger.Logger
}

// New creates a router rooted at root.
func New(root string, log logger.Logger) *Router {
	if log == nil {
		log = logger.NewNop()
	}
	return &Router{
		root:   root,
		logger: log.Named("router"),
	}
}

// Root returns the destination root.
func (r *Router) Root() string {
	return r.root
}

// NextSequencedPath returns <root>/<id>/<id>-<n>.pdf with n one above the
// highest sequence already present. Gaps are never reused.
func (r *Router) NextSequencedPath(id string) (string, error) {
	id, dir, err := r.idFolder(id)
	if err != nil {
		return "", err
	}
	if dir == "" {
		return r.flatPath(id)
	}

	next := maxSequence(dir, id) + 1
	for {
		path := filepath.Join(dir, sequencedName(id, next))
		if !exists(path) {
			return path, nil
		}
		// a non-canonical name such as id-07.pdf can shadow the canonical one
		next++
	}
}

// NextFreePath returns <root>/<id>/<id>-<n>.pdf with the smallest n >= 1 not
// in use.
func (r *Router) NextFreePath(id string) (string, error) {
	id, dir, err := r.idFolder(id)
	if err != nil {
		return "", err
	}
	if dir == "" {
		return r.flatPath(id)
	}

	for n := 1; ; n++ {
		path := filepath.Join(dir, sequencedName(id, n))
		if !exists(path) {
			return path, nil
		}
	}
}

// UnidentifiedPath returns a free path for name inside <root>/unidentified.
func (r *Router) UnidentifiedPath(name string) (string, error) {
	dir := filepath.Join(r.root, UnidentifiedDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(filepath.Base(name), ext)
	if ext == "" {
		ext = ".pdf"
	}
	return SafeFilename(dir, base, ext), nil
}

// idFolder normalizes id and ensures <root>/<id> exists. An empty dir with a
// nil error means the folder could not be created and the caller should fall
// back to a flat name.
func (r *Router) idFolder(id string) (string, string, error) {
	if !validator.Validate(id) {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, id)
	}
	normalized, _ := validator.Normalize(id)

	dir := filepath.Join(r.root, normalized)
	if err := os.MkdirAll(dir, 0755); err != nil {
		r.logger.Warn("Failed to create identifier folder, using flat name",
			logger.String("path", dir),
			logger.Error(err),
		)
		return normalized, "", nil
	}
	return normalized, dir, nil
}

func (r *Router) flatPath(id string) (string, error) {
	if err := os.MkdirAll(r.root, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", r.root, err)
	}
	return SafeFilename(r.root, id, ".pdf"), nil
}

// SafeFilename strips characters that are illegal in file names from base and
// returns dir/base+ext, adding _1, _2, ... before ext until the path is free.
func SafeFilename(dir, base, ext string) string {
	safe := strings.TrimSpace(unsafeChars.ReplaceAllString(base, ""))
	if safe == "" {
		safe = "document"
	}

	path := filepath.Join(dir, safe+ext)
	for n := 1; exists(path); n++ {
		path = filepath.Join(dir, fmt.Sprintf("%s_%d%s", safe, n, ext))
	}
	return path
}

func sequencedName(id string, n int) string {
	return fmt.Sprintf("%s-%d.pdf", id, n)
}

// maxSequence returns the highest n among <id>-<n>.pdf files in dir, or 0.
func maxSequence(dir, id string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}

	prefix := id + "-"
	highest := 0
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, prefix) || !strings.EqualFold(filepath.Ext(name), ".pdf") {
			continue
		}
		n, err := strconv.Atoi(name[len(prefix) : len(name)-len(".pdf")])
		if err != nil || n < 0 {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return highest
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil || !errors.Is(err, os.ErrNotExist)
}
