package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// DirFeeder yields the page images already present in a directory, sorted by
// name, then reports exhaustion.
type DirFeeder struct {
	files []string
	next  int
}

func NewDirFeeder(dir string) (*DirFeeder, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() && IsPageImage(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	return &DirFeeder{files: files}, nil
}

// Len returns the number of pages found.
func (f *DirFeeder) Len() int {
	return len(f.files)
}

func (f *DirFeeder) Next(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Failure(err)
	}
	if f.next >= len(f.files) {
		return Exhausted()
	}
	path := f.files[f.next]
	f.next++
	return loadPage(path)
}

func (f *DirFeeder) Close() error {
	return nil
}
