// Package scanner feeds page images from a scanner into a batch scan loop.
package scanner

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// Kind 扫描结果类型
type Kind int

const (
	// KindPage carries one page image.
	KindPage Kind = iota
	// KindExhausted means the feeder has no more pages.
	KindExhausted
	// KindError means the transfer failed. It ends the scan like KindExhausted.
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindPage:
		return "page"
	case KindExhausted:
		return "exhausted"
	default:
		return "error"
	}
}

// Result is one step of a feeder.
type Result struct {
	Kind Kind
	Page image.Image
	Name string
	Err  error
}

// Terminal reports whether the scan loop should stop.
func (r Result) Terminal() bool {
	return r.Kind != KindPage
}

func Page(name string, img image.Image) Result { return Result{Kind: KindPage, Name: name, Page: img} }
func Exhausted() Result                      { return Result{Kind: KindExhausted} }
func Failure(err error) Result               { return Result{Kind: KindError, Err: err} }

// Feeder produces pages one at a time.
type Feeder interface {
	Next(ctx context.Context) Result
	Close() error
}

var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tif":  true,
	".tiff": true,
	".bmp":  true,
	".gif":  true,
}

// IsPageImage reports whether name looks like a scanned page. Hidden files
// are skipped so partially written uploads can use a dot-prefixed name.
func IsPageImage(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return imageExts[strings.ToLower(filepath.Ext(base))]
}

func loadPage(path string) Result {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return Failure(fmt.Errorf("failed to read page %s: %w", filepath.Base(path), err))
	}
	return Page(filepath.Base(path), img)
}
