package scanner

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePage(t *testing.T, dir, name string, width int) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, width, 8))
	img.Set(0, 0, color.White)

	tmp := filepath.Join(dir, ".partial-"+name)
	require.NoError(t, imaging.Save(img, tmp))
	require.NoError(t, os.Rename(tmp, filepath.Join(dir, name)))
}

func TestDirFeeder(t *testing.T) {
	dir := t.TempDir()
	writePage(t, dir, "page-2.png", 20)
	writePage(t, dir, "page-1.png", 10)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	f, err := NewDirFeeder(dir)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, 2, f.Len())

	ctx := context.Background()
	first := f.Next(ctx)
	require.Equal(t, KindPage, first.Kind)
	assert.Equal(t, "page-1.png", first.Name)
	assert.Equal(t, 10, first.Page.Bounds().Dx())

	second := f.Next(ctx)
	require.Equal(t, KindPage, second.Kind)
	assert.Equal(t, "page-2.png", second.Name)

	last := f.Next(ctx)
	assert.Equal(t, KindExhausted, last.Kind)
	assert.True(t, last.Terminal())
}

func TestDirFeederCorruptPage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.png"), []byte("not png"), 0644))

	f, err := NewDirFeeder(dir)
	require.NoError(t, err)

	r := f.Next(context.Background())
	assert.Equal(t, KindError, r.Kind)
	assert.Error(t, r.Err)
	assert.True(t, r.Terminal())
}

func TestDirFeederCancelled(t *testing.T) {
	dir := t.TempDir()
	writePage(t, dir, "a.png", 4)
	f, err := NewDirFeeder(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := f.Next(ctx)
	assert.Equal(t, KindError, r.Kind)
	assert.ErrorIs(t, r.Err, context.Canceled)
}

func TestNewDirFeederMissingDir(t *testing.T) {
	_, err := NewDirFeeder(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestWatchFeeder(t *testing.T) {
	dir := t.TempDir()
	writePage(t, dir, "existing.png", 6)

	f, err := NewWatchFeeder(dir, WatchOptions{IdleTimeout: 500 * time.Millisecond, Settle: 20 * time.Millisecond}, nil)
	require.NoError(t, err)
	defer f.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	first := f.Next(ctx)
	require.Equal(t, KindPage, first.Kind, "%v", first.Err)
	assert.Equal(t, "existing.png", first.Name)

	writePage(t, dir, "dropped.png", 12)

	second := f.Next(ctx)
	require.Equal(t, KindPage, second.Kind, "%v", second.Err)
	assert.Equal(t, "dropped.png", second.Name)
	assert.Equal(t, 12, second.Page.Bounds().Dx())

	assert.Equal(t, KindExhausted, f.Next(ctx).Kind)
}

func TestWatchFeederCancelled(t *testing.T) {
	f, err := NewWatchFeeder(t.TempDir(), WatchOptions{IdleTimeout: time.Minute}, nil)
	require.NoError(t, err)
	defer f.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	r := f.Next(ctx)
	assert.Equal(t, KindError, r.Kind)
	assert.ErrorIs(t, r.Err, context.DeadlineExceeded)
}

func TestIsPageImage(t *testing.T) {
	assert.True(t, IsPageImage("/x/scan.PNG"))
	assert.True(t, IsPageImage("page.tiff"))
	assert.False(t, IsPageImage(".partial-page.png"))
	assert.False(t, IsPageImage("doc.pdf"))
}
