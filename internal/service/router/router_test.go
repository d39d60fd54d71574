package router

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/feichai0017/idrouter/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validID = "123456782"

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0644))
}

func TestNextSequencedPath(t *testing.T) {
	t.Run("empty folder starts at one", func(t *testing.T) {
		root := t.TempDir()
		r := New(root, nil)

		path, err := r.NextSequencedPath(validID)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, validID, validID+"-1.pdf"), path)
		assert.DirExists(t, filepath.Join(root, validID))
	})

	t.Run("max plus one, not count plus one", func(t *testing.T) {
		root := t.TempDir()
		touch(t, filepath.Join(root, validID, validID+"-1.pdf"))
		touch(t, filepath.Join(root, validID, validID+"-3.pdf"))

		path, err := New(root, nil).NextSequencedPath(validID)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, validID, validID+"-4.pdf"), path)
	})

	t.Run("ignores unrelated names", func(t *testing.T) {
		root := t.TempDir()
		touch(t, filepath.Join(root, validID, validID+"-2.pdf"))
		touch(t, filepath.Join(root, validID, validID+"-x.pdf"))
		touch(t, filepath.Join(root, validID, "000000018-9.pdf"))
		touch(t, filepath.Join(root, validID, validID+"-9.txt"))

		path, err := New(root, nil).NextSequencedPath(validID)
		require.NoError(t, err)
		assert.Equal(t, validID+"-3.pdf", filepath.Base(path))
	})

	t.Run("idempotent until the file exists", func(t *testing.T) {
		root := t.TempDir()
		r := New(root, nil)

		first, err := r.NextSequencedPath(validID)
		require.NoError(t, err)
		second, err := r.NextSequencedPath(validID)
		require.NoError(t, err)
		assert.Equal(t, first, second)

		touch(t, first)
		third, err := r.NextSequencedPath(validID)
		require.NoError(t, err)
		assert.NotEqual(t, first, third)
	})

	t.Run("rejects invalid identifier", func(t *testing.T) {
		_, err := New(t.TempDir(), nil).NextSequencedPath("123456789")
		assert.ErrorIs(t, err, ErrInvalidIdentifier)
	})

	t.Run("flat fallback when folder cannot be created", func(t *testing.T) {
		root := t.TempDir()
		// a regular file where the identifier folder should go
		touch(t, filepath.Join(root, validID))
		log := logger.NewTestLogger()

		path, err := New(root, log).NextSequencedPath(validID)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, validID+".pdf"), path)
		assert.Equal(t, 1, log.Count("WARN", "Failed to create identifier folder"))

		touch(t, path)
		next, err := New(root, log).NextSequencedPath(validID)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, validID+"_1.pdf"), next)
	})
}

func TestNextFreePath(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, validID, validID+"-1.pdf"))
	touch(t, filepath.Join(root, validID, validID+"-3.pdf"))

	path, err := New(root, nil).NextFreePath(validID)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, validID, validID+"-2.pdf"), path)
}

func TestUnidentifiedPath(t *testing.T) {
	root := t.TempDir()
	r := New(root, nil)

	path, err := r.UnidentifiedPath("scan 01.pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, UnidentifiedDir, "scan 01.pdf"), path)

	touch(t, path)
	again, err := r.UnidentifiedPath("scan 01.pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, UnidentifiedDir, "scan 01_1.pdf"), again)
}

func TestSafeFilename(t *testing.T) {
	dir := t.TempDir()

	assert.Equal(t, filepath.Join(dir, "abc.pdf"), SafeFilename(dir, `a<b>:c"`, ".pdf"))
	assert.Equal(t, filepath.Join(dir, "ab.pdf"), SafeFilename(dir, `a/\|?*b`, ".pdf"))
	assert.Equal(t, filepath.Join(dir, "document.pdf"), SafeFilename(dir, "???", ".pdf"))

	touch(t, filepath.Join(dir, "x.pdf"))
	touch(t, filepath.Join(dir, "x_1.pdf"))
	assert.Equal(t, filepath.Join(dir, "x_2.pdf"), SafeFilename(dir, "x", ".pdf"))
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.pdf")
	touch(t, src)
	mtime := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, os.Chtimes(src, mtime, mtime))

	dst := filepath.Join(dir, "dst.pdf")
	require.NoError(t, CopyFile(src, dst))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(mtime))
	assert.FileExists(t, src)

	assert.Error(t, CopyFile(src, dst), "existing destination must not be overwritten")
}

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.pdf")
	touch(t, src)

	dst := filepath.Join(dir, "out", "moved.pdf")
	require.NoError(t, MoveFile(src, dst))
	assert.FileExists(t, dst)
	assert.NoFileExists(t, src)

	touch(t, src)
	assert.ErrorIs(t, MoveFile(src, dst), os.ErrExist)
	assert.FileExists(t, src)
}
