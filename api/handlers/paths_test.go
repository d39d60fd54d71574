package handlers

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathPolicy(t *testing.T) {
	root := t.TempDir()
	p, err := NewPathPolicy(root, "  ")
	require.NoError(t, err)

	got, err := p.Resolve(filepath.Join(root, "a", "..", "b"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "b"), got)

	got, err = p.Resolve(root)
	require.NoError(t, err)
	assert.Equal(t, root, got)

	_, err = p.Resolve(filepath.Dir(root))
	assert.ErrorIs(t, err, ErrPathNotAllowed)
}

func TestPathPolicyWithoutRoots(t *testing.T) {
	p, err := NewPathPolicy()
	require.NoError(t, err)

	_, err = p.Resolve(t.TempDir())
	assert.ErrorIs(t, err, ErrPathNotAllowed)
}
