package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandFlags(t *testing.T) {
	cmd := newRootCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--config", "custom.yaml", "--addr", ":9090", "--log-level", "debug"}))

	for name, want := range map[string]string{"config": "custom.yaml", "addr": ":9090", "log-level": "debug"} {
		got, err := cmd.Flags().GetString(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestRootCommandRejectsArgs(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{"extra"})
	assert.Error(t, cmd.ExecuteContext(context.Background()))
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pipeline:\n  pattern: '(\\d{9}'\n"), 0644))

	cmd := newRootCommand()
	cmd.SetArgs([]string{"--config", path})
	assert.ErrorContains(t, cmd.ExecuteContext(context.Background()), "invalid configuration")
}
