package config

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDefaultConfigPaths(t *testing.T) {
	paths := GetDefaultConfigPaths()

	assert.True(t, strings.HasSuffix(paths.ConfigDir, "privacyguard"))
	assert.Equal(t, filepath.Join(paths.ConfigDir, "privacyguard.db"), paths.DBPath)
	assert.Equal(t, filepath.Join(paths.ConfigDir, "privacyguard-ca.crt"), paths.CACertPath)
	assert.Equal(t, filepath.Join(paths.ConfigDir, "privacyguard-ca.key"), paths.CAKeyPath)
	assert.NotEmpty(t, paths.LogPathApp)
	assert.NotEmpty(t, paths.LogPathProxy)
	assert.Equal(t, "INFO", paths.LogLevel)
}

func TestExpandTilde(t *testing.T) {
	expanded, err := expandTilde("~/x/y")
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(expanded, "~"))
	assert.True(t, strings.HasSuffix(expanded, filepath.Join("x", "y")))

	plain, err := expandTilde("/abs/path")
	require.NoError(t, err)
	assert.Equal(t, "/abs/path", plain)
}
