package core

import (
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameOriginOf(t *testing.T) {
	r := httptest.NewRequest("GET", "https://cdn.example.com/app.js", nil)
	r.Header.Set("Referer", "https://example.com/page")
	assert.Equal(t, "https://example.com", frameOriginOf(r))

	// No Referer: the request is its own top-level document.
	direct := httptest.NewRequest("GET", "https://example.com/", nil)
	assert.Equal(t, "https://example.com", frameOriginOf(direct))

	withGarbageReferer := httptest.NewRequest("GET", "https://example.com/", nil)
	withGarbageReferer.Header.Set("Referer", "about:blank")
	assert.Equal(t, "", frameOriginOf(withGarbageReferer))
}

func TestGenerateAndLoadCA(t *testing.T) {
	dir := t.TempDir()
	certPath := filepath.Join(dir, "ca.crt")
	keyPath := filepath.Join(dir, "ca.key")

	require.NoError(t, GenerateAndSaveCA(certPath, keyPath))
	require.NoError(t, loadCA(certPath, keyPath))

	require.NotNil(t, caCert)
	require.NotNil(t, caKey)
	assert.True(t, caCert.IsCA)
	assert.Contains(t, caCert.Subject.CommonName, "privacyguard")
}

func TestLoadCAMissingFiles(t *testing.T) {
	dir := t.TempDir()
	err := loadCA(filepath.Join(dir, "missing.crt"), filepath.Join(dir, "missing.key"))
	assert.Error(t, err)
}
