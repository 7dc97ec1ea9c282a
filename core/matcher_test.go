package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"privacyguard/models"
)

func TestLoadMatcherNormalizesEntries(t *testing.T) {
	m, err := LoadMatcher([]string{"DoubleClick.net", "tracker.example."})
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())
	assert.True(t, m.Blocked("doubleclick.net"))
	assert.True(t, m.Blocked("tracker.example"))
}

func TestLoadMatcherRejectsMalformedEntries(t *testing.T) {
	tests := []struct {
		name    string
		entries []string
	}{
		{"empty entry", []string{"doubleclick.net", ""}},
		{"scheme", []string{"https://doubleclick.net"}},
		{"path", []string{"doubleclick.net/ads"}},
		{"embedded whitespace", []string{"double click.net"}},
		{"only a dot", []string{"."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadMatcher(tt.entries)
			require.Error(t, err)
			var cfgErr *models.ConfigError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestLoadMatcherCollapsesDuplicates(t *testing.T) {
	m, err := LoadMatcher([]string{"doubleclick.net", "DOUBLECLICK.NET", "doubleclick.net."})
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())
}

func TestMatchSuffixRespectsLabelBoundaries(t *testing.T) {
	m, err := LoadMatcher([]string{"doubleclick.net", "google-analytics.com"})
	require.NoError(t, err)

	tests := []struct {
		host    string
		blocked bool
		entry   string
	}{
		{"doubleclick.net", true, "doubleclick.net"},
		{"ads.doubleclick.net", true, "doubleclick.net"},
		{"a.b.c.doubleclick.net", true, "doubleclick.net"},
		{"mydoubleclick.net", false, ""},
		{"evil-doubleclick.net", false, ""},
		{"doubleclick.net.evil.com", false, ""},
		{"net", false, ""},
		{"www.google-analytics.com", true, "google-analytics.com"},
		{"google.com", false, ""},
		{"", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			blocked, entry := m.Match(tt.host)
			assert.Equal(t, tt.blocked, blocked)
			assert.Equal(t, tt.entry, entry)
		})
	}
}

func TestMatchNormalizesLookupHost(t *testing.T) {
	m, err := LoadMatcher([]string{"doubleclick.net"})
	require.NoError(t, err)

	assert.True(t, m.Blocked("ADS.DOUBLECLICK.NET"))
	assert.True(t, m.Blocked("ads.doubleclick.net."))
	assert.True(t, m.Blocked("ads.doubleclick.net:443"))
}

func TestNormalizeHost(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Example.COM", "example.com"},
		{" example.com ", "example.com"},
		{"example.com.", "example.com"},
		{"example.com:8080", "example.com"},
		{"[::1]", "::1"},
		{"[2001:db8::1]:443", "2001:db8::1"},
		{"2001:db8::1", "2001:db8::1"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeHost(tt.in), "NormalizeHost(%q)", tt.in)
	}
}
