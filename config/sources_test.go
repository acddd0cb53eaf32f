package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSourcesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rss_sources.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadSources(t *testing.T) {
	path := writeSourcesFile(t, `{"PubMed-B": "https://b.example/rss", "PubMed-A": "https://a.example/rss"}`)

	sources, err := LoadSources(path)
	require.NoError(t, err)
	require.Len(t, sources, 2)

	// sorted by name for deterministic processing order
	assert.Equal(t, "PubMed-A", sources[0].Name)
	assert.Equal(t, "https://a.example/rss", sources[0].URL)
	assert.Equal(t, "PubMed-B", sources[1].Name)
}

func TestLoadSourcesMissingFile(t *testing.T) {
	_, err := LoadSources(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadSourcesInvalidJSON(t *testing.T) {
	path := writeSourcesFile(t, `{"PubMed-A": `)
	_, err := LoadSources(path)
	assert.Error(t, err)
}

func TestLoadSourcesEmptyMap(t *testing.T) {
	path := writeSourcesFile(t, `{}`)
	_, err := LoadSources(path)
	assert.Error(t, err)
}

func TestLoadSourcesEmptyURL(t *testing.T) {
	path := writeSourcesFile(t, `{"PubMed-A": ""}`)
	_, err := LoadSources(path)
	assert.Error(t, err)
}
