package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandSourcesBaseNames(t *testing.T) {
	out, err := expandSources([]string{"/media/clips/bunny.y4m", "city.png", "ocean"})
	require.NoError(t, err)
	assert.Equal(t, []string{"bunny", "city", "ocean"}, out)
}

func TestExpandSourcesListFile(t *testing.T) {
	dir := t.TempDir()
	list := filepath.Join(dir, "sources.txt")
	content := "# test corpus\n\n/media/clips/bunny.y4m\ncity.png\n"
	require.NoError(t, os.WriteFile(list, []byte(content), 0o644))

	out, err := expandSources([]string{list, "ocean.y4m"})
	require.NoError(t, err)
	assert.Equal(t, []string{"bunny", "city", "ocean"}, out)
}

func TestExpandSourcesRejectsNestedLists(t *testing.T) {
	dir := t.TempDir()
	list := filepath.Join(dir, "outer.txt")
	require.NoError(t, os.WriteFile(list, []byte("inner.txt\n"), 0o644))

	_, err := expandSources([]string{list})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nested")
}

func TestExpandSourcesMissingListFile(t *testing.T) {
	_, err := expandSources([]string{filepath.Join(t.TempDir(), "absent.txt")})
	require.Error(t, err)
}
