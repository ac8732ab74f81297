package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644))
}

func TestDiscoverMainOnly(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Pulumi.yaml", "name: test\n")

	res, err := Discover(dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "Pulumi.yaml"), res.MainFile)
	require.Empty(t, res.AdditionalFiles)
	require.Equal(t, 1, res.FileCount)
}

func TestDiscoverOverlaysSortedLexicographically(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Pulumi.yaml", "name: test\n")
	writeFile(t, dir, "Pulumi.storage.yaml", "resources: {}\n")
	writeFile(t, dir, "Pulumi.bbb.yaml", "resources: {}\n")
	writeFile(t, dir, "notes.txt", "ignore me\n")

	res, err := Discover(dir)
	require.NoError(t, err)
	require.Equal(t, 3, res.FileCount)
	require.Equal(t, []string{
		filepath.Join(dir, "Pulumi.bbb.yaml"),
		filepath.Join(dir, "Pulumi.storage.yaml"),
	}, res.AdditionalFiles)
}

func TestDiscoverMissingMainIsFatal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Pulumi.storage.yaml", "resources: {}\n")

	_, err := Discover(dir)
	require.Error(t, err)
}

func TestDiscoverEmptyDirIsFatal(t *testing.T) {
	dir := t.TempDir()

	_, err := Discover(dir)
	require.Error(t, err)
}

func TestDiscoverMissingDirIsFatal(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "does-not-exist"))
	require.Error(t, err)
}
