package source

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanup(t *testing.T) {
	root := t.TempDir()
	now := time.Now()

	stale := filepath.Join(root, ClonePrefix+"old")
	fresh := filepath.Join(root, ClonePrefix+"new")
	other := filepath.Join(root, "keep-me")
	for _, d := range []string{stale, fresh, other} {
		require.NoError(t, os.MkdirAll(filepath.Join(d, "app"), 0o755))
	}
	old := now.Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))
	require.NoError(t, os.Chtimes(other, old, old))

	n, err := Cleanup(root, 24*time.Hour, now, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.NoDirExists(t, stale)
	assert.DirExists(t, fresh)
	assert.DirExists(t, other)
}

func TestCleanup_MissingRoot(t *testing.T) {
	n, err := Cleanup(filepath.Join(t.TempDir(), "nope"), time.Hour, time.Now(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStaleClones(t *testing.T) {
	root := t.TempDir()
	now := time.Now()

	stale := filepath.Join(root, ClonePrefix+"old")
	require.NoError(t, os.MkdirAll(stale, 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ClonePrefix+"new"), 0o755))
	old := now.Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	dirs, err := StaleClones(root, time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, []string{stale}, dirs)
	assert.DirExists(t, stale, "listing removes nothing")
}
