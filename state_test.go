package frames2mod

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "frames2mod.yaml")

	s, err := LoadState(path)
	require.NoError(t, err)
	assert.Empty(t, s.LastFolder)

	s.LastFolder = "D:/Mods/WWMI"
	require.NoError(t, s.Save(path))
	got, err := LoadState(path)
	require.NoError(t, err)
	assert.Equal(t, s, got)

	require.NoError(t, os.WriteFile(path, []byte("last_folder: [\n"), 0o644))
	_, err = LoadState(path)
	assert.Error(t, err)
}
