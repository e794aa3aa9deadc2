package frames2mod

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadManifest(t *testing.T) {
	t.Parallel()
	m, err := LoadManifest(filepath.Join("testdata", "aela.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "Aela", m.Name)
	assert.True(t, m.Switch)
	require.Len(t, m.Items, 2)

	c, err := ReadHashCatalog(strings.NewReader("Aela --> abc123\n"))
	require.NoError(t, err)
	set, err := m.Set(c)
	require.NoError(t, err)
	require.Len(t, set, 2)
	assert.Equal(t, "abc123", set[0].Hash)
	assert.Equal(t, "abc123", set[1].Hash)
	assert.Equal(t, filepath.Join("testdata", "frames"), set[0].Source)
	assert.Equal(t, 3, set[0].FrameCount)
	assert.True(t, set[0].StaticToggle)
	assert.Equal(t, 2, set[0].StaticFrame)
	assert.Equal(t, "/media/aela_alt.mp4", set[1].Source)
	assert.Equal(t, 12.5, set[1].FPS)
	assert.Zero(t, set[0].FPS)
	assert.Equal(t, filepath.Join("testdata", "thumb.png"), set[1].CustomStatic)
	assert.Empty(t, set[0].CustomStatic)
}

func TestManifestSetSingle(t *testing.T) {
	t.Parallel()
	m := &Manifest{
		Name: "Aela",
		Hash: "fff000",
		Items: []ManifestItem{
			{Source: "a.gif", Width: 64, Height: 64},
			{Source: "b.gif", Width: 64, Height: 64},
		},
	}
	set, err := m.Set(nil)
	require.NoError(t, err)
	require.Len(t, set, 1)
	assert.Equal(t, "fff000", set[0].Hash)
	assert.Equal(t, "a.gif", set[0].Source)
	require.NoError(t, set.Validate())

	_, err = (&Manifest{Name: "Aela"}).Set(nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLoadManifestErrors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	_, err := LoadManifest(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("items: {source: [\n"), 0o644))
	_, err = LoadManifest(bad)
	assert.Error(t, err)
}
