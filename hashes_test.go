package frames2mod

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadHashCatalog(t *testing.T) {
	t.Parallel()
	c, err := LoadHashCatalog("testdata/UI_Hashes.txt")
	require.NoError(t, err)
	assert.Equal(t, 7, c.Len())

	h, ok := c.Lookup("aela")
	assert.True(t, ok)
	assert.Equal(t, "abc123", h)
	h, ok = c.Lookup(" JINHSI ")
	assert.True(t, ok)
	assert.Equal(t, "3d9e2b61", h)
	_, ok = c.Lookup("this line is broken")
	assert.False(t, ok)

	_, err = LoadHashCatalog("testdata/missing.txt")
	assert.Error(t, err)
}

func TestReadHashCatalogDuplicates(t *testing.T) {
	t.Parallel()
	c, err := ReadHashCatalog(strings.NewReader("Aela --> 1\naela --> 2\n --> 3\nX -->  \nA --> b --> c\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
	h, _ := c.Lookup("AELA")
	assert.Equal(t, "2", h)
}

func TestSuggest(t *testing.T) {
	t.Parallel()
	c, err := LoadHashCatalog("testdata/UI_Hashes.txt")
	require.NoError(t, err)

	assert.Equal(t, []string{"Changli"}, c.Suggest("chang", 5))
	assert.Equal(t, []string{"Calcharo"}, c.Suggest("calcaro", 5))
	assert.Equal(t, []string{"Aela"}, c.Suggest("ael", 2))
	assert.Equal(t, []string{"Baizhi", "Jinhsi"}, c.Suggest("i", 2))
	assert.Len(t, c.Suggest("a", 3), 3)
	assert.Empty(t, c.Suggest("zzzzzzzz", 5))
	assert.Empty(t, c.Suggest("", 5))
	assert.Empty(t, c.Suggest("aela", 0))
}
