package ids

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var idPattern = regexp.MustCompile(`^[BPH][0-9a-f]{8}$`)

func TestRandom_Mint(t *testing.T) {
	g := NewRandom()
	seen := make(map[string]bool)

	for i := 0; i < 1000; i++ {
		id, err := g.Mint(PrefixBiblio, "b1")
		require.NoError(t, err)
		assert.Regexp(t, idPattern, id)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestStable_Mint(t *testing.T) {
	a, err := NewStable("main-library").Mint(PrefixPatron, "p42")
	require.NoError(t, err)
	b, err := NewStable("main-library").Mint(PrefixPatron, "p42")
	require.NoError(t, err)

	assert.Regexp(t, idPattern, a)
	assert.Equal(t, a, b, "same source id yields the same id across runs")

	other, err := NewStable("branch").Mint(PrefixPatron, "p42")
	require.NoError(t, err)
	assert.NotEqual(t, a, other, "namespaces separate libraries")

	holding, err := NewStable("main-library").Mint(PrefixHolding, "p42")
	require.NoError(t, err)
	assert.Equal(t, "H", holding[:1])
}

func TestStable_SameSourceTwiceGetsDistinctIDs(t *testing.T) {
	g := NewStable("")
	first, err := g.Mint(PrefixBiblio, "b1")
	require.NoError(t, err)
	second, err := g.Mint(PrefixBiblio, "b1")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Regexp(t, idPattern, second)
}
