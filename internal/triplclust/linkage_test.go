package triplclust

import (
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkageByName(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"", "single", "Complete", " average "} {
		l, err := LinkageByName(name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, l.Name())
	}

	l, err := LinkageByName("")
	require.NoError(t, err)
	assert.Equal(t, LinkageSingle, l.Name())

	_, err = LinkageByName("ward")
	assert.Error(t, err)
}

func TestSingleLinkage_Chain(t *testing.T) {
	t.Parallel()

	edges := []Edge{
		{I: 0, J: 3, Dist: 10},
		{I: 1, J: 2, Dist: 3},
		{I: 0, J: 1, Dist: 1},
		{I: 2, J: 3, Dist: 2},
	}
	l, _ := LinkageByName(LinkageSingle)
	merges := l.Agglomerate(4, edges)

	want := []Merge{
		{A: 0, B: 1, Height: 1},
		{A: 2, B: 3, Height: 2},
		{A: 1, B: 2, Height: 3},
	}
	if diff := cmp.Diff(want, merges); diff != "" {
		t.Errorf("merges mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, [][]int{{0, 1}, {2, 3}}, Cut(4, merges, 2.5))
	assert.Equal(t, [][]int{{0, 1, 2, 3}}, Cut(4, merges, 3))
	assert.Equal(t, [][]int{{0}, {1}, {2}, {3}}, Cut(4, merges, 0.5))
}

func TestLanceWilliams_UpdateRules(t *testing.T) {
	t.Parallel()

	edges := []Edge{
		{I: 0, J: 1, Dist: 1},
		{I: 1, J: 2, Dist: 2},
		{I: 0, J: 2, Dist: 5},
	}

	tests := []struct {
		linkage    string
		wantHeight float64
	}{
		{LinkageSingle, 2},
		{LinkageComplete, 5},
		{LinkageAverage, 3.5},
	}
	for _, tt := range tests {
		t.Run(tt.linkage, func(t *testing.T) {
			t.Parallel()
			l, err := LinkageByName(tt.linkage)
			require.NoError(t, err)
			merges := l.Agglomerate(3, edges)
			require.Len(t, merges, 2)
			assert.Equal(t, Merge{A: 0, B: 1, Height: 1}, merges[0])
			assert.InDelta(t, tt.wantHeight, merges[1].Height, 1e-12)
		})
	}
}

func TestLanceWilliams_MissingEdgeIsInfinite(t *testing.T) {
	t.Parallel()

	// 0 and 2 are never compared, so once 0 and 1 merge the pair is
	// infinitely far apart under complete and average linkage.
	edges := []Edge{
		{I: 0, J: 1, Dist: 1},
		{I: 1, J: 2, Dist: 2},
	}
	for _, name := range []string{LinkageComplete, LinkageAverage} {
		l, err := LinkageByName(name)
		require.NoError(t, err)
		merges := l.Agglomerate(3, edges)
		assert.Equal(t, []Merge{{A: 0, B: 1, Height: 1}}, merges, name)
	}

	single, _ := LinkageByName(LinkageSingle)
	assert.Len(t, single.Agglomerate(3, edges), 2)
}

func TestLinkage_HeightsNonDecreasing(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(3, 5))
	const n = 60
	var edges []Edge
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if rng.Float64() < 0.3 {
				edges = append(edges, Edge{I: i, J: j, Dist: rng.Float64() * 10})
			}
		}
	}

	for _, name := range []string{LinkageSingle, LinkageComplete, LinkageAverage} {
		l, err := LinkageByName(name)
		require.NoError(t, err)
		merges := l.Agglomerate(n, edges)
		require.NotEmpty(t, merges, name)
		assert.LessOrEqual(t, len(merges), n-1, name)
		assert.True(t, sort.SliceIsSorted(merges, func(a, b int) bool {
			return merges[a].Height < merges[b].Height
		}), "%s heights must be non-decreasing", name)

		// Cutting above every height must reproduce the final forest.
		groups := Cut(n, merges, 100)
		total := 0
		for _, g := range groups {
			total += len(g)
		}
		assert.Equal(t, n, total, name)
		assert.Equal(t, n-len(merges), len(groups), name)
	}
}

func TestLinkage_DuplicateEdgesKeepMinimum(t *testing.T) {
	t.Parallel()

	edges := []Edge{
		{I: 0, J: 1, Dist: 4},
		{I: 0, J: 1, Dist: 2},
	}
	for _, name := range []string{LinkageSingle, LinkageComplete, LinkageAverage} {
		l, _ := LinkageByName(name)
		merges := l.Agglomerate(2, edges)
		require.Len(t, merges, 1, name)
		assert.Equal(t, 2.0, merges[0].Height, name)
	}
}
