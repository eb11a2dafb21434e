package spatial

import (
	"math"
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func linePositions(n int, spacing float64) []r3.Vec {
	out := make([]r3.Vec, n)
	for i := range out {
		out[i] = r3.Vec{X: float64(i) * spacing}
	}
	return out
}

func randomPositions(seed uint64, n int, extent float64) []r3.Vec {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([]r3.Vec, n)
	for i := range out {
		out[i] = r3.Vec{
			X: rng.Float64() * extent,
			Y: rng.Float64() * extent,
			Z: rng.Float64() * extent,
		}
	}
	return out
}

// bruteKNearest is the reference implementation for KNearest.
func bruteKNearest(positions []r3.Vec, i, k int) []Neighbour {
	var all []Neighbour
	for j, p := range positions {
		if j == i {
			continue
		}
		all = append(all, Neighbour{Index: j, Dist2: r3.Norm2(r3.Sub(p, positions[i]))})
	}
	sortNeighbours(all)
	if len(all) > k {
		all = all[:k]
	}
	return all
}

func TestKDIndex_KNearestMatchesBruteForce(t *testing.T) {
	t.Parallel()

	positions := randomPositions(7, 300, 10)
	idx := NewKDIndex(positions)
	require.Equal(t, 300, idx.Len())

	for _, i := range []int{0, 17, 150, 299} {
		got := idx.KNearest(i, 8)
		want := bruteKNearest(positions, i, 8)
		assert.Equal(t, want, got, "point %d", i)
	}
}

func TestKDIndex_KNearestTiesBrokenByIndex(t *testing.T) {
	t.Parallel()

	// On an evenly spaced line, point 5 has two neighbours at every distance.
	positions := linePositions(11, 1.0)
	idx := NewKDIndex(positions)

	got := idx.KNearest(5, 3)
	require.Len(t, got, 3)
	assert.Equal(t, 4, got[0].Index)
	assert.Equal(t, 6, got[1].Index)
	assert.Equal(t, 3, got[2].Index)
	assert.InDelta(t, 2.0, got[2].Dist(), 1e-12)
}

func TestKDIndex_DegenerateInputs(t *testing.T) {
	t.Parallel()

	empty := NewKDIndex(nil)
	assert.Nil(t, empty.KNearest(0, 3))
	assert.Nil(t, empty.Within(r3.Vec{}, 1))

	single := NewKDIndex([]r3.Vec{{X: 1}})
	assert.Nil(t, single.KNearest(0, 3))
	assert.True(t, math.IsInf(single.NearestDistance2(0), 1))

	// Fewer points than k: return everything available.
	three := NewKDIndex(linePositions(3, 1))
	assert.Len(t, three.KNearest(0, 10), 2)
}

func TestKDIndex_DuplicatePoints(t *testing.T) {
	t.Parallel()

	positions := []r3.Vec{{X: 1}, {X: 1}, {X: 3}}
	idx := NewKDIndex(positions)
	assert.Equal(t, 0.0, idx.NearestDistance2(0))
	assert.Equal(t, 1, idx.KNearest(0, 1)[0].Index)
}

func TestKDIndex_Within(t *testing.T) {
	t.Parallel()

	idx := NewKDIndex(linePositions(10, 1.0))
	got := idx.Within(r3.Vec{X: 4}, 1.0)

	indices := make([]int, len(got))
	for i, n := range got {
		indices[i] = n.Index
	}
	assert.Equal(t, []int{4, 3, 5}, indices)
	assert.Empty(t, idx.Within(r3.Vec{X: 100}, 1.0))
}

func TestGrid_RegionQuery(t *testing.T) {
	t.Parallel()

	g := NewGrid(1.0)
	g.Build(linePositions(10, 1.0))

	assert.Equal(t, []int{3, 4, 5}, g.RegionQuery(4, 1.0))
	// eps larger than the cell size must still reach every cell.
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, g.RegionQuery(4, 3.0))
}

func TestGrid_NegativeCoordinates(t *testing.T) {
	t.Parallel()

	g := NewGrid(0.5)
	g.Build([]r3.Vec{{X: -0.1}, {X: 0.1}, {X: -2}})
	assert.Equal(t, []int{0, 1}, g.RegionQuery(0, 0.25))
}

func TestGrid_PairsMatchesBruteForce(t *testing.T) {
	t.Parallel()

	positions := randomPositions(11, 200, 5)
	const eps = 0.8

	g := NewGrid(eps)
	g.Build(positions)

	var got [][2]int
	g.Pairs(eps, func(i, j int, dist2 float64) {
		assert.InDelta(t, r3.Norm2(r3.Sub(positions[i], positions[j])), dist2, 1e-12)
		got = append(got, [2]int{i, j})
	})

	var want [][2]int
	for i := range positions {
		for j := i + 1; j < len(positions); j++ {
			if r3.Norm(r3.Sub(positions[i], positions[j])) <= eps {
				want = append(want, [2]int{i, j})
			}
		}
	}

	assert.True(t, sort.SliceIsSorted(got, func(a, b int) bool {
		if got[a][0] != got[b][0] {
			return got[a][0] < got[b][0]
		}
		return got[a][1] < got[b][1]
	}))
	assert.Equal(t, want, got)
}

func TestNewGrid_InvalidCellSize(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { NewGrid(0) })
	assert.Panics(t, func() { NewGrid(math.NaN()) })
	assert.Panics(t, func() { NewGrid(math.Inf(1)) })
}
