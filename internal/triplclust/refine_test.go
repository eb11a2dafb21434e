package triplclust

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/triplclust/internal/cloud"
)

func TestPruneSmall(t *testing.T) {
	t.Parallel()

	group := ClusterGroup{
		{Triplets: []int{0, 1, 2}},
		{Triplets: []int{3}},
		{Triplets: []int{4, 5}},
	}
	got := PruneSmall(group, 2)
	want := ClusterGroup{
		{Triplets: []int{0, 1, 2}},
		{Triplets: []int{4, 5}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("PruneSmall mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, PruneSmall(group, 4))
}

func TestTripletsToPoints(t *testing.T) {
	t.Parallel()

	triplets := []Triplet{
		{A: 0, B: 1, C: 2},
		{A: 1, B: 2, C: 3},
		{A: 7, B: 8, C: 9},
	}
	got := TripletsToPoints(triplets, ClusterGroup{
		{Triplets: []int{0, 1}},
		{Triplets: []int{2}},
	})
	assert.Equal(t, []int{0, 1, 2, 3}, got[0].Points)
	assert.Equal(t, []int{7, 8, 9}, got[1].Points)
	assert.Equal(t, []int{0, 1}, got[0].Triplets)
}

func TestSplitGaps(t *testing.T) {
	t.Parallel()

	// Points 0-4 at x=0..4, points 5-10 at x=10..15, points 11-12 far away.
	var positions []r3.Vec
	for i := 0; i < 5; i++ {
		positions = append(positions, r3.Vec{X: float64(i)})
	}
	for i := 0; i < 6; i++ {
		positions = append(positions, r3.Vec{X: float64(10 + i)})
	}
	positions = append(positions, r3.Vec{X: 40}, r3.Vec{X: 41})

	var triplets []Triplet
	for b := 1; b < len(positions)-1; b++ {
		triplets = append(triplets, Triplet{A: b - 1, B: b, C: b + 1})
	}
	all := make([]int, len(triplets))
	for i := range all {
		all[i] = i
	}
	group := TripletsToPoints(triplets, ClusterGroup{{Triplets: all}})

	got := SplitGaps(triplets, group, positions, 1.5, 3)
	require.Len(t, got, 2)

	assert.Equal(t, []int{0, 1, 2, 3, 4}, got[0].Points)
	assert.Equal(t, []int{5, 6, 7, 8, 9, 10}, got[1].Points)

	// Triplets straddling a gap belong to neither piece.
	for _, c := range got {
		for _, ti := range c.Triplets {
			tr := triplets[ti]
			pts := tr.Points()
			assert.Subset(t, c.Points, pts[:])
		}
	}
	assert.Equal(t, []int{0, 1, 2}, got[0].Triplets)
}

func TestSplitGaps_NoGapKeepsCluster(t *testing.T) {
	t.Parallel()

	positions := linePositions(10)
	triplets := GenerateTriplets(positions, 4, 1, 0.1, 1)
	all := make([]int, len(triplets))
	for i := range all {
		all[i] = i
	}
	group := TripletsToPoints(triplets, ClusterGroup{{Triplets: all}})

	got := SplitGaps(triplets, group, positions, 2, 3)
	require.Len(t, got, 1)
	assert.Equal(t, all, got[0].Triplets)
	assert.Len(t, got[0].Points, 10)
}

func TestOrderAlongCurve(t *testing.T) {
	t.Parallel()

	positions := []r3.Vec{
		{X: 3, Y: 3},
		{X: 0, Y: 0},
		{X: 2, Y: 2},
		{X: 1, Y: 1},
	}
	assert.Equal(t, []int{1, 3, 2, 0}, orderAlongCurve([]int{0, 1, 2, 3}, positions, 1.5))

	// Direction does not depend on the input order.
	assert.Equal(t, []int{1, 3, 2, 0}, orderAlongCurve([]int{2, 0, 3, 1}, positions, 1.5))

	assert.Equal(t, []int{0, 1}, orderAlongCurve([]int{1, 0}, positions, 1.5))
}

// uShape returns two vertical arms at x=0 and x=10 (y=0..30) joined by a
// bottom row at y=0. Arms come first in index order, the bottom last.
func uShape() []r3.Vec {
	var positions []r3.Vec
	for _, x := range []float64{0, 10} {
		for y := 0; y <= 30; y++ {
			positions = append(positions, r3.Vec{X: x, Y: float64(y)})
		}
	}
	for x := 1; x < 10; x++ {
		positions = append(positions, r3.Vec{X: float64(x)})
	}
	return positions
}

func TestSplitGaps_CurvedClusterKeepsCurveOrder(t *testing.T) {
	t.Parallel()

	positions := uShape()
	all := make([]int, len(positions))
	for i := range all {
		all[i] = i
	}

	const dmax = 1.5
	got := SplitGaps(nil, ClusterGroup{{Points: all}}, positions, dmax, 3)
	require.Len(t, got, 1)
	points := got[0].Points
	require.Len(t, points, 71)

	for i := 1; i < len(points); i++ {
		step := r3.Norm(r3.Sub(positions[points[i]], positions[points[i-1]]))
		assert.LessOrEqual(t, step, dmax, "step %d: %d -> %d", i, points[i-1], points[i])
	}
	// The walk runs from one arm tip to the other.
	assert.Equal(t, 30.0, positions[points[0]].Y)
	assert.Equal(t, 30.0, positions[points[len(points)-1]].Y)
	assert.NotEqual(t, positions[points[0]].X, positions[points[len(points)-1]].X)
}

func TestOrderAlongCurve_BranchWalksLongestArmLast(t *testing.T) {
	t.Parallel()

	// A line x=0..10 with a short spur of two points above x=3.
	var positions []r3.Vec
	for x := 0; x <= 10; x++ {
		positions = append(positions, r3.Vec{X: float64(x)})
	}
	positions = append(positions, r3.Vec{X: 3, Y: 1}, r3.Vec{X: 3, Y: 2})
	all := make([]int, len(positions))
	for i := range all {
		all[i] = i
	}

	got := orderAlongCurve(all, positions, 1.2)
	want := []int{0, 1, 2, 3, 11, 12, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, want, got)
}

func TestOrderClustersAndProjectLabels(t *testing.T) {
	t.Parallel()

	pc := cloud.FromXYZ(make([][3]float64, 8))
	group := OrderClusters(ClusterGroup{
		{Points: []int{5, 4, 6}},
		{Points: []int{2, 1, 3, 4}},
	})
	assert.Equal(t, []int{2, 1, 3, 4}, group[0].Points)

	labels := ProjectLabels(pc, group)
	assert.Equal(t, 2, labels.NumClusters())
	assert.Equal(t, []cloud.ClusterID{0, 1}, labels.Clusters(4), "crossing point belongs to both")
	assert.True(t, labels.IsNoise(0))
	assert.True(t, labels.IsNoise(7))
	assert.Equal(t, 2, labels.NoiseCount())
	assert.Equal(t, []int{4, 5, 6}, labels.Members(1))
}
