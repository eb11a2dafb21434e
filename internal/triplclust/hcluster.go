package triplclust

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/triplclust/internal/spatial"
)

// Cluster is a set of triplets and the points they cover.
type Cluster struct {
	Triplets []int // triplet indices, ascending
	Points   []int // point indices; ascending, or ordered along the curve after gap splitting
}

// ClusterGroup is an ordered list of clusters.
type ClusterGroup []Cluster

// TripletCount returns the total number of triplets over all clusters.
func (g ClusterGroup) TripletCount() int {
	n := 0
	for _, c := range g {
		n += len(c.Triplets)
	}
	return n
}

// HCParams configures hierarchical clustering of triplets. All lengths are
// absolute.
type HCParams struct {
	Scale         float64 // s
	Threshold     float64 // t, used when AutoThreshold is false
	AutoThreshold bool
	MaxGap        float64 // dmax; 0 disables
	LinkRadius    float64 // candidate pair radius; 0 derives it from the triplets
	Linkage       Linkage
	Workers       int
}

// HCStats describes one hierarchical clustering pass.
type HCStats struct {
	Edges      int
	Merges     int
	LinkRadius float64
	Threshold  float64
}

// ComputeHC clusters triplets agglomeratively using TripletDistance and cuts
// the dendrogram at the fixed or automatic threshold. Every triplet ends up
// in exactly one cluster; unmerged triplets form singletons.
//
// Only triplet pairs whose centres lie within the link radius are compared.
// With dmax enabled the link radius is dmax, which also keeps clusters from
// bridging larger gaps.
func ComputeHC(triplets []Triplet, p HCParams) (ClusterGroup, HCStats) {
	stats := HCStats{LinkRadius: p.LinkRadius}
	if len(triplets) == 0 {
		stats.Threshold = p.Threshold
		return nil, stats
	}
	linkage := p.Linkage
	if linkage == nil {
		linkage = singleLinkage{}
	}
	switch {
	case p.MaxGap > 0:
		stats.LinkRadius = p.MaxGap
	case stats.LinkRadius <= 0:
		stats.LinkRadius = maxSpan(triplets)
	}

	edges := CandidateEdges(triplets, p.Scale, stats.LinkRadius, p.Workers)
	merges := linkage.Agglomerate(len(triplets), edges)
	stats.Edges = len(edges)
	stats.Merges = len(merges)

	stats.Threshold = p.Threshold
	if p.AutoThreshold {
		stats.Threshold = AutoThreshold(merges, p.Threshold)
	}

	groups := Cut(len(triplets), merges, stats.Threshold)
	out := make(ClusterGroup, len(groups))
	for i, g := range groups {
		out[i] = Cluster{Triplets: g}
	}
	return out, stats
}

// maxSpan returns the largest triplet span, the smallest radius at which
// overlapping triplets are always compared.
func maxSpan(triplets []Triplet) float64 {
	var m float64
	for _, t := range triplets {
		m = math.Max(m, t.Span)
	}
	if m == 0 {
		m = 1
	}
	return m
}

// CandidateEdges returns the finite triplet distances for every pair whose
// centres are within radius, sorted by (I, J).
func CandidateEdges(triplets []Triplet, scale, radius float64, workers int) []Edge {
	centers := make([]r3.Vec, len(triplets))
	for i, t := range triplets {
		centers[i] = t.Center
	}
	grid := spatial.NewGrid(radius)
	grid.Build(centers)

	perTriplet := make([][]Edge, len(triplets))
	parallelFor(len(triplets), workers, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			for _, j := range grid.RegionQuery(i, radius) {
				if j <= i {
					continue
				}
				d := TripletDistance(&triplets[i], &triplets[j], scale)
				if math.IsInf(d, 1) || math.IsNaN(d) {
					continue
				}
				perTriplet[i] = append(perTriplet[i], Edge{I: i, J: j, Dist: d})
			}
		}
	})

	var edges []Edge
	for _, es := range perTriplet {
		edges = append(edges, es...)
	}
	return edges
}

// AutoThreshold picks the cut height as the upper outlier fence of the merge
// heights, Q3 + 1.5*IQR, so that only anomalously large jumps split the
// dendrogram. The result is never below MinAutoThreshold. fallback is
// returned when there are no merges.
func AutoThreshold(merges []Merge, fallback float64) float64 {
	if len(merges) == 0 {
		return fallback
	}
	heights := make([]float64, len(merges))
	for i, m := range merges {
		heights[i] = m.Height
	}
	sort.Float64s(heights)
	q1 := stat.Quantile(0.25, stat.Empirical, heights, nil)
	q3 := stat.Quantile(0.75, stat.Empirical, heights, nil)
	return math.Max(MinAutoThreshold, q3+AutoThresholdIQRFactor*(q3-q1))
}
