// Package spatial provides the neighbour searches used by the clustering
// engine: a k-d tree over point positions for k-nearest and radius queries,
// and a regular grid for enumerating close pairs.
//
// All query results are ordered by (distance, index) so callers get the same
// answer regardless of how the tree happened to be partitioned.
package spatial

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// Neighbour is a search hit: the index of the point in the indexed slice and
// its squared distance from the query.
type Neighbour struct {
	Index int
	Dist2 float64
}

// Dist returns the Euclidean distance.
func (n Neighbour) Dist() float64 { return math.Sqrt(n.Dist2) }

// KDIndex answers nearest-neighbour queries over a fixed set of positions.
// It is read-only after construction and safe for concurrent use.
type KDIndex struct {
	positions []r3.Vec
	tree      *kdtree.Tree
}

// NewKDIndex builds an index over positions. The slice is not retained for
// writing; the tree holds its own copy.
func NewKDIndex(positions []r3.Vec) *KDIndex {
	pts := make(kdPoints, len(positions))
	for i, v := range positions {
		pts[i] = kdPoint{v: v, idx: i}
	}
	idx := &KDIndex{positions: positions}
	if len(pts) > 0 {
		idx.tree = kdtree.New(pts, false)
	}
	return idx
}

// Len returns the number of indexed points.
func (x *KDIndex) Len() int { return len(x.positions) }

// KNearest returns the k nearest neighbours of point i, excluding i itself.
// When several points tie at the k-th distance the lowest indices win.
func (x *KDIndex) KNearest(i, k int) []Neighbour {
	n := len(x.positions)
	if k <= 0 || n <= 1 || x.tree == nil {
		return nil
	}
	q := kdPoint{v: x.positions[i], idx: i}

	keep := kdtree.NewNKeeper(min(k+1, n))
	x.tree.NearestSet(keep, q)
	if keep.Len() == 0 {
		return nil
	}
	// The heap is sorted ascending after NearestSet, so the last element is
	// the k-th (or k+1-th, counting i) distance. Re-query by radius so that
	// every point tied at that distance is seen before truncating.
	radius := keep.Heap[keep.Len()-1].Dist
	hits := x.within(q, radius)

	out := make([]Neighbour, 0, k)
	for _, h := range hits {
		if h.Index == i {
			continue
		}
		out = append(out, h)
		if len(out) == k {
			break
		}
	}
	return out
}

// Within returns every indexed point within radius of q (inclusive).
func (x *KDIndex) Within(q r3.Vec, radius float64) []Neighbour {
	if x.tree == nil || radius < 0 {
		return nil
	}
	return x.within(kdPoint{v: q, idx: -1}, radius*radius)
}

// NearestDistance2 returns the squared distance from point i to its nearest
// other point, or +Inf if the cloud has a single point.
func (x *KDIndex) NearestDistance2(i int) float64 {
	nn := x.KNearest(i, 1)
	if len(nn) == 0 {
		return math.Inf(1)
	}
	return nn[0].Dist2
}

func (x *KDIndex) within(q kdPoint, radius2 float64) []Neighbour {
	keep := kdtree.NewDistKeeper(radius2)
	x.tree.NearestSet(keep, q)

	out := make([]Neighbour, 0, keep.Len())
	for _, c := range keep.Heap {
		p := c.Comparable.(kdPoint)
		out = append(out, Neighbour{Index: p.idx, Dist2: c.Dist})
	}
	sortNeighbours(out)
	return out
}

func sortNeighbours(ns []Neighbour) {
	sort.Slice(ns, func(a, b int) bool {
		if ns[a].Dist2 != ns[b].Dist2 {
			return ns[a].Dist2 < ns[b].Dist2
		}
		return ns[a].Index < ns[b].Index
	})
}

// kdPoint is a kdtree.Comparable carrying the point's index.
type kdPoint struct {
	v   r3.Vec
	idx int
}

func (p kdPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(kdPoint)
	switch d {
	case 0:
		return p.v.X - q.v.X
	case 1:
		return p.v.Y - q.v.Y
	case 2:
		return p.v.Z - q.v.Z
	default:
		panic("spatial: illegal dimension")
	}
}

func (p kdPoint) Dims() int { return 3 }

func (p kdPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(kdPoint)
	return r3.Norm2(r3.Sub(p.v, q.v))
}

type kdPoints []kdPoint

func (p kdPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p kdPoints) Len() int                              { return len(p) }
func (p kdPoints) Pivot(d kdtree.Dim) int                { return kdPlane{kdPoints: p, Dim: d}.Pivot() }
func (p kdPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

// kdPlane sorts kdPoints along one dimension for pivot selection.
type kdPlane struct {
	kdtree.Dim
	kdPoints
}

func (p kdPlane) Less(i, j int) bool {
	return p.kdPoints[i].Compare(p.kdPoints[j], p.Dim) < 0
}

func (p kdPlane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }

func (p kdPlane) Slice(start, end int) kdtree.SortSlicer {
	p.kdPoints = p.kdPoints[start:end]
	return p
}

func (p kdPlane) Swap(i, j int) {
	p.kdPoints[i], p.kdPoints[j] = p.kdPoints[j], p.kdPoints[i]
}
