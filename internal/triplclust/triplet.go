package triplclust

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/triplclust/internal/spatial"
)

// Triplet is three approximately collinear points. B is the middle point;
// A and C are its two branches with A < C by point index.
type Triplet struct {
	A, B, C   int
	Center    r3.Vec  // mean of the three points: the triplet's position on the curve
	Direction r3.Vec  // unit vector from A to C
	Span      float64 // distance from A to C
	Error     float64 // angle in radians between B-A and C-B; 0 is perfectly straight
}

// Points returns the point indices of the triplet.
func (t Triplet) Points() [3]int { return [3]int{t.A, t.B, t.C} }

// GenerateTriplets builds, for every point, the triplets formed with pairs of
// its k nearest neighbours whose branch angle is at most maxAngle, keeping
// the n straightest. Ties are broken by branch indices so the result depends
// only on the input, not on scheduling.
//
// The returned slice is grouped by middle point in ascending order.
func GenerateTriplets(positions []r3.Vec, k, n int, maxAngle float64, workers int) []Triplet {
	if len(positions) < 3 || k < 2 || n < 1 {
		return nil
	}

	index := spatial.NewKDIndex(positions)
	perPoint := make([][]Triplet, len(positions))

	parallelFor(len(positions), workers, func(lo, hi int) {
		for b := lo; b < hi; b++ {
			perPoint[b] = tripletsAt(positions, index.KNearest(b, k), b, n, maxAngle)
		}
	})

	total := 0
	for _, ts := range perPoint {
		total += len(ts)
	}
	triplets := make([]Triplet, 0, total)
	for _, ts := range perPoint {
		triplets = append(triplets, ts...)
	}
	return triplets
}

// tripletsAt returns the best n triplets centred on point b.
func tripletsAt(positions []r3.Vec, neighbours []spatial.Neighbour, b, n int, maxAngle float64) []Triplet {
	pb := positions[b]
	var candidates []Triplet

	for x := 0; x < len(neighbours); x++ {
		for y := x + 1; y < len(neighbours); y++ {
			a, c := neighbours[x].Index, neighbours[y].Index
			if a > c {
				a, c = c, a
			}
			pa, pc := positions[a], positions[c]
			ab := r3.Sub(pb, pa)
			bc := r3.Sub(pc, pb)
			if r3.Norm2(ab) == 0 || r3.Norm2(bc) == 0 {
				continue // duplicate of b carries no direction
			}
			angle := branchAngle(ab, bc)
			if angle > maxAngle {
				continue
			}
			ac := r3.Sub(pc, pa)
			span := r3.Norm(ac)
			candidates = append(candidates, Triplet{
				A:         a,
				B:         b,
				C:         c,
				Center:    r3.Scale(1.0/3, r3.Add(r3.Add(pa, pb), pc)),
				Direction: r3.Scale(1/span, ac),
				Span:      span,
				Error:     angle,
			})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		ci, cj := candidates[i], candidates[j]
		if ci.Error != cj.Error {
			return ci.Error < cj.Error
		}
		if ci.A != cj.A {
			return ci.A < cj.A
		}
		return ci.C < cj.C
	})
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	return candidates
}

// branchAngle returns the angle between two branch vectors, clamped against
// rounding so that exactly parallel vectors give 0.
func branchAngle(u, v r3.Vec) float64 {
	cos := r3.Cos(u, v)
	return math.Acos(math.Max(-1, math.Min(1, cos)))
}

// TripletDistance is the dissimilarity of two triplets: the larger of the two
// perpendicular distances from one triplet's centre to the other's line,
// divided by scale, plus the tangent of the angle between their directions.
// Perpendicular triplets are infinitely far apart. The measure is symmetric.
func TripletDistance(t1, t2 *Triplet, scale float64) float64 {
	cos := math.Min(1, math.Abs(r3.Dot(t1.Direction, t2.Direction)))
	if cos == 0 {
		return math.Inf(1)
	}
	tan := math.Sqrt(1-cos*cos) / cos

	diff := r3.Sub(t2.Center, t1.Center)
	perp1 := r3.Norm(r3.Cross(diff, t1.Direction))
	perp2 := r3.Norm(r3.Cross(diff, t2.Direction))
	return math.Max(perp1, perp2)/scale + tan
}
