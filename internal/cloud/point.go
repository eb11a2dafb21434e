// Package cloud owns the point and point-cloud types consumed and produced by
// the clustering engine.
//
// Key types: Point, PointCloud, ClusterPointCloud.
//
// Dependency rule: cloud depends only on gonum geometry. No clustering logic
// and no file formats live here.
package cloud

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Point is a 3D coordinate plus an optional chronological index.
// Points are treated as immutable once they are in a cloud.
type Point struct {
	X, Y, Z float64
	Index   int // chronological order, only used for display and debug output
}

// NewPoint returns a point with its index set to -1 (unknown order).
func NewPoint(x, y, z float64) Point {
	return Point{X: x, Y: y, Z: z, Index: -1}
}

// Vec returns the position as a gonum vector.
func (p Point) Vec() r3.Vec {
	return r3.Vec{X: p.X, Y: p.Y, Z: p.Z}
}

// WithPosition returns a copy of p moved to v. The index is retained.
func (p Point) WithPosition(v r3.Vec) Point {
	p.X, p.Y, p.Z = v.X, v.Y, v.Z
	return p
}

func (p Point) String() string {
	return fmt.Sprintf("(%g, %g, %g)", p.X, p.Y, p.Z)
}
