package cloud

import "gonum.org/v1/gonum/spatial/r3"

// PointCloud is an ordered sequence of points.
//
// is2D marks clouds whose z coordinate must be ignored in geometric tests.
// ordered marks clouds whose point order carries meaning (e.g. acquisition
// order); it only affects debug output.
type PointCloud struct {
	points  []Point
	is2D    bool
	ordered bool
}

// New creates an empty cloud with the given flags.
func New(is2D, ordered bool) *PointCloud {
	return &PointCloud{is2D: is2D, ordered: ordered}
}

// FromPoints creates a 3D, unordered cloud holding copies of points.
func FromPoints(points []Point) *PointCloud {
	pc := &PointCloud{points: make([]Point, len(points))}
	copy(pc.points, points)
	return pc
}

// FromXYZ creates a cloud from coordinate triples. Each point's Index is its
// position in xyz.
func FromXYZ(xyz [][3]float64) *PointCloud {
	pc := &PointCloud{points: make([]Point, len(xyz))}
	for i, c := range xyz {
		pc.points[i] = Point{X: c[0], Y: c[1], Z: c[2], Index: i}
	}
	return pc
}

// Is2D reports whether z is ignored in geometric tests.
func (pc *PointCloud) Is2D() bool { return pc.is2D }

// Set2D sets the 2D flag.
func (pc *PointCloud) Set2D(is2D bool) { pc.is2D = is2D }

// Ordered reports whether point order is meaningful.
func (pc *PointCloud) Ordered() bool { return pc.ordered }

// SetOrdered sets the ordered flag.
func (pc *PointCloud) SetOrdered(ordered bool) { pc.ordered = ordered }

// Len returns the number of points.
func (pc *PointCloud) Len() int { return len(pc.points) }

// Empty reports whether the cloud has no points.
func (pc *PointCloud) Empty() bool { return len(pc.points) == 0 }

// At returns the i-th point.
func (pc *PointCloud) At(i int) Point { return pc.points[i] }

// Append adds points to the end of the cloud.
func (pc *PointCloud) Append(points ...Point) {
	pc.points = append(pc.points, points...)
}

// Reserve grows the backing storage to hold at least n points.
func (pc *PointCloud) Reserve(n int) {
	if cap(pc.points) >= n {
		return
	}
	grown := make([]Point, len(pc.points), n)
	copy(grown, pc.points)
	pc.points = grown
}

// Points returns a copy of the points.
func (pc *PointCloud) Points() []Point {
	out := make([]Point, len(pc.points))
	copy(out, pc.points)
	return out
}

// Positions returns the positions used for geometric tests. For 2D clouds
// the z component is zeroed.
func (pc *PointCloud) Positions() []r3.Vec {
	out := make([]r3.Vec, len(pc.points))
	for i, p := range pc.points {
		out[i] = p.Vec()
		if pc.is2D {
			out[i].Z = 0
		}
	}
	return out
}

// Clone returns a deep copy. The clone never shares storage with pc.
func (pc *PointCloud) Clone() *PointCloud {
	return &PointCloud{
		points:  pc.Points(),
		is2D:    pc.is2D,
		ordered: pc.ordered,
	}
}

// WithPositions returns a new cloud with the same flags and point indices as
// pc but positions taken from vs. It panics if the lengths differ.
func (pc *PointCloud) WithPositions(vs []r3.Vec) *PointCloud {
	if len(vs) != len(pc.points) {
		panic("cloud: position count does not match cloud size")
	}
	out := &PointCloud{
		points:  make([]Point, len(pc.points)),
		is2D:    pc.is2D,
		ordered: pc.ordered,
	}
	for i, p := range pc.points {
		out.points[i] = p.WithPosition(vs[i])
	}
	return out
}

// Bounds returns the axis-aligned bounding box of the cloud. The second
// return is false for an empty cloud.
func (pc *PointCloud) Bounds() (r3.Box, bool) {
	if len(pc.points) == 0 {
		return r3.Box{}, false
	}
	box := r3.Box{Min: pc.points[0].Vec(), Max: pc.points[0].Vec()}
	for _, p := range pc.points[1:] {
		box.Min.X = min(box.Min.X, p.X)
		box.Min.Y = min(box.Min.Y, p.Y)
		box.Min.Z = min(box.Min.Z, p.Z)
		box.Max.X = max(box.Max.X, p.X)
		box.Max.Y = max(box.Max.Y, p.Y)
		box.Max.Z = max(box.Max.Z, p.Z)
	}
	return box, true
}
