package spatial

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

// EstimatedPointsPerCell is used for initial grid capacity estimation.
const EstimatedPointsPerCell = 4

// cellKey addresses one cube of the grid.
type cellKey struct {
	X, Y, Z int64
}

// Grid provides efficient fixed-radius neighbour queries using a regular 3D
// grid. Cell size should approximately match the query radius.
type Grid struct {
	CellSize  float64
	Cells     map[cellKey][]int // Cell → point indices, ascending
	positions []r3.Vec
}

// NewGrid creates a grid with the specified cell size. A non-positive or
// non-finite cell size panics: a zero radius would put every point in its own
// unreachable cell.
func NewGrid(cellSize float64) *Grid {
	if !(cellSize > 0) || math.IsInf(cellSize, 1) {
		panic("spatial: grid cell size must be positive and finite")
	}
	return &Grid{
		CellSize: cellSize,
		Cells:    make(map[cellKey][]int),
	}
}

// Build populates the grid from positions. The slice is retained and must
// not be modified while the grid is in use.
func (g *Grid) Build(positions []r3.Vec) {
	g.positions = positions
	g.Cells = make(map[cellKey][]int, len(positions)/EstimatedPointsPerCell+1)
	for i, p := range positions {
		key := g.cellOf(p)
		g.Cells[key] = append(g.Cells[key], i)
	}
}

func (g *Grid) cellOf(p r3.Vec) cellKey {
	return cellKey{
		X: int64(math.Floor(p.X / g.CellSize)),
		Y: int64(math.Floor(p.Y / g.CellSize)),
		Z: int64(math.Floor(p.Z / g.CellSize)),
	}
}

// reach returns how many cells in each direction must be visited to cover eps.
func (g *Grid) reach(eps float64) int64 {
	return max(1, int64(math.Ceil(eps/g.CellSize)))
}

// RegionQuery returns the indices of all points within eps of point idx,
// including idx itself, in ascending index order.
func (g *Grid) RegionQuery(idx int, eps float64) []int {
	neighbours := []int{}
	g.visit(g.positions[idx], eps, func(j int, _ float64) {
		neighbours = append(neighbours, j)
	})
	sort.Ints(neighbours)
	return neighbours
}

// Pairs calls fn once for every unordered pair (i, j), i < j, whose points lie
// within eps of each other. Pairs are produced in ascending (i, j) order.
func (g *Grid) Pairs(eps float64, fn func(i, j int, dist2 float64)) {
	type hit struct {
		j     int
		dist2 float64
	}
	var hits []hit
	for i, p := range g.positions {
		hits = hits[:0]
		g.visit(p, eps, func(j int, d2 float64) {
			if j > i {
				hits = append(hits, hit{j: j, dist2: d2})
			}
		})
		sort.Slice(hits, func(a, b int) bool { return hits[a].j < hits[b].j })
		for _, h := range hits {
			fn(i, h.j, h.dist2)
		}
	}
}

// visit calls fn for every point within eps of p.
func (g *Grid) visit(p r3.Vec, eps float64, fn func(j int, dist2 float64)) {
	eps2 := eps * eps // Use squared distance to avoid sqrt
	base := g.cellOf(p)
	r := g.reach(eps)

	for dx := -r; dx <= r; dx++ {
		for dy := -r; dy <= r; dy++ {
			for dz := -r; dz <= r; dz++ {
				key := cellKey{X: base.X + dx, Y: base.Y + dy, Z: base.Z + dz}
				for _, j := range g.Cells[key] {
					d2 := r3.Norm2(r3.Sub(g.positions[j], p))
					if d2 <= eps2 {
						fn(j, d2)
					}
				}
			}
		}
	}
}
