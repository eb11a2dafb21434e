package triplclust

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/triplclust/internal/spatial"
)

// PruneSmall drops clusters with fewer than m triplets.
func PruneSmall(group ClusterGroup, m int) ClusterGroup {
	out := make(ClusterGroup, 0, len(group))
	for _, c := range group {
		if len(c.Triplets) >= m {
			out = append(out, c)
		}
	}
	return out
}

// TripletsToPoints fills in the Points of every cluster as the sorted union
// of the points of its triplets.
func TripletsToPoints(triplets []Triplet, group ClusterGroup) ClusterGroup {
	out := make(ClusterGroup, len(group))
	for i, c := range group {
		seen := make(map[int]struct{}, 3*len(c.Triplets))
		for _, ti := range c.Triplets {
			for _, p := range triplets[ti].Points() {
				seen[p] = struct{}{}
			}
		}
		points := make([]int, 0, len(seen))
		for p := range seen {
			points = append(points, p)
		}
		sort.Ints(points)
		out[i] = Cluster{Triplets: c.Triplets, Points: points}
	}
	return out
}

// SplitGaps splits every cluster wherever its points fall apart into pieces
// separated by more than dmax, measured on positions. Pieces with fewer than
// minPoints points are discarded. A piece keeps the triplets whose three
// points all lie inside it, and its points are ordered along the curve by
// a walk over the piece's dmax neighbourhood tree.
func SplitGaps(triplets []Triplet, group ClusterGroup, positions []r3.Vec, dmax float64, minPoints int) ClusterGroup {
	out := make(ClusterGroup, 0, len(group))
	for _, c := range group {
		for _, piece := range connectedPieces(c.Points, positions, dmax) {
			if len(piece) < minPoints {
				continue
			}
			inPiece := make(map[int]struct{}, len(piece))
			for _, p := range piece {
				inPiece[p] = struct{}{}
			}
			var kept []int
			for _, ti := range c.Triplets {
				if containsAll(inPiece, triplets[ti].Points()) {
					kept = append(kept, ti)
				}
			}
			out = append(out, Cluster{
				Triplets: kept,
				Points:   orderAlongCurve(piece, positions, dmax),
			})
		}
	}
	return out
}

// connectedPieces returns the components of the graph joining points closer
// than dmax. Each piece is sorted and the pieces are ordered by smallest
// point index.
func connectedPieces(points []int, positions []r3.Vec, dmax float64) [][]int {
	if len(points) == 0 {
		return nil
	}
	sub := make([]r3.Vec, len(points))
	for i, p := range points {
		sub[i] = positions[p]
	}
	grid := spatial.NewGrid(dmax)
	grid.Build(sub)

	uf := newUnionFind(len(points))
	grid.Pairs(dmax, func(i, j int, _ float64) {
		uf.union(i, j)
	})

	local := uf.groups()
	pieces := make([][]int, len(local))
	for i, g := range local {
		piece := make([]int, len(g))
		for k, li := range g {
			piece[k] = points[li]
		}
		sort.Ints(piece)
		pieces[i] = piece
	}
	sort.Slice(pieces, func(i, j int) bool { return pieces[i][0] < pieces[j][0] })
	return pieces
}

func containsAll(set map[int]struct{}, points [3]int) bool {
	for _, p := range points {
		if _, ok := set[p]; !ok {
			return false
		}
	}
	return true
}

// orderAlongCurve orders the points of one connected piece by walking the
// minimum spanning tree of its dmax neighbourhood graph. The walk starts at
// an end of the tree's longest path, the end with the smaller projection on
// the principal axis, and descends into the deepest branch last. A piece
// whose tree is a path comes out with every consecutive step at most dmax.
func orderAlongCurve(points []int, positions []r3.Vec, dmax float64) []int {
	out := append([]int(nil), points...)
	sort.Ints(out)
	if len(out) < 3 {
		return out
	}

	sub := make([]r3.Vec, len(out))
	for i, p := range out {
		sub[i] = positions[p]
	}
	mst := spanningTree(sub, dmax)

	axis, ok := principalAxis(sub)
	proj := make([]float64, len(sub))
	if ok {
		for i, v := range sub {
			proj[i] = r3.Dot(v, axis)
		}
	}
	lower := func(a, b int) bool {
		if proj[a] != proj[b] {
			return proj[a] < proj[b]
		}
		return a < b
	}

	seed := 0
	for i := range sub {
		if lower(i, seed) {
			seed = i
		}
	}
	end1 := mst.farthest(seed)
	end2 := mst.farthest(end1)
	root := end1
	if lower(end2, end1) {
		root = end2
	}

	order := mst.walk(root)
	for i, li := range order {
		order[i] = out[li]
	}
	return order
}

// treeEdge is an edge of a weighted tree adjacency list.
type treeEdge struct {
	to   int
	dist float64
}

type tree [][]treeEdge

// spanningTree returns the minimum spanning forest of the graph joining
// points within dmax. Equal lengths are broken by (i, j).
func spanningTree(positions []r3.Vec, dmax float64) tree {
	type edge struct {
		i, j  int
		dist2 float64
	}
	var edges []edge
	grid := spatial.NewGrid(dmax)
	grid.Build(positions)
	grid.Pairs(dmax, func(i, j int, d2 float64) {
		edges = append(edges, edge{i: i, j: j, dist2: d2})
	})
	sort.SliceStable(edges, func(a, b int) bool { return edges[a].dist2 < edges[b].dist2 })

	t := make(tree, len(positions))
	uf := newUnionFind(len(positions))
	for _, e := range edges {
		if !uf.union(e.i, e.j) {
			continue
		}
		d := math.Sqrt(e.dist2)
		t[e.i] = append(t[e.i], treeEdge{to: e.j, dist: d})
		t[e.j] = append(t[e.j], treeEdge{to: e.i, dist: d})
	}
	for _, adj := range t {
		sort.Slice(adj, func(a, b int) bool { return adj[a].to < adj[b].to })
	}
	return t
}

// bfs returns the nodes reachable from root in breadth-first order together
// with each node's parent (-1 for root and unreached nodes).
func (t tree) bfs(root int) (order, parent []int) {
	parent = make([]int, len(t))
	for i := range parent {
		parent[i] = -1
	}
	seen := make([]bool, len(t))
	seen[root] = true
	order = append(order, root)
	for k := 0; k < len(order); k++ {
		n := order[k]
		for _, e := range t[n] {
			if !seen[e.to] {
				seen[e.to] = true
				parent[e.to] = n
				order = append(order, e.to)
			}
		}
	}
	return order, parent
}

// farthest returns the node with the largest path length from root, the
// smallest such node on ties.
func (t tree) farthest(root int) int {
	dist := make([]float64, len(t))
	order, parent := t.bfs(root)
	best, bestDist := root, 0.0
	for _, n := range order[1:] {
		for _, e := range t[n] {
			if e.to == parent[n] {
				dist[n] = dist[e.to] + e.dist
				break
			}
		}
		if dist[n] > bestDist || (dist[n] == bestDist && n < best) {
			best, bestDist = n, dist[n]
		}
	}
	return best
}

// walk returns a depth-first preorder of the tree from root. Children are
// visited shallowest subtree first so the walk finishes along the longest
// branch.
func (t tree) walk(root int) []int {
	order, parent := t.bfs(root)
	depth := make([]float64, len(t))
	for k := len(order) - 1; k > 0; k-- {
		n := order[k]
		for _, e := range t[n] {
			if e.to == parent[n] {
				depth[e.to] = math.Max(depth[e.to], depth[n]+e.dist)
				break
			}
		}
	}

	children := func(n int) []int {
		var cs []treeEdge
		for _, e := range t[n] {
			if e.to != parent[n] {
				cs = append(cs, treeEdge{to: e.to, dist: depth[e.to] + e.dist})
			}
		}
		sort.SliceStable(cs, func(a, b int) bool { return cs[a].dist < cs[b].dist })
		out := make([]int, len(cs))
		for i, c := range cs {
			out[i] = c.to
		}
		return out
	}

	out := make([]int, 0, len(order))
	stack := []int{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, n)
		cs := children(n)
		for i := len(cs) - 1; i >= 0; i-- {
			stack = append(stack, cs[i])
		}
	}
	return out
}

// principalAxis returns the first principal component of positions,
// oriented so its largest component is positive.
func principalAxis(positions []r3.Vec) (r3.Vec, bool) {
	data := mat.NewDense(len(positions), 3, nil)
	for i, v := range positions {
		data.SetRow(i, []float64{v.X, v.Y, v.Z})
	}
	var pc stat.PC
	if !pc.PrincipalComponents(data, nil) {
		return r3.Vec{}, false
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	axis := r3.Vec{X: vecs.At(0, 0), Y: vecs.At(1, 0), Z: vecs.At(2, 0)}
	if largestComponent(axis) < 0 {
		axis = r3.Scale(-1, axis)
	}
	return axis, true
}

// largestComponent returns the component of v with the largest magnitude.
func largestComponent(v r3.Vec) float64 {
	c := v.X
	if math.Abs(v.Y) > math.Abs(c) {
		c = v.Y
	}
	if math.Abs(v.Z) > math.Abs(c) {
		c = v.Z
	}
	return c
}
