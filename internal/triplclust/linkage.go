package triplclust

import (
	"container/heap"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Linkage names accepted by LinkageByName.
const (
	LinkageSingle   = "single"
	LinkageComplete = "complete"
	LinkageAverage  = "average"
)

// Edge is a finite dissimilarity between triplets I < J. Pairs without an
// edge are treated as infinitely far apart.
type Edge struct {
	I, J int
	Dist float64
}

// Merge records one agglomeration step: the clusters containing triplets A
// and B were joined at Height.
type Merge struct {
	A, B   int
	Height float64
}

// Linkage agglomerates n singleton clusters over a sparse edge list. The
// returned merges are in non-decreasing height order.
type Linkage interface {
	Name() string
	Agglomerate(n int, edges []Edge) []Merge
}

// LinkageByName returns the linkage for name. An empty name selects single.
func LinkageByName(name string) (Linkage, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", LinkageSingle:
		return singleLinkage{}, nil
	case LinkageComplete:
		return lanceWilliams{name: LinkageComplete, update: func(dA, dB float64, _, _ int) float64 {
			return math.Max(dA, dB)
		}}, nil
	case LinkageAverage:
		return lanceWilliams{name: LinkageAverage, update: func(dA, dB float64, nA, nB int) float64 {
			return (float64(nA)*dA + float64(nB)*dB) / float64(nA+nB)
		}}, nil
	}
	return nil, fmt.Errorf("unknown linkage %q (want %s, %s or %s)", name, LinkageSingle, LinkageComplete, LinkageAverage)
}

// singleLinkage is Kruskal's algorithm: the merges are the edges of the
// minimum spanning forest in ascending order.
type singleLinkage struct{}

func (singleLinkage) Name() string { return LinkageSingle }

func (singleLinkage) Agglomerate(n int, edges []Edge) []Merge {
	sorted := append([]Edge(nil), edges...)
	sortEdges(sorted)

	uf := newUnionFind(n)
	var merges []Merge
	for _, e := range sorted {
		if uf.union(e.I, e.J) {
			merges = append(merges, Merge{A: e.I, B: e.J, Height: e.Dist})
			if len(merges) == n-1 {
				break
			}
		}
	}
	return merges
}

// lanceWilliams is a sparse agglomerative clusterer whose inter-cluster
// distances after a merge are given by update. A pair that is missing on
// either side stays missing, which matches an infinite distance for both
// complete and average linkage.
type lanceWilliams struct {
	name   string
	update func(dA, dB float64, nA, nB int) float64
}

func (l lanceWilliams) Name() string { return l.name }

func (l lanceWilliams) Agglomerate(n int, edges []Edge) []Merge {
	adj := make([]map[int]float64, n)
	for i := range adj {
		adj[i] = make(map[int]float64)
	}
	for _, e := range edges {
		if d, ok := adj[e.I][e.J]; ok && d <= e.Dist {
			continue
		}
		adj[e.I][e.J] = e.Dist
		adj[e.J][e.I] = e.Dist
	}

	h := make(pairHeap, 0, len(edges))
	for i, nb := range adj {
		for j, d := range nb {
			if i < j {
				h = append(h, pair{a: i, b: j, d: d})
			}
		}
	}
	heap.Init(&h)

	size := make([]int, n)
	for i := range size {
		size[i] = 1
	}

	var merges []Merge
	for h.Len() > 0 {
		p := heap.Pop(&h).(pair)
		if adj[p.a] == nil || adj[p.b] == nil {
			continue
		}
		if cur, ok := adj[p.a][p.b]; !ok || cur != p.d {
			continue // stale
		}
		merges = append(merges, Merge{A: p.a, B: p.b, Height: p.d})

		keep, gone := p.a, p.b
		next := make(map[int]float64, len(adj[keep]))
		for x, dKeep := range adj[keep] {
			if x == gone {
				continue
			}
			dGone, ok := adj[gone][x]
			if !ok {
				delete(adj[x], keep)
				continue
			}
			next[x] = l.update(dKeep, dGone, size[keep], size[gone])
		}
		for x := range adj[gone] {
			delete(adj[x], gone)
		}
		for x, d := range next {
			adj[x][keep] = d
			heap.Push(&h, pair{a: min(x, keep), b: max(x, keep), d: d})
		}
		adj[keep] = next
		adj[gone] = nil
		size[keep] += size[gone]
	}
	return merges
}

type pair struct {
	a, b int
	d    float64
}

// pairHeap orders pairs by distance, then by indices.
type pairHeap []pair

func (h pairHeap) Len() int { return len(h) }
func (h pairHeap) Less(i, j int) bool {
	if h[i].d != h[j].d {
		return h[i].d < h[j].d
	}
	if h[i].a != h[j].a {
		return h[i].a < h[j].a
	}
	return h[i].b < h[j].b
}
func (h pairHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *pairHeap) Push(x any)   { *h = append(*h, x.(pair)) }
func (h *pairHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

func sortEdges(edges []Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Dist != edges[j].Dist {
			return edges[i].Dist < edges[j].Dist
		}
		if edges[i].I != edges[j].I {
			return edges[i].I < edges[j].I
		}
		return edges[i].J < edges[j].J
	})
}

// Cut applies every merge with height at most t and returns the resulting
// partition of [0, n), each group sorted, groups ordered by smallest member.
func Cut(n int, merges []Merge, t float64) [][]int {
	uf := newUnionFind(n)
	for _, m := range merges {
		if m.Height > t {
			break
		}
		uf.union(m.A, m.B)
	}
	return uf.groups()
}
