package triplclust

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/triplclust/internal/cloud"
	"github.com/banshee-data/triplclust/internal/spatial"
)

// Smooth returns a new cloud in which every point is replaced by the mean
// position of all input points within radius of it, itself included.
//
// A zero radius returns an identical copy. Point order, indices and the
// 2D/ordered flags are preserved. For 2D clouds the neighbourhood test
// ignores z and every point keeps its input z.
func Smooth(pc *cloud.PointCloud, radius float64, workers int) *cloud.PointCloud {
	if radius <= 0 || pc.Len() == 0 {
		return pc.Clone()
	}

	positions := pc.Positions()
	is2D := pc.Is2D()
	index := spatial.NewKDIndex(positions)
	smoothed := make([]r3.Vec, pc.Len())

	parallelFor(pc.Len(), workers, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			neighbours := index.Within(positions[i], radius)
			// neighbours always contains i itself.
			var sum r3.Vec
			for _, n := range neighbours {
				sum = r3.Add(sum, positions[n.Index])
			}
			smoothed[i] = r3.Scale(1/float64(len(neighbours)), sum)
			if is2D {
				smoothed[i].Z = pc.At(i).Z
			}
		}
	})

	return pc.WithPositions(smoothed)
}
