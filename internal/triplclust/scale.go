package triplclust

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/triplclust/internal/cloud"
	"github.com/banshee-data/triplclust/internal/spatial"
)

// ErrZeroScale is returned when the characteristic scale dnn degenerates to
// zero. This happens when at least a quarter of the points have an exact
// duplicate; every dnn-relative threshold would collapse to zero.
var ErrZeroScale = errors.New("dnn computed as zero; remove duplicate points, e.g. with 'sort -u'")

// FirstQuartile returns the first quartile of the squared nearest-neighbour
// distances of the cloud. Clouds with fewer than two points return 0.
func FirstQuartile(pc *cloud.PointCloud, workers int) float64 {
	if pc.Len() < 2 {
		return 0
	}
	index := spatial.NewKDIndex(pc.Positions())
	d2 := make([]float64, pc.Len())
	parallelFor(pc.Len(), workers, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			d2[i] = index.NearestDistance2(i)
		}
	})
	sort.Float64s(d2)
	return stat.Quantile(0.25, stat.Empirical, d2, nil)
}

// EstimateScale returns dnn, the square root of the first quartile of the
// squared nearest-neighbour distances.
func EstimateScale(pc *cloud.PointCloud, workers int) (float64, error) {
	dnn := math.Sqrt(FirstQuartile(pc, workers))
	if dnn == 0 {
		return 0, ErrZeroScale
	}
	return dnn, nil
}
