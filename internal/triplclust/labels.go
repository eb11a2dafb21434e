package triplclust

import (
	"math"
	"slices"
	"sort"

	"github.com/banshee-data/triplclust/internal/cloud"
)

// OrderClusters sorts clusters by their smallest point index. This is the
// order in which cluster ids are handed out.
func OrderClusters(group ClusterGroup) ClusterGroup {
	out := slices.Clone(group)
	sort.SliceStable(out, func(i, j int) bool {
		return minPoint(out[i]) < minPoint(out[j])
	})
	return out
}

func minPoint(c Cluster) int {
	if len(c.Points) == 0 {
		return math.MaxInt
	}
	return slices.Min(c.Points)
}

// ProjectLabels assigns cluster id i to every point of group[i]. A point may
// end up in several clusters; points in none are noise.
func ProjectLabels(pc *cloud.PointCloud, group ClusterGroup) *cloud.ClusterPointCloud {
	out := cloud.NewClusterPointCloud(pc)
	for id, c := range group {
		for _, p := range c.Points {
			out.Assign(p, cloud.ClusterID(id))
		}
	}
	return out
}
