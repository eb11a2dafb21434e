package cloud

import (
	"math"
	"slices"
)

// ClusterID identifies a cluster within one clustering result.
type ClusterID int

// NoiseIndex is the reserved identifier for "no cluster". The engine encodes
// unclustered points with an empty identifier list, but every consumer must
// treat a list holding only NoiseIndex the same way.
const NoiseIndex ClusterID = math.MaxInt

// IsNoiseID reports whether id is the noise sentinel.
func IsNoiseID(id ClusterID) bool { return id == NoiseIndex }

// ClusterPointCloud is a point cloud plus, per point, the ordered list of
// clusters the point belongs to. Insertion order is the order in which the
// clusters were assigned; duplicates are not allowed.
type ClusterPointCloud struct {
	Cloud        *PointCloud
	ClusterIndex [][]ClusterID
}

// NewClusterPointCloud wraps pc with an empty identifier list per point.
func NewClusterPointCloud(pc *PointCloud) *ClusterPointCloud {
	return &ClusterPointCloud{
		Cloud:        pc,
		ClusterIndex: make([][]ClusterID, pc.Len()),
	}
}

// Len returns the number of points.
func (c *ClusterPointCloud) Len() int {
	if c.Cloud == nil {
		return 0
	}
	return c.Cloud.Len()
}

// Assign appends id to point i's list unless it is already present.
// Assigning NoiseIndex is ignored: noise is encoded as an empty list.
func (c *ClusterPointCloud) Assign(i int, id ClusterID) {
	if IsNoiseID(id) || slices.Contains(c.ClusterIndex[i], id) {
		return
	}
	c.ClusterIndex[i] = append(c.ClusterIndex[i], id)
}

// Clusters returns the identifiers of point i in assignment order, with any
// noise sentinel removed. The returned slice must not be modified.
func (c *ClusterPointCloud) Clusters(i int) []ClusterID {
	ids := c.ClusterIndex[i]
	if !slices.Contains(ids, NoiseIndex) {
		return ids
	}
	out := make([]ClusterID, 0, len(ids))
	for _, id := range ids {
		if !IsNoiseID(id) {
			out = append(out, id)
		}
	}
	return out
}

// IsNoise reports whether point i belongs to no cluster.
func (c *ClusterPointCloud) IsNoise(i int) bool {
	return len(c.Clusters(i)) == 0
}

// Labels flattens membership to one label per point: the most recently
// assigned cluster, or NoiseIndex for unclustered points.
func (c *ClusterPointCloud) Labels() []ClusterID {
	labels := make([]ClusterID, c.Len())
	for i := range labels {
		ids := c.Clusters(i)
		if len(ids) == 0 {
			labels[i] = NoiseIndex
			continue
		}
		labels[i] = ids[len(ids)-1]
	}
	return labels
}

// ClusterIDs returns the distinct identifiers in use, sorted ascending.
func (c *ClusterPointCloud) ClusterIDs() []ClusterID {
	seen := make(map[ClusterID]struct{})
	for i := range c.ClusterIndex {
		for _, id := range c.Clusters(i) {
			seen[id] = struct{}{}
		}
	}
	ids := make([]ClusterID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// NumClusters returns the number of distinct clusters.
func (c *ClusterPointCloud) NumClusters() int {
	return len(c.ClusterIDs())
}

// Members returns the indices of the points belonging to cluster id.
func (c *ClusterPointCloud) Members(id ClusterID) []int {
	var members []int
	for i := range c.ClusterIndex {
		if slices.Contains(c.Clusters(i), id) {
			members = append(members, i)
		}
	}
	return members
}

// NoiseCount returns the number of unclustered points.
func (c *ClusterPointCloud) NoiseCount() int {
	n := 0
	for i := range c.ClusterIndex {
		if c.IsNoise(i) {
			n++
		}
	}
	return n
}

// Clear drops all points and memberships.
func (c *ClusterPointCloud) Clear() *ClusterPointCloud {
	if c.Cloud != nil {
		c.Cloud = New(c.Cloud.Is2D(), c.Cloud.Ordered())
	}
	c.ClusterIndex = nil
	return c
}

// IsEmpty reports whether the result holds neither points nor memberships.
func (c *ClusterPointCloud) IsEmpty() bool {
	return c.Len() == 0 && len(c.ClusterIndex) == 0
}
