package triplclust

import (
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/triplclust/internal/cloud"
	"github.com/banshee-data/triplclust/internal/monitoring"
)

// ClustererInterface abstracts the clustering implementation so callers can
// swap parameter sets or substitute a fake in tests.
type ClustererInterface interface {
	// Cluster labels every point of pc. The input cloud is not modified.
	Cluster(pc *cloud.PointCloud) (*Result, error)

	// GetParams returns the current parameters.
	GetParams() Params

	// SetParams replaces the parameters used by subsequent runs.
	SetParams(params Params)
}

// RunStats summarises one clustering run. Lengths are absolute.
type RunStats struct {
	Points          int
	DNN             float64 // 0 when no length was dnn-relative
	Radius          float64
	Scale           float64
	MaxGap          float64 // 0 when disabled
	LinkRadius      float64
	Threshold       float64 // cut height actually used
	Triplets        int
	Edges           int
	Merges          int
	LinkageClusters int // clusters after the cut, singletons included
	PrunedClusters  int // clusters surviving the minimum size
	Clusters        int // final clusters
	Noise           int // points in no cluster
	Elapsed         time.Duration
}

// Result is the labelled cloud plus run statistics. Labels.Cloud holds the
// smoothed positions.
type Result struct {
	Labels *cloud.ClusterPointCloud
	Stats  RunStats
}

// Clusterer runs the full pipeline: scale estimation, smoothing, triplet
// generation, hierarchical clustering, pruning, gap splitting and label
// projection.
type Clusterer struct {
	params Params
	diag   Diagnostics
}

// NewClusterer creates a clusterer with the given parameters.
func NewClusterer(params Params) *Clusterer {
	return &Clusterer{params: params, diag: NopDiagnostics{}}
}

// NewDefaultClusterer creates a clusterer with DefaultParams.
func NewDefaultClusterer() *Clusterer {
	return NewClusterer(DefaultParams())
}

// GetParams returns the current parameters.
func (c *Clusterer) GetParams() Params {
	return c.params
}

// SetParams replaces the parameters.
func (c *Clusterer) SetParams(params Params) {
	c.params = params
}

// SetDiagnostics installs a receiver for intermediate results. nil restores
// the no-op receiver.
func (c *Clusterer) SetDiagnostics(d Diagnostics) {
	if d == nil {
		d = NopDiagnostics{}
	}
	c.diag = d
}

// Verify at compile time that *Clusterer implements ClustererInterface.
var _ ClustererInterface = (*Clusterer)(nil)

// Run clusters pc with params and returns the labelled, smoothed cloud.
func Run(pc *cloud.PointCloud, params Params) (*cloud.ClusterPointCloud, error) {
	res, err := NewClusterer(params).Cluster(pc)
	if err != nil {
		return nil, err
	}
	return res.Labels, nil
}

// Cluster runs the pipeline on pc. Clouds with fewer than three points, or
// without any acceptable triplet, come back with every point marked noise.
func (c *Clusterer) Cluster(pc *cloud.PointCloud) (*Result, error) {
	start := time.Now()
	p := c.params
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if pc == nil {
		pc = cloud.New(false, false)
	}
	stats := RunStats{Points: pc.Len()}
	debug := p.Verbosity > 1

	if pc.Len() < 3 {
		stats.Noise = pc.Len()
		stats.Elapsed = time.Since(start)
		return &Result{Labels: cloud.NewClusterPointCloud(pc.Clone()), Stats: stats}, nil
	}

	var dnn float64
	if p.NeedsDNN() {
		var err error
		dnn, err = EstimateScale(pc, p.Workers)
		if err != nil {
			return nil, fmt.Errorf("estimating characteristic length: %w", err)
		}
		monitoring.Verbosef(p.Verbosity, 1, "triplclust: dnn=%g over %d points", dnn, pc.Len())
	}
	r := p.resolve(dnn)
	stats.DNN = dnn
	stats.Radius = r.radius
	stats.Scale = r.scale
	stats.MaxGap = r.maxGap

	smoothed := Smooth(pc, r.radius, p.Workers)
	if debug {
		warnOnError("smoothing", c.diag.RecordSmoothing(pc, smoothed))
	}

	triplets := GenerateTriplets(smoothed.Positions(), p.Neighbours, p.MaxTriplets, p.MaxAngle, p.Workers)
	stats.Triplets = len(triplets)
	monitoring.Verbosef(p.Verbosity, 1, "triplclust: %d triplets (k=%d n=%d a=%.4g)",
		len(triplets), p.Neighbours, p.MaxTriplets, p.MaxAngle)
	if debug {
		warnOnError("triplet", c.diag.RecordTriplets(smoothed, triplets))
	}
	if len(triplets) == 0 {
		stats.Threshold = p.Threshold
		stats.Noise = pc.Len()
		stats.Elapsed = time.Since(start)
		return &Result{Labels: cloud.NewClusterPointCloud(smoothed), Stats: stats}, nil
	}

	linkage, err := LinkageByName(p.Linkage)
	if err != nil {
		return nil, err
	}
	linkRadius := r.linkRadius
	if r.maxGap == 0 && linkRadius == 0 {
		linkRadius = math.Max(DefaultLinkRadiusDNN*dnn, maxSpan(triplets))
	}
	group, hc := ComputeHC(triplets, HCParams{
		Scale:         r.scale,
		Threshold:     p.Threshold,
		AutoThreshold: p.AutoThreshold,
		MaxGap:        r.maxGap,
		LinkRadius:    linkRadius,
		Linkage:       linkage,
		Workers:       p.Workers,
	})
	stats.Edges = hc.Edges
	stats.Merges = hc.Merges
	stats.LinkRadius = hc.LinkRadius
	stats.Threshold = hc.Threshold
	stats.LinkageClusters = len(group)
	monitoring.Verbosef(p.Verbosity, 1, "triplclust: %s linkage over %d edges, cut at t=%.4g gives %d clusters",
		linkage.Name(), hc.Edges, hc.Threshold, len(group))

	group = TripletsToPoints(triplets, group)
	if debug {
		warnOnError("linkage", c.diag.RecordClusters(StageLinkage, smoothed, triplets, group))
	}

	group = PruneSmall(group, p.MinSize)
	stats.PrunedClusters = len(group)
	if debug {
		warnOnError("pruned cluster", c.diag.RecordClusters(StagePruned, smoothed, triplets, group))
	}

	if r.maxGap > 0 {
		group = SplitGaps(triplets, group, pc.Positions(), r.maxGap, p.MinSize+GapSplitMinPointsOffset)
		monitoring.Verbosef(p.Verbosity, 1, "triplclust: gap splitting at dmax=%.4g gives %d clusters", r.maxGap, len(group))
		if debug {
			warnOnError("split cluster", c.diag.RecordClusters(StageSplit, smoothed, triplets, group))
		}
	}

	group = OrderClusters(group)
	labels := ProjectLabels(smoothed, group)
	stats.Clusters = len(group)
	stats.Noise = labels.NoiseCount()
	stats.Elapsed = time.Since(start)
	monitoring.Verbosef(p.Verbosity, 1, "triplclust: %d clusters, %d noise points in %v",
		stats.Clusters, stats.Noise, stats.Elapsed)

	return &Result{Labels: labels, Stats: stats}, nil
}
