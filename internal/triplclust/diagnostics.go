package triplclust

import (
	"github.com/banshee-data/triplclust/internal/cloud"
	"github.com/banshee-data/triplclust/internal/monitoring"
)

// Cluster stages reported to Diagnostics.RecordClusters.
const (
	StageLinkage = "linkage" // after the dendrogram cut
	StagePruned  = "pruned"  // after dropping small clusters
	StageSplit   = "split"   // after splitting at gaps
)

// Diagnostics receives intermediate results of a run. It is only called
// when the verbosity is above 1. Errors are logged and never abort the run.
type Diagnostics interface {
	RecordSmoothing(raw, smoothed *cloud.PointCloud) error
	RecordTriplets(pc *cloud.PointCloud, triplets []Triplet) error
	RecordClusters(stage string, pc *cloud.PointCloud, triplets []Triplet, group ClusterGroup) error
}

// NopDiagnostics discards everything.
type NopDiagnostics struct{}

func (NopDiagnostics) RecordSmoothing(_, _ *cloud.PointCloud) error         { return nil }
func (NopDiagnostics) RecordTriplets(_ *cloud.PointCloud, _ []Triplet) error { return nil }
func (NopDiagnostics) RecordClusters(_ string, _ *cloud.PointCloud, _ []Triplet, _ ClusterGroup) error {
	return nil
}

var _ Diagnostics = NopDiagnostics{}

func warnOnError(what string, err error) {
	if err != nil {
		monitoring.Warnf("triplclust: writing %s diagnostics failed: %v", what, err)
	}
}
