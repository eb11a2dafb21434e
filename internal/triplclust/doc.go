// Package triplclust finds curve-like structures in 2D and 3D point clouds.
//
// Points are first smoothed towards the local mean, then every point and two
// of its nearest neighbours that are almost collinear form a triplet. Triplets
// lying on the same smooth curve are close under TripletDistance, so an
// agglomerative clustering of the triplets followed by a cut of the
// dendrogram yields one cluster per curve. Clusters with too few triplets are
// dropped, clusters with internal gaps larger than dmax are split, and the
// surviving clusters are projected back onto the points. A point may belong
// to several clusters where curves cross; points in none are noise.
//
// Most lengths may be given in units of dnn, the square root of the first
// quartile of squared nearest-neighbour distances, which makes the default
// parameters independent of the cloud's units.
package triplclust
