package tree

import "github.com/viant/vec/search"

// DistanceFunction names a distance metric.
type DistanceFunction string

// DistanceFunctionEuclidean is the only metric satisfying the triangle
// inequality that the search pruning relies on.
const DistanceFunctionEuclidean DistanceFunction = "euclidean"

// DistanceFunc computes the distance between two points.
type DistanceFunc func(p1, p2 *Point) float32

// Function resolves the metric, or nil for an unknown name.
func (d DistanceFunction) Function() DistanceFunc {
	switch d {
	case DistanceFunctionEuclidean:
		return EuclideanDistance
	default:
		return nil
	}
}

// EuclideanDistance returns the L2 distance. On unit vectors it orders
// neighbours exactly as cosine similarity does.
func EuclideanDistance(p1, p2 *Point) float32 {
	return search.Float32s(p1.Vector).EuclideanDistance(p2.Vector)
}
