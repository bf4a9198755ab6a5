package tree

// Point is a vector stored in the tree.
type Point struct {
	index  int32
	Vector []float32
}

// NewPoint constructs a query or insert point for vector.
func NewPoint(vector []float32) *Point {
	return &Point{index: -1, Vector: vector}
}
