package tree

// Node is a cover-tree node. Each inserted point owns exactly one node.
type node struct {
	level    int32
	point    *Point
	children []node
	// radius bounds the distance from point to any descendant; it is valid
	// while radiusVersion equals the tree version.
	radius        float32
	radiusVersion uint64
}
