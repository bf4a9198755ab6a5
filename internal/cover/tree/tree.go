package tree

// Insertion follows github.com/viant/gds/tree/cover.

import (
	"container/heap"
	"math"
	"sync"
)

// DefaultBase is used when NewTree receives a base <= 1.
const DefaultBase = 1.3

// Tree is an insert-only cover tree. Deletions are handled by rebuilding.
type Tree[T any] struct {
	mu           sync.Mutex
	root         *node
	base         float32
	distanceFunc DistanceFunc
	values       []T
	version      uint64
}

// NewTree constructs a tree with the given base and metric. An unknown
// metric falls back to Euclidean.
func NewTree[T any](base float32, distance DistanceFunction) *Tree[T] {
	if base <= 1 {
		base = DefaultBase
	}
	fn := distance.Function()
	if fn == nil {
		fn = EuclideanDistance
	}
	return &Tree[T]{base: base, distanceFunc: fn}
}

// Len returns the number of inserted points.
func (t *Tree[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.values)
}

// Insert adds value at vector.
func (t *Tree[T]) Insert(value T, vector []float32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	point := NewPoint(vector)
	point.index = int32(len(t.values))
	t.values = append(t.values, value)
	t.version++
	if t.root == nil {
		t.root = &node{point: point}
		return
	}
	t.insert(t.root, point, 0)
}

func (t *Tree[T]) scale(level int32) float32 {
	return float32(math.Pow(float64(t.base), float64(level)))
}

func (t *Tree[T]) insert(n *node, point *Point, level int32) {
	for {
		cover := t.scale(level)
		if t.distanceFunc(point, n.point) < cover {
			var next *node
			for i := range n.children {
				if t.distanceFunc(point, n.children[i].point) < cover {
					next = &n.children[i]
					break
				}
			}
			if next == nil {
				n.children = append(n.children, node{point: point, level: level - 1})
				return
			}
			n = next
			level--
			continue
		}
		level++
		if level > n.level {
			root := &node{point: point, level: level, children: []node{*t.root}}
			t.root = root
			return
		}
	}
}

// KNearest runs a best-first k-nearest-neighbour search ordered by ascending
// distance. Pruning uses exact per-node subtree radii, so the result is exact
// whenever the metric obeys the triangle inequality.
func (t *Tree[T]) KNearest(vector []float32, k int) []Neighbor[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.root == nil || k <= 0 {
		return nil
	}
	query := NewPoint(vector)
	best := &candidates{}
	queue := &nodeQueue{}
	rootDist := t.distanceFunc(query, t.root.point)
	heap.Push(queue, nodeItem{node: t.root, lowerBound: rootDist - t.radius(t.root), centerDist: rootDist})

	for queue.Len() > 0 {
		top := heap.Pop(queue).(nodeItem)
		if best.Len() == k && top.lowerBound > (*best)[0].distance {
			break
		}
		if best.Len() < k {
			heap.Push(best, candidate{point: top.node.point, distance: top.centerDist})
		} else if top.centerDist < (*best)[0].distance {
			heap.Pop(best)
			heap.Push(best, candidate{point: top.node.point, distance: top.centerDist})
		}
		for i := range top.node.children {
			child := &top.node.children[i]
			d := t.distanceFunc(query, child.point)
			lb := d - t.radius(child)
			if best.Len() == k && lb > (*best)[0].distance {
				continue
			}
			heap.Push(queue, nodeItem{node: child, lowerBound: lb, centerDist: d})
		}
	}
	result := make([]Neighbor[T], best.Len())
	for i := len(result) - 1; i >= 0; i-- {
		c := heap.Pop(best).(candidate)
		result[i] = Neighbor[T]{Value: t.values[c.point.index], Distance: c.distance}
	}
	return result
}

// radius returns the cached subtree radius of n, recomputing it after any
// insertion.
func (t *Tree[T]) radius(n *node) float32 {
	if n.radiusVersion == t.version {
		return n.radius
	}
	var r float32
	for i := range n.children {
		child := &n.children[i]
		if d := t.distanceFunc(n.point, child.point) + t.radius(child); d > r {
			r = d
		}
	}
	n.radius = r
	n.radiusVersion = t.version
	return r
}
