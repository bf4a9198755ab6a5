package cover

import (
	"fmt"
	"sync"

	"github.com/viant/semvec/index"
	"github.com/viant/semvec/index/flat"
	"github.com/viant/semvec/internal/cover/tree"
)

// slack widens the tree candidate pool so float32 distance ties near the
// k-th neighbour are re-ranked in float64.
const slack = 8

// Option configures an Index.
type Option func(i *Index)

// WithBase sets the cover tree base (default 1.3).
func WithBase(base float32) Option { return func(i *Index) { i.base = base } }

// WithMinDocs sets the size below which searches scan exhaustively.
func WithMinDocs(n int) Option { return func(i *Index) { i.minDocs = n } }

// Index is a cover-tree accelerated inner-product index.
type Index struct {
	store   *flat.Index
	base    float32
	minDocs int

	mu    sync.Mutex
	tree  *tree.Tree[uint64]
	dirty bool
}

// New returns an empty index for vectors of length dim.
func New(dim int, opts ...Option) *Index {
	i := &Index{store: flat.New(dim), base: tree.DefaultBase}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Add inserts or replaces vectors and invalidates the tree.
func (i *Index) Add(ids []uint64, vectors [][]float32) error {
	if err := i.store.Add(ids, vectors); err != nil {
		return err
	}
	i.mu.Lock()
	i.dirty = true
	i.mu.Unlock()
	return nil
}

// Remove deletes ids and invalidates the tree when anything was removed.
func (i *Index) Remove(ids []uint64) int {
	n := i.store.Remove(ids)
	if n > 0 {
		i.mu.Lock()
		i.dirty = true
		i.mu.Unlock()
	}
	return n
}

// Len returns the number of stored vectors.
func (i *Index) Len() int { return i.store.Len() }

// Search returns the top k hits by inner product.
func (i *Index) Search(query []float32, k int) ([]index.Hit, error) {
	if k <= 0 || i.store.Len() == 0 {
		return nil, nil
	}
	if i.store.Len() < i.minDocs {
		return i.store.Search(query, k)
	}
	if len(query) != i.store.Dim() {
		return nil, fmt.Errorf("cover: query dim %d != index dim %d", len(query), i.store.Dim())
	}
	neighbors := i.current().KNearest(query, k+slack)
	hits := make([]index.Hit, 0, len(neighbors))
	for _, n := range neighbors {
		vec, ok := i.store.Vector(n.Value)
		if !ok {
			continue
		}
		hits = append(hits, index.Hit{ID: n.Value, Score: index.Dot(query, vec)})
	}
	return index.Top(hits, k), nil
}

// current returns the tree, rebuilding it when stale.
func (i *Index) current() *tree.Tree[uint64] {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.tree != nil && !i.dirty {
		return i.tree
	}
	t := tree.NewTree[uint64](i.base, tree.DistanceFunctionEuclidean)
	i.store.Each(func(id uint64, vec []float32) { t.Insert(id, vec) })
	i.tree = t
	i.dirty = false
	return t
}

var _ index.Index = (*Index)(nil)
