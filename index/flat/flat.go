package flat

import (
	"fmt"

	"github.com/viant/semvec/index"
)

// Index is an exhaustive inner-product index.
type Index struct {
	dim  int
	ids  []uint64
	vecs [][]float32
	pos  map[uint64]int
}

// New returns an empty index for vectors of length dim.
func New(dim int) *Index {
	return &Index{dim: dim, pos: make(map[uint64]int)}
}

// Add inserts or replaces vectors.
func (i *Index) Add(ids []uint64, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("flat: ids and vectors length mismatch: %d != %d", len(ids), len(vectors))
	}
	for j := range vectors {
		if len(vectors[j]) != i.dim {
			return fmt.Errorf("flat: vector %d has dim %d, want %d", ids[j], len(vectors[j]), i.dim)
		}
	}
	for j, id := range ids {
		vec := append([]float32(nil), vectors[j]...)
		if p, ok := i.pos[id]; ok {
			i.vecs[p] = vec
			continue
		}
		i.pos[id] = len(i.ids)
		i.ids = append(i.ids, id)
		i.vecs = append(i.vecs, vec)
	}
	return nil
}

// Remove deletes ids by swapping the last entry into the freed slot.
func (i *Index) Remove(ids []uint64) int {
	removed := 0
	for _, id := range ids {
		p, ok := i.pos[id]
		if !ok {
			continue
		}
		last := len(i.ids) - 1
		if p != last {
			i.ids[p] = i.ids[last]
			i.vecs[p] = i.vecs[last]
			i.pos[i.ids[p]] = p
		}
		i.ids = i.ids[:last]
		i.vecs[last] = nil
		i.vecs = i.vecs[:last]
		delete(i.pos, id)
		removed++
	}
	return removed
}

// Len returns the number of stored vectors.
func (i *Index) Len() int { return len(i.ids) }

// Dim returns the vector length.
func (i *Index) Dim() int { return i.dim }

// Vector returns the stored vector for id.
func (i *Index) Vector(id uint64) ([]float32, bool) {
	p, ok := i.pos[id]
	if !ok {
		return nil, false
	}
	return i.vecs[p], true
}

// Each calls fn for every stored entry in storage order.
func (i *Index) Each(fn func(id uint64, vec []float32)) {
	for p, id := range i.ids {
		fn(id, i.vecs[p])
	}
}

// Search scores every vector and returns the top k.
func (i *Index) Search(query []float32, k int) ([]index.Hit, error) {
	if k <= 0 || len(i.ids) == 0 {
		return nil, nil
	}
	if len(query) != i.dim {
		return nil, fmt.Errorf("flat: query dim %d != index dim %d", len(query), i.dim)
	}
	hits := make([]index.Hit, len(i.ids))
	for p, id := range i.ids {
		hits[p] = index.Hit{ID: id, Score: index.Dot(query, i.vecs[p])}
	}
	return index.Top(hits, k), nil
}

var _ index.Index = (*Index)(nil)
