package vdb

import (
	"fmt"
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/viant/semvec/index"
	"github.com/viant/semvec/index/cover"
	"github.com/viant/semvec/index/flat"
	"github.com/viant/semvec/vector"
	"github.com/viant/semvec/vid"
)

const (
	defaultCoverBase        = 1.3
	defaultAutoCoverMinDocs = 4000
	minRestrictedPool       = 64
	restrictedPoolFactor    = 8
)

// Hit is a ranked atom.
type Hit struct {
	ID    vid.Vid
	Score float64
}

// Option configures a Vdb.
type Option func(v *Vdb)

// WithKind selects the index implementation for new domains.
func WithKind(kind index.Kind) Option { return func(v *Vdb) { v.kind = kind } }

// WithCoverBase sets the cover tree base.
func WithCoverBase(base float32) Option { return func(v *Vdb) { v.coverBase = base } }

// WithAutoCoverMinDocs sets the domain size at which KindAuto switches from
// exhaustive scans to the cover tree.
func WithAutoCoverMinDocs(n int) Option { return func(v *Vdb) { v.autoCoverMinDocs = n } }

// Vdb is a set of per-domain vector indexes.
type Vdb struct {
	dim              int
	kind             index.Kind
	coverBase        float32
	autoCoverMinDocs int

	mu      sync.RWMutex
	domains map[uint16]index.Index
}

// New returns an empty Vdb for vectors of length dim.
func New(dim int, opts ...Option) (*Vdb, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("vdb: invalid dimension %d", dim)
	}
	v := &Vdb{
		dim:              dim,
		kind:             index.KindAuto,
		coverBase:        defaultCoverBase,
		autoCoverMinDocs: defaultAutoCoverMinDocs,
		domains:          make(map[uint16]index.Index),
	}
	for _, opt := range opts {
		opt(v)
	}
	switch v.kind {
	case index.KindFlat, index.KindCover, index.KindAuto:
	default:
		return nil, fmt.Errorf("vdb: unknown index kind %q", v.kind)
	}
	return v, nil
}

// Dimension returns the vector length.
func (v *Vdb) Dimension() int { return v.dim }

func (v *Vdb) newIndex() index.Index {
	switch v.kind {
	case index.KindFlat:
		return flat.New(v.dim)
	case index.KindCover:
		return cover.New(v.dim, cover.WithBase(v.coverBase))
	default:
		return cover.New(v.dim, cover.WithBase(v.coverBase), cover.WithMinDocs(v.autoCoverMinDocs))
	}
}

func (v *Vdb) lookup(domain uint16) index.Index {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.domains[domain]
}

// Add normalises vectors and stores them under ids in domain, creating the
// domain index on first use. Re-adding an id replaces its vector.
func (v *Vdb) Add(domain uint16, ids []vid.Vid, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("vdb: ids and vectors length mismatch: %d != %d", len(ids), len(vectors))
	}
	if len(ids) == 0 {
		return nil
	}
	keys := make([]uint64, len(ids))
	normalized := make([][]float32, len(vectors))
	for i, vec := range vectors {
		if len(vec) != v.dim {
			return fmt.Errorf("%w: %v has %d values, want %d", vector.ErrDimension, ids[i], len(vec), v.dim)
		}
		keys[i] = ids[i].Uint64()
		normalized[i] = vector.Normalize(vec)
	}
	v.mu.Lock()
	idx, ok := v.domains[domain]
	if !ok {
		idx = v.newIndex()
		v.domains[domain] = idx
	}
	v.mu.Unlock()
	return idx.Add(keys, normalized)
}

// RemoveIDs deletes ids from domain and returns how many were present.
func (v *Vdb) RemoveIDs(domain uint16, ids []vid.Vid) int {
	idx := v.lookup(domain)
	if idx == nil || len(ids) == 0 {
		return 0
	}
	keys := make([]uint64, len(ids))
	for i, id := range ids {
		keys[i] = id.Uint64()
	}
	return idx.Remove(keys)
}

// DomainSize returns the number of vectors indexed for domain.
func (v *Vdb) DomainSize(domain uint16) int {
	if idx := v.lookup(domain); idx != nil {
		return idx.Len()
	}
	return 0
}

// Domains lists the domains with an index, ascending.
func (v *Vdb) Domains() []uint16 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]uint16, 0, len(v.domains))
	for d := range v.domains {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Drop discards the index of domain.
func (v *Vdb) Drop(domain uint16) {
	v.mu.Lock()
	delete(v.domains, domain)
	v.mu.Unlock()
}

// Reset discards every index.
func (v *Vdb) Reset() {
	v.mu.Lock()
	v.domains = make(map[uint16]index.Index)
	v.mu.Unlock()
}

// Query returns up to k atoms of domain most similar to query. When
// documents is non-empty only atoms of those documents are returned; they
// are drawn from a single candidate pool of max(k*8, 64) unrestricted hits,
// so fewer than k may come back even if more matching atoms exist.
func (v *Vdb) Query(domain uint16, query []float32, k int, documents []uint16) ([]Hit, error) {
	if len(query) != v.dim {
		return nil, fmt.Errorf("%w: query has %d values, want %d", vector.ErrDimension, len(query), v.dim)
	}
	idx := v.lookup(domain)
	if idx == nil || idx.Len() == 0 || k <= 0 {
		return nil, nil
	}
	q := vector.Normalize(query)
	if len(documents) == 0 {
		hits, err := idx.Search(q, k)
		if err != nil {
			return nil, err
		}
		return convert(hits), nil
	}

	allowed := roaring.New()
	for _, d := range documents {
		allowed.Add(uint32(d))
	}
	pool := k * restrictedPoolFactor
	if pool < minRestrictedPool {
		pool = minRestrictedPool
	}
	candidates, err := idx.Search(q, pool)
	if err != nil {
		return nil, err
	}
	seen := make(map[uint64]struct{}, k)
	out := make([]Hit, 0, k)
	for _, h := range candidates {
		id := vid.FromUint64(h.ID)
		doc, ok := id.Document()
		if !ok || !allowed.Contains(uint32(doc)) {
			continue
		}
		if _, dup := seen[h.ID]; dup {
			continue
		}
		seen[h.ID] = struct{}{}
		out = append(out, Hit{ID: id, Score: h.Score})
		if len(out) == k {
			break
		}
	}
	return out, nil
}

func convert(hits []index.Hit) []Hit {
	out := make([]Hit, len(hits))
	for i, h := range hits {
		out[i] = Hit{ID: vid.FromUint64(h.ID), Score: h.Score}
	}
	return out
}
