package ridge

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/viant/semvec/vector"
)

// Range is an inclusive run of item indices.
type Range struct {
	Start int
	End   int
}

// Len returns the number of items in r.
func (r Range) Len() int { return r.End - r.Start + 1 }

// Contains reports whether item i lies in r.
func (r Range) Contains(i int) bool { return i >= r.Start && i <= r.End }

// Indices lists the items of r in order.
func (r Range) Indices() []int {
	out := make([]int, 0, r.Len())
	for i := r.Start; i <= r.End; i++ {
		out = append(out, i)
	}
	return out
}

// Retriever answers ridge queries over one document.
type Retriever struct {
	content    [][]float32
	structural [][]float32

	medianOnce sync.Once
	median     float64
}

// New validates the sequences and returns a retriever. A nil structural
// sequence reuses content.
func New(content, structural [][]float32) (*Retriever, error) {
	if structural == nil {
		structural = content
	}
	if len(content) != len(structural) {
		return nil, fmt.Errorf("ridge: content has %d items, structural %d", len(content), len(structural))
	}
	for i := range content {
		if len(content[i]) != len(content[0]) || len(structural[i]) != len(content[0]) {
			return nil, fmt.Errorf("%w: item %d", vector.ErrDimension, i)
		}
	}
	return &Retriever{content: content, structural: structural}, nil
}

// Len returns the number of items.
func (r *Retriever) Len() int { return len(r.content) }

// Seeds ranks content vectors by cosine similarity to query and returns the
// top indices, ties by ascending index. topK is clamped to [0, Len()]. A
// query of the wrong dimension selects nothing.
func (r *Retriever) Seeds(query []float32, topK int) []int {
	if len(r.content) == 0 || len(query) != len(r.content[0]) {
		return nil
	}
	if topK > len(r.content) {
		topK = len(r.content)
	}
	if topK <= 0 {
		return nil
	}
	scores := make([]float64, len(r.content))
	order := make([]int, len(r.content))
	for i, v := range r.content {
		scores[i] = vector.Cosine(query, v)
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })
	return order[:topK]
}

// Adjacency returns the cosine similarity of structural items i and i+1.
func (r *Retriever) Adjacency(i int) float64 {
	return vector.Cosine(r.structural[i], r.structural[i+1])
}

// MedianThreshold returns the lower median of all adjacent similarities. It
// is computed on first use; a single-item document yields 0.
func (r *Retriever) MedianThreshold() float64 {
	r.medianOnce.Do(func() {
		if len(r.structural) < 2 {
			return
		}
		sims := make([]float64, len(r.structural)-1)
		for i := range sims {
			sims[i] = r.Adjacency(i)
		}
		r.median = vector.LowerMedian(sims)
	})
	return r.median
}

func (r *Retriever) grow(seed int, threshold float64) Range {
	left, right := seed, seed
	for left > 0 && r.Adjacency(left-1) >= threshold {
		left--
	}
	for right < len(r.structural)-1 && r.Adjacency(right) >= threshold {
		right++
	}
	return Range{Start: left, End: right}
}

// Expand grows one ridge per seed not already covered by an earlier ridge,
// in seed order. Out-of-range seeds are ignored.
func (r *Retriever) Expand(seeds []int, threshold float64) []Range {
	var ridges []Range
	visited := make([]bool, len(r.structural))
	for _, seed := range seeds {
		if seed < 0 || seed >= len(r.structural) || visited[seed] {
			continue
		}
		ridge := r.grow(seed, threshold)
		for i := ridge.Start; i <= ridge.End; i++ {
			visited[i] = true
		}
		ridges = append(ridges, ridge)
	}
	return ridges
}

// Option configures Retrieve.
type Option func(o *options)

type options struct {
	threshold *float64
}

// WithThreshold overrides the median threshold. Zero is a valid threshold.
func WithThreshold(t float64) Option {
	return func(o *options) { o.threshold = &t }
}

// Retrieve selects topK seeds for query and expands them into ridges.
func (r *Retriever) Retrieve(query []float32, topK int, opts ...Option) []Range {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	seeds := r.Seeds(query, topK)
	if o.threshold != nil {
		return r.Expand(seeds, *o.threshold)
	}
	return r.Expand(seeds, r.MedianThreshold())
}

// Attend derives structural vectors from content with query-less
// self-attention: softmax(V·Vᵀ / D) · V, each row then scaled by its largest
// absolute component.
func Attend(vectors [][]float32) [][]float32 {
	s := len(vectors)
	if s == 0 {
		return nil
	}
	d := float64(len(vectors[0]))
	out := make([][]float32, s)
	logits := make([]float64, s)
	for i := 0; i < s; i++ {
		maxLogit := math.Inf(-1)
		for j := 0; j < s; j++ {
			logits[j] = vector.Dot(vectors[i], vectors[j]) / d
			if logits[j] > maxLogit {
				maxLogit = logits[j]
			}
		}
		var sum float64
		for j := range logits {
			logits[j] = math.Exp(logits[j] - maxLogit)
			sum += logits[j]
		}
		row := make([]float64, len(vectors[i]))
		for j := 0; j < s; j++ {
			w := logits[j] / sum
			for c, v := range vectors[j] {
				row[c] += w * float64(v)
			}
		}
		var peak float64
		for _, v := range row {
			peak = math.Max(peak, math.Abs(v))
		}
		attended := make([]float32, len(row))
		for c, v := range row {
			attended[c] = float32(v / (peak + vector.Epsilon))
		}
		out[i] = attended
	}
	return out
}
