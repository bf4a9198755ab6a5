package semquery

import (
	"fmt"
	"math"
	"sort"

	"github.com/viant/semvec/vector"
)

const (
	// kernelNormFloor leaves rows with smaller norms unnormalised.
	kernelNormFloor = 1e-6
	// seedNormEpsilon is added to norms when ranking seeds.
	seedNormEpsilon = 1e-6
)

// State describes how Condense stopped.
type State int

const (
	Running State = iota
	Saturated
	MaxStepsReached
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Saturated:
		return "saturated"
	case MaxStepsReached:
		return "max_steps_reached"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Query holds a document's vectors and their affinity kernel.
type Query struct {
	vectors [][]float32
	kernel  [][]float64
}

// New builds the affinity kernel for vectors.
func New(vectors [][]float32) (*Query, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("semquery: no vectors")
	}
	dim := len(vectors[0])
	phase := make([][]float32, len(vectors))
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: item %d has %d values, want %d", vector.ErrDimension, i, len(v), dim)
		}
		if vector.Norm(v) > kernelNormFloor {
			phase[i] = vector.Normalize(v)
		} else {
			phase[i] = v
		}
	}
	kernel := make([][]float64, len(vectors))
	for i := range phase {
		kernel[i] = make([]float64, len(vectors))
		for j := range phase {
			kernel[i][j] = vector.Dot(phase[i], phase[j])
		}
	}
	return &Query{vectors: vectors, kernel: kernel}, nil
}

// Len returns the number of items.
func (q *Query) Len() int { return len(q.vectors) }

// Kernel returns the affinity between items i and j.
func (q *Query) Kernel(i, j int) float64 { return q.kernel[i][j] }

// Excite orders every item by its mean affinity to seeds, descending, ties
// by ascending index.
func (q *Query) Excite(seeds []int) []int {
	score := make([]float64, len(q.vectors))
	if len(seeds) > 0 {
		for _, s := range seeds {
			for j, v := range q.kernel[s] {
				score[j] += v
			}
		}
		for j := range score {
			score[j] /= float64(len(seeds))
		}
	}
	return rank(score)
}

// seeds returns the k items closest in direction to query.
func (q *Query) seeds(query []float32, k int) []int {
	qn := vector.Norm(query) + seedNormEpsilon
	score := make([]float64, len(q.vectors))
	for i, v := range q.vectors {
		score[i] = vector.Dot(query, v) / (qn * (vector.Norm(v) + seedNormEpsilon))
	}
	return rank(score)[:k]
}

// Result is the outcome of Condense.
type Result struct {
	// Q is the condensed query.
	Q []float32
	// Top holds the structure carriers of the last step.
	Top   []int
	Steps int
	State State
}

// Condense iterates seed selection and excitation from q0. Each step moves
// the query to karma·q0 + (1-karma)·mean(V[top]); it stops as Saturated once
// a step moves the query by less than epsilon, otherwise after max steps.
func (q *Query) Condense(q0 []float32, opts ...Option) (*Result, error) {
	o := newOptions(opts)
	if len(q0) != len(q.vectors[0]) {
		return nil, fmt.Errorf("%w: query has %d values, want %d", vector.ErrDimension, len(q0), len(q.vectors[0]))
	}
	k := o.k
	if k > len(q.vectors) {
		k = len(q.vectors)
	}
	result := &Result{Q: append([]float32(nil), q0...), State: Running}
	for result.State == Running {
		seeds := q.seeds(result.Q, k)
		top := q.Excite(seeds)[:k]
		anchor := vector.Mean(q.vectors, top)
		next := make([]float32, len(q0))
		for i := range next {
			next[i] = float32(o.karma*float64(q0[i]) + (1-o.karma)*float64(anchor[i]))
		}
		moved := distance(next, result.Q)
		result.Q, result.Top = next, top
		result.Steps++
		switch {
		case moved < o.epsilon:
			result.State = Saturated
		case result.Steps >= o.maxSteps:
			result.State = MaxStepsReached
		}
	}
	return result, nil
}

// Skeletonize returns the items i in [1, Len()) ordered by how sharply they
// break from item i-1 (1 - cos(V[i], V[i-1])), descending, ties by ascending
// index.
func (q *Query) Skeletonize() []int {
	if len(q.vectors) < 2 {
		return nil
	}
	deltas := make([]float64, len(q.vectors)-1)
	for i := 1; i < len(q.vectors); i++ {
		deltas[i-1] = 1 - vector.Cosine(q.vectors[i], q.vectors[i-1])
	}
	order := rank(deltas)
	for i := range order {
		order[i]++
	}
	return order
}

// Select returns the sorted union of the condensed carriers for query and
// the k sharpest skeleton points. alpha is accepted for interface
// compatibility and does not weight the union.
func (q *Query) Select(query []float32, k int, alpha float64, opts ...Option) ([]int, error) {
	_ = alpha
	result, err := q.Condense(query, append(opts, WithK(k))...)
	if err != nil {
		return nil, err
	}
	skeleton := q.Skeletonize()
	if len(skeleton) > k {
		skeleton = skeleton[:k]
	}
	set := make(map[int]struct{}, len(result.Top)+len(skeleton))
	for _, i := range result.Top {
		set[i] = struct{}{}
	}
	for _, i := range skeleton {
		set[i] = struct{}{}
	}
	out := make([]int, 0, len(set))
	for i := range set {
		out = append(out, i)
	}
	sort.Ints(out)
	return out, nil
}

// rank returns indices ordered by score descending, ties ascending.
func rank(score []float64) []int {
	order := make([]int, len(score))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return score[order[a]] > score[order[b]] })
	return order
}

func distance(a, b []float32) float64 {
	var s float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		s += d * d
	}
	return math.Sqrt(s)
}
