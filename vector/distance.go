package vector

import (
	"math"
	"sort"
)

// Epsilon guards divisions by near-zero norms.
const Epsilon = 1e-8

// Dot returns the inner product of two equally sized vectors.
func Dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

// Norm returns the L2 norm of v.
func Norm(v []float32) float64 { return math.Sqrt(Dot(v, v)) }

// Normalize returns a unit-length copy of v. Zero vectors are returned as a
// zero copy.
func Normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	n := Norm(v)
	if n == 0 {
		return out
	}
	for i := range v {
		out[i] = float32(float64(v[i]) / n)
	}
	return out
}

// Cosine returns the cosine similarity of a and b, clamping the norm product
// at Epsilon so zero vectors yield 0 instead of NaN.
func Cosine(a, b []float32) float64 {
	denom := Norm(a) * Norm(b)
	if denom < Epsilon {
		denom = Epsilon
	}
	return Dot(a, b) / denom
}

// LowerMedian returns the lower median of values: for an even count it is the
// smaller of the two middle elements. It returns 0 for an empty slice.
func LowerMedian(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return sorted[(len(sorted)-1)/2]
}

// Mean returns the element-wise mean of the rows selected by idx.
func Mean(rows [][]float32, idx []int) []float32 {
	if len(idx) == 0 || len(rows) == 0 {
		return nil
	}
	acc := make([]float64, len(rows[idx[0]]))
	for _, i := range idx {
		for j, v := range rows[i] {
			acc[j] += float64(v)
		}
	}
	out := make([]float32, len(acc))
	for j := range acc {
		out[j] = float32(acc[j] / float64(len(idx)))
	}
	return out
}
