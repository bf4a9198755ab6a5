package semquery

import (
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/semvec/vector"
)

func sample() [][]float32 {
	return [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
		{0, 0.9, 0.1},
		{0, 0, 1},
		{0.1, 0, 0.9},
	}
}

func TestNew(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
	_, err = New([][]float32{{1, 0}, {1}})
	assert.True(t, errors.Is(err, vector.ErrDimension))

	q, err := New([][]float32{{2, 0}, {0, 0}, {0, 3}})
	require.NoError(t, err)
	assert.InDelta(t, 1, q.Kernel(0, 0), 1e-9)
	assert.InDelta(t, 0, q.Kernel(0, 2), 1e-9)
	assert.InDelta(t, 0, q.Kernel(1, 1), 1e-9, "zero rows stay unnormalised")
}

func TestExcite(t *testing.T) {
	q, err := New(sample())
	require.NoError(t, err)
	order := q.Excite([]int{0})
	require.Len(t, order, 6)
	assert.Equal(t, []int{0, 1, 5}, order[:3])
}

// previousQ replays a condensation one step short of res and returns the
// query it had reached.
func previousQ(t *testing.T, q *Query, q0 []float32, res *Result, opts ...Option) []float32 {
	t.Helper()
	if res.Steps == 1 {
		return q0
	}
	prev, err := q.Condense(q0, append(opts, WithMaxSteps(res.Steps-1))...)
	require.NoError(t, err)
	require.Equal(t, MaxStepsReached, prev.State)
	return prev.Q
}

func TestCondense(t *testing.T) {
	q, err := New(sample())
	require.NoError(t, err)
	q0 := []float32{1, 0.2, 0}

	t.Run("karma one saturates immediately", func(t *testing.T) {
		res, err := q.Condense(q0, WithKarma(1), WithK(2))
		require.NoError(t, err)
		assert.Equal(t, Saturated, res.State)
		assert.Equal(t, 1, res.Steps)
		assert.Equal(t, q0, res.Q)
		assert.ElementsMatch(t, []int{0, 1}, res.Top)
	})

	t.Run("full carrier set converges to the mean", func(t *testing.T) {
		opts := []Option{WithKarma(0), WithK(100)}
		res, err := q.Condense(q0, opts...)
		require.NoError(t, err)
		assert.Equal(t, Saturated, res.State)
		assert.Equal(t, 2, res.Steps)
		assert.Less(t, distance(res.Q, previousQ(t, q, q0, res, opts...)), 0.001)
		all := []int{0, 1, 2, 3, 4, 5}
		mean := vector.Mean(sample(), all)
		for i := range mean {
			assert.InDelta(t, mean[i], res.Q[i], 1e-6)
		}
		sorted := append([]int(nil), res.Top...)
		sort.Ints(sorted)
		assert.Equal(t, all, sorted)
	})

	t.Run("step limit", func(t *testing.T) {
		res, err := q.Condense(q0, WithEpsilon(-1), WithMaxSteps(5))
		require.NoError(t, err)
		assert.Equal(t, MaxStepsReached, res.State)
		assert.Equal(t, 5, res.Steps)
	})

	t.Run("defaults terminate", func(t *testing.T) {
		res, err := q.Condense(q0)
		require.NoError(t, err)
		assert.NotEqual(t, Running, res.State)
		assert.LessOrEqual(t, res.Steps, 16)
		assert.Len(t, res.Top, 6)
		if res.State == Saturated {
			assert.Less(t, distance(res.Q, previousQ(t, q, q0, res)), 0.001)
		}
	})

	_, err = q.Condense([]float32{1})
	assert.True(t, errors.Is(err, vector.ErrDimension))
}

func TestSkeletonize(t *testing.T) {
	q, err := New([][]float32{{1, 0}, {1, 0}, {0, 1}, {0, 1}})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1, 3}, q.Skeletonize())

	single, err := New([][]float32{{1, 0}})
	require.NoError(t, err)
	assert.Nil(t, single.Skeletonize())
}

func TestSelect(t *testing.T) {
	q, err := New(sample())
	require.NoError(t, err)
	got, err := q.Select([]float32{1, 0, 0}, 2, 0.5)
	require.NoError(t, err)
	assert.True(t, sort.IntsAreSorted(got))
	seen := map[int]bool{}
	for _, i := range got {
		assert.False(t, seen[i], "duplicate %d", i)
		seen[i] = true
	}
	skeleton := q.Skeletonize()[:2]
	for _, i := range skeleton {
		assert.True(t, seen[i], "skeleton point %d selected", i)
	}
	assert.LessOrEqual(t, len(got), 4)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "saturated", Saturated.String())
	assert.Equal(t, "max_steps_reached", MaxStepsReached.String())
	assert.Equal(t, "State(9)", State(9).String())
}
