package segtree

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsNonPowerOfTwo(t *testing.T) {
	for _, capacity := range []int{0, -4, 3, 6, 100} {
		_, err := NewSumTree(capacity)
		assert.ErrorIsf(t, err, ErrCapacity, "capacity %d", capacity)
	}

	for _, capacity := range []int{1, 2, 4, 1024} {
		tree, err := NewMinTree(capacity)
		require.NoErrorf(t, err, "capacity %d", capacity)
		assert.Equal(t, capacity, tree.Capacity())
	}
}

func TestReduce_MatchesLinearFold(t *testing.T) {
	const capacity = 16
	tree, err := NewSumTree(capacity)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))
	leaves := make([]float64, capacity)
	for i := range leaves {
		leaves[i] = float64(rng.Intn(50))
		require.NoError(t, tree.Set(i, leaves[i]))
	}

	for start := 0; start <= capacity; start++ {
		for end := start; end <= capacity; end++ {
			want := 0.0
			for i := start; i < end; i++ {
				want += leaves[i]
			}
			got, err := tree.Sum(start, end)
			require.NoError(t, err)
			assert.Equalf(t, want, got, "range [%d, %d)", start, end)
		}
	}
}

func TestReduce_NonCommutativeOperatorFoldsLeftToRight(t *testing.T) {
	// Concatenation is associative but not commutative, so this catches
	// operands combined in the wrong order.
	tree, err := New[string](8, func(a, b string) string { return a + b }, "")
	require.NoError(t, err)

	for i, s := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		require.NoError(t, tree.Set(i, s))
	}

	got, err := tree.Reduce(1, 6)
	require.NoError(t, err)
	assert.Equal(t, "bcdef", got)
	assert.Equal(t, "abcdefgh", tree.Root())
}

func TestReduce_RangeErrors(t *testing.T) {
	tree, err := NewSumTree(4)
	require.NoError(t, err)

	_, err = tree.Reduce(-1, 2)
	assert.ErrorIs(t, err, ErrIndexRange)
	_, err = tree.Reduce(0, 5)
	assert.ErrorIs(t, err, ErrIndexRange)
	_, err = tree.Reduce(3, 2)
	assert.ErrorIs(t, err, ErrIndexRange)

	v, err := tree.Reduce(2, 2)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)
}

func TestSetBatch_KeepsInternalNodesConsistent(t *testing.T) {
	const capacity = 32
	tree, err := NewSumTree(capacity)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(11))
	for round := 0; round < 50; round++ {
		n := 1 + rng.Intn(capacity)
		indices := make([]int, n)
		values := make([]float64, n)
		for i := range indices {
			indices[i] = rng.Intn(capacity)
			values[i] = rng.Float64() * 10
		}
		require.NoError(t, tree.SetBatch(indices, values))
		assertSumInvariant(t, tree)
	}
}

func TestSetBatch_DuplicateIndicesLastWins(t *testing.T) {
	tree, err := NewSumTree(4)
	require.NoError(t, err)

	require.NoError(t, tree.SetBatch([]int{3, 0, 3}, []float64{1, 2, 5}))

	v, err := tree.Get(3)
	require.NoError(t, err)
	assert.Equal(t, 5.0, v)
	assert.Equal(t, 7.0, tree.Total())
}

func TestSetBatch_Errors(t *testing.T) {
	tree, err := NewMinTree(4)
	require.NoError(t, err)

	assert.ErrorIs(t, tree.SetBatch([]int{0, 1}, []float64{1}), ErrLengthMismatch)
	assert.ErrorIs(t, tree.SetBatch([]int{0, 4}, []float64{1, 2}), ErrIndexRange)

	// A rejected batch leaves the tree untouched.
	assert.True(t, math.IsInf(tree.Total(), 1))
}

func TestGet_Bounds(t *testing.T) {
	tree, err := NewSumTree(4)
	require.NoError(t, err)
	require.NoError(t, tree.SetBatch([]int{0, 1, 2, 3}, []float64{1, 2, 3, 4}))

	got, err := tree.GetBatch([]int{3, 1})
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 2}, got)

	_, err = tree.Get(4)
	assert.ErrorIs(t, err, ErrIndexRange)
	_, err = tree.GetBatch([]int{0, -1})
	assert.ErrorIs(t, err, ErrIndexRange)
}

func TestMinTree(t *testing.T) {
	tree, err := NewMinTree(8)
	require.NoError(t, err)
	require.NoError(t, tree.SetBatch([]int{0, 1, 2, 5}, []float64{4, 0.5, 3, 2}))

	assert.Equal(t, 0.5, tree.Total())

	v, err := tree.Min(2, 8)
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)

	v, err = tree.Min(6, 8)
	require.NoError(t, err)
	assert.True(t, math.IsInf(v, 1))
}

func TestFindPrefixSumIndex_Boundaries(t *testing.T) {
	tree, err := NewSumTree(4)
	require.NoError(t, err)
	require.NoError(t, tree.SetBatch([]int{0, 1, 2, 3}, []float64{1, 2, 3, 4}))

	got, err := tree.FindPrefixSumIndex([]float64{0, 2.9, 3.0, 9.9})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, got)

	got, err = tree.FindPrefixSumIndex([]float64{0.999, 1.0, 5.999, 6.0, 10})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 3}, got)
}

func TestFindPrefixSumIndex_OutOfRange(t *testing.T) {
	tree, err := NewSumTree(4)
	require.NoError(t, err)
	require.NoError(t, tree.SetBatch([]int{0, 1}, []float64{1, 1}))

	_, err = tree.FindPrefixSumIndex([]float64{-0.1})
	assert.ErrorIs(t, err, ErrPrefixSumOutOfRange)
	_, err = tree.FindPrefixSumIndex([]float64{1, 2.1})
	assert.ErrorIs(t, err, ErrPrefixSumOutOfRange)
	_, err = tree.FindPrefixSumIndex([]float64{math.NaN()})
	assert.ErrorIs(t, err, ErrPrefixSumOutOfRange)

	_, err = tree.FindPrefixSumIndex([]float64{2 + PrefixSumTolerance/2})
	assert.NoError(t, err)
}

func TestFindPrefixSumIndex_SkipsZeroLeaves(t *testing.T) {
	tree, err := NewSumTree(8)
	require.NoError(t, err)
	require.NoError(t, tree.SetBatch([]int{2, 6}, []float64{1, 1}))

	got, err := tree.FindPrefixSumIndex([]float64{0, 0.5, 1, 1.5})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 6, 6}, got)
}

func TestFindPrefixSumIndex_Distribution(t *testing.T) {
	tree, err := NewSumTree(4)
	require.NoError(t, err)
	require.NoError(t, tree.SetBatch([]int{0, 1, 2, 3}, []float64{1, 3, 5, 7}))

	rng := rand.New(rand.NewSource(42))
	const draws = 100000
	targets := make([]float64, draws)
	for i := range targets {
		targets[i] = rng.Float64() * tree.Total()
	}

	idx, err := tree.FindPrefixSumIndex(targets)
	require.NoError(t, err)

	counts := make([]int, 4)
	for _, i := range idx {
		counts[i]++
	}
	for i, weight := range []float64{1, 3, 5, 7} {
		assert.InDeltaf(t, weight/16, float64(counts[i])/draws, 0.01, "leaf %d", i)
	}
}

func TestNextPowerOfTwo(t *testing.T) {
	cases := map[int]int{0: 1, 1: 1, 2: 2, 3: 4, 5: 8, 1000: 1024, 1024: 1024}
	for in, want := range cases {
		assert.Equalf(t, want, NextPowerOfTwo(in), "NextPowerOfTwo(%d)", in)
	}
}

func assertSumInvariant(t *testing.T, tree *SumTree) {
	t.Helper()
	for node := 1; node < tree.capacity; node++ {
		assert.InDeltaf(t, tree.values[2*node]+tree.values[2*node+1], tree.values[node], 1e-9, "node %d", node)
	}
	leafSum := 0.0
	for i := 0; i < tree.capacity; i++ {
		leafSum += tree.values[tree.capacity+i]
	}
	assert.InDelta(t, leafSum, tree.Total(), 1e-9)
}
