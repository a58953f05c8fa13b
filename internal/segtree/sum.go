package segtree

import (
	"errors"
	"fmt"
)

// PrefixSumTolerance is how far above the total mass a prefix-sum target may
// sit before it is rejected.
const PrefixSumTolerance = 1e-5

// ErrPrefixSumOutOfRange is returned for prefix-sum targets outside
// [0, Total()+PrefixSumTolerance].
var ErrPrefixSumOutOfRange = errors.New("prefix sum target out of range")

// SumTree is a segment tree over float64 addition.
type SumTree struct {
	*SegmentTree[float64]
}

// NewSumTree creates a sum tree with every leaf set to zero.
func NewSumTree(capacity int) (*SumTree, error) {
	tree, err := New[float64](capacity, func(a, b float64) float64 { return a + b }, 0)
	if err != nil {
		return nil, err
	}
	return &SumTree{SegmentTree: tree}, nil
}

// Sum returns the total mass of leaves [start, end).
func (s *SumTree) Sum(start, end int) (float64, error) {
	return s.Reduce(start, end)
}

// Total returns the mass of every leaf.
func (s *SumTree) Total() float64 {
	return s.Root()
}

// FindPrefixSumIndex maps each target to the leaf whose cumulative range
// straddles it: the returned i satisfies sum[0, i) <= t < sum[0, i+1). Each
// target descends the tree independently.
func (s *SumTree) FindPrefixSumIndex(targets []float64) ([]int, error) {
	total := s.Total()
	for _, target := range targets {
		if !(target >= 0 && target <= total+PrefixSumTolerance) {
			return nil, fmt.Errorf("%w: %g not in [0, %g]", ErrPrefixSumOutOfRange, target, total)
		}
	}

	out := make([]int, len(targets))
	for i, target := range targets {
		out[i] = s.descend(target)
	}
	return out, nil
}

func (s *SumTree) descend(remaining float64) int {
	node := 1
	for node < s.capacity {
		left := 2 * node
		if s.values[left] > remaining {
			node = left
			continue
		}
		remaining -= s.values[left]
		node = left + 1
	}
	return node - s.capacity
}
