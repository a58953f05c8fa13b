package segtree

import "math"

// MinTree is a segment tree over float64 minimum. Unset leaves hold +Inf.
type MinTree struct {
	*SegmentTree[float64]
}

// NewMinTree creates a min tree with every leaf set to +Inf.
func NewMinTree(capacity int) (*MinTree, error) {
	tree, err := New[float64](capacity, math.Min, math.Inf(1))
	if err != nil {
		return nil, err
	}
	return &MinTree{SegmentTree: tree}, nil
}

// Min returns the smallest leaf in [start, end).
func (m *MinTree) Min(start, end int) (float64, error) {
	return m.Reduce(start, end)
}

// Total returns the smallest leaf in the whole tree.
func (m *MinTree) Total() float64 {
	return m.Root()
}
