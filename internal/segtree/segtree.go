// Package segtree implements fixed-capacity binary segment trees over an
// associative operator. Leaf i lives at node capacity+i and node 1 is the root,
// so every internal node n holds op(value[2n], value[2n+1]).
package segtree

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrCapacity is returned when a tree is built with a capacity that is not a
	// positive power of two.
	ErrCapacity = errors.New("capacity must be a positive power of two")
	// ErrIndexRange is returned for leaf indices or ranges outside [0, capacity).
	ErrIndexRange = errors.New("index out of range")
	// ErrLengthMismatch is returned when batch indices and values differ in length.
	ErrLengthMismatch = errors.New("indices and values length mismatch")
)

// Operator combines two values. It must be associative and have a neutral element.
type Operator[T any] func(a, b T) T

// SegmentTree supports O(log n) range reduction and point updates.
type SegmentTree[T any] struct {
	capacity int
	values   []T
	op       Operator[T]
	neutral  T
}

// New creates a tree whose leaves all hold the neutral element.
func New[T any](capacity int, op Operator[T], neutral T) (*SegmentTree[T], error) {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		return nil, fmt.Errorf("%w: got %d", ErrCapacity, capacity)
	}
	if op == nil {
		return nil, errors.New("segment tree operator is required")
	}

	values := make([]T, 2*capacity)
	for i := range values {
		values[i] = neutral
	}

	return &SegmentTree[T]{
		capacity: capacity,
		values:   values,
		op:       op,
		neutral:  neutral,
	}, nil
}

// Capacity returns the number of leaves.
func (t *SegmentTree[T]) Capacity() int {
	return t.capacity
}

// Neutral returns the identity element of the tree's operator.
func (t *SegmentTree[T]) Neutral() T {
	return t.neutral
}

// Root returns the reduction over every leaf.
func (t *SegmentTree[T]) Root() T {
	return t.values[1]
}

// Reduce folds the operator over leaves [start, end). An empty range yields the
// neutral element.
func (t *SegmentTree[T]) Reduce(start, end int) (T, error) {
	if start < 0 || end > t.capacity || start > end {
		return t.neutral, fmt.Errorf("%w: range [%d, %d) with capacity %d", ErrIndexRange, start, end, t.capacity)
	}
	if start == end {
		return t.neutral, nil
	}
	return t.reduce(start, end, 1, 0, t.capacity), nil
}

// reduce answers [start, end) for the node covering [nodeStart, nodeEnd).
func (t *SegmentTree[T]) reduce(start, end, node, nodeStart, nodeEnd int) T {
	if start == nodeStart && end == nodeEnd {
		return t.values[node]
	}

	mid := (nodeStart + nodeEnd) / 2
	switch {
	case end <= mid:
		return t.reduce(start, end, 2*node, nodeStart, mid)
	case start >= mid:
		return t.reduce(start, end, 2*node+1, mid, nodeEnd)
	default:
		return t.op(
			t.reduce(start, mid, 2*node, nodeStart, mid),
			t.reduce(mid, end, 2*node+1, mid, nodeEnd),
		)
	}
}

// Set writes a single leaf and recomputes its ancestors.
func (t *SegmentTree[T]) Set(index int, value T) error {
	if err := t.checkIndex(index); err != nil {
		return err
	}

	node := index + t.capacity
	t.values[node] = value
	for node /= 2; node >= 1; node /= 2 {
		t.values[node] = t.op(t.values[2*node], t.values[2*node+1])
	}
	return nil
}

// SetBatch writes several leaves and then recomputes their ancestors one level
// at a time. Repeated indices are applied in order, so the last value wins.
func (t *SegmentTree[T]) SetBatch(indices []int, values []T) error {
	if len(indices) != len(values) {
		return fmt.Errorf("%w: %d indices vs %d values", ErrLengthMismatch, len(indices), len(values))
	}
	for _, idx := range indices {
		if err := t.checkIndex(idx); err != nil {
			return err
		}
	}
	if len(indices) == 0 {
		return nil
	}

	nodes := make([]int, len(indices))
	for i, idx := range indices {
		node := idx + t.capacity
		t.values[node] = values[i]
		nodes[i] = node
	}

	nodes = parents(nodes)
	for len(nodes) > 0 && nodes[len(nodes)-1] > 0 {
		for _, node := range nodes {
			if node == 0 {
				continue
			}
			t.values[node] = t.op(t.values[2*node], t.values[2*node+1])
		}
		nodes = parents(nodes)
	}
	return nil
}

// parents maps nodes to their parents in place, sorted and without duplicates.
func parents(nodes []int) []int {
	for i := range nodes {
		nodes[i] /= 2
	}
	slices.Sort(nodes)
	return slices.Compact(nodes)
}

// Get returns a single leaf.
func (t *SegmentTree[T]) Get(index int) (T, error) {
	if err := t.checkIndex(index); err != nil {
		return t.neutral, err
	}
	return t.values[index+t.capacity], nil
}

// GetBatch returns the leaves at indices, in the same order.
func (t *SegmentTree[T]) GetBatch(indices []int) ([]T, error) {
	out := make([]T, len(indices))
	for i, idx := range indices {
		if err := t.checkIndex(idx); err != nil {
			return nil, err
		}
		out[i] = t.values[idx+t.capacity]
	}
	return out, nil
}

func (t *SegmentTree[T]) checkIndex(index int) error {
	if index < 0 || index >= t.capacity {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrIndexRange, index, t.capacity)
	}
	return nil
}

// NextPowerOfTwo returns the smallest power of two >= n, and 1 for n <= 1.
func NextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
