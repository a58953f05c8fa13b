package replay

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/cartridge/replay/internal/segtree"
	"github.com/cartridge/replay/internal/storage"
)

// maxRedraws bounds how often a sampling target that rounding pushed onto an
// empty leaf is drawn again.
const maxRedraws = 8

// PrioritizedBuffer samples transitions with probability proportional to
// priority^alpha. A sum tree maps uniform draws to slots and a min tree bounds
// the importance-sampling weights.
type PrioritizedBuffer struct {
	store *storage.TransitionStore
	sums  *segtree.SumTree
	mins  *segtree.MinTree

	alpha       float64
	beta        float64
	maxPriority float64

	rng *rand.Rand
}

var _ Buffer = (*PrioritizedBuffer)(nil)

// NewPrioritized creates a prioritized buffer. alpha controls how strongly
// priority shapes the sampling distribution (0 is uniform) and beta how
// strongly the returned weights correct for it (1 is full correction).
func NewPrioritized(capacity int, alpha, beta float64, opts ...Option) (*PrioritizedBuffer, error) {
	if alpha < 0 || math.IsNaN(alpha) || math.IsInf(alpha, 0) {
		return nil, fmt.Errorf("%w: alpha %g must be >= 0", ErrInvalidConfig, alpha)
	}
	if err := checkBeta(beta); err != nil {
		return nil, err
	}

	store, err := storage.NewTransitionStore(capacity)
	if err != nil {
		return nil, err
	}

	treeCapacity := segtree.NextPowerOfTwo(capacity)
	sums, err := segtree.NewSumTree(treeCapacity)
	if err != nil {
		return nil, err
	}
	mins, err := segtree.NewMinTree(treeCapacity)
	if err != nil {
		return nil, err
	}

	o := buildOptions(opts)
	return &PrioritizedBuffer{
		store:       store,
		sums:        sums,
		mins:        mins,
		alpha:       alpha,
		beta:        beta,
		maxPriority: 1.0,
		rng:         o.rng,
	}, nil
}

func checkBeta(beta float64) error {
	if beta < 0 || math.IsNaN(beta) || math.IsInf(beta, 0) {
		return fmt.Errorf("%w: beta %g must be >= 0", ErrInvalidConfig, beta)
	}
	return nil
}

// Alpha returns the priority exponent
func (b *PrioritizedBuffer) Alpha() float64 { return b.alpha }

// Beta returns the importance-sampling exponent
func (b *PrioritizedBuffer) Beta() float64 { return b.beta }

// SetBeta changes the importance-sampling exponent, typically annealed toward 1
func (b *PrioritizedBuffer) SetBeta(beta float64) error {
	if err := checkBeta(beta); err != nil {
		return err
	}
	b.beta = beta
	return nil
}

// MaxPriority returns the highest raw priority observed so far
func (b *PrioritizedBuffer) MaxPriority() float64 { return b.maxPriority }

// TotalPriority returns the sum of priority^alpha over stored transitions
func (b *PrioritizedBuffer) TotalPriority() float64 { return b.sums.Total() }

// Len implements Buffer.Len
func (b *PrioritizedBuffer) Len() int { return b.store.Len() }

// Capacity implements Buffer.Capacity
func (b *PrioritizedBuffer) Capacity() int { return b.store.Capacity() }

// Push implements Buffer.Push
func (b *PrioritizedBuffer) Push(transitions []storage.Transition, opts ...PushOption) ([]int, error) {
	o := buildPushOptions(opts)
	if err := checkPush(len(transitions), o); err != nil {
		return nil, err
	}

	priorities := o.priorities
	if !o.explicit {
		priorities = make([]float64, len(transitions))
		for i := range priorities {
			priorities[i] = b.maxPriority
		}
	}
	leaves, err := b.leafValues(priorities)
	if err != nil {
		return nil, err
	}

	indices, err := b.store.Push(transitions)
	if err != nil {
		return nil, err
	}
	if len(indices) == 0 {
		return indices, nil
	}

	if err := b.setLeaves(indices, leaves, priorities); err != nil {
		return nil, err
	}
	return indices, nil
}

// Sample implements Buffer.Sample. Weights are normalized by the largest
// possible weight, so every weight lies in (0, 1].
func (b *PrioritizedBuffer) Sample(batchSize int) (*Sample, error) {
	n := b.store.Len()
	if n == 0 {
		return nil, ErrEmptyBuffer
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrBatchSize, batchSize)
	}

	indices, err := b.sampleProportional(batchSize, n)
	if err != nil {
		return nil, err
	}

	leaves, err := b.sums.GetBatch(indices)
	if err != nil {
		return nil, err
	}

	// (p_i·N)^-β / (p_min·N)^-β reduces to (leaf_i/leaf_min)^-β, which keeps
	// the weight of the least likely slot at exactly 1.
	minLeaf := b.mins.Total()
	weights := make([]float64, len(indices))
	for i, leaf := range leaves {
		weights[i] = math.Pow(leaf/minLeaf, -b.beta)
	}

	batch, err := b.store.Read(indices)
	if err != nil {
		return nil, err
	}

	return &Sample{Batch: batch, Weights: weights, Indices: indices}, nil
}

func (b *PrioritizedBuffer) sampleProportional(batchSize, n int) ([]int, error) {
	total := b.sums.Total()
	targets := make([]float64, batchSize)
	for i := range targets {
		targets[i] = b.rng.Float64() * total
	}

	indices, err := b.sums.FindPrefixSumIndex(targets)
	if err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		var stale []int
		for i, idx := range indices {
			if idx >= n {
				stale = append(stale, i)
			}
		}
		if len(stale) == 0 {
			return indices, nil
		}
		if attempt == maxRedraws {
			return nil, fmt.Errorf("%w: sampled empty slot %d of %d", ErrPrefixSumOutOfRange, indices[stale[0]], n)
		}

		redraw := make([]float64, len(stale))
		for i := range redraw {
			redraw[i] = b.rng.Float64() * total
		}
		fresh, err := b.sums.FindPrefixSumIndex(redraw)
		if err != nil {
			return nil, err
		}
		for i, pos := range stale {
			indices[pos] = fresh[i]
		}
	}
}

// UpdatePriorities implements Buffer.UpdatePriorities
func (b *PrioritizedBuffer) UpdatePriorities(indices []int, priorities []float64) error {
	if err := checkUpdate(indices, priorities, b.store.Len()); err != nil {
		return err
	}
	leaves, err := b.leafValues(priorities)
	if err != nil {
		return err
	}
	return b.setLeaves(indices, leaves, priorities)
}

// leafValues raises raw priorities to alpha. Every leaf must be finite and
// positive after the exponent, not only the raw priority.
func (b *PrioritizedBuffer) leafValues(priorities []float64) ([]float64, error) {
	leaves := make([]float64, len(priorities))
	for i, p := range priorities {
		leaf := math.Pow(p, b.alpha)
		if !(leaf > 0) || math.IsInf(leaf, 1) {
			return nil, fmt.Errorf("%w: priorities[%d] = %g gives %g with alpha %g",
				ErrInvalidPriority, i, p, leaf, b.alpha)
		}
		leaves[i] = leaf
	}
	return leaves, nil
}

// setLeaves writes leaves to both trees and tracks the maximum raw priority.
func (b *PrioritizedBuffer) setLeaves(indices []int, leaves, priorities []float64) error {
	if err := b.sums.SetBatch(indices, leaves); err != nil {
		return err
	}
	if err := b.mins.SetBatch(indices, leaves); err != nil {
		return err
	}
	for _, p := range priorities {
		b.maxPriority = math.Max(b.maxPriority, p)
	}
	return nil
}

// Export implements Buffer.Export
func (b *PrioritizedBuffer) Export() storage.Batch {
	return b.store.All()
}

// Snapshot implements Buffer.Snapshot
func (b *PrioritizedBuffer) Snapshot() *Snapshot {
	indices := b.store.LogicalIndices()
	records, _ := b.store.Read(indices)
	leaves, _ := b.sums.GetBatch(indices)
	shape, _ := b.store.Shape()

	return &Snapshot{
		Prioritized: true,
		Capacity:    b.store.Capacity(),
		Alpha:       b.alpha,
		Beta:        b.beta,
		MaxPriority: b.maxPriority,
		Shape:       shape,
		Records:     records,
		Priorities:  leaves,
	}
}
