package replay

import (
	"fmt"
	"math/rand"

	"github.com/cartridge/replay/internal/storage"
)

// UniformBuffer samples stored transitions with equal probability.
type UniformBuffer struct {
	store *storage.TransitionStore
	rng   *rand.Rand
}

var _ Buffer = (*UniformBuffer)(nil)

// NewUniform creates a uniform buffer holding at most capacity transitions.
func NewUniform(capacity int, opts ...Option) (*UniformBuffer, error) {
	store, err := storage.NewTransitionStore(capacity)
	if err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	return &UniformBuffer{store: store, rng: o.rng}, nil
}

// Len implements Buffer.Len
func (b *UniformBuffer) Len() int { return b.store.Len() }

// Capacity implements Buffer.Capacity
func (b *UniformBuffer) Capacity() int { return b.store.Capacity() }

// Push implements Buffer.Push. Priorities are validated and then ignored.
func (b *UniformBuffer) Push(transitions []storage.Transition, opts ...PushOption) ([]int, error) {
	if err := checkPush(len(transitions), buildPushOptions(opts)); err != nil {
		return nil, err
	}
	return b.store.Push(transitions)
}

// Sample implements Buffer.Sample. Every weight is 1.
func (b *UniformBuffer) Sample(batchSize int) (*Sample, error) {
	n := b.store.Len()
	if n == 0 {
		return nil, ErrEmptyBuffer
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrBatchSize, batchSize)
	}

	indices := make([]int, batchSize)
	weights := make([]float64, batchSize)
	for i := range indices {
		indices[i] = b.rng.Intn(n)
		weights[i] = 1.0
	}

	batch, err := b.store.Read(indices)
	if err != nil {
		return nil, err
	}
	return &Sample{Batch: batch, Weights: weights, Indices: indices}, nil
}

// UpdatePriorities implements Buffer.UpdatePriorities. Arguments are held to
// the same contract as the prioritized buffer but have no effect.
func (b *UniformBuffer) UpdatePriorities(indices []int, priorities []float64) error {
	return checkUpdate(indices, priorities, b.store.Len())
}

// Export implements Buffer.Export
func (b *UniformBuffer) Export() storage.Batch {
	return b.store.All()
}

// Snapshot implements Buffer.Snapshot
func (b *UniformBuffer) Snapshot() *Snapshot {
	shape, _ := b.store.Shape()
	return &Snapshot{
		Capacity: b.store.Capacity(),
		Shape:    shape,
		Records:  b.store.All(),
	}
}
