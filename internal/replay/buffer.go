// Package replay provides experience replay buffers for off-policy learners.
//
// Two implementations share the Buffer contract: UniformBuffer samples stored
// transitions with equal probability, PrioritizedBuffer samples them in
// proportion to priority^alpha and returns importance-sampling weights that
// correct for the induced bias.
//
// Buffers are not safe for concurrent use. Callers that push from actors while
// a learner samples must serialize access to Push, Sample and
// UpdatePriorities themselves.
package replay

import (
	"errors"
	"math/rand"
	"time"

	"github.com/cartridge/replay/internal/segtree"
	"github.com/cartridge/replay/internal/storage"
)

var (
	// ErrEmptyBuffer is returned by Sample before any transition was pushed.
	ErrEmptyBuffer = errors.New("replay buffer is empty")
	// ErrInvalidPriority is returned for priorities that are not finite and > 0.
	ErrInvalidPriority = errors.New("priority must be finite and positive")
	// ErrLengthMismatch is returned when parallel arguments differ in length.
	ErrLengthMismatch = errors.New("length mismatch")
	// ErrBatchSize is returned for non-positive sample sizes.
	ErrBatchSize = errors.New("batch size must be positive")
	// ErrInvalidConfig is returned for out of range buffer parameters.
	ErrInvalidConfig = errors.New("invalid replay buffer configuration")

	// Errors surfaced from the underlying store and trees.
	ErrShapeMismatch       = storage.ErrShapeMismatch
	ErrIndexRange          = storage.ErrIndexRange
	ErrCapacity            = segtree.ErrCapacity
	ErrPrefixSumOutOfRange = segtree.ErrPrefixSumOutOfRange
)

// Buffer is the contract shared by uniform and prioritized replay.
type Buffer interface {
	// Push stores transitions and returns the slots they were written to.
	Push(transitions []storage.Transition, opts ...PushOption) ([]int, error)
	// Sample draws batchSize transitions with replacement.
	Sample(batchSize int) (*Sample, error)
	// UpdatePriorities assigns fresh priorities to previously sampled slots.
	UpdatePriorities(indices []int, priorities []float64) error
	// Len returns the number of stored transitions.
	Len() int
	// Capacity returns the maximum number of stored transitions.
	Capacity() int
	// Export returns every stored transition, oldest first.
	Export() storage.Batch
	// Snapshot captures enough state to rebuild an equivalent buffer.
	Snapshot() *Snapshot
}

// Sample is the result of a Sample call. Weights[i] and Indices[i] describe
// the i-th record in Batch.
type Sample struct {
	Batch   storage.Batch
	Weights []float64
	Indices []int
}

// Phase describes whether pushes still fill empty slots or overwrite old ones.
type Phase string

const (
	PhaseFilling Phase = "filling"
	PhaseSteady  Phase = "steady_state"
)

// PhaseOf reports the buffer's current phase.
func PhaseOf(b Buffer) Phase {
	if b.Len() < b.Capacity() {
		return PhaseFilling
	}
	return PhaseSteady
}

type options struct {
	rng *rand.Rand
}

// Option configures a buffer at construction.
type Option func(*options)

// WithRand sets the random source used for sampling.
func WithRand(rng *rand.Rand) Option {
	return func(o *options) {
		o.rng = rng
	}
}

// WithSeed seeds the random source used for sampling.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.rng = rand.New(rand.NewSource(seed))
	}
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return o
}

type pushOptions struct {
	priorities []float64
	explicit   bool
}

// PushOption configures a single Push call.
type PushOption func(*pushOptions)

// WithPriorities assigns explicit priorities to the pushed transitions, one
// per transition. Without it, prioritized buffers use the highest priority
// seen so far so new experience is sampled at least once.
func WithPriorities(priorities []float64) PushOption {
	return func(o *pushOptions) {
		o.priorities = priorities
		o.explicit = true
	}
}

func buildPushOptions(opts []PushOption) pushOptions {
	o := pushOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
