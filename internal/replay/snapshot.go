package replay

import (
	"fmt"
	"math"

	"github.com/cartridge/replay/internal/storage"
)

// Snapshot is a checkpointable copy of a buffer. Records are in insertion
// order, oldest first. For prioritized buffers Priorities holds the stored
// priority^alpha of each record in the same order.
type Snapshot struct {
	Prioritized bool
	Capacity    int
	Alpha       float64
	Beta        float64
	MaxPriority float64
	Shape       storage.Shape
	Records     storage.Batch
	Priorities  []float64
}

// Len returns the number of records in the snapshot
func (s *Snapshot) Len() int {
	return s.Records.Len()
}

// Restore rebuilds a buffer equivalent to the one the snapshot was taken
// from: same contents in the same logical order and, for prioritized buffers,
// the same sampling distribution and maximum priority.
func Restore(s *Snapshot, opts ...Option) (Buffer, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil snapshot", ErrInvalidConfig)
	}
	if s.Len() > s.Capacity {
		return nil, fmt.Errorf("%w: %d records exceed capacity %d", ErrInvalidConfig, s.Len(), s.Capacity)
	}

	if !s.Prioritized {
		buf, err := NewUniform(s.Capacity, opts...)
		if err != nil {
			return nil, err
		}
		if _, err := buf.Push(s.Records.Transitions()); err != nil {
			return nil, err
		}
		return buf, nil
	}

	if len(s.Priorities) != s.Len() {
		return nil, fmt.Errorf("%w: %d records vs %d priorities", ErrLengthMismatch, s.Len(), len(s.Priorities))
	}
	if err := validatePriorities(s.Priorities); err != nil {
		return nil, err
	}
	if !(s.MaxPriority > 0) || math.IsInf(s.MaxPriority, 1) {
		return nil, fmt.Errorf("%w: max priority %g", ErrInvalidPriority, s.MaxPriority)
	}

	buf, err := NewPrioritized(s.Capacity, s.Alpha, s.Beta, opts...)
	if err != nil {
		return nil, err
	}
	indices, err := buf.store.Push(s.Records.Transitions())
	if err != nil {
		return nil, err
	}
	if err := buf.setLeaves(indices, s.Priorities, nil); err != nil {
		return nil, err
	}
	buf.maxPriority = s.MaxPriority
	return buf, nil
}
