package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrShapeMismatch is returned when a record's dimensionality differs from
	// the shape fixed by the first push.
	ErrShapeMismatch = errors.New("transition shape mismatch")
	// ErrIndexRange is returned when reading a slot that holds no record.
	ErrIndexRange = errors.New("index out of range")
	// ErrCapacity is returned for a non-positive store capacity.
	ErrCapacity = errors.New("capacity must be positive")
)

// TransitionStore is a fixed-capacity circular array of transitions. Records
// are kept as flat parallel arrays; once full, each push overwrites the oldest
// slots.
type TransitionStore struct {
	capacity int
	shape    Shape
	shaped   bool

	states     []float32 // capacity * StateDim
	actions    []float32 // capacity * ActionDim
	nextStates []float32 // capacity * StateDim
	rewards    []float32
	dones      []bool

	next   int // slot the next record is written to
	filled int
}

// NewTransitionStore creates an empty store. State and action arrays are
// allocated on the first push, once their dimensions are known.
func NewTransitionStore(capacity int) (*TransitionStore, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrCapacity, capacity)
	}
	return &TransitionStore{
		capacity: capacity,
		rewards:  make([]float32, capacity),
		dones:    make([]bool, capacity),
	}, nil
}

// Capacity returns the fixed number of slots
func (s *TransitionStore) Capacity() int {
	return s.capacity
}

// Len returns the number of slots holding a record
func (s *TransitionStore) Len() int {
	return s.filled
}

// NextIndex returns the slot the next pushed record will occupy
func (s *TransitionStore) NextIndex() int {
	return s.next
}

// Shape returns the record shape and whether it has been fixed yet
func (s *TransitionStore) Shape() (Shape, bool) {
	return s.shape, s.shaped
}

// Push writes the batch into consecutive circular slots starting at the write
// cursor and returns those slots. The batch is validated as a whole before any
// slot is written.
func (s *TransitionStore) Push(transitions []Transition) ([]int, error) {
	if len(transitions) == 0 {
		return nil, nil
	}

	shape := s.shape
	if !s.shaped {
		shape = Shape{StateDim: len(transitions[0].State), ActionDim: len(transitions[0].Action)}
	}
	for i, t := range transitions {
		if err := checkShape(shape, t); err != nil {
			return nil, fmt.Errorf("transition %d: %w", i, err)
		}
	}

	if !s.shaped {
		s.shape = shape
		s.shaped = true
		s.states = make([]float32, s.capacity*shape.StateDim)
		s.actions = make([]float32, s.capacity*shape.ActionDim)
		s.nextStates = make([]float32, s.capacity*shape.StateDim)
	}

	indices := make([]int, len(transitions))
	for i, t := range transitions {
		slot := (s.next + i) % s.capacity
		indices[i] = slot
		s.write(slot, t)
	}

	s.next = (s.next + len(transitions)) % s.capacity
	s.filled = min(s.filled+len(transitions), s.capacity)

	return indices, nil
}

func checkShape(shape Shape, t Transition) error {
	if len(t.State) != shape.StateDim || len(t.NextState) != shape.StateDim {
		return fmt.Errorf("%w: state dims %d/%d, want %d",
			ErrShapeMismatch, len(t.State), len(t.NextState), shape.StateDim)
	}
	if len(t.Action) != shape.ActionDim {
		return fmt.Errorf("%w: action dim %d, want %d", ErrShapeMismatch, len(t.Action), shape.ActionDim)
	}
	return nil
}

func (s *TransitionStore) write(slot int, t Transition) {
	sd, ad := s.shape.StateDim, s.shape.ActionDim
	copy(s.states[slot*sd:(slot+1)*sd], t.State)
	copy(s.actions[slot*ad:(slot+1)*ad], t.Action)
	copy(s.nextStates[slot*sd:(slot+1)*sd], t.NextState)
	s.rewards[slot] = t.Reward
	s.dones[slot] = t.Done
}

// Read returns copies of the records at indices, in the given order
func (s *TransitionStore) Read(indices []int) (Batch, error) {
	for _, idx := range indices {
		if idx < 0 || idx >= s.filled {
			return Batch{}, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexRange, idx, s.filled)
		}
	}

	batch := NewBatch(len(indices))
	sd, ad := s.shape.StateDim, s.shape.ActionDim
	for _, idx := range indices {
		batch.States = append(batch.States, cloneFloats(s.states[idx*sd:(idx+1)*sd]))
		batch.Actions = append(batch.Actions, cloneFloats(s.actions[idx*ad:(idx+1)*ad]))
		batch.Rewards = append(batch.Rewards, s.rewards[idx])
		batch.NextStates = append(batch.NextStates, cloneFloats(s.nextStates[idx*sd:(idx+1)*sd]))
		batch.Dones = append(batch.Dones, s.dones[idx])
	}
	return batch, nil
}

// LogicalIndices returns the filled slots ordered from oldest to newest
func (s *TransitionStore) LogicalIndices() []int {
	indices := make([]int, s.filled)
	start := 0
	if s.filled == s.capacity {
		start = s.next
	}
	for i := range indices {
		indices[i] = (start + i) % s.capacity
	}
	return indices
}

// All returns every stored record in insertion order, oldest first
func (s *TransitionStore) All() Batch {
	batch, _ := s.Read(s.LogicalIndices())
	return batch
}
