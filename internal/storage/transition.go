package storage

// Transition represents a single experience transition
type Transition struct {
	State     []float32 `json:"state"`
	Action    []float32 `json:"action"`
	Reward    float32   `json:"reward"`
	NextState []float32 `json:"next_state"`
	Done      bool      `json:"done"`
}

// Shape is the per-record dimensionality fixed by the first push
type Shape struct {
	StateDim  int `json:"state_dim"`
	ActionDim int `json:"action_dim"`
}

// Batch holds stacked records as parallel arrays. Slices are owned by the
// caller; the store never hands out views of its own arrays.
type Batch struct {
	States     [][]float32 `json:"states"`
	Actions    [][]float32 `json:"actions"`
	Rewards    []float32   `json:"rewards"`
	NextStates [][]float32 `json:"next_states"`
	Dones      []bool      `json:"dones"`
}

// NewBatch allocates a batch with room for n records
func NewBatch(n int) Batch {
	return Batch{
		States:     make([][]float32, 0, n),
		Actions:    make([][]float32, 0, n),
		Rewards:    make([]float32, 0, n),
		NextStates: make([][]float32, 0, n),
		Dones:      make([]bool, 0, n),
	}
}

// Len returns the number of records in the batch
func (b Batch) Len() int {
	return len(b.Rewards)
}

// Append adds a copy of t to the batch
func (b *Batch) Append(t Transition) {
	b.States = append(b.States, cloneFloats(t.State))
	b.Actions = append(b.Actions, cloneFloats(t.Action))
	b.Rewards = append(b.Rewards, t.Reward)
	b.NextStates = append(b.NextStates, cloneFloats(t.NextState))
	b.Dones = append(b.Dones, t.Done)
}

// Transition returns record i as a Transition sharing the batch's slices
func (b Batch) Transition(i int) Transition {
	return Transition{
		State:     b.States[i],
		Action:    b.Actions[i],
		Reward:    b.Rewards[i],
		NextState: b.NextStates[i],
		Done:      b.Dones[i],
	}
}

// Transitions unstacks the batch into records
func (b Batch) Transitions() []Transition {
	out := make([]Transition, b.Len())
	for i := range out {
		out[i] = b.Transition(i)
	}
	return out
}

func cloneFloats(v []float32) []float32 {
	if v == nil {
		return nil
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
