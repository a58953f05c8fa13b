package replay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_PrioritizedRoundTrip(t *testing.T) {
	buf := newPrioritized(t, 4, 0.5, 0.8)
	_, err := buf.Push(transitions(0, 3), WithPriorities([]float64{4, 16, 1}))
	require.NoError(t, err)
	_, err = buf.Push(transitions(3, 2), WithPriorities([]float64{9, 25}))
	require.NoError(t, err)

	snap := buf.Snapshot()
	assert.True(t, snap.Prioritized)
	assert.Equal(t, 4, snap.Capacity)
	assert.Equal(t, 25.0, snap.MaxPriority)
	assert.Equal(t, transitions(1, 4), snap.Records.Transitions())
	assert.InDeltaSlice(t, []float64{4, 1, 3, 5}, snap.Priorities, 1e-12)

	restored, err := Restore(snap, WithSeed(1))
	require.NoError(t, err)

	pb, ok := restored.(*PrioritizedBuffer)
	require.True(t, ok)
	assert.Equal(t, 4, pb.Len())
	assert.Equal(t, 0.5, pb.Alpha())
	assert.Equal(t, 0.8, pb.Beta())
	assert.Equal(t, 25.0, pb.MaxPriority())
	assert.InDelta(t, buf.TotalPriority(), pb.TotalPriority(), 1e-12)
	assert.Equal(t, buf.Export(), pb.Export())
	assert.Equal(t, snap, pb.Snapshot())
}

func TestSnapshot_UniformRoundTrip(t *testing.T) {
	buf, err := NewUniform(3, WithSeed(1))
	require.NoError(t, err)
	_, err = buf.Push(transitions(0, 5))
	require.NoError(t, err)

	snap := buf.Snapshot()
	assert.False(t, snap.Prioritized)
	assert.Nil(t, snap.Priorities)

	restored, err := Restore(snap)
	require.NoError(t, err)
	_, ok := restored.(*UniformBuffer)
	require.True(t, ok)
	assert.Equal(t, transitions(2, 3), restored.Export().Transitions())
}

func TestRestore_Validation(t *testing.T) {
	_, err := Restore(nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	buf := newPrioritized(t, 4, 0.6, 0.4)
	_, err = buf.Push(transitions(0, 2))
	require.NoError(t, err)

	snap := buf.Snapshot()
	snap.Priorities = snap.Priorities[:1]
	_, err = Restore(snap)
	assert.ErrorIs(t, err, ErrLengthMismatch)

	snap = buf.Snapshot()
	snap.Priorities[0] = 0
	_, err = Restore(snap)
	assert.ErrorIs(t, err, ErrInvalidPriority)

	snap = buf.Snapshot()
	snap.Capacity = 1
	_, err = Restore(snap)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
