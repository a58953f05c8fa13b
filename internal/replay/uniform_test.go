package replay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartridge/replay/internal/storage"
)

func TestUniformBuffer_SampleEmpty(t *testing.T) {
	buf, err := NewUniform(4, WithSeed(1))
	require.NoError(t, err)

	_, err = buf.Sample(1)
	assert.ErrorIs(t, err, ErrEmptyBuffer)
}

func TestUniformBuffer_Wraparound(t *testing.T) {
	buf, err := NewUniform(3, WithSeed(1))
	require.NoError(t, err)

	var assigned []int
	for i := 0; i < 5; i++ {
		indices, err := buf.Push(transitions(i, 1))
		require.NoError(t, err)
		assigned = append(assigned, indices...)
	}

	assert.Equal(t, []int{0, 1, 2, 0, 1}, assigned)
	assert.Equal(t, 3, buf.Len())
	assert.Equal(t, PhaseSteady, PhaseOf(buf))
	assert.Equal(t, []storage.Transition{transition(2), transition(3), transition(4)}, buf.Export().Transitions())
}

func TestUniformBuffer_SampleWeightsAreOne(t *testing.T) {
	buf, err := NewUniform(10, WithSeed(7))
	require.NoError(t, err)
	_, err = buf.Push(transitions(0, 4))
	require.NoError(t, err)

	sample, err := buf.Sample(100)
	require.NoError(t, err)
	assert.Len(t, sample.Indices, 100)
	assert.Equal(t, 100, sample.Batch.Len())

	seen := map[int]bool{}
	for i, idx := range sample.Indices {
		assert.Equal(t, 1.0, sample.Weights[i])
		assert.Less(t, idx, 4)
		assert.Equal(t, transition(float32(idx)), sample.Batch.Transition(i))
		seen[idx] = true
	}
	assert.Len(t, seen, 4)
}

func TestUniformBuffer_UpdatePrioritiesValidates(t *testing.T) {
	buf, err := NewUniform(4, WithSeed(1))
	require.NoError(t, err)
	_, err = buf.Push(transitions(0, 2))
	require.NoError(t, err)

	assert.NoError(t, buf.UpdatePriorities([]int{0, 1}, []float64{0.3, 4}))
	assert.ErrorIs(t, buf.UpdatePriorities([]int{0}, []float64{0}), ErrInvalidPriority)
	assert.ErrorIs(t, buf.UpdatePriorities([]int{2}, []float64{1}), ErrIndexRange)
}

func TestBuffer_SharedContract(t *testing.T) {
	uniform, err := NewUniform(8, WithSeed(5))
	require.NoError(t, err)
	prioritized, err := NewPrioritized(8, 0.6, 0.4, WithSeed(5))
	require.NoError(t, err)

	for name, buf := range map[string]Buffer{"uniform": uniform, "prioritized": prioritized} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, PhaseFilling, PhaseOf(buf))

			pushed := transitions(0, 6)
			indices, err := buf.Push(pushed)
			require.NoError(t, err)
			assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, indices)
			assert.Equal(t, 6, buf.Len())
			assert.Equal(t, pushed, buf.Export().Transitions())

			sample, err := buf.Sample(5)
			require.NoError(t, err)
			assert.Len(t, sample.Weights, 5)
			require.NoError(t, buf.UpdatePriorities(sample.Indices, []float64{1, 1, 1, 1, 1}))

			bad := transition(9)
			bad.Action = []float32{1, 2}
			_, err = buf.Push([]storage.Transition{bad})
			assert.ErrorIs(t, err, ErrShapeMismatch)
		})
	}
}
