package metrics

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg, zerolog.New(io.Discard))

	c.Pushed(3)
	c.Pushed(2)
	c.Sampled(32)
	c.PrioritiesUpdated(32)
	c.BufferState(5, 8, 2.5, 4.25)
	c.RPC("Push", "OK", time.Millisecond)
	c.RPC("Push", "InvalidArgument", time.Millisecond)
	c.CheckpointSaved("ckpt", 5, time.Second)
	c.CheckpointFailed(errors.New("disk full"))

	assert.Equal(t, 5.0, testutil.ToFloat64(c.pushed))
	assert.Equal(t, 32.0, testutil.ToFloat64(c.sampled))
	assert.Equal(t, 32.0, testutil.ToFloat64(c.updated))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.size))
	assert.Equal(t, 8.0, testutil.ToFloat64(c.capacity))
	assert.Equal(t, 2.5, testutil.ToFloat64(c.maxPriority))
	assert.Equal(t, 4.25, testutil.ToFloat64(c.totalPriority))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("Push", "OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("Push", "InvalidArgument")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.checkpoints.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.checkpoints.WithLabelValues("error")))
}

func TestCollector_RegistersOnProvidedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg, zerolog.New(io.Discard))

	families, err := reg.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["replay_buffer_size"])
	assert.True(t, names["replay_transitions_pushed_total"])
}
