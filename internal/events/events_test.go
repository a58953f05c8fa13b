package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/sugawarayuuta/sonnet"
)

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	assert.NoError(t, p.PublishBufferEvent(context.Background(), BufferEvent{Event: EventSteadyState}))
	assert.NoError(t, p.PublishCheckpointEvent(context.Background(), CheckpointEvent{CheckpointID: "c"}))
}

func TestNATSSubjects(t *testing.T) {
	p := &NATSPublisher{subject: "replay"}
	assert.Equal(t, "replay.buffer", p.BufferSubject())
	assert.Equal(t, "replay.checkpoints", p.CheckpointSubject())
}

func TestBufferEventPayload(t *testing.T) {
	data, err := sonnet.Marshal(BufferEvent{Event: EventSteadyState, Len: 8, Capacity: 8, Prioritized: true, MaxPriority: 2})
	assert.NoError(t, err)
	assert.JSONEq(t, `{"event":"steady_state","len":8,"capacity":8,"prioritized":true,"max_priority":2,"timestamp":0}`, string(data))
}
