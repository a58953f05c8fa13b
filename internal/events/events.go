package events

import "context"

// Buffer lifecycle event names.
const (
	EventSteadyState = "steady_state"
	EventRestored    = "restored"
)

// Publisher is implemented by downstream fan-out mechanisms.
type Publisher interface {
	PublishBufferEvent(ctx context.Context, payload BufferEvent) error
	PublishCheckpointEvent(ctx context.Context, payload CheckpointEvent) error
}

// BufferEvent is emitted when the buffer changes phase or is restored.
type BufferEvent struct {
	Event       string  `json:"event"`
	Len         int     `json:"len"`
	Capacity    int     `json:"capacity"`
	Prioritized bool    `json:"prioritized"`
	MaxPriority float64 `json:"max_priority"`
	Timestamp   int64   `json:"timestamp"`
}

// CheckpointEvent is emitted after a checkpoint was written.
type CheckpointEvent struct {
	CheckpointID string `json:"checkpoint_id"`
	Records      int    `json:"records"`
	Checksum     string `json:"checksum"`
	Trigger      string `json:"trigger"`
	CreatedAt    int64  `json:"created_at"`
}

// NoopPublisher drops every event; useful for tests and when NATS is not configured.
type NoopPublisher struct{}

// PublishBufferEvent satisfies Publisher.
func (NoopPublisher) PublishBufferEvent(context.Context, BufferEvent) error { return nil }

// PublishCheckpointEvent satisfies Publisher.
func (NoopPublisher) PublishCheckpointEvent(context.Context, CheckpointEvent) error { return nil }
