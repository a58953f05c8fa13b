package events

import (
	"context"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/sugawarayuuta/sonnet"
)

// NATSPublisher implements Publisher using NATS
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewNATSPublisher connects to natsURL and publishes under subject.
func NewNATSPublisher(natsURL, subject string, logger zerolog.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(natsURL, nats.Name("replay"))
	if err != nil {
		return nil, err
	}

	return &NATSPublisher{
		conn:    conn,
		subject: subject,
		logger:  logger,
	}, nil
}

// Close drains pending messages and closes the NATS connection
func (n *NATSPublisher) Close() {
	if n.conn == nil {
		return
	}
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
	}
}

// BufferSubject is the subject buffer events are published on.
func (n *NATSPublisher) BufferSubject() string { return n.subject + ".buffer" }

// CheckpointSubject is the subject checkpoint events are published on.
func (n *NATSPublisher) CheckpointSubject() string { return n.subject + ".checkpoints" }

// PublishBufferEvent publishes buffer lifecycle events to NATS
func (n *NATSPublisher) PublishBufferEvent(ctx context.Context, event BufferEvent) error {
	subject := n.BufferSubject()
	if err := n.publish(subject, event); err != nil {
		n.logger.Error().Err(err).Str("subject", subject).Msg("Failed to publish buffer event")
		return err
	}

	n.logger.Debug().
		Str("event", event.Event).
		Int("len", event.Len).
		Str("subject", subject).
		Msg("Published buffer event")
	return nil
}

// PublishCheckpointEvent publishes checkpoint events to NATS
func (n *NATSPublisher) PublishCheckpointEvent(ctx context.Context, event CheckpointEvent) error {
	subject := n.CheckpointSubject()
	if err := n.publish(subject, event); err != nil {
		n.logger.Error().Err(err).Str("subject", subject).Msg("Failed to publish checkpoint event")
		return err
	}

	n.logger.Debug().
		Str("checkpoint_id", event.CheckpointID).
		Str("trigger", event.Trigger).
		Str("subject", subject).
		Msg("Published checkpoint event")
	return nil
}

func (n *NATSPublisher) publish(subject string, payload any) error {
	data, err := sonnet.Marshal(payload)
	if err != nil {
		return err
	}
	return n.conn.Publish(subject, data)
}
