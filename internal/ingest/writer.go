// Package ingest batches transitions on the producer side and pushes them to
// a replay service.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/eapache/queue"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	replayv1 "github.com/cartridge/replay/pkg/replayv1"
)

// ErrClosed is returned by Add after Close.
var ErrClosed = errors.New("writer is closed")

// Pusher is the subset of replayv1.ReplayClient the writer needs.
type Pusher interface {
	Push(ctx context.Context, in *replayv1.PushRequest, opts ...grpc.CallOption) (*replayv1.PushResponse, error)
}

// Config holds batching configuration
type Config struct {
	BatchSize     int
	FlushInterval time.Duration
}

// Writer queues transitions and pushes them in batches of BatchSize, on every
// FlushInterval tick, and on Close. A push that fails with a transient code
// leaves the batch queued so the next flush retries it in order. A batch the
// service rejects is dropped and the error returned.
type Writer struct {
	client Pusher
	config Config
	logger zerolog.Logger

	mu      sync.Mutex
	pending *queue.Queue
	pushed  int
	dropped int
	closed  bool
}

// NewWriter creates a new batching writer
func NewWriter(client Pusher, config Config, logger zerolog.Logger) (*Writer, error) {
	if config.BatchSize <= 0 {
		return nil, fmt.Errorf("batch_size must be positive")
	}
	if config.FlushInterval <= 0 {
		return nil, fmt.Errorf("flush_interval must be positive")
	}
	return &Writer{
		client:  client,
		config:  config,
		logger:  logger,
		pending: queue.New(),
	}, nil
}

// Add queues a transition and flushes once a full batch is pending.
func (w *Writer) Add(ctx context.Context, t *replayv1.Transition) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	w.pending.Add(t)
	if w.pending.Length() < w.config.BatchSize {
		return nil
	}
	return w.flushLocked(ctx, true)
}

// Flush pushes every pending transition.
func (w *Writer) Flush(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked(ctx, false)
}

// Run flushes partial batches on every tick until ctx is cancelled.
func (w *Writer) Run(ctx context.Context) {
	ticker := time.NewTicker(w.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Flush(ctx); err != nil {
				w.logger.Warn().Err(err).Int("pending", w.Pending()).Msg("Periodic flush failed")
			}
		}
	}
}

// Close flushes what is left and rejects further Adds.
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return w.flushLocked(ctx, false)
}

// Pending returns the number of queued transitions.
func (w *Writer) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pending.Length()
}

// Pushed returns the number of transitions accepted by the service.
func (w *Writer) Pushed() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pushed
}

// Dropped returns the number of transitions discarded after the service
// rejected their batch.
func (w *Writer) Dropped() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dropped
}

// retryable reports whether a failed push may succeed when sent again.
func retryable(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled, codes.ResourceExhausted, codes.Aborted:
		return true
	default:
		return false
	}
}

// flushLocked pushes queued transitions in batches. With fullOnly set, a
// trailing partial batch stays queued.
func (w *Writer) flushLocked(ctx context.Context, fullOnly bool) error {
	for w.pending.Length() > 0 {
		n := min(w.pending.Length(), w.config.BatchSize)
		if fullOnly && n < w.config.BatchSize {
			return nil
		}

		batch := make([]*replayv1.Transition, n)
		for i := range batch {
			batch[i] = w.pending.Get(i).(*replayv1.Transition)
		}

		resp, err := w.client.Push(ctx, &replayv1.PushRequest{Transitions: batch})
		if err != nil && retryable(err) {
			return fmt.Errorf("push %d transitions: %w", n, err)
		}
		for i := 0; i < n; i++ {
			w.pending.Remove()
		}
		if err != nil {
			w.dropped += n
			w.logger.Error().Err(err).Int("batch", n).Msg("Replay rejected batch, dropping it")
			return fmt.Errorf("push %d transitions rejected: %w", n, err)
		}
		w.pushed += n

		w.logger.Debug().
			Int("batch", n).
			Uint64("buffer_len", resp.Len).
			Msg("Pushed transitions")
	}
	return nil
}
