package checkpoint

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Checkpoint triggers.
const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
	TriggerShutdown  = "shutdown"
)

// Saver writes a checkpoint of the live buffer.
type Saver interface {
	SaveCheckpoint(ctx context.Context, trigger string) (Info, error)
}

// Pruner drops old checkpoints.
type Pruner interface {
	Prune(ctx context.Context, keep int) (int64, error)
}

// SchedulerConfig holds periodic checkpoint configuration
type SchedulerConfig struct {
	Interval time.Duration
	// Keep is the number of checkpoints retained after each save; 0 keeps all.
	Keep int
}

// Scheduler writes checkpoints on a fixed interval
type Scheduler struct {
	saver  Saver
	pruner Pruner
	config SchedulerConfig
	logger zerolog.Logger
}

// NewScheduler creates a new checkpoint scheduler
func NewScheduler(saver Saver, pruner Pruner, config SchedulerConfig, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		saver:  saver,
		pruner: pruner,
		config: config,
		logger: logger,
	}
}

// Start runs the checkpoint loop until ctx is cancelled
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.logger.Info().
		Dur("interval", s.config.Interval).
		Int("keep", s.config.Keep).
		Msg("Starting checkpoint scheduler")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Checkpoint scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	info, err := s.saver.SaveCheckpoint(ctx, TriggerScheduled)
	if err != nil {
		s.logger.Error().Err(err).Msg("Scheduled checkpoint failed")
		return
	}

	s.logger.Debug().
		Str("checkpoint_id", info.ID).
		Int("records", info.Records).
		Msg("Scheduled checkpoint written")

	if s.config.Keep <= 0 || s.pruner == nil {
		return
	}
	removed, err := s.pruner.Prune(ctx, s.config.Keep)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to prune checkpoints")
		return
	}
	if removed > 0 {
		s.logger.Info().Int64("removed", removed).Msg("Pruned old checkpoints")
	}
}
