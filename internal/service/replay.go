package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/cartridge/replay/internal/checkpoint"
	"github.com/cartridge/replay/internal/config"
	"github.com/cartridge/replay/internal/events"
	"github.com/cartridge/replay/internal/metrics"
	"github.com/cartridge/replay/internal/replay"
	"github.com/cartridge/replay/internal/storage"
	replayv1 "github.com/cartridge/replay/pkg/replayv1"
)

// CheckpointStore persists buffer snapshots.
type CheckpointStore interface {
	Save(ctx context.Context, snap *replay.Snapshot) (checkpoint.Info, error)
	Load(ctx context.Context, id string) (*replay.Snapshot, checkpoint.Info, error)
	Latest(ctx context.Context) (*replay.Snapshot, checkpoint.Info, error)
	List(ctx context.Context, limit int) ([]checkpoint.Info, error)
}

// prioritized is the part of *replay.PrioritizedBuffer the service reports on.
type prioritized interface {
	Alpha() float64
	Beta() float64
	SetBeta(beta float64) error
	MaxPriority() float64
	TotalPriority() float64
}

// Option configures a ReplayService.
type Option func(*ReplayService)

// WithCheckpointStore enables the Checkpoint RPC and Restore.
func WithCheckpointStore(store CheckpointStore) Option {
	return func(s *ReplayService) {
		s.checkpoints = store
	}
}

// WithRestoreOptions sets the buffer options used when rebuilding a buffer
// from a checkpoint.
func WithRestoreOptions(opts ...replay.Option) Option {
	return func(s *ReplayService) {
		s.restoreOpts = opts
	}
}

// WithMaxSampleSize caps the batch size of a Sample call.
func WithMaxSampleSize(n int) Option {
	return func(s *ReplayService) {
		s.maxSampleSize = n
	}
}

// ReplayService implements the Replay gRPC service on top of a single
// buffer. One mutex serializes Push, Sample and UpdatePriorities.
type ReplayService struct {
	replayv1.UnimplementedReplayServer

	mu          sync.Mutex
	buffer      replay.Buffer
	phase       replay.Phase
	announced   bool // steady_state event already published
	checkpoints CheckpointStore
	restoreOpts []replay.Option

	maxSampleSize int

	publisher events.Publisher
	metrics   *metrics.Collector
	logger    zerolog.Logger
	now       func() time.Time
}

// NewReplayService creates a new ReplayService
func NewReplayService(buffer replay.Buffer, publisher events.Publisher, collector *metrics.Collector, logger zerolog.Logger, opts ...Option) *ReplayService {
	s := &ReplayService{
		buffer:    buffer,
		phase:     replay.PhaseOf(buffer),
		publisher: publisher,
		metrics:   collector,
		logger:    logger,
		now:       time.Now,

		maxSampleSize: config.DefaultMaxSampleSize,
	}
	s.announced = s.phase == replay.PhaseSteady
	for _, opt := range opts {
		opt(s)
	}
	s.recordStateLocked()
	return s
}

// Push stores a batch of transitions
func (s *ReplayService) Push(ctx context.Context, req *replayv1.PushRequest) (resp *replayv1.PushResponse, err error) {
	defer s.observe("Push", time.Now(), &err)

	transitions := make([]storage.Transition, len(req.Transitions))
	for i, t := range req.Transitions {
		if t == nil {
			return nil, status.Errorf(codes.InvalidArgument, "transition %d is missing", i)
		}
		transitions[i] = protoToStorageTransition(t)
	}
	var opts []replay.PushOption
	if len(req.Priorities) > 0 {
		opts = append(opts, replay.WithPriorities(req.Priorities))
	}

	s.mu.Lock()
	indices, err := s.buffer.Push(transitions, opts...)
	if err != nil {
		s.mu.Unlock()
		return nil, toStatus(err)
	}
	size := s.buffer.Len()
	event := s.advancePhaseLocked()
	s.recordStateLocked()
	s.mu.Unlock()

	s.metrics.Pushed(len(indices))
	if event != nil {
		s.publishBufferEvent(ctx, *event)
	}

	return &replayv1.PushResponse{
		Indices: toInt64s(indices),
		Len:     uint64(size),
	}, nil
}

// Sample draws a training batch
func (s *ReplayService) Sample(ctx context.Context, req *replayv1.SampleRequest) (resp *replayv1.SampleResponse, err error) {
	defer s.observe("Sample", time.Now(), &err)

	if int64(req.BatchSize) > int64(s.maxSampleSize) {
		return nil, toStatus(fmt.Errorf("%w: %d exceeds max_sample_size %d", replay.ErrBatchSize, req.BatchSize, s.maxSampleSize))
	}

	s.mu.Lock()
	sample, err := s.buffer.Sample(int(req.BatchSize))
	_, isPrioritized := s.buffer.(prioritized)
	s.mu.Unlock()
	if err != nil {
		return nil, toStatus(err)
	}

	s.metrics.Sampled(len(sample.Indices))
	return &replayv1.SampleResponse{
		Transitions: storageToProtoTransitions(sample.Batch),
		Weights:     sample.Weights,
		Indices:     toInt64s(sample.Indices),
		Prioritized: isPrioritized,
	}, nil
}

// UpdatePriorities assigns new priorities to sampled slots
func (s *ReplayService) UpdatePriorities(ctx context.Context, req *replayv1.UpdatePrioritiesRequest) (resp *replayv1.UpdatePrioritiesResponse, err error) {
	defer s.observe("UpdatePriorities", time.Now(), &err)

	s.mu.Lock()
	err = s.buffer.UpdatePriorities(toInts(req.Indices), req.Priorities)
	if err == nil {
		s.recordStateLocked()
	}
	s.mu.Unlock()
	if err != nil {
		return nil, toStatus(err)
	}

	s.metrics.PrioritiesUpdated(len(req.Indices))
	return &replayv1.UpdatePrioritiesResponse{
		UpdatedCount: uint32(len(req.Indices)),
	}, nil
}

// GetStats returns buffer statistics
func (s *ReplayService) GetStats(ctx context.Context, req *replayv1.GetStatsRequest) (resp *replayv1.StatsResponse, err error) {
	defer s.observe("GetStats", time.Now(), &err)

	s.mu.Lock()
	defer s.mu.Unlock()

	resp = &replayv1.StatsResponse{
		Len:      uint64(s.buffer.Len()),
		Capacity: uint64(s.buffer.Capacity()),
		Phase:    string(s.phase),
	}
	if p, ok := s.buffer.(prioritized); ok {
		resp.Prioritized = true
		resp.Alpha = p.Alpha()
		resp.Beta = p.Beta()
		resp.MaxPriority = p.MaxPriority()
		resp.TotalPriority = p.TotalPriority()
	}
	return resp, nil
}

// Export returns every stored transition, oldest first
func (s *ReplayService) Export(ctx context.Context, req *replayv1.ExportRequest) (resp *replayv1.ExportResponse, err error) {
	defer s.observe("Export", time.Now(), &err)

	s.mu.Lock()
	batch := s.buffer.Export()
	var maxPriority float64
	if p, ok := s.buffer.(prioritized); ok {
		maxPriority = p.MaxPriority()
	}
	s.mu.Unlock()

	return &replayv1.ExportResponse{
		Transitions: storageToProtoTransitions(batch),
		MaxPriority: maxPriority,
	}, nil
}

// SetBeta changes the importance-sampling exponent of a prioritized buffer
func (s *ReplayService) SetBeta(ctx context.Context, req *replayv1.SetBetaRequest) (resp *replayv1.SetBetaResponse, err error) {
	defer s.observe("SetBeta", time.Now(), &err)

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.buffer.(prioritized)
	if !ok {
		return nil, toStatus(ErrNotPrioritized)
	}
	if err := p.SetBeta(req.Beta); err != nil {
		return nil, toStatus(err)
	}
	s.logger.Info().Float64("beta", req.Beta).Msg("Importance sampling beta updated")
	return &replayv1.SetBetaResponse{Beta: p.Beta()}, nil
}

// Checkpoint writes a snapshot of the buffer to the checkpoint store
func (s *ReplayService) Checkpoint(ctx context.Context, req *replayv1.CheckpointRequest) (resp *replayv1.CheckpointResponse, err error) {
	defer s.observe("Checkpoint", time.Now(), &err)

	info, err := s.SaveCheckpoint(ctx, checkpoint.TriggerManual)
	if err != nil {
		return nil, toStatus(err)
	}
	return &replayv1.CheckpointResponse{
		CheckpointId: info.ID,
		Records:      uint64(info.Records),
		Checksum:     info.Checksum,
		CreatedAt:    info.CreatedAt.Unix(),
	}, nil
}

// SaveCheckpoint snapshots the buffer and persists it. The lock is only held
// while the snapshot is copied.
func (s *ReplayService) SaveCheckpoint(ctx context.Context, trigger string) (checkpoint.Info, error) {
	if s.checkpoints == nil {
		return checkpoint.Info{}, ErrNoCheckpointStore
	}

	start := s.now()
	s.mu.Lock()
	snap := s.buffer.Snapshot()
	s.mu.Unlock()

	info, err := s.checkpoints.Save(ctx, snap)
	if err != nil {
		s.metrics.CheckpointFailed(err)
		return checkpoint.Info{}, err
	}
	s.metrics.CheckpointSaved(info.ID, info.Records, s.now().Sub(start))

	event := events.CheckpointEvent{
		CheckpointID: info.ID,
		Records:      info.Records,
		Checksum:     info.Checksum,
		Trigger:      trigger,
		CreatedAt:    info.CreatedAt.Unix(),
	}
	if err := s.publisher.PublishCheckpointEvent(ctx, event); err != nil {
		s.logger.Error().Err(err).Str("checkpoint_id", info.ID).Msg("Failed to publish checkpoint event")
	}
	return info, nil
}

// Restore replaces the live buffer with the checkpoint id, or with the most
// recent checkpoint when id is empty.
func (s *ReplayService) Restore(ctx context.Context, id string) (checkpoint.Info, error) {
	if s.checkpoints == nil {
		return checkpoint.Info{}, ErrNoCheckpointStore
	}

	var (
		snap *replay.Snapshot
		info checkpoint.Info
		err  error
	)
	if id == "" {
		snap, info, err = s.checkpoints.Latest(ctx)
	} else {
		snap, info, err = s.checkpoints.Load(ctx, id)
	}
	if err != nil {
		return checkpoint.Info{}, err
	}

	buf, err := replay.Restore(snap, s.restoreOpts...)
	if err != nil {
		return checkpoint.Info{}, fmt.Errorf("restore checkpoint %s: %w", info.ID, err)
	}

	s.mu.Lock()
	_, wasPrioritized := s.buffer.(prioritized)
	if prevCapacity := s.buffer.Capacity(); prevCapacity != snap.Capacity || wasPrioritized != snap.Prioritized {
		s.logger.Warn().
			Str("checkpoint_id", info.ID).
			Int("configured_capacity", prevCapacity).
			Int("restored_capacity", snap.Capacity).
			Bool("configured_prioritized", wasPrioritized).
			Bool("restored_prioritized", snap.Prioritized).
			Msg("Checkpoint buffer settings differ from configuration, using checkpoint")
	}
	s.buffer = buf
	if phase := replay.PhaseOf(buf); phase != s.phase {
		s.metrics.PhaseTransition(string(s.phase), string(phase), buf.Len())
		s.phase = phase
	}
	s.announced = s.phase == replay.PhaseSteady
	s.recordStateLocked()
	event := s.bufferEventLocked(events.EventRestored)
	s.mu.Unlock()

	s.logger.Info().
		Str("checkpoint_id", info.ID).
		Int("records", info.Records).
		Bool("prioritized", info.Prioritized).
		Msg("Buffer restored from checkpoint")
	s.publishBufferEvent(ctx, event)
	return info, nil
}

// ListCheckpoints returns stored checkpoints, newest first.
func (s *ReplayService) ListCheckpoints(ctx context.Context, limit int) ([]checkpoint.Info, error) {
	if s.checkpoints == nil {
		return nil, ErrNoCheckpointStore
	}
	return s.checkpoints.List(ctx, limit)
}

// advancePhaseLocked updates the tracked phase and returns the event to
// publish the first time the buffer fills up.
func (s *ReplayService) advancePhaseLocked() *events.BufferEvent {
	phase := replay.PhaseOf(s.buffer)
	if phase == s.phase {
		return nil
	}
	s.metrics.PhaseTransition(string(s.phase), string(phase), s.buffer.Len())
	s.phase = phase
	if phase != replay.PhaseSteady || s.announced {
		return nil
	}
	s.announced = true
	event := s.bufferEventLocked(events.EventSteadyState)
	return &event
}

func (s *ReplayService) bufferEventLocked(name string) events.BufferEvent {
	event := events.BufferEvent{
		Event:     name,
		Len:       s.buffer.Len(),
		Capacity:  s.buffer.Capacity(),
		Timestamp: s.now().Unix(),
	}
	if p, ok := s.buffer.(prioritized); ok {
		event.Prioritized = true
		event.MaxPriority = p.MaxPriority()
	}
	return event
}

func (s *ReplayService) recordStateLocked() {
	var maxPriority, total float64
	if p, ok := s.buffer.(prioritized); ok {
		maxPriority = p.MaxPriority()
		total = p.TotalPriority()
	}
	s.metrics.BufferState(s.buffer.Len(), s.buffer.Capacity(), maxPriority, total)
}

func (s *ReplayService) publishBufferEvent(ctx context.Context, event events.BufferEvent) {
	if err := s.publisher.PublishBufferEvent(ctx, event); err != nil {
		s.logger.Error().Err(err).Str("event", event.Event).Msg("Failed to publish buffer event")
	}
}

func (s *ReplayService) observe(method string, start time.Time, err *error) {
	s.metrics.RPC(method, Code(*err).String(), time.Since(start))
}
