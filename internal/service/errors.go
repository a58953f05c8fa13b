package service

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/cartridge/replay/internal/checkpoint"
	"github.com/cartridge/replay/internal/replay"
)

var (
	// ErrNoCheckpointStore is returned by checkpoint operations when the
	// service runs without persistence.
	ErrNoCheckpointStore = errors.New("checkpointing is not configured")
	// ErrNotPrioritized is returned by operations that only apply to
	// prioritized buffers.
	ErrNotPrioritized = errors.New("buffer is not prioritized")
)

// Code maps a service error onto a gRPC status code.
func Code(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	if s, ok := status.FromError(err); ok {
		return s.Code()
	}
	switch {
	case errors.Is(err, replay.ErrShapeMismatch),
		errors.Is(err, replay.ErrInvalidPriority),
		errors.Is(err, replay.ErrLengthMismatch),
		errors.Is(err, replay.ErrBatchSize),
		errors.Is(err, replay.ErrInvalidConfig):
		return codes.InvalidArgument
	case errors.Is(err, replay.ErrIndexRange),
		errors.Is(err, replay.ErrPrefixSumOutOfRange):
		return codes.OutOfRange
	case errors.Is(err, replay.ErrEmptyBuffer),
		errors.Is(err, ErrNoCheckpointStore),
		errors.Is(err, ErrNotPrioritized):
		return codes.FailedPrecondition
	case errors.Is(err, checkpoint.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, checkpoint.ErrChecksum),
		errors.Is(err, checkpoint.ErrCorrupt):
		return codes.DataLoss
	default:
		return codes.Internal
	}
}

func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(Code(err), err.Error())
}
