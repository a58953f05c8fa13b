package service

import (
	"github.com/cartridge/replay/internal/storage"
	replayv1 "github.com/cartridge/replay/pkg/replayv1"
)

// Conversion functions

func protoToStorageTransition(proto *replayv1.Transition) storage.Transition {
	return storage.Transition{
		State:     proto.State,
		Action:    proto.Action,
		Reward:    proto.Reward,
		NextState: proto.NextState,
		Done:      proto.Done,
	}
}

func storageToProtoTransitions(batch storage.Batch) []*replayv1.Transition {
	out := make([]*replayv1.Transition, batch.Len())
	for i := range out {
		t := batch.Transition(i)
		out[i] = &replayv1.Transition{
			State:     t.State,
			Action:    t.Action,
			Reward:    t.Reward,
			NextState: t.NextState,
			Done:      t.Done,
		}
	}
	return out
}

func toInt64s(values []int) []int64 {
	out := make([]int64, len(values))
	for i, v := range values {
		out[i] = int64(v)
	}
	return out
}

func toInts(values []int64) []int {
	out := make([]int, len(values))
	for i, v := range values {
		out[i] = int(v)
	}
	return out
}
