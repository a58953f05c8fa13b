package checkpoint

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/cartridge/replay/internal/replay"
	"github.com/cartridge/replay/internal/storage"
)

const (
	magic         = "RPLY"
	formatVersion = 1

	flagPrioritized = 1 << 0

	// magic, version, flags, capacity, state dim, action dim, count, alpha, beta, max priority
	headerSize = 4 + 2 + 2 + 8 + 4 + 4 + 8 + 8 + 8 + 8
)

var (
	// ErrChecksum is returned when a stored payload does not match its checksum.
	ErrChecksum = errors.New("checkpoint checksum mismatch")
	// ErrCorrupt is returned for payloads that cannot be decoded.
	ErrCorrupt = errors.New("checkpoint payload corrupt")
)

// Checksum returns the hex encoded xxhash64 of payload.
func Checksum(payload []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(payload))
}

// Encode serializes a snapshot as a little-endian header followed by the
// state, action, reward, next state and done columns in logical order and,
// for prioritized snapshots, the priority column.
func Encode(s *replay.Snapshot) ([]byte, error) {
	count := s.Len()
	if s.Prioritized && len(s.Priorities) != count {
		return nil, fmt.Errorf("%w: %d records vs %d priorities", replay.ErrLengthMismatch, count, len(s.Priorities))
	}
	stateDim, actionDim := s.Shape.StateDim, s.Shape.ActionDim

	size := headerSize + count*(4*(2*stateDim+actionDim+1)+1)
	if s.Prioritized {
		size += 8 * count
	}
	buf := make([]byte, 0, size)

	var flags uint16
	if s.Prioritized {
		flags |= flagPrioritized
	}
	buf = append(buf, magic...)
	buf = binary.LittleEndian.AppendUint16(buf, formatVersion)
	buf = binary.LittleEndian.AppendUint16(buf, flags)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(s.Capacity))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(stateDim))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(actionDim))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(count))
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(s.Alpha))
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(s.Beta))
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(s.MaxPriority))

	var err error
	if buf, err = appendRows(buf, s.Records.States, stateDim); err != nil {
		return nil, err
	}
	if buf, err = appendRows(buf, s.Records.Actions, actionDim); err != nil {
		return nil, err
	}
	buf = appendFloats(buf, s.Records.Rewards)
	if buf, err = appendRows(buf, s.Records.NextStates, stateDim); err != nil {
		return nil, err
	}
	for _, done := range s.Records.Dones {
		if done {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	}
	if s.Prioritized {
		for _, p := range s.Priorities {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(p))
		}
	}
	return buf, nil
}

func appendRows(buf []byte, rows [][]float32, dim int) ([]byte, error) {
	for i, row := range rows {
		if len(row) != dim {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", replay.ErrShapeMismatch, i, len(row), dim)
		}
		buf = appendFloats(buf, row)
	}
	return buf, nil
}

func appendFloats(buf []byte, values []float32) []byte {
	for _, v := range values {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}
	return buf
}

// Decode parses a payload produced by Encode.
func Decode(payload []byte) (*replay.Snapshot, error) {
	r := &reader{buf: payload}
	if string(r.bytes(4)) != magic {
		return nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	if v := r.uint16(); v != formatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, v)
	}
	flags := r.uint16()
	capacity := r.uint64()
	stateDim := int(r.uint32())
	actionDim := int(r.uint32())
	count := r.uint64()
	alpha := r.float64()
	beta := r.float64()
	maxPriority := r.float64()
	if r.err != nil {
		return nil, r.err
	}
	if count > capacity || capacity > math.MaxInt32 {
		return nil, fmt.Errorf("%w: %d records with capacity %d", ErrCorrupt, count, capacity)
	}

	n := int(count)
	s := &replay.Snapshot{
		Prioritized: flags&flagPrioritized != 0,
		Capacity:    int(capacity),
		Alpha:       alpha,
		Beta:        beta,
		MaxPriority: maxPriority,
		Shape:       storage.Shape{StateDim: stateDim, ActionDim: actionDim},
		Records: storage.Batch{
			States:     r.rows(n, stateDim),
			Actions:    r.rows(n, actionDim),
			Rewards:    r.floats(n),
			NextStates: r.rows(n, stateDim),
			Dones:      r.bools(n),
		},
	}
	if s.Prioritized {
		s.Priorities = make([]float64, n)
		for i := range s.Priorities {
			s.Priorities[i] = r.float64()
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	if r.off != len(payload) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, len(payload)-r.off)
	}
	return s, nil
}

// reader walks a payload and records the first short read.
type reader struct {
	buf []byte
	off int
	err error
}

func (r *reader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.buf)-r.off < n {
		r.err = fmt.Errorf("%w: truncated at offset %d", ErrCorrupt, r.off)
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) uint16() uint16 {
	if b := r.bytes(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (r *reader) uint32() uint32 {
	if b := r.bytes(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (r *reader) uint64() uint64 {
	if b := r.bytes(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

func (r *reader) float64() float64 {
	return math.Float64frombits(r.uint64())
}

func (r *reader) floats(n int) []float32 {
	b := r.bytes(4 * n)
	if b == nil {
		return nil
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return out
}

func (r *reader) rows(n, dim int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		out[i] = r.floats(dim)
	}
	return out
}

func (r *reader) bools(n int) []bool {
	b := r.bytes(n)
	if b == nil {
		return nil
	}
	out := make([]bool, n)
	for i, v := range b {
		out[i] = v != 0
	}
	return out
}
