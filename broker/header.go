package broker

import (
	"sync/atomic"
	"unsafe"
)

// magicValue proves the region is a NanoBroker channel rather than
// foreign or stale memory ("NANOBROK" packed into a uint64).
const magicValue uint64 = 0x4E414E4F42524F4B

// protocolVersion is bumped whenever the wire layout of Header or
// Slot changes incompatibly.
const protocolVersion uint32 = 2

const cacheLine = 64

// Padded cells keep every hot atomic on its own cache line so two
// consumers touching adjacent fields never contend over one line.
type u64Cell struct {
	v atomic.Uint64
	_ [cacheLine - unsafe.Sizeof(atomic.Uint64{})]byte
}

type i64Cell struct {
	v atomic.Int64
	_ [cacheLine - unsafe.Sizeof(atomic.Int64{})]byte
}

type boolCell struct {
	v atomic.Bool
	_ [cacheLine - unsafe.Sizeof(atomic.Bool{})]byte
}

// Header sits at offset 0 of the mapped segment, followed immediately
// by the slot array. Every field past the identification block is
// either written exclusively by the producer (head, producerEpoch) or
// owned per-index by at most one consumer at a time (tails,
// slotActive, heartbeats), per the ownership rules in doc.go.
type Header struct {
	magic          uint64
	version        uint32
	structSize     uint32
	bufferCapacity uint32
	_              uint32 // pad producerEpoch to an 8-byte boundary

	producerEpoch u64Cell

	head       u64Cell
	tails      [MaxConsumers]u64Cell
	slotActive [MaxConsumers]boolCell
	heartbeats [MaxConsumers]i64Cell
	writeLock  boolCell
}

func headerSize() int64 {
	return int64(unsafe.Sizeof(Header{}))
}

func (h *Header) validateIdentity(structSize uint32) error {
	if h.magic != magicValue {
		return ErrStaleMemory
	}

	if h.version != protocolVersion {
		return ErrVersionMismatch
	}

	if h.structSize != structSize {
		return ErrLayoutMismatch
	}

	return nil
}
