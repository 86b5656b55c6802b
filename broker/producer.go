package broker

import (
	"log/slog"
	"time"
)

// Producer is the sole writer of head, every slot, and the epoch for
// one channel.
type Producer[T any] struct {
	ch      *channel[T]
	pending *Slot[T]
	logger  *slog.Logger
}

// NewProducer creates a fresh channel named name with room for
// capacity records of type T, unlinking any stale segment with the
// same name first. It is fatal to the caller on any error — there is
// no "full" outcome at construction time.
func NewProducer[T any](name string, capacity int, settings Settings) (*Producer[T], error) {
	ch, err := createChannel[T](name, capacity, settings)
	if err != nil {
		return nil, err
	}

	return &Producer[T]{ch: ch, logger: settings.logger()}, nil
}

// PreparePublish acquires the write lock, evicts any timed-out
// consumer blocking the next slot, applies the overflow policy to
// any live one, and returns a mutable view into that slot's payload.
// The view is valid until the matching CommitPublish. ErrFull is the
// only non-fatal error: the write lock has already been released and
// the caller is expected to retry.
func (p *Producer[T]) PreparePublish(timeout time.Duration) (*T, error) {
	h := p.ch.header

	spinAcquireLock(&h.writeLock.v)

	currentHead := h.head.v.Load()
	// The slot about to be written is currentHead, but the collision
	// check looks one slot further ahead: reserving that one-slot gap
	// is what lets a wrapped head/tail comparison tell "full" apart
	// from "empty" without absolute (unwrapped) counters.
	nextHead := uint64(p.ch.wrap(int64(currentHead) + 1))
	now := nowMillis()
	timeoutMs := timeout.Milliseconds()

	full := false

scan:
	for i := 0; i < MaxConsumers; i++ {
		if !h.slotActive[i].v.Load() {
			continue
		}

		tail := h.tails[i].v.Load()
		if tail != nextHead {
			continue
		}

		last := h.heartbeats[i].v.Load()
		if now-last > timeoutMs {
			h.slotActive[i].v.Store(false)
			p.logger.Info("nanobroker: auto-kicked unresponsive consumer",
				"consumer_id", i, "age_ms", now-last)
			continue
		}

		switch p.ch.settings.OverflowPolicy {
		case Block:
			full = true
			break scan
		default: // OverwriteOld
			h.tails[i].v.Store(uint64(p.ch.wrap(int64(tail) + 1)))
		}
	}

	if full {
		h.writeLock.v.Store(false)
		return nil, ErrFull
	}

	slot := p.ch.slot(int64(currentHead))
	slot.state.Store(uint32(SlotWriting))
	p.pending = slot

	return &slot.data, nil
}

// CommitPublish bumps the pending slot's sequence, marks it READY,
// advances head, and releases the write lock — in that
// release-ordered sequence, so a consumer that observes the new head
// is guaranteed to see both the new state and the new sequence.
func (p *Producer[T]) CommitPublish() {
	if p.pending == nil {
		return
	}

	h := p.ch.header
	currentHead := h.head.v.Load()

	seq := p.pending.sequence.Load()
	p.pending.sequence.Store(seq + 1)
	p.pending.state.Store(uint32(SlotReady))

	h.head.v.Store(uint64(p.ch.wrap(int64(currentHead) + 1)))

	h.writeLock.v.Store(false)
	p.pending = nil
}

// Epoch returns the random identifier this producer minted at
// creation; every attached consumer's next Peek detects a change.
func (p *Producer[T]) Epoch() uint64 {
	return p.ch.header.producerEpoch.v.Load()
}

// Close unmaps the segment without unlinking it, leaving the epoch
// value in place until a new producer overwrites it.
func (p *Producer[T]) Close() error {
	return p.ch.close()
}
