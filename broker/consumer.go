package broker

import (
	"log/slog"
	"runtime"
	"time"
)

// peekSpinBudget bounds how long Peek spins waiting for a slot to
// leave WRITING state before giving up and reporting empty for this
// call.
const peekSpinBudget = 10000

// Consumer owns tails[id], heartbeats[id], and slotActive[id]
// exclusively, until the producer evicts it.
type Consumer[T any] struct {
	ch          *channel[T]
	id          int
	epochCache  uint64
	epochCached bool
	settings    Settings
	logger      *slog.Logger
}

// NewConsumer attaches to an existing channel and registers id as a
// live consumer: tail and heartbeat are seeded before the active flag
// is set, so the producer never observes an active consumer with a
// stale tail.
func NewConsumer[T any](name string, id int, settings Settings) (*Consumer[T], error) {
	if id < 0 || id >= MaxConsumers {
		return nil, ErrInvalidConsumerID
	}

	ch, err := attachChannel[T](name)
	if err != nil {
		return nil, err
	}

	h := ch.header

	head := h.head.v.Load()
	h.tails[id].v.Store(head)
	h.heartbeats[id].v.Store(nowMillis())
	h.slotActive[id].v.Store(true)

	return &Consumer[T]{
		ch:          ch,
		id:          id,
		epochCache:  h.producerEpoch.v.Load(),
		epochCached: true,
		settings:    settings,
		logger:      settings.logger(),
	}, nil
}

// Peek returns a read-only view into the next unread slot, or nil
// with a nil error when there is nothing new (EMPTY is a result, not
// an error). The view is valid until the next Release on this
// consumer.
func (c *Consumer[T]) Peek() (*T, error) {
	h := c.ch.header

	epoch := h.producerEpoch.v.Load()
	if !c.epochCached {
		c.epochCache = epoch
		c.epochCached = true
	}

	if epoch != c.epochCache {
		newHead := h.head.v.Load()
		h.tails[c.id].v.Store(newHead)
		c.epochCache = epoch
		c.logger.Info("nanobroker: producer restarted, resetting tail",
			"consumer_id", c.id, "epoch", epoch)
		return nil, nil
	}

	if !h.slotActive[c.id].v.Load() {
		return nil, ErrDisconnected
	}

	h.heartbeats[c.id].v.Store(nowMillis())

	currentTail := h.tails[c.id].v.Load()
	if currentTail == h.head.v.Load() {
		return nil, nil
	}

	slot := c.ch.slot(int64(currentTail))
	seqBefore := slot.sequence.Load()

	spins := 0
	for slot.state.Load() != uint32(SlotReady) {
		cpuRelax()
		spins++
		if spins > peekSpinBudget {
			return nil, nil
		}
	}

	seqAfter := slot.sequence.Load()
	if seqBefore != seqAfter {
		// The producer overwrote this slot mid-read under
		// OverwriteOld: the view would be torn. Skip it.
		c.Release()
		return nil, nil
	}

	return &slot.data, nil
}

// Release advances this consumer's tail by one slot. It must be
// called after every non-empty Peek, even if the caller only
// inspected metadata, or this consumer stalls (not the producer,
// which times it out instead).
func (c *Consumer[T]) Release() {
	h := c.ch.header
	h.heartbeats[c.id].v.Store(nowMillis())

	currentTail := h.tails[c.id].v.Load()
	h.tails[c.id].v.Store(uint64(c.ch.wrap(int64(currentTail) + 1)))
}

// WaitAndPeek blocks until Peek returns a non-empty view, escalating
// through a pause-spin phase, a cooperative-yield phase, and finally
// brief sleeps. ErrDisconnected still propagates.
func (c *Consumer[T]) WaitAndPeek() (*T, error) {
	spinCount := 0

	for {
		view, err := c.Peek()
		if err != nil {
			return nil, err
		}

		if view != nil {
			return view, nil
		}

		switch {
		case spinCount < c.settings.SpinIterations:
			cpuRelax()
		case spinCount < c.settings.YieldIterations:
			runtime.Gosched()
		default:
			time.Sleep(time.Microsecond)
		}

		spinCount++
	}
}

// Close detaches: it clears this consumer's active flag and unmaps
// the segment.
func (c *Consumer[T]) Close() error {
	c.ch.header.slotActive[c.id].v.Store(false)
	return c.ch.close()
}
