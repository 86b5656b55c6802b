package broker

// Admin attaches in inert mode: it never registers as a consumer and
// never touches any tail.
type Admin[T any] struct {
	ch *channel[T]
}

// NewAdmin attaches to an existing channel without registering,
// exposing only Stats, ForceDisconnectConsumer, and Close (munmap).
func NewAdmin[T any](name string) (*Admin[T], error) {
	ch, err := attachChannel[T](name)
	if err != nil {
		return nil, err
	}

	return &Admin[T]{ch: ch}, nil
}

// ConsumerStat is one row of Stats' active-consumer table.
type ConsumerStat struct {
	ID        int
	Tail      uint64
	AgeMillis int64
}

// Stats is a point-in-time snapshot of a channel's header, the data
// behind the admin CLI's `stats` subcommand.
type Stats struct {
	Head      uint64
	Capacity  int64
	Consumers []ConsumerStat
}

// Stats snapshots head, capacity, and every active consumer's tail
// and heartbeat age.
func (a *Admin[T]) Stats() Stats {
	h := a.ch.header
	now := nowMillis()

	s := Stats{
		Head:     h.head.v.Load(),
		Capacity: a.ch.capacity,
	}

	for i := 0; i < MaxConsumers; i++ {
		if !h.slotActive[i].v.Load() {
			continue
		}

		s.Consumers = append(s.Consumers, ConsumerStat{
			ID:        i,
			Tail:      h.tails[i].v.Load(),
			AgeMillis: now - h.heartbeats[i].v.Load(),
		})
	}

	return s
}

// ForceDisconnectConsumer clears slotActive[id]; the producer will
// stop considering that tail on its next PreparePublish.
func (a *Admin[T]) ForceDisconnectConsumer(id int) error {
	if id < 0 || id >= MaxConsumers {
		return ErrInvalidConsumerID
	}

	a.ch.header.slotActive[id].v.Store(false)
	return nil
}

// Close unmaps the segment without unlinking it.
func (a *Admin[T]) Close() error {
	return a.ch.close()
}

// Unlink removes the named segment. A non-existent name is not an
// error.
func Unlink(name string) error {
	return unlinkSegment(name)
}
