// Package broker implements NanoBroker's shared-memory channel: a
// single producer and up to MaxConsumers concurrent consumers
// broadcasting fixed-layout records through one mmap'd segment.
//
// A channel is a Header followed by a fixed array of Slot[T]. The
// producer is the only writer of head, every slot, and the epoch;
// consumer i owns tails[i], heartbeats[i], and slotActive[i] except
// that the producer may clear a foreign slotActive[i] on eviction or
// advance a foreign tails[i] under OverwriteOld.
//
//	p, _ := broker.NewProducer[Frame]("video", 30, broker.DefaultSettings())
//	defer p.Close()
//	for {
//	    rec, err := p.PreparePublish(2 * time.Second)
//	    if errors.Is(err, broker.ErrFull) {
//	        continue
//	    }
//	    fillRecord(rec)
//	    p.CommitPublish()
//	}
//
//	c, _ := broker.NewConsumer[Frame]("video", 0, broker.DefaultSettings())
//	defer c.Close()
//	for {
//	    rec, err := c.WaitAndPeek()
//	    if err != nil {
//	        break // disconnected
//	    }
//	    useRecord(rec)
//	    c.Release()
//	}
package broker
