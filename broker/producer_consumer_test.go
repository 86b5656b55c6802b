package broker

import (
	"errors"
	"fmt"
	"os"
	"testing"
	"time"
)

// testRecord is trivially relocatable: no pointers, slices, maps, or
// strings, matching §4.1's record constraint.
type testRecord struct {
	FrameID int64
	Payload [256]byte
}

func fillTestRecord(r *testRecord, id int64) {
	r.FrameID = id
	for i := range r.Payload {
		r.Payload[i] = byte(id)
	}
}

func verifyTestRecord(t *testing.T, r *testRecord) {
	t.Helper()

	for i, b := range r.Payload {
		if b != byte(r.FrameID) {
			t.Fatalf("torn payload at byte %d: got %d, want %d (frame %d)", i, b, byte(r.FrameID), r.FrameID)
		}
	}
}

func channelName(t *testing.T) string {
	name := fmt.Sprintf("nanobroker-test-%d-%d", os.Getpid(), time.Now().UnixNano())
	t.Cleanup(func() {
		_ = Unlink(name)
	})
	return name
}

func testSettings(policy OverflowPolicy, timeout time.Duration) Settings {
	s := DefaultSettings()
	s.OverflowPolicy = policy
	s.ProducerTimeout = timeout
	s.SpinIterations = 200
	s.YieldIterations = 2000
	return s
}

// S1: BLOCK policy, producer faster than consumer — observes 1..10
// in order, and PreparePublish returns ErrFull at least once.
func TestRoundTripBlockPolicy(t *testing.T) {
	name := channelName(t)

	p, err := NewProducer[testRecord](name, 4, testSettings(Block, time.Second))
	if err != nil {
		t.Fatalf("NewProducer: %v", err)
	}
	defer p.Close()

	c, err := NewConsumer[testRecord](name, 0, testSettings(Block, time.Second))
	if err != nil {
		t.Fatalf("NewConsumer: %v", err)
	}
	defer c.Close()

	const n = 10
	sawFull := false
	published := 0
	var lastSeen int64

	for published < n {
		rec, err := p.PreparePublish(time.Second)
		if errors.Is(err, ErrFull) {
			sawFull = true

			view, err := c.Peek()
			if err != nil {
				t.Fatalf("Peek: %v", err)
			}
			if view != nil {
				verifyTestRecord(t, view)

				if view.FrameID != lastSeen+1 {
					t.Fatalf("out of order: got %d, want %d", view.FrameID, lastSeen+1)
				}

				lastSeen = view.FrameID
				c.Release()
			}

			continue
		}
		if err != nil {
			t.Fatalf("PreparePublish: %v", err)
		}

		published++
		fillTestRecord(rec, int64(published))
		p.CommitPublish()
	}

	for lastSeen < n {
		view, err := c.WaitAndPeek()
		if err != nil {
			t.Fatalf("WaitAndPeek: %v", err)
		}

		verifyTestRecord(t, view)

		if view.FrameID != lastSeen+1 {
			t.Fatalf("out of order: got %d, want %d", view.FrameID, lastSeen+1)
		}

		lastSeen = view.FrameID
		c.Release()
	}

	if !sawFull {
		t.Fatal("expected PreparePublish to return ErrFull at least once under BLOCK")
	}
}

// S2: OVERWRITE_OLD policy with a slow consumer — observes a
// strictly increasing but gapped subsequence, never a torn payload.
func TestOverwriteOldGapped(t *testing.T) {
	name := channelName(t)

	p, err := NewProducer[testRecord](name, 4, testSettings(OverwriteOld, time.Second))
	if err != nil {
		t.Fatalf("NewProducer: %v", err)
	}
	defer p.Close()

	c, err := NewConsumer[testRecord](name, 0, testSettings(OverwriteOld, time.Second))
	if err != nil {
		t.Fatalf("NewConsumer: %v", err)
	}
	defer c.Close()

	const n = 40
	done := make(chan struct{})

	go func() {
		defer close(done)
		for i := int64(1); i <= n; i++ {
			rec, err := p.PreparePublish(time.Second)
			if err != nil {
				t.Errorf("PreparePublish: %v", err)
				return
			}
			fillTestRecord(rec, i)
			p.CommitPublish()
			time.Sleep(200 * time.Microsecond)
		}
	}()

	var last int64
	sawGap := false

	for {
		view, err := c.Peek()
		if err != nil {
			t.Fatalf("Peek: %v", err)
		}

		if view != nil {
			verifyTestRecord(t, view)

			if view.FrameID <= last {
				t.Fatalf("non-increasing frame id: got %d after %d", view.FrameID, last)
			}

			if view.FrameID > last+1 {
				sawGap = true
			}

			last = view.FrameID
			c.Release()

			if last == n {
				break
			}
		}

		select {
		case <-done:
			if last == n {
				break
			}
		default:
		}

		time.Sleep(2 * time.Millisecond)
	}

	<-done

	if !sawGap {
		t.Log("no gap observed; acceptable if the consumer kept up, but unexpected at this sleep ratio")
	}
}

// S3: producer evicts a dead consumer within producer_timeout_ms and
// keeps serving the live one.
func TestEvictionOnTimeout(t *testing.T) {
	name := channelName(t)

	settings := testSettings(OverwriteOld, 60*time.Millisecond)

	p, err := NewProducer[testRecord](name, 8, settings)
	if err != nil {
		t.Fatalf("NewProducer: %v", err)
	}
	defer p.Close()

	live, err := NewConsumer[testRecord](name, 0, settings)
	if err != nil {
		t.Fatalf("NewConsumer(live): %v", err)
	}
	defer live.Close()

	dead, err := NewConsumer[testRecord](name, 1, settings)
	if err != nil {
		t.Fatalf("NewConsumer(dead): %v", err)
	}
	// dead never calls Peek/Release again; its heartbeat goes stale.

	admin, err := NewAdmin[testRecord](name)
	if err != nil {
		t.Fatalf("NewAdmin: %v", err)
	}
	defer admin.Close()

	for i := int64(1); i <= 20; i++ {
		rec, err := p.PreparePublish(settings.ProducerTimeout)
		if err != nil {
			t.Fatalf("PreparePublish: %v", err)
		}
		fillTestRecord(rec, i)
		p.CommitPublish()

		if view, err := live.Peek(); err == nil && view != nil {
			live.Release()
		}

		time.Sleep(10 * time.Millisecond)
	}

	stats := admin.Stats()
	for _, cs := range stats.Consumers {
		if cs.ID == 1 {
			t.Fatalf("expected consumer 1 to have been evicted, still active with tail %d", cs.Tail)
		}
	}

	_ = dead
}

// S4: after the producer is recreated, every active consumer's next
// Peek returns empty exactly once, then delivers only new records.
func TestEpochRecovery(t *testing.T) {
	name := channelName(t)

	settings := testSettings(Block, time.Second)

	p1, err := NewProducer[testRecord](name, 4, settings)
	if err != nil {
		t.Fatalf("NewProducer (first): %v", err)
	}

	c, err := NewConsumer[testRecord](name, 0, settings)
	if err != nil {
		t.Fatalf("NewConsumer: %v", err)
	}
	defer c.Close()

	rec, err := p1.PreparePublish(time.Second)
	if err != nil {
		t.Fatalf("PreparePublish: %v", err)
	}
	fillTestRecord(rec, 1)
	p1.CommitPublish()

	if view, err := c.Peek(); err != nil || view == nil {
		t.Fatalf("expected a view before restart, got view=%v err=%v", view, err)
	} else {
		c.Release()
	}

	oldEpoch := p1.Epoch()
	if err := p1.Close(); err != nil {
		t.Fatalf("Close producer: %v", err)
	}

	p2, err := NewProducer[testRecord](name, 4, settings)
	if err != nil {
		t.Fatalf("NewProducer (second): %v", err)
	}
	defer p2.Close()

	if p2.Epoch() == oldEpoch {
		t.Fatal("expected a fresh epoch on producer recreation")
	}

	view, err := c.Peek()
	if err != nil {
		t.Fatalf("Peek after restart: %v", err)
	}
	if view != nil {
		t.Fatal("expected EMPTY on the first post-restart peek")
	}

	rec2, err := p2.PreparePublish(time.Second)
	if err != nil {
		t.Fatalf("PreparePublish (second producer): %v", err)
	}
	fillTestRecord(rec2, 99)
	p2.CommitPublish()

	view, err = c.WaitAndPeek()
	if err != nil {
		t.Fatalf("WaitAndPeek after restart: %v", err)
	}

	if view.FrameID != 99 {
		t.Fatalf("expected only post-restart records, got frame %d", view.FrameID)
	}
}

// S5: a record-size mismatch fails consumer attach with
// ErrLayoutMismatch and leaves the segment untouched.
func TestLayoutMismatch(t *testing.T) {
	name := channelName(t)

	type smallRecord struct {
		V int32
	}
	type bigRecord struct {
		V [64]int32
	}

	p, err := NewProducer[smallRecord](name, 4, DefaultSettings())
	if err != nil {
		t.Fatalf("NewProducer: %v", err)
	}
	defer p.Close()

	_, err = NewConsumer[bigRecord](name, 0, DefaultSettings())
	if !errors.Is(err, ErrLayoutMismatch) {
		t.Fatalf("expected ErrLayoutMismatch, got %v", err)
	}
}

// S6: unlink is idempotent.
func TestUnlinkIdempotent(t *testing.T) {
	name := fmt.Sprintf("nanobroker-test-never-existed-%d", time.Now().UnixNano())

	if err := Unlink(name); err != nil {
		t.Fatalf("first unlink: %v", err)
	}

	if err := Unlink(name); err != nil {
		t.Fatalf("second unlink: %v", err)
	}
}

func TestInvalidConsumerID(t *testing.T) {
	name := channelName(t)

	p, err := NewProducer[testRecord](name, 4, DefaultSettings())
	if err != nil {
		t.Fatalf("NewProducer: %v", err)
	}
	defer p.Close()

	if _, err := NewConsumer[testRecord](name, -1, DefaultSettings()); !errors.Is(err, ErrInvalidConsumerID) {
		t.Fatalf("expected ErrInvalidConsumerID for id -1, got %v", err)
	}

	if _, err := NewConsumer[testRecord](name, MaxConsumers, DefaultSettings()); !errors.Is(err, ErrInvalidConsumerID) {
		t.Fatalf("expected ErrInvalidConsumerID for id MaxConsumers, got %v", err)
	}
}

// Boundary: a capacity-1 ring under OverwriteOld never blocks — every
// publication overwrites the single slot, as the wrapped head/tail
// arithmetic collapses to the same index on every call.
func TestCapacityOneOverwriteNeverBlocks(t *testing.T) {
	name := channelName(t)

	p, err := NewProducer[testRecord](name, 1, testSettings(OverwriteOld, time.Second))
	if err != nil {
		t.Fatalf("NewProducer: %v", err)
	}
	defer p.Close()

	c, err := NewConsumer[testRecord](name, 0, testSettings(OverwriteOld, time.Second))
	if err != nil {
		t.Fatalf("NewConsumer: %v", err)
	}
	defer c.Close()

	for i := int64(1); i <= 5; i++ {
		rec, err := p.PreparePublish(time.Second)
		if err != nil {
			t.Fatalf("PreparePublish %d: %v", i, err)
		}
		fillTestRecord(rec, i)
		p.CommitPublish()
	}
}

// Boundary: a capacity-1 ring under Block deadlocks against an active
// consumer that starts caught up — the single slot's index is always
// the one the consumer's tail already occupies, so every publication
// reports full rather than clobbering unread data.
func TestCapacityOneBlockAlwaysFull(t *testing.T) {
	name := channelName(t)

	p, err := NewProducer[testRecord](name, 1, testSettings(Block, time.Second))
	if err != nil {
		t.Fatalf("NewProducer: %v", err)
	}
	defer p.Close()

	c, err := NewConsumer[testRecord](name, 0, testSettings(Block, time.Second))
	if err != nil {
		t.Fatalf("NewConsumer: %v", err)
	}
	defer c.Close()

	if _, err := p.PreparePublish(time.Second); !errors.Is(err, ErrFull) {
		t.Fatalf("expected ErrFull, got %v", err)
	}
}

func TestDisconnectedAfterForceKick(t *testing.T) {
	name := channelName(t)

	p, err := NewProducer[testRecord](name, 4, DefaultSettings())
	if err != nil {
		t.Fatalf("NewProducer: %v", err)
	}
	defer p.Close()

	c, err := NewConsumer[testRecord](name, 0, DefaultSettings())
	if err != nil {
		t.Fatalf("NewConsumer: %v", err)
	}

	admin, err := NewAdmin[testRecord](name)
	if err != nil {
		t.Fatalf("NewAdmin: %v", err)
	}
	defer admin.Close()

	if err := admin.ForceDisconnectConsumer(0); err != nil {
		t.Fatalf("ForceDisconnectConsumer: %v", err)
	}

	if _, err := c.Peek(); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("expected ErrDisconnected, got %v", err)
	}
}
