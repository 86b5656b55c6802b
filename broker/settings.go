package broker

import (
	"log/slog"
	"time"
)

// OverflowPolicy decides what the producer does when the next write
// would clobber a slot an active consumer has not yet read.
type OverflowPolicy uint8

const (
	// Block makes PreparePublish return ErrFull instead of clobbering
	// an unread slot held by a live consumer.
	Block OverflowPolicy = iota

	// OverwriteOld advances the blocking consumer's tail by one slot,
	// letting the producer proceed; the consumer discovers the loss
	// through the sequence-before/sequence-after torn-read check.
	OverwriteOld
)

// MaxConsumers is the fixed size of the header's per-consumer tables.
const MaxConsumers = 16

// Settings configures a Producer or Consumer. The zero value is not
// valid; use DefaultSettings as a base. Admin takes no Settings: it
// attaches in inert mode and never registers, so none of these
// apply.
type Settings struct {
	OverflowPolicy  OverflowPolicy
	ProducerTimeout time.Duration
	SpinIterations  int
	YieldIterations int
	Logger          *slog.Logger
}

// DefaultSettings returns a conservative baseline: blocking backpressure,
// a generous producer timeout, and a moderate spin/yield escalation.
func DefaultSettings() Settings {
	return Settings{
		OverflowPolicy:  Block,
		ProducerTimeout: 10 * time.Second,
		SpinIterations:  1000,
		YieldIterations: 10000,
	}
}

func (s Settings) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}

	return slog.Default()
}
