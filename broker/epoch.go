package broker

import (
	"crypto/rand"
	"encoding/binary"
)

// randomEpoch picks the producer-lifetime identifier every consumer
// peek compares against. crypto/rand gives an unpredictable 64-bit
// value without pulling in a PRNG library.
func randomEpoch() uint64 {
	var b [8]byte

	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand.Read only fails if the OS entropy source is
		// broken; fall back to a fixed-but-nonzero value so the
		// channel still behaves (epoch changes on every restart are
		// still detected, just not unpredictably).
		return 0x9e3779b97f4a7c15
	}

	return binary.LittleEndian.Uint64(b[:])
}
