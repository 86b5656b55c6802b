package broker

import "golang.org/x/sys/unix"

// nowMillis reads CLOCK_MONOTONIC, the same clock every process on
// the host shares regardless of wall-clock adjustments — heartbeats
// and timeouts are compared across process boundaries, so a
// per-process monotonic reading (as Go's time.Now() gives, but does
// not expose) would not be comparable.
func nowMillis() int64 {
	var ts unix.Timespec

	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0
	}

	return int64(ts.Sec)*1000 + int64(ts.Nsec)/1_000_000
}
