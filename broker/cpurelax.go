package broker

import (
	"runtime"
	"sync/atomic"
)

// cpuRelax yields the CPU to another goroutine for one scheduling
// quantum instead of busy-spinning flat out. Go exposes no CPU pause
// intrinsic, so Gosched is the closest portable stand-in.
func cpuRelax() {
	runtime.Gosched()
}

// spinAcquireLock busy-waits for flag to go false then claims it.
// There is exactly one producer per channel, so the lock is never
// expected to be held for long.
func spinAcquireLock(flag *atomic.Bool) {
	for !flag.CompareAndSwap(false, true) {
		cpuRelax()
	}
}
