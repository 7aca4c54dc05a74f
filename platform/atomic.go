package platform

import "sync/atomic"

// AtomicAdd adds delta to *addr and returns the value it held immediately
// before the add, matching the C add_atomicint's "return old value"
// convention used throughout eventcount.c.
func AtomicAdd(addr *int32, delta int32) int32 {
	return atomic.AddInt32(addr, delta) - delta
}

// AtomicCompareAndSwap performs a CAS on *addr and returns the value
// observed at *addr (which equals expected iff the swap succeeded), again
// matching the C cmpxchg_atomicint convention of returning the observed
// value rather than a bool.
func AtomicCompareAndSwap(addr *int32, expected, new int32) int32 {
	for {
		old := atomic.LoadInt32(addr)
		if old != expected {
			return old
		}
		if atomic.CompareAndSwapInt32(addr, expected, new) {
			return expected
		}
	}
}

// TestAndSetFlag atomically sets *flag to true and returns its previous
// value, the Go analogue of the C set_atomicflag spin-flag primitive.
func TestAndSetFlag(flag *atomic.Bool) bool {
	return flag.Swap(true)
}

// ClearFlag atomically clears *flag (clear_atomicflag).
func ClearFlag(flag *atomic.Bool) {
	flag.Store(false)
}
