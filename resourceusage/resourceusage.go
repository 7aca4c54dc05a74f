// Package resourceusage snapshots process resource usage (open file
// descriptors, heap allocation) so test bodies can assert they give back
// what they borrowed. It is the Go counterpart to
// C-kern/test/resourceusage.c's init_resourceusage/same_resourceusage
// pair. Go has no single allocator to query the way the original queries
// glibc malloc, so HeapAlloc comes from runtime.MemStats instead, forced
// through two GC passes first the same way a getMemStats-style leak test
// sample would, before comparing.
package resourceusage

import (
	"fmt"
	"runtime"
	"testing"

	"golang.org/x/sys/unix"
)

// Usage is a point-in-time snapshot of process resource consumption.
type Usage struct {
	FDs       int
	HeapAlloc uint64
}

// Snapshot captures current resource usage. It forces two garbage
// collections first so HeapAlloc reflects live objects rather than
// garbage still awaiting collection.
func Snapshot() Usage {
	runtime.GC()
	runtime.GC()
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return Usage{FDs: openFDCount(), HeapAlloc: m.HeapAlloc}
}

// openFDCount counts open file descriptors by probing each fd below the
// process's soft RLIMIT_NOFILE with fcntl(F_GETFD). This needs no /proc
// mount, unlike counting entries under /proc/self/fd, so it works the
// same on Linux and Darwin.
func openFDCount() int {
	var rlim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rlim); err != nil {
		return -1
	}
	n := 0
	for fd := 0; fd < int(rlim.Cur); fd++ {
		if _, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0); err == nil {
			n++
		}
	}
	return n
}

// LeakError reports a resource usage difference between two snapshots.
type LeakError struct {
	Reason string
	Before Usage
	After  Usage
}

func (e *LeakError) Error() string {
	return fmt.Sprintf("resourceusage: %s (before=%+v after=%+v)", e.Reason, e.Before, e.After)
}

// Compare reports whether after differs from u beyond heapTolerance bytes
// of heap growth, mirroring same_resourceusage's filedescriptor_usage and
// malloc_usage checks. The original's mapped-region and signal-mask
// checks have no kept Go analogue: the runtime's own background mappings
// and goroutine-driven signal delivery make both too noisy to serve as a
// leak signal here.
func (u Usage) Compare(after Usage, heapTolerance uint64) error {
	if u.FDs >= 0 && after.FDs >= 0 && after.FDs != u.FDs {
		return &LeakError{Reason: "file descriptor count changed", Before: u, After: after}
	}
	if after.HeapAlloc > u.HeapAlloc+heapTolerance {
		return &LeakError{Reason: "heap allocation grew beyond tolerance", Before: u, After: after}
	}
	return nil
}

// AssertNoLeak snapshots current usage and fails tb if it differs from u
// beyond heapTolerance. It packages the baseline/after MemStats sampling
// pattern so every package's tests can call one line instead of repeating
// the GC-then-compare dance.
func (u Usage) AssertNoLeak(tb testing.TB, heapTolerance uint64) {
	tb.Helper()
	after := Snapshot()
	if err := u.Compare(after, heapTolerance); err != nil {
		tb.Error(err)
	}
}
