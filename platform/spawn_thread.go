package platform

import "runtime"

// ThreadHandle is the platform's notion of an OS-thread-backed worker. Go
// has no user-facing OS thread handle, so a goroutine pinned (optionally)
// to its own OS thread via runtime.LockOSThread stands in for it: workers
// within a child process do not need fork semantics, only a thread each.
type ThreadHandle struct {
	done chan int
}

// SpawnThread runs fn on a fresh goroutine and returns a handle to join it.
// When pinOSThread is true, fn's goroutine is locked to its own OS thread
// for the duration of the call (perftest uses this so that per-instance
// timing reflects one real OS thread of execution, matching the original
// harness's pthread-per-instance model).
func SpawnThread(pinOSThread bool, fn func() int) *ThreadHandle {
	h := &ThreadHandle{done: make(chan int, 1)}
	go func() {
		if pinOSThread {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
		}
		h.done <- fn()
	}()
	return h
}

// JoinThread blocks until the thread's function returns, yielding its
// result code (0 conventionally meaning success, by caller convention).
func JoinThread(h *ThreadHandle) int {
	return <-h.done
}
