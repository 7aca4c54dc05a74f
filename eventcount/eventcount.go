// Package eventcount implements a counting, FIFO-fair wait/wake
// primitive: a single signed counter doubling as an event tally
// (positive) and a waiter tally (negative), backed by an intrusive
// FIFO list of parked threads.
//
// Grounded on C-kern/platform/Linux/sync/eventcount.c. Lock ordering is
// load-bearing and must never be reversed: the counter's spin lock is
// always acquired before a waiter's own spin lock (see wakeupThread vs.
// Wait's timeout path), matching lock_counter/lock_thread in the original.
package eventcount

import (
	"sync/atomic"
	"time"

	"github.com/je-so/js-projekt-sub005/internal/corelog"
	"github.com/je-so/js-projekt-sub005/platform"
)

// EventCount is a counting wait/wake primitive. The zero value is ready to
// use; there is no constructor because there is no setup beyond zeroing.
type EventCount struct {
	nrevents int32 // >0: queued events; <0: -waiters; never both
	lockflag atomic.Bool
	first    *platform.Thread
	last     *platform.Thread
}

func (c *EventCount) lock()   { for platform.TestAndSetFlag(&c.lockflag) { } }
func (c *EventCount) unlock() { platform.ClearFlag(&c.lockflag) }

// list operations assume c.lock() is held.

func (c *EventCount) listEmpty() bool { return c.first == nil }

func (c *EventCount) listInsertLast(th *platform.Thread) {
	th.SetListNext(nil)
	th.SetListPrev(c.last)
	th.SetLinked(true)
	if c.last != nil {
		c.last.SetListNext(th)
	} else {
		c.first = th
	}
	c.last = th
}

func (c *EventCount) listRemoveFirst() *platform.Thread {
	th := c.first
	if th == nil {
		return nil
	}
	c.listRemove(th)
	return th
}

func (c *EventCount) listRemove(th *platform.Thread) {
	if prev := th.ListPrev(); prev != nil {
		prev.SetListNext(th.ListNext())
	} else {
		c.first = th.ListNext()
	}
	if next := th.ListNext(); next != nil {
		next.SetListPrev(th.ListPrev())
	} else {
		c.last = th.ListPrev()
	}
	th.SetListNext(nil)
	th.SetListPrev(nil)
	th.SetLinked(false)
}

// wakeupThread pops and resumes the longest-waiting thread, if any. Caller
// must hold c's counter lock; wakeupThread additionally takes the popped
// thread's own lock before unlinking it, matching lock_counter-before-
// lock_thread ordering in the original.
func (c *EventCount) wakeupThread() {
	th := c.first
	if th == nil {
		return
	}
	platform.LockThread(th)
	c.listRemoveFirst()
	platform.UnlockThread(th)
	platform.Resume(th)
}

// NrEvents returns the number of queued-but-unconsumed events.
func (c *EventCount) NrEvents() uint32 {
	v := atomic.LoadInt32(&c.nrevents)
	if v >= 0 {
		return uint32(v)
	}
	return 0
}

// NrWaiting returns the number of threads currently parked in Wait.
func (c *EventCount) NrWaiting() uint32 {
	v := atomic.LoadInt32(&c.nrevents)
	if v < 0 {
		return uint32(-v)
	}
	return 0
}

// Count signals one event: if a thread is waiting (nrevents was negative),
// the longest-waiting one is popped and resumed; otherwise the event is
// queued for a future TryWait/Wait to consume.
func (c *EventCount) Count() {
	old := platform.AtomicAdd(&c.nrevents, 1)
	if old == 1<<31-1 {
		panic("eventcount: nrevents overflow")
	}
	if old < 0 {
		c.lock()
		c.wakeupThread()
		c.unlock()
	}
}

// TryWait consumes one queued event without blocking, or returns
// ErrNoEvent if none is available.
func (c *EventCount) TryWait() error {
	old := atomic.LoadInt32(&c.nrevents)
	for old > 0 {
		observed := platform.AtomicCompareAndSwap(&c.nrevents, old, old-1)
		if observed == old {
			return nil
		}
		old = observed
	}
	return ErrNoEvent
}

// Wait consumes one event, blocking until one is signalled by Count if
// none is currently queued. If timeout is non-nil and elapses first, Wait
// returns platform.ErrTimedOut and the counter is left exactly as if Wait
// had never been called (no event consumed).
func (c *EventCount) Wait(timeout *time.Duration) error {
	if c.TryWait() == nil {
		return nil
	}
	return c.wait2(timeout)
}

func (c *EventCount) wait2(timeout *time.Duration) error {
	self := platform.NewThread()

	c.lock()
	old := platform.AtomicAdd(&c.nrevents, -1)
	if old == -(1 << 31) {
		panic("eventcount: nrevents underflow")
	}
	if old > 0 {
		// A concurrent Count() raced us and had already incremented past
		// zero: the decrement above consumed that event, no need to park.
		c.unlock()
		return nil
	}
	c.listInsertLast(self)
	c.unlock()

	for {
		err := platform.SuspendSelf(self, timeout)
		if err != nil {
			// Timed out: reclaim our slot unless a concurrent Count()
			// already popped us off the list. self.Linked() is maintained
			// explicitly by listInsertLast/listRemove rather than inferred
			// from ListNext()==nil, since a non-circular list's tail node
			// has a nil ListNext while still linked — indistinguishable
			// from "already unlinked" if ListNext alone were consulted.
			c.lock()
			if !self.Linked() {
				c.unlock()
				return nil
			}
			c.listRemove(self)
			platform.AtomicAdd(&c.nrevents, 1)
			c.unlock()
			corelog.Debug("eventcount wait timed out", map[string]string{})
			return err
		}

		// Spurious resume check: Resume only ever runs after the waker has
		// already unlinked us (wakeupThread clears Linked before calling
		// Resume), so a still-linked self here means channel close raced
		// ahead of the unlink and this wakeup is not ours to trust.
		platform.LockThread(self)
		stillLinked := self.Linked()
		platform.UnlockThread(self)
		if !stillLinked {
			return nil
		}
	}
}

// Free resets the counter to empty, waking every currently parked waiter
// with no event delivered (their Wait calls return nil with a phantom
// event, matching free_eventcount's unconditional drain).
func (c *EventCount) Free() {
	c.lock()
	atomic.StoreInt32(&c.nrevents, 0)
	for !c.listEmpty() {
		c.wakeupThread()
	}
	c.unlock()
}
