package eventcount

import "errors"

// ErrNoEvent is returned by TryWait when no event is currently queued
// (EAGAIN in the original's trywait_eventcount).
var ErrNoEvent = errors.New("eventcount: no event available")
