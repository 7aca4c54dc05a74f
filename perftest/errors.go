package perftest

import "errors"

var (
	// ErrCancelled is returned by Exec when any instance's prepare callback
	// reported failure on the ready channel, cascading an abort through the
	// run barrier so that no instance runs. A failing run or unprepare
	// callback does not produce ErrCancelled: it makes its child process
	// exit non-zero, which Exec reports as ErrChildExited.
	ErrCancelled = errors.New("perftest: run was cancelled by an instance failure")
	// ErrCountOverflow is returned when processes*threadsPerProcess would
	// not fit in a uint32, or the computed region size overflows.
	ErrCountOverflow = errors.New("perftest: instance count or region size overflows")
	// ErrChildExited is returned (wrapped, with exit detail) when a child
	// process exits with a non-zero code outside of a reported cancellation.
	ErrChildExited = errors.New("perftest: child process exited with an error")
)
