// Package corelog is the ambient structured-logging seam shared by every
// core package (mergesort, rbtree, eventcount, perftest, and the peripheral
// packages). It follows a package-level-swappable-logger design (compare
// eventloop's logging.go): a global, lockable logger variable defaulting to
// a stderr logger at warning level and above, replaceable via SetLogger for
// integration with whatever logging stack the embedding program already
// uses.
//
// Nothing on a hot path (mergesort's compare loop, rbtree's rotate) ever
// calls through here — only eventcount's wait timeouts and perftest's
// child and teardown failures do.
package corelog

import (
	"os"
	"sync"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

var global struct {
	sync.RWMutex
	logger *logiface.Logger[*stumpy.Event]
}

func init() {
	global.logger = logiface.New[*stumpy.Event](
		logiface.WithLevel(logiface.LevelWarning),
		stumpy.WithStumpy(stumpy.WithWriter(os.Stderr)),
	)
}

// SetLogger replaces the package-level logger. Passing nil restores the
// default (stderr, warning-and-above) logger.
func SetLogger(l *logiface.Logger[*stumpy.Event]) {
	global.Lock()
	defer global.Unlock()
	if l == nil {
		l = logiface.New[*stumpy.Event](
			logiface.WithLevel(logiface.LevelWarning),
			stumpy.WithStumpy(stumpy.WithWriter(os.Stderr)),
		)
	}
	global.logger = l
}

func get() *logiface.Logger[*stumpy.Event] {
	global.RLock()
	defer global.RUnlock()
	return global.logger
}

// Warn logs a warning-level structured event.
func Warn(msg string, fields map[string]string) {
	b := get().Warning()
	for k, v := range fields {
		b = b.Str(k, v)
	}
	b.Log(msg)
}

// Debug logs a debug-level structured event, e.g. an eventcount wait that
// timed out.
func Debug(msg string, fields map[string]string) {
	b := get().Debug()
	for k, v := range fields {
		b = b.Str(k, v)
	}
	b.Log(msg)
}

// Err logs an error-level event with its cause, e.g. a perftest teardown
// failure or a child's failed prepare-barrier read.
func Err(msg string, err error, fields map[string]string) {
	b := get().Err().Err(err)
	for k, v := range fields {
		b = b.Str(k, v)
	}
	b.Log(msg)
}
