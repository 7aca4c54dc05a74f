package perftest

import "time"

// options holds Exec's configuration, following the package's functional-
// options pattern (an unexported struct, an Option interface with an
// unexported apply method, a resolve helper seeding defaults).
type options struct {
	barrierTimeout      time.Duration
	metrics             *metricsCollector
	pinOSThreads        bool
	checksum            bool
	ioEventPoller       bool
	interactiveProgress bool
}

// Option configures an Exec call.
type Option interface {
	apply(*options)
}

type optionFunc func(*options)

func (f optionFunc) apply(o *options) { f(o) }

// WithBarrierTimeout overrides the default 5-second barrier-read timeout.
func WithBarrierTimeout(d time.Duration) Option {
	return optionFunc(func(o *options) { o.barrierTimeout = d })
}

// WithMetrics enables Prometheus counters for total ops and the per-run max
// straggler latency, registered once against reg (or the default
// registerer if reg is nil).
func WithMetrics(reg prometheusRegisterer) Option {
	return optionFunc(func(o *options) { o.metrics = newMetricsCollector(reg) })
}

// WithPinnedOSThreads locks each instance's goroutine to its own OS thread
// for the duration of prepare/run/unprepare, matching a pthread-per-instance
// timing model more closely (platform.SpawnThread's pinOSThread parameter).
func WithPinnedOSThreads(enabled bool) Option {
	return optionFunc(func(o *options) { o.pinOSThreads = enabled })
}

// WithChecksum has Exec compute a SHA-1 digest of the whole shared region
// after the run completes and report it in Result.Checksum, so a caller can
// detect a benchmark implementation that scribbled outside its own instance
// record.
func WithChecksum(enabled bool) Option {
	return optionFunc(func(o *options) { o.checksum = enabled })
}

// WithIOEventPoller has the harness wait for the ready channel to become
// readable via an ioevent.Poller (epoll/kqueue) before issuing the blocking
// ReadFull, instead of relying solely on ReadFull's own deadline. This is an
// alternative wait strategy, not a faster one — it exists so the two
// platform pipe-wait paths (deadline-based Read, readiness-based poll) both
// have an exercised caller.
func WithIOEventPoller(enabled bool) Option {
	return optionFunc(func(o *options) { o.ioEventPoller = enabled })
}

// WithInteractiveProgress redraws a single "instances completed: X/N" line
// on stderr while waiting for children to finish the run stage, putting the
// terminal into raw mode first (via termline) so child output or a stray
// keypress cannot interleave with the redraw. It is a no-op when stderr is
// not a terminal.
func WithInteractiveProgress(enabled bool) Option {
	return optionFunc(func(o *options) { o.interactiveProgress = enabled })
}

func resolveOptions(opts []Option) *options {
	cfg := &options{barrierTimeout: 5 * time.Second}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.apply(cfg)
	}
	return cfg
}
