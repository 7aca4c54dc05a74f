package perftest

// InstanceFunc is one stage of a perftest implementation: prepare, run, or
// unprepare. A nil InstanceFunc is treated as trivially successful — Impl
// is a triple of optional callbacks.
type InstanceFunc func(*Instance) error

// Impl is the triple of per-instance callbacks a benchmark supplies.
// Run's duration (wall time between the run barrier release and Run's
// return) is what Exec aggregates into Result.MaxUsec.
type Impl struct {
	Prepare   InstanceFunc
	Run       InstanceFunc
	Unprepare InstanceFunc
}

func (im Impl) callPrepare(in *Instance) error {
	if im.Prepare == nil {
		return nil
	}
	return im.Prepare(in)
}

func (im Impl) callRun(in *Instance) error {
	if im.Run == nil {
		return nil
	}
	return im.Run(in)
}

func (im Impl) callUnprepare(in *Instance) error {
	if im.Unprepare == nil {
		return nil
	}
	return im.Unprepare(in)
}

// Result is the aggregate of one Exec run.
type Result struct {
	// TotalOps is the sum of NrOps across all P*T instances.
	TotalOps uint64
	// MaxUsec is the largest per-instance elapsed run time, in
	// microseconds — the worst straggler.
	MaxUsec uint64
	// Checksum is the SHA-1 digest of the entire shared region after the
	// run, populated only when WithChecksum(true) was passed to Exec.
	Checksum [20]byte
	// HasChecksum reports whether Checksum was actually computed.
	HasChecksum bool
}
