package perftest

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/je-so/js-projekt-sub005/internal/corelog"
	"github.com/je-so/js-projekt-sub005/ioevent"
	"github.com/je-so/js-projekt-sub005/platform"
	"github.com/je-so/js-projekt-sub005/sha1"
	"github.com/je-so/js-projekt-sub005/systimer"
	"github.com/je-so/js-projekt-sub005/termline"
)

const (
	envChildMarker    = "PERFTEST_CHILD"
	envImplName       = "PERFTEST_IMPL"
	envProcIndex      = "PERFTEST_PROC_INDEX"
	envProcCount      = "PERFTEST_PROC_COUNT"
	envThreadsPerProc = "PERFTEST_THREADS_PER_PROC"
	envInstanceCount  = "PERFTEST_INSTANCE_COUNT"
	envRegionSize     = "PERFTEST_REGION_SIZE"
	envBarrierTimeout = "PERFTEST_BARRIER_TIMEOUT_MS"
	envFirstInstance  = "PERFTEST_FIRST_INSTANCE"
	envPinOSThreads   = "PERFTEST_PIN_OS_THREADS"
)

// child fd slots, fixed by the order Exec passes to platform.SpawnProcess's
// extraFiles.
const (
	fdSharedRegion = 3
	fdPrepareRead  = 4
	fdRunRead      = 5
	fdReadyWrite   = 6
)

// barrier byte values. These travel over the prepare/run/ready pipes and
// are deliberately distinct from the instance statusPending/OK/Error
// values in instance.go: a barrier byte says "proceed or abort", an
// instance status says "this instance's callback succeeded or not".
const (
	barrierGo    byte = 0
	barrierAbort byte = 1
)

// Exec runs implName's registered Impl across processes*threadsPerProcess
// instances and returns the aggregated result. userAddr/userSize, if
// non-zero, are recorded in every instance's Addr/Size fields as the bounds
// of a benchmark payload the caller has arranged to be visible to every
// instance (the harness's own shared region is separate bookkeeping and is
// not expanded to hold that payload).
//
// Exec must only be called from the parent side of a binary whose main()
// also calls MaybeRunChild() at startup, after every Impl Exec might name
// has been registered — see the doc comment on registry in registry.go.
func Exec(implName string, processes, threadsPerProcess uint32, userAddr uint64, userSize uint64, opts ...Option) (Result, error) {
	cfg := resolveOptions(opts)

	if processes == 0 || threadsPerProcess == 0 {
		return Result{}, errors.New("perftest: processes and threadsPerProcess must be non-zero")
	}
	n64 := uint64(processes) * uint64(threadsPerProcess)
	if n64 > uint64(^uint32(0)) {
		return Result{}, ErrCountOverflow
	}
	instanceCount := uint32(n64)

	size, ok := regionSize(instanceCount, processes)
	if !ok {
		return Result{}, ErrCountOverflow
	}

	if _, ok := lookup(implName); !ok {
		return Result{}, fmt.Errorf("perftest: no Impl registered under name %q", implName)
	}

	h := &harness{cfg: cfg, instanceCount: instanceCount, processCount: processes, threadsPerProc: threadsPerProcess}
	return h.run(implName, size, userAddr, userSize)
}

// harness tracks the five-state setup ladder so a failure at any stage
// unwinds exactly what was built, in reverse.
type harness struct {
	cfg            *options
	instanceCount  uint32
	processCount   uint32
	threadsPerProc uint32

	region             *platform.SharedRegion
	prepareR, prepareW *os.File
	runR, runW         *os.File
	readyR, readyW     *os.File
	procs              []*platform.ProcessHandle
	stage              int // highest successfully reached state, 0..5
}

func (h *harness) run(implName string, size int, userAddr, userSize uint64) (result Result, err error) {
	defer func() {
		if tErr := h.teardown(); tErr != nil {
			corelog.Err("perftest: teardown reported an error", tErr, map[string]string{"implName": implName})
			if err == nil {
				err = tErr
			}
		}
	}()

	if h.region, err = platform.AllocSharedRegion(size); err != nil {
		return Result{}, errors.Wrap(err, "perftest: allocate shared region")
	}
	h.stage = 1

	hdr := header{h.region.Mem[:headerSize]}
	hdr.setPageSize(uint32(platform.PageSize()))
	hdr.setInstanceCount(h.instanceCount)
	hdr.setProcessCount(h.processCount)
	hdr.setThreadsPerProc(h.threadsPerProc)
	hdr.setUserAddr(userAddr)
	for id := uint32(0); id < h.instanceCount; id++ {
		in := Instance{region: h.region.Mem, id: id}
		in.setID(id)
		in.SetAddr(userAddr)
		in.SetSize(userSize)
		in.setStatus(statusPending)
	}

	if h.prepareR, h.prepareW, err = platform.NewPipe(); err != nil {
		return Result{}, errors.Wrap(err, "perftest: create prepare barrier")
	}
	h.stage = 2

	if h.runR, h.runW, err = platform.NewPipe(); err != nil {
		return Result{}, errors.Wrap(err, "perftest: create run barrier")
	}
	h.stage = 3

	if h.readyR, h.readyW, err = platform.NewPipe(); err != nil {
		return Result{}, errors.Wrap(err, "perftest: create ready channel")
	}
	h.stage = 4

	if err = h.spawnProcesses(implName); err != nil {
		return Result{}, errors.Wrap(err, "perftest: spawn processes")
	}
	h.stage = 5

	start := platform.MonotonicNow()
	hdr.setStartSec(start.Sec)
	hdr.setStartNsec(start.Nsec)

	return h.drive()
}

func (h *harness) spawnProcesses(implName string) error {
	timeoutMs := strconv.FormatInt(h.cfg.barrierTimeout.Milliseconds(), 10)
	pin := "0"
	if h.cfg.pinOSThreads {
		pin = "1"
	}
	h.procs = make([]*platform.ProcessHandle, 0, h.processCount)
	for p := uint32(0); p < h.processCount; p++ {
		first := p * h.threadsPerProc
		env := []string{
			envChildMarker + "=1",
			envImplName + "=" + implName,
			envProcIndex + "=" + strconv.FormatUint(uint64(p), 10),
			envProcCount + "=" + strconv.FormatUint(uint64(h.processCount), 10),
			envThreadsPerProc + "=" + strconv.FormatUint(uint64(h.threadsPerProc), 10),
			envInstanceCount + "=" + strconv.FormatUint(uint64(h.instanceCount), 10),
			envRegionSize + "=" + strconv.Itoa(len(h.region.Mem)),
			envBarrierTimeout + "=" + timeoutMs,
			envFirstInstance + "=" + strconv.FormatUint(uint64(first), 10),
			envPinOSThreads + "=" + pin,
		}
		extraFiles := []*os.File{h.region.File, h.prepareR, h.runR, h.readyW}
		handle, err := platform.SpawnProcess(env, extraFiles)
		if err != nil {
			return fmt.Errorf("spawning process %d: %w", p, err)
		}
		h.procs = append(h.procs, handle)

		pr := processRecord{h.region.Mem[processOffset(h.instanceCount, p) : processOffset(h.instanceCount, p)+processRecordSize]}
		pr.setPID(0)
		pr.setDone(false)
	}
	return nil
}

// drive runs the barrier protocol once every process is spawned: release
// prepare, collect ready statuses, release run (cascading abort on any
// reported prepare failure), reap every process, then aggregate.
func (h *harness) drive() (Result, error) {
	timeout := h.cfg.barrierTimeout
	n := h.instanceCount

	goBytes := make([]byte, n)
	if err := platform.WriteFull(h.prepareW, goBytes, timeout); err != nil {
		h.abortRunBarrier(timeout)
		h.reapAll(timeout)
		return h.aggregate(), errors.Wrap(err, "perftest: release prepare barrier")
	}

	if err := h.waitReadable(h.readyR, timeout); err != nil {
		h.abortRunBarrier(timeout)
		h.reapAll(timeout)
		return h.aggregate(), errors.Wrap(err, "perftest: poll ready channel")
	}
	readyBuf := make([]byte, n)
	if err := platform.ReadFull(h.readyR, readyBuf, timeout); err != nil {
		h.abortRunBarrier(timeout)
		h.reapAll(timeout)
		return h.aggregate(), errors.Wrap(err, "perftest: read ready channel")
	}

	abort := false
	for _, b := range readyBuf {
		if b != barrierGo {
			abort = true
			break
		}
	}

	runByte := barrierGo
	if abort {
		runByte = barrierAbort
	}
	// The run-phase start time is recorded just before the run barrier is
	// released; each instance measures its elapsed time against it.
	hdr := header{h.region.Mem[:headerSize]}
	start := platform.MonotonicNow()
	hdr.setStartSec(start.Sec)
	hdr.setStartNsec(start.Nsec)

	procBytes := bytesRepeat(runByte, h.processCount)
	if err := platform.WriteFull(h.runW, procBytes, timeout); err != nil {
		h.reapAll(timeout)
		return h.aggregate(), errors.Wrap(err, "perftest: release run barrier (process stage)")
	}
	instBytes := bytesRepeat(runByte, n)
	if err := platform.WriteFull(h.runW, instBytes, timeout); err != nil {
		h.reapAll(timeout)
		return h.aggregate(), errors.Wrap(err, "perftest: release run barrier (instance stage)")
	}

	stopProgress := h.startInteractiveProgress()
	exitErr := h.reapAll(timeout)
	stopProgress()
	result := h.aggregate()

	if abort {
		return result, ErrCancelled
	}
	if exitErr != nil {
		return result, exitErr
	}
	return result, nil
}

// abortRunBarrier best-effort notifies already-spawned children blocked at
// the run barrier that they should give up, used when the harness itself
// fails mid-protocol (e.g. the ready-channel read times out) and children
// might otherwise hang forever waiting for a release that will never come
// through the normal path.
func (h *harness) abortRunBarrier(timeout time.Duration) {
	procBytes := bytesRepeat(barrierAbort, h.processCount)
	_ = platform.WriteFull(h.runW, procBytes, timeout)
	instBytes := bytesRepeat(barrierAbort, h.instanceCount)
	_ = platform.WriteFull(h.runW, instBytes, timeout)
}

// waitReadable blocks until f has data to read, using an ioevent.Poller
// when WithIOEventPoller was enabled; otherwise it is a no-op, leaving the
// wait entirely to ReadFull's own deadline.
func (h *harness) waitReadable(f *os.File, timeout time.Duration) error {
	if !h.cfg.ioEventPoller {
		return nil
	}
	p, err := ioevent.NewPoller()
	if err != nil {
		return err
	}
	defer p.Close()

	ready := make(chan struct{}, 1)
	if err := p.RegisterFD(int(f.Fd()), ioevent.Read, func(ioevent.Events) {
		select {
		case ready <- struct{}{}:
		default:
		}
	}); err != nil {
		return err
	}

	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return fmt.Errorf("perftest: ioevent poll timed out waiting for fd %d", f.Fd())
		}
		if _, err := p.Poll(int(remaining.Milliseconds())); err != nil {
			return err
		}
		select {
		case <-ready:
			return nil
		default:
		}
	}
}

// startInteractiveProgress redraws a single status line on stderr until the
// returned stop func is called, gated by WithInteractiveProgress. It counts
// the process records' done flags (set by each child's runChild once its
// share of instances finishes) as a coarse completion signal.
func (h *harness) startInteractiveProgress() (stop func()) {
	if !h.cfg.interactiveProgress || !termline.IsTerminal(int(os.Stderr.Fd())) {
		return func() {}
	}
	restore, err := termline.SetRaw(int(os.Stderr.Fd()))
	if err != nil {
		return func() {}
	}

	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				fmt.Fprint(os.Stderr, "\r\n")
				return
			case <-ticker.C:
				completed := 0
				for p := uint32(0); p < h.processCount; p++ {
					pr := processRecord{h.region.Mem[processOffset(h.instanceCount, p) : processOffset(h.instanceCount, p)+processRecordSize]}
					if pr.done() {
						completed++
					}
				}
				fmt.Fprintf(os.Stderr, "\rinstances completed: %d/%d processes", completed, h.processCount)
			}
		}
	}()

	return func() {
		close(done)
		<-finished
		_ = restore()
	}
}

func (h *harness) reapAll(timeout time.Duration) error {
	var firstErr error
	for i, p := range h.procs {
		res, err := reapWithTimeout(p, timeout+time.Second)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("reaping process %d: %w", i, err)
			continue
		}
		if res.ExitCode != 0 && firstErr == nil {
			firstErr = fmt.Errorf("%w: process %d exited %d", ErrChildExited, i, res.ExitCode)
		}
	}
	return firstErr
}

func reapWithTimeout(h *platform.ProcessHandle, timeout time.Duration) (platform.ProcessResult, error) {
	done := make(chan struct {
		res platform.ProcessResult
		err error
	}, 1)
	go func() {
		res, err := platform.WaitProcess(h)
		done <- struct {
			res platform.ProcessResult
			err error
		}{res, err}
	}()
	select {
	case d := <-done:
		return d.res, d.err
	case <-systimer.After(timeout):
		_ = platform.KillProcess(h)
		d := <-done
		return d.res, d.err
	}
}

func (h *harness) aggregate() Result {
	if h.region == nil {
		return Result{}
	}
	var result Result
	for id := uint32(0); id < h.instanceCount; id++ {
		in := Instance{region: h.region.Mem, id: id}
		result.TotalOps += in.NrOps()
		if u := in.Usec(); u > result.MaxUsec {
			result.MaxUsec = u
		}
	}
	if h.cfg.checksum {
		result.Checksum = sha1.Sum(h.region.Mem)
		result.HasChecksum = true
	}
	if h.cfg.metrics != nil {
		h.cfg.metrics.observe(result)
	}
	return result
}

// teardown releases whatever resources setup reached, in reverse order,
// wrapping the first-encountered failure while logging (never masking)
// any that follow — a best-effort teardown rule.
func (h *harness) teardown() error {
	var first error
	record := func(stage string, err error) {
		if err == nil {
			return
		}
		if first == nil {
			first = errors.Wrapf(err, "perftest teardown: %s", stage)
		} else {
			corelog.Err("perftest teardown: additional failure", err, map[string]string{"stage": stage})
		}
	}

	if h.stage == 4 {
		// spawnProcesses failed part way: stop and reap the children it had
		// already started (drive reaps them once stage 5 is reached).
		for _, p := range h.procs {
			_ = platform.KillProcess(p)
			_, _ = platform.WaitProcess(p)
		}
	}
	if h.stage >= 4 {
		record("close ready channel", closeBoth(h.readyR, h.readyW))
	}
	if h.stage >= 3 {
		record("close run barrier", closeBoth(h.runR, h.runW))
	}
	if h.stage >= 2 {
		record("close prepare barrier", closeBoth(h.prepareR, h.prepareW))
	}
	if h.stage >= 1 && h.region != nil {
		record("free shared region", h.region.Close())
	}
	return first
}

func closeBoth(a, b *os.File) error {
	var err error
	if a != nil {
		if e := a.Close(); e != nil {
			err = e
		}
	}
	if b != nil {
		if e := b.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}

func bytesRepeat(b byte, n uint32) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

// MaybeRunChild must be the first thing a perftest-using main() calls,
// after every Impl has been registered. If the process was spawned by Exec
// (detected via the env marker SpawnProcess sets), it runs that child's
// share of the instances and calls os.Exit — this call never returns in
// that branch. Otherwise it returns false immediately and the caller's
// normal main() proceeds as the parent.
func MaybeRunChild() bool {
	if os.Getenv(envChildMarker) != "1" {
		return false
	}
	os.Exit(runChild())
	return true // unreachable, satisfies callers that check the return value
}

type childConfig struct {
	implName       string
	procIndex      uint32
	procCount      uint32
	threadsPerProc uint32
	instanceCount  uint32
	regionSize     int
	barrierTimeout time.Duration
	firstInstance  uint32
	pinOSThreads   bool
}

func parseChildConfig() (childConfig, error) {
	var cfg childConfig
	cfg.implName = os.Getenv(envImplName)
	if cfg.implName == "" {
		return cfg, fmt.Errorf("perftest: child missing %s", envImplName)
	}
	fields := []struct {
		name string
		dst  *uint32
	}{
		{envProcIndex, &cfg.procIndex},
		{envProcCount, &cfg.procCount},
		{envThreadsPerProc, &cfg.threadsPerProc},
		{envInstanceCount, &cfg.instanceCount},
		{envFirstInstance, &cfg.firstInstance},
	}
	for _, f := range fields {
		v, err := strconv.ParseUint(os.Getenv(f.name), 10, 32)
		if err != nil {
			return cfg, fmt.Errorf("perftest: child env %s: %w", f.name, err)
		}
		*f.dst = uint32(v)
	}
	size, err := strconv.Atoi(os.Getenv(envRegionSize))
	if err != nil {
		return cfg, fmt.Errorf("perftest: child env %s: %w", envRegionSize, err)
	}
	cfg.regionSize = size
	ms, err := strconv.ParseInt(os.Getenv(envBarrierTimeout), 10, 64)
	if err != nil {
		return cfg, fmt.Errorf("perftest: child env %s: %w", envBarrierTimeout, err)
	}
	cfg.barrierTimeout = time.Duration(ms) * time.Millisecond
	cfg.pinOSThreads = os.Getenv(envPinOSThreads) == "1"
	return cfg, nil
}

// runChild is the body of a re-exec'd worker process: it opens the
// inherited shared region and pipe fds, runs its slice of instances through
// prepare -> (process barrier) -> run -> unprepare, and returns the process
// exit code (0 if every instance's callbacks all succeeded).
func runChild() int {
	cfg, err := parseChildConfig()
	if err != nil {
		corelog.Err("perftest: child failed to parse its configuration", err, nil)
		return 1
	}

	impl, ok := lookup(cfg.implName)
	if !ok {
		corelog.Err("perftest: child found no Impl registered under name", fmt.Errorf("%q", cfg.implName), map[string]string{"implName": cfg.implName})
		return 1
	}

	region, err := platform.OpenSharedRegion(os.NewFile(fdSharedRegion, "perftest-shared"), cfg.regionSize)
	if err != nil {
		corelog.Err("perftest: child failed to map the shared region", err, nil)
		return 1
	}
	defer region.Close()

	prepareR := os.NewFile(fdPrepareRead, "perftest-prepare-r")
	runR := os.NewFile(fdRunRead, "perftest-run-r")
	readyW := os.NewFile(fdReadyWrite, "perftest-ready-w")
	defer prepareR.Close()
	defer runR.Close()
	defer readyW.Close()

	c := &childRun{cfg: cfg, impl: impl, region: region.Mem, prepareR: prepareR, runR: runR, readyW: readyW}

	pr := processRecord{c.region[processOffset(cfg.instanceCount, cfg.procIndex) : processOffset(cfg.instanceCount, cfg.procIndex)+processRecordSize]}
	pr.setPID(uint32(os.Getpid()))
	exitCode := c.execute()
	pr.setDone(true)
	return exitCode
}

type childRun struct {
	cfg      childConfig
	impl     Impl
	region   []byte
	prepareR *os.File
	runR     *os.File
	readyW   *os.File
}

type workerOutcome struct {
	prepareOK bool
	runErr    error
}

// execute runs this process's threadsPerProc worker goroutines through the
// prepare/ready, process-gate, run/unprepare stages. Each worker reads its
// own byte off prepareR and runR: pipe reads of a single byte are what keep
// every worker (across every sibling process) reading from the same shared
// pipes without any of them needing to know the others' identities.
func (c *childRun) execute() int {
	n := c.cfg.threadsPerProc
	outcomes := make([]workerOutcome, n)
	readyBytes := make([]byte, n)

	prepHandles := make([]*platform.ThreadHandle, n)
	for i := uint32(0); i < n; i++ {
		i := i
		prepHandles[i] = platform.SpawnThread(c.cfg.pinOSThreads, func() int {
			in := &Instance{region: c.region, id: c.cfg.firstInstance + i}
			gate := make([]byte, 1)
			if err := platform.ReadFull(c.prepareR, gate, c.cfg.barrierTimeout); err != nil {
				corelog.Err("perftest: child prepare gate read failed", err, map[string]string{"instance": strconv.FormatUint(uint64(in.id), 10)})
				readyBytes[i] = barrierAbort
				return 1
			}
			if gate[0] != barrierGo {
				readyBytes[i] = barrierAbort
				return 1
			}
			if err := c.impl.callPrepare(in); err != nil {
				in.setStatus(statusError)
				readyBytes[i] = barrierAbort
				return 1
			}
			in.setStatus(statusOK)
			outcomes[i].prepareOK = true
			readyBytes[i] = barrierGo
			return 0
		})
	}
	for _, h := range prepHandles {
		platform.JoinThread(h)
	}

	_ = platform.WriteFull(c.readyW, readyBytes, c.cfg.barrierTimeout)

	procGate := make([]byte, 1)
	processAbort := true
	if err := platform.ReadFull(c.runR, procGate, c.cfg.barrierTimeout); err == nil {
		processAbort = procGate[0] != barrierGo
	}

	hdr := header{c.region[:headerSize]}
	runStart := platform.Clock{Sec: hdr.startSec(), Nsec: hdr.startNsec()}

	runHandles := make([]*platform.ThreadHandle, n)
	for i := uint32(0); i < n; i++ {
		i := i
		runHandles[i] = platform.SpawnThread(c.cfg.pinOSThreads, func() int {
			in := &Instance{region: c.region, id: c.cfg.firstInstance + i}

			instGate := make([]byte, 1)
			gateErr := platform.ReadFull(c.runR, instGate, c.cfg.barrierTimeout)
			skip := processAbort || !outcomes[i].prepareOK || gateErr != nil || instGate[0] != barrierGo

			if !skip {
				runErr := c.impl.callRun(in)
				// Elapsed is measured from the parent's recorded start time
				// (written into the shared header by drive() just before it
				// releases the run barrier, read back here
				// via startSec/startNsec), not from this goroutine's own
				// clock read: MaxUsec is meant to be the worst straggler
				// across the whole fan-out, and a per-instance-local start
				// would hide scheduling delay between the parent's recorded
				// start and this instance actually getting CPU time.
				elapsed := platform.MonotonicNow().Sub(runStart)
				in.SetUsec(uint64(elapsed.Microseconds()))
				if runErr != nil {
					in.setStatus(statusError)
					outcomes[i].runErr = runErr
				} else {
					in.setStatus(statusOK)
				}
			}

			if err := c.impl.callUnprepare(in); err != nil && outcomes[i].runErr == nil {
				outcomes[i].runErr = err
			}
			if outcomes[i].runErr != nil {
				return 1
			}
			return 0
		})
	}
	for _, h := range runHandles {
		platform.JoinThread(h)
	}

	for _, o := range outcomes {
		if !o.prepareOK || o.runErr != nil {
			return 1
		}
	}
	if processAbort {
		return 1
	}
	return 0
}
