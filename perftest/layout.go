// Package perftest implements a fork/thread fan-out benchmarking harness:
// a shared memory region of {header, instance[N], process[P]}, three pipe
// barriers, a five-state setup/teardown ladder with cascading abort, and
// total_ops/max_usec aggregation.
//
// Grounded on C-kern/test/perftest.c's state machine. Go has no safe
// fork, so platform.SpawnProcess re-execs the current binary (see its doc
// comment); the shared region that makes per-instance nrops/usec visible
// to the parent after child exit is therefore backed by an inheritable
// file descriptor (platform.SharedRegion), not a bare anonymous mapping.
package perftest

import "encoding/binary"

// Layout constants for the shared region: a fixed-size header, followed by
// InstanceCount fixed-stride instance records, followed by ProcessCount
// fixed-stride process records.
const (
	headerSize         = 40
	instanceRecordSize = 40
	processRecordSize  = 8
)

// header field byte offsets.
const (
	hdrPageSize       = 0  // uint32
	hdrInstanceCount  = 4  // uint32
	hdrProcessCount   = 8  // uint32
	hdrThreadsPerProc = 12 // uint32
	hdrStartSec       = 16 // int64
	hdrStartNsec      = 24 // int32
	hdrAddr           = 28 // uint64 (user shared_addr passthrough)
	// 36..40 reserved/padding
)

// instance record field byte offsets.
const (
	insNrOps  = 0  // uint64
	insUsec   = 8  // uint64
	insAddr   = 16 // uint64
	insSize   = 24 // uint64
	insID     = 32 // uint32
	insStatus = 36 // uint32: 0 pending, 1 ok, 2 error
)

// process record field byte offsets.
const (
	procPID  = 0 // uint32
	procDone = 4 // uint32: 0 running, 1 exited
)

func regionSize(instanceCount, processCount uint32) (int, bool) {
	n := uint64(headerSize) + uint64(instanceCount)*uint64(instanceRecordSize) + uint64(processCount)*uint64(processRecordSize)
	if n > uint64(^uint(0)>>1) {
		return 0, false
	}
	return int(n), true
}

type header struct{ b []byte }

func (h header) setPageSize(v uint32)       { binary.LittleEndian.PutUint32(h.b[hdrPageSize:], v) }
func (h header) setInstanceCount(v uint32)  { binary.LittleEndian.PutUint32(h.b[hdrInstanceCount:], v) }
func (h header) instanceCount() uint32      { return binary.LittleEndian.Uint32(h.b[hdrInstanceCount:]) }
func (h header) setProcessCount(v uint32)   { binary.LittleEndian.PutUint32(h.b[hdrProcessCount:], v) }
func (h header) processCount() uint32       { return binary.LittleEndian.Uint32(h.b[hdrProcessCount:]) }
func (h header) setThreadsPerProc(v uint32) { binary.LittleEndian.PutUint32(h.b[hdrThreadsPerProc:], v) }
func (h header) threadsPerProc() uint32     { return binary.LittleEndian.Uint32(h.b[hdrThreadsPerProc:]) }
func (h header) setStartSec(v int64)        { binary.LittleEndian.PutUint64(h.b[hdrStartSec:], uint64(v)) }
func (h header) startSec() int64            { return int64(binary.LittleEndian.Uint64(h.b[hdrStartSec:])) }
func (h header) setStartNsec(v int32)       { binary.LittleEndian.PutUint32(h.b[hdrStartNsec:], uint32(v)) }
func (h header) startNsec() int32           { return int32(binary.LittleEndian.Uint32(h.b[hdrStartNsec:])) }
func (h header) setUserAddr(v uint64)       { binary.LittleEndian.PutUint64(h.b[hdrAddr:], v) }
func (h header) userAddr() uint64           { return binary.LittleEndian.Uint64(h.b[hdrAddr:]) }

func instanceOffset(id uint32) int {
	return headerSize + int(id)*instanceRecordSize
}

func processOffset(instanceCount uint32, idx uint32) int {
	return headerSize + int(instanceCount)*instanceRecordSize + int(idx)*processRecordSize
}

type processRecord struct{ b []byte }

func (p processRecord) setPID(v uint32) { binary.LittleEndian.PutUint32(p.b[procPID:], v) }
func (p processRecord) pid() uint32     { return binary.LittleEndian.Uint32(p.b[procPID:]) }
func (p processRecord) setDone(v bool) {
	var x uint32
	if v {
		x = 1
	}
	binary.LittleEndian.PutUint32(p.b[procDone:], x)
}
func (p processRecord) done() bool { return binary.LittleEndian.Uint32(p.b[procDone:]) != 0 }
