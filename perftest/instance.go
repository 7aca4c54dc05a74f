package perftest

import "encoding/binary"

// instanceStatus values written to a record's status field (0 pending,
// 1 ok, 2 error). They are separate from the barrier bytes sent on the
// ready channel (barrierGo/barrierAbort in harness.go).
const (
	statusPending = 0
	statusOK      = 1
	statusError   = 2
)

// Instance is a handle onto one instance's record in the shared region. It
// is valid for the lifetime of the Exec call that produced it; prepare,
// run, and unprepare callbacks receive one each and should only touch
// their own instance's fields — each instance writes only its own record,
// and the harness never synchronizes concurrent instance access beyond
// that convention.
type Instance struct {
	region []byte
	id     uint32
}

func (in *Instance) bytes() []byte {
	off := instanceOffset(in.id)
	return in.region[off : off+instanceRecordSize]
}

// ID returns the instance's index in [0, N).
func (in *Instance) ID() uint32 { return in.id }

// NrOps and SetNrOps access the instance's operation-count field.
func (in *Instance) NrOps() uint64      { return binary.LittleEndian.Uint64(in.bytes()[insNrOps:]) }
func (in *Instance) SetNrOps(v uint64)  { binary.LittleEndian.PutUint64(in.bytes()[insNrOps:], v) }

// Usec and SetUsec access the instance's elapsed-microseconds field.
func (in *Instance) Usec() uint64     { return binary.LittleEndian.Uint64(in.bytes()[insUsec:]) }
func (in *Instance) SetUsec(v uint64) { binary.LittleEndian.PutUint64(in.bytes()[insUsec:], v) }

// Addr and SetAddr access an opaque pointer-sized field the caller may use
// to address its own benchmarked shared payload.
func (in *Instance) Addr() uint64     { return binary.LittleEndian.Uint64(in.bytes()[insAddr:]) }
func (in *Instance) SetAddr(v uint64) { binary.LittleEndian.PutUint64(in.bytes()[insAddr:], v) }

// Size and SetSize access the byte-length counterpart of Addr.
func (in *Instance) Size() uint64     { return binary.LittleEndian.Uint64(in.bytes()[insSize:]) }
func (in *Instance) SetSize(v uint64) { binary.LittleEndian.PutUint64(in.bytes()[insSize:], v) }

func (in *Instance) status() uint32     { return binary.LittleEndian.Uint32(in.bytes()[insStatus:]) }
func (in *Instance) setStatus(v uint32) { binary.LittleEndian.PutUint32(in.bytes()[insStatus:], v) }

func (in *Instance) setID(v uint32) { binary.LittleEndian.PutUint32(in.bytes()[insID:], v) }
